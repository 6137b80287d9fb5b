package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/botwatch/internal/config"
)

// ApplicationName identifies the dashboard in pg_stat_activity.
const ApplicationName = "botwatch"

// BuildConnString returns a postgres:// URL for cfg.
// Every transaction on the resulting connections is read-only.
func BuildConnString(cfg config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("default_transaction_read_only", "on")
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
