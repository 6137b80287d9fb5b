package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// marketKeys are the payload fields that identify an event's market, in priority order.
var marketKeys = []string{"market_slug", "slug", "market"}

// MarketSlugOf returns the market identifier carried by a raw payload.
func MarketSlugOf(payload map[string]any) (string, bool) {
	for _, k := range marketKeys {
		if s, ok := payload[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// NewTradeEvent builds a TradeEvent from a raw wire payload.
// Returns false if the payload carries no market-identifying field.
func NewTradeEvent(payload map[string]any, receivedAt time.Time) (TradeEvent, bool) {
	slug, ok := MarketSlugOf(payload)
	if !ok {
		return TradeEvent{}, false
	}

	typ, _ := payload["type"].(string)

	ts := receivedAt
	for _, k := range []string{"ts", "timestamp", "time"} {
		if v, ok := payload[k]; ok {
			if parsed, ok := ParseTime(v); ok {
				ts = parsed
				break
			}
		}
	}

	return TradeEvent{
		ID:         uuid.New(),
		Type:       typ,
		Time:       ts,
		MarketSlug: slug,
		Payload:    payload,
	}, true
}

// ParseTime decodes a wire timestamp.
// Numbers above 1e12 are unix milliseconds, smaller numbers unix seconds.
// Strings are RFC 3339 or a numeric string.
func ParseTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case float64:
		return fromUnixNumber(x)
	case int64:
		return fromUnixNumber(float64(x))
	case int:
		return fromUnixNumber(float64(x))
	case string:
		if x == "" {
			return time.Time{}, false
		}
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return t, true
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return fromUnixNumber(f)
		}
	}
	return time.Time{}, false
}

func fromUnixNumber(f float64) (time.Time, bool) {
	if f <= 0 {
		return time.Time{}, false
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f)), true
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec), true
}
