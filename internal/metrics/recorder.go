package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/botwatch/internal/history"
	"github.com/rickgao/botwatch/internal/model"
	"github.com/rickgao/botwatch/internal/store"
)

const namespace = "botwatch"

// Recorder records pipeline metrics. It satisfies the observer interfaces of the router,
// session controller and poller.
type Recorder struct {
	registry *prometheus.Registry

	messages       *prometheus.CounterVec
	connected      prometheus.Gauge
	connects       prometheus.Counter
	reconnects     prometheus.Counter
	reconnectDelay prometheus.Histogram
	mode           *prometheus.GaugeVec
	modeChanges    *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	refreshLatency prometheus.Histogram
	catalogSize    prometheus.Gauge
}

// New creates a recorder on its own registry, with Go and process collectors attached.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		messages: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_messages_total",
				Help:      "Frames routed from the bot stream, by kind",
			},
			[]string{"kind"},
		),
		connected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connected",
			Help:      "1 while the stream transport is open",
		}),
		connects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_connects_total",
			Help:      "Successful stream opens",
		}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnects_total",
			Help:      "Reconnect attempts scheduled after a failure or drop",
		}),
		reconnectDelay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_reconnect_delay_seconds",
			Help:      "Backoff delay before each reconnect attempt",
			Buckets:   []float64{1, 2, 4, 8, 16, 30},
		}),
		mode: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_mode",
				Help:      "1 for the current session mode",
			},
			[]string{"mode"},
		),
		modeChanges: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_mode_changes_total",
				Help:      "Completed mode transitions, by target mode",
			},
			[]string{"mode"},
		),
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_refreshes_total",
				Help:      "Session catalog refreshes, by result",
			},
			[]string{"result"},
		),
		refreshLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_refresh_duration_seconds",
			Help:      "Duration of session catalog refreshes",
			Buckets:   prometheus.DefBuckets,
		}),
		catalogSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_sessions",
			Help:      "Sessions in the last good catalog",
		}),
	}
}

// Registry returns the registry metrics are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveMessage counts one routed frame.
func (r *Recorder) ObserveMessage(kind string) {
	r.messages.WithLabelValues(kind).Inc()
}

// ObserveConnected records the raw transport flag.
func (r *Recorder) ObserveConnected(connected bool) {
	if connected {
		r.connected.Set(1)
		r.connects.Inc()
		return
	}
	r.connected.Set(0)
}

// ObserveReconnect records a scheduled reconnect.
func (r *Recorder) ObserveReconnect(attempt int, delay time.Duration) {
	r.reconnects.Inc()
	r.reconnectDelay.Observe(delay.Seconds())
}

// ObserveModeChange records a completed mode transition.
func (r *Recorder) ObserveModeChange(mode model.Mode) {
	r.modeChanges.WithLabelValues(string(mode)).Inc()
	r.setMode(mode)
}

func (r *Recorder) setMode(mode model.Mode) {
	for _, m := range []model.Mode{model.ModeLive, model.ModeReplay} {
		v := 0.0
		if m == mode {
			v = 1
		}
		r.mode.WithLabelValues(string(m)).Set(v)
	}
}

// ObserveCatalogRefresh records one session catalog refresh.
func (r *Recorder) ObserveCatalogRefresh(sessions int, duration time.Duration, err error) {
	r.refreshLatency.Observe(duration.Seconds())
	if err != nil {
		r.refreshes.WithLabelValues("error").Inc()
		return
	}
	r.refreshes.WithLabelValues("ok").Inc()
	r.catalogSize.Set(float64(sessions))
}

// StoreStats is implemented by *store.Store.
type StoreStats interface {
	Stats() store.Stats
	Mode() model.Mode
}

// HistoryStats is implemented by *history.Buffer.
type HistoryStats interface {
	Stats() history.Stats
}

// WatchState registers gauges sampled from the store and history buffer at scrape time.
func (r *Recorder) WatchState(st StoreStats, hist HistoryStats) {
	r.setMode(st.Mode())

	f := promauto.With(r.registry)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_markets",
		Help:      "Markets in the state store",
	}, func() float64 { return float64(st.Stats().Markets) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_events",
		Help:      "Trade events retained in the state store",
	}, func() float64 { return float64(st.Stats().Events) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_events_dropped_total",
		Help:      "Trade events evicted by the retention cap",
	}, func() float64 { return float64(st.Stats().EventsDropped) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_series",
		Help:      "Probability series held by the history buffer",
	}, func() float64 { return float64(hist.Stats().Series) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_points",
		Help:      "Points held by the history buffer",
	}, func() float64 {
		s := hist.Stats()
		return float64(s.ProbPoints + s.BtcPoints)
	})
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_evicted_series_total",
		Help:      "Probability series evicted as least recently pushed",
	}, func() float64 { return float64(hist.Stats().EvictedSeries) })
}
