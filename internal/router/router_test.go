package router

import (
	"sync"
	"testing"
	"time"

	"github.com/rickgao/botwatch/internal/connection"
	"github.com/rickgao/botwatch/internal/history"
	"github.com/rickgao/botwatch/internal/model"
	"github.com/rickgao/botwatch/internal/store"
)

type countingObserver struct {
	mu    sync.Mutex
	kinds map[string]int
}

func (o *countingObserver) ObserveMessage(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.kinds == nil {
		o.kinds = make(map[string]int)
	}
	o.kinds[kind]++
}

func (o *countingObserver) count(kind Kind) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.kinds[string(kind)]
}

func newTestRouter() (*Router, *store.Store, *history.Buffer, *countingObserver) {
	st := store.New(0, nil)
	hist := history.New(history.Config{}, nil)
	obs := &countingObserver{}
	return NewRouter(st, hist, obs, nil), st, hist, obs
}

const snapshotFrame = `{
	"type": "initial_state",
	"data": {
		"markets": [
			{"slug": "btc-updown-15m-1", "up_bid": 0.60, "up_ask": 0.62, "down_bid": 0.36, "down_ask": 0.38, "seconds_left": 540, "orders": []},
			{"slug": "btc-updown-15m-2", "up_ask": 0.40, "down_ask": 0.60, "seconds_left": 1440,
			 "position": {"up_shares": 10, "down_shares": 0, "up_avg": 0.41, "down_avg": null, "hedged": 0, "unrealized_pnl": "1.25"}}
		],
		"exposure": {"total": "50.00", "up": "30.00", "down": "20.00", "pct_of_bankroll": 5},
		"pnl": {"total": "120.50", "realized": "100.00", "unrealized": "20.50"},
		"bankroll": {"balance": "1000.00", "available": "950.00", "deployed": "50.00", "pct_used": 5},
		"btc": {"price": 100000, "open": 99500, "high": 100200, "low": 99400, "deviation": 0.5, "range_pct": 0.8},
		"config": {"strategy": "arb", "max_exposure": 200},
		"meta": {"mode": "paper", "version": "1.4.0", "session_id": "sess-42"},
		"trend": {"direction": "up"}
	}
}`

func TestRouter_InitialStateUnderData(t *testing.T) {
	r, st, hist, _ := newTestRouter()

	if kind := r.Route([]byte(snapshotFrame), time.Now()); kind != KindSnapshot {
		t.Fatalf("Route() = %s, want snapshot", kind)
	}

	s := st.Snapshot()
	if len(s.Markets) != 2 {
		t.Fatalf("markets = %d, want 2", len(s.Markets))
	}
	if got := model.FormatUSD(s.PnL.Total); got != "$120.50" {
		t.Errorf("PnL total = %s, want $120.50", got)
	}
	if s.Btc == nil || s.Btc.Price != 100000 {
		t.Errorf("Btc = %+v", s.Btc)
	}
	if s.Meta.SessionID != "sess-42" {
		t.Errorf("Meta.SessionID = %q", s.Meta.SessionID)
	}
	if s.Config["strategy"] != "arb" {
		t.Errorf("Config = %v", s.Config)
	}

	pos := s.Markets[1].Position
	if pos == nil || pos.UpAvg == nil || *pos.UpAvg != 0.41 || pos.DownAvg != nil {
		t.Errorf("Position = %+v, want up_avg 0.41 and nil down_avg", pos)
	}

	hs := hist.State()
	if len(hs.ProbSeries) != 2 {
		t.Errorf("prob series = %d, want 2", len(hs.ProbSeries))
	}
	if len(hs.BtcSeries) != 1 {
		t.Errorf("btc series = %d, want 1", len(hs.BtcSeries))
	}
}

func TestRouter_InitialStateTopLevel(t *testing.T) {
	r, st, _, _ := newTestRouter()

	frame := `{"type":"initial_state","markets":[{"slug":"m1","up_ask":0.5,"down_ask":0.5}],"pnl":{"total":"3.10"}}`
	if kind := r.Route([]byte(frame), time.Now()); kind != KindSnapshot {
		t.Fatalf("Route() = %s, want snapshot", kind)
	}
	if _, ok := st.Market("m1"); !ok {
		t.Error("market m1 missing")
	}
	if got := model.FormatUSD(st.PnL().Total); got != "$3.10" {
		t.Errorf("PnL total = %s, want $3.10", got)
	}
}

func TestRouter_SnapshotRemovesAbsentMarkets(t *testing.T) {
	r, st, _, _ := newTestRouter()

	r.Route([]byte(snapshotFrame), time.Now())
	r.Route([]byte(`{"type":"initial_state","data":{"markets":[{"slug":"btc-updown-15m-2"}]}}`), time.Now())

	if _, ok := st.Market("btc-updown-15m-1"); ok {
		t.Error("market absent from the new snapshot should be removed")
	}
	if _, ok := st.Market("btc-updown-15m-2"); !ok {
		t.Error("market present in the new snapshot should remain")
	}
}

func TestRouter_TickPnLLastWriteWins(t *testing.T) {
	r, st, _, _ := newTestRouter()

	frames := []string{
		`{"type":"tick_snapshot","ts":1760000000,"data":{"markets":[],"exposure":{},"pnl":{"total":"120.50"},"bankroll":{}}}`,
		`{"type":"tick_snapshot","ts":1760000001,"data":{"markets":[],"exposure":{},"pnl":{"total":"85.00"},"bankroll":{}}}`,
	}
	for _, f := range frames {
		if kind := r.Route([]byte(f), time.Now()); kind != KindTick {
			t.Fatalf("Route() = %s, want tick", kind)
		}
	}

	if got := model.FormatUSD(st.PnL().Total); got != "$85.00" {
		t.Errorf("PnL total = %s, want $85.00", got)
	}
}

func TestRouter_TickToleratesNumericShapes(t *testing.T) {
	r, st, _, _ := newTestRouter()
	r.Route([]byte(snapshotFrame), time.Now())

	tick := `{"type":"tick_snapshot","ts":1760000001,"data":{
		"markets":[{"slug":"btc-updown-15m-1","up_ask":0.64,"down_ask":0.36,"seconds_left":539.6,
		            "orders":[{"id":98765,"side":"buy","outcome":"up","price":0.6,"size":5}]}],
		"exposure":{},"pnl":{"total":"85.00"},"bankroll":{}}}`
	if kind := r.Route([]byte(tick), time.Now()); kind != KindTick {
		t.Fatalf("Route() = %s, want tick", kind)
	}

	if got := model.FormatUSD(st.PnL().Total); got != "$85.00" {
		t.Errorf("PnL total = %s, want $85.00", got)
	}
	m, ok := st.Market("btc-updown-15m-1")
	if !ok {
		t.Fatal("market missing after tick")
	}
	if m.SecondsLeft != 539 {
		t.Errorf("SecondsLeft = %d, want 539", m.SecondsLeft)
	}
	if len(m.Orders) != 1 || m.Orders[0].ID != "98765" {
		t.Errorf("Orders = %+v, want id 98765", m.Orders)
	}
}

func TestRouter_TickUnknownSlugMaterializes(t *testing.T) {
	r, st, hist, _ := newTestRouter()

	r.Route([]byte(snapshotFrame), time.Now())
	r.Route([]byte(`{"type":"tick_snapshot","ts":1,"data":{"markets":[{"slug":"brand-new","up_ask":0.7,"down_ask":0.3}]}}`), time.Now())

	m, ok := st.Market("brand-new")
	if !ok || m.UpAsk != 0.7 {
		t.Errorf("Market(brand-new) = %+v, %v", m, ok)
	}
	if series := hist.ProbSeries("brand-new"); len(series) != 1 {
		t.Errorf("history points for brand-new = %d, want 1", len(series))
	}
}

func TestRouter_BtcPrice(t *testing.T) {
	r, st, hist, _ := newTestRouter()

	frame := `{"type":"btc_price","price":101000,"open":100000,"high":101500,"low":99900,"deviation":1.0,"range_pct":1.6}`
	if kind := r.Route([]byte(frame), time.Now()); kind != KindBtc {
		t.Fatalf("Route() = %s, want btc", kind)
	}

	btc := st.Btc()
	if btc == nil || btc.Price != 101000 || btc.RangePct != 1.6 {
		t.Errorf("Btc() = %+v", btc)
	}
	series := hist.BtcSeries()
	if len(series) != 1 || series[0].Price != 101000 || series[0].Open != 100000 {
		t.Errorf("BtcSeries() = %+v", series)
	}
}

func TestRouter_MalformedFrameLeavesStateUnchanged(t *testing.T) {
	r, st, hist, obs := newTestRouter()
	r.Route([]byte(snapshotFrame), time.Now())

	before := st.Snapshot()
	versions := make(map[store.Slice]uint64)
	for _, sl := range store.AllSlices {
		versions[sl] = st.Version(sl)
	}
	pointsBefore := hist.Stats().ProbPoints

	malformed := []string{
		`{"type":"tick_snapshot","data":{"markets":[`,
		`not json at all`,
		`{"type":"tick_snapshot","data":{"markets":"oops"}}`,
		`{"type":"btc_price","price":"not-a-number"}`,
		`[1,2,3]`,
	}
	for _, f := range malformed {
		if kind := r.Route([]byte(f), time.Now()); kind != KindMalformed {
			t.Errorf("Route(%q) = %s, want malformed", f, kind)
		}
	}

	for _, sl := range store.AllSlices {
		if got := st.Version(sl); got != versions[sl] {
			t.Errorf("slice %s changed: version %d -> %d", sl, versions[sl], got)
		}
	}
	after := st.Snapshot()
	if len(after.Markets) != len(before.Markets) || !after.PnL.Total.Equal(before.PnL.Total) {
		t.Errorf("state changed by malformed frames")
	}
	if got := hist.Stats().ProbPoints; got != pointsBefore {
		t.Errorf("history points %d -> %d", pointsBefore, got)
	}

	stats := r.Stats()
	if stats.ParseErrors != int64(len(malformed)) {
		t.Errorf("ParseErrors = %d, want %d", stats.ParseErrors, len(malformed))
	}
	if got := obs.count(KindMalformed); got != len(malformed) {
		t.Errorf("observer malformed = %d, want %d", got, len(malformed))
	}
}

func TestRouter_DefaultCase(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Kind
	}{
		{"fill with market_slug", `{"type":"fill","market_slug":"m1","side":"up","price":0.5,"size":10}`, KindEvent},
		{"hedge with slug", `{"type":"hedge","slug":"m1"}`, KindEvent},
		{"merge with market", `{"type":"merge","market":"m1"}`, KindEvent},
		{"no market field", `{"type":"status","message":"hello"}`, KindIgnored},
		{"empty market field", `{"type":"fill","market_slug":""}`, KindIgnored},
		{"ping", `{"type":"ping"}`, KindKeepalive},
		{"pong", `{"type":"pong"}`, KindKeepalive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, st, _, _ := newTestRouter()

			if got := r.Route([]byte(tt.frame), time.Now()); got != tt.want {
				t.Errorf("Route() = %s, want %s", got, tt.want)
			}

			events := st.Events()
			if tt.want == KindEvent {
				if len(events) != 1 {
					t.Fatalf("events = %d, want 1", len(events))
				}
				if events[0].MarketSlug != "m1" {
					t.Errorf("MarketSlug = %q, want m1", events[0].MarketSlug)
				}
			} else if len(events) != 0 {
				t.Errorf("events = %d, want 0", len(events))
			}
		})
	}
}

func TestRouter_EventTimestamp(t *testing.T) {
	r, st, _, _ := newTestRouter()
	received := time.Unix(1_760_000_100, 0)

	r.Route([]byte(`{"type":"fill","market_slug":"m1","ts":1760000000}`), received)
	r.Route([]byte(`{"type":"fill","market_slug":"m1"}`), received)

	events := st.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if !events[0].Time.Equal(time.Unix(1_760_000_000, 0)) {
		t.Errorf("event time = %v, want wire ts", events[0].Time)
	}
	if !events[1].Time.Equal(received) {
		t.Errorf("event time = %v, want receive time", events[1].Time)
	}
}

func TestRouter_HandleMessage(t *testing.T) {
	r, st, _, _ := newTestRouter()

	r.HandleMessage(connection.TimestampedMessage{
		Data:       []byte(`{"type":"btc_price","price":1}`),
		ReceivedAt: time.Now(),
	})

	if st.Btc() == nil {
		t.Error("HandleMessage did not apply the frame")
	}
	if got := r.Stats().MessagesReceived; got != 1 {
		t.Errorf("MessagesReceived = %d, want 1", got)
	}
}

func TestRouter_ApplySnapshotAndEvents(t *testing.T) {
	r, st, hist, _ := newTestRouter()

	r.ApplySnapshot(model.Snapshot{
		Markets: []model.Market{{Slug: "m1", UpAsk: 0.62, DownAsk: 0.38}},
	})
	n := r.ApplyEvents([]map[string]any{
		{"type": "entry", "market_slug": "m1"},
		{"type": "note"},
		{"type": "fill", "market_slug": "m1"},
	})

	if n != 2 {
		t.Errorf("ApplyEvents() = %d, want 2", n)
	}
	if got := len(st.Events()); got != 2 {
		t.Errorf("events = %d, want 2", got)
	}
	if got := len(hist.ProbSeries("m1")); got != 1 {
		t.Errorf("history points = %d, want 1", got)
	}

	stats := r.Stats()
	if stats.MessagesApplied != 3 || stats.IgnoredMessages != 1 {
		t.Errorf("Stats() = %+v, want 3 applied and 1 ignored", stats)
	}
}

func TestRouter_ApplyEventsRecordsEachKind(t *testing.T) {
	var seen []string
	obs := observerFunc(func(kind string) { seen = append(seen, kind) })
	r := NewRouter(store.New(0, nil), history.New(history.Config{}, nil), obs, nil)

	r.ApplyEvents([]map[string]any{
		{"type": "note"},
		{"type": "fill", "market_slug": "m1"},
		{"type": "note"},
	})

	want := []string{string(KindIgnored), string(KindEvent), string(KindIgnored)}
	if len(seen) != len(want) {
		t.Fatalf("observed %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("event %d observed as %s, want %s", i, seen[i], want[i])
		}
	}
}

type observerFunc func(kind string)

func (f observerFunc) ObserveMessage(kind string) { f(kind) }

func TestRouter_ConcurrentRouting(t *testing.T) {
	r, st, _, _ := newTestRouter()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Route([]byte(`{"type":"fill","market_slug":"m1"}`), time.Now())
				r.Route([]byte(`{"type":"tick_snapshot","data":{"markets":[{"slug":"m1"}]}}`), time.Now())
			}
		}()
	}
	wg.Wait()

	if got := len(st.Events()); got != 400 {
		t.Errorf("events = %d, want 400", got)
	}
	if got := r.Stats().MessagesReceived; got != 800 {
		t.Errorf("MessagesReceived = %d, want 800", got)
	}
}
