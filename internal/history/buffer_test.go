package history

import (
	"sync"
	"testing"
	"time"
)

// fakeClock hands out times under test control.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBuffer(cfg Config) (*Buffer, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_760_000_000, 0)}
	b := New(cfg, nil)
	b.SetClock(clock.Now)
	return b, clock
}

func TestBuffer_PushMarketTick(t *testing.T) {
	b, clock := newTestBuffer(Config{})

	b.PushMarketTick("btc-updown-15m-1", 0.62, 0.38)
	clock.Advance(time.Second)
	b.PushMarketTick("btc-updown-15m-1", 0.64, 0.36)

	series := b.ProbSeries("btc-updown-15m-1")
	if len(series) != 2 {
		t.Fatalf("len(series) = %d, want 2", len(series))
	}
	if series[0].UpAsk != 0.62 || series[0].DownAsk != 0.38 {
		t.Errorf("series[0] = %+v", series[0])
	}
	if series[1].Time != series[0].Time+1 {
		t.Errorf("times not one second apart: %d, %d", series[0].Time, series[1].Time)
	}
}

func TestBuffer_SameSecondReplacesLast(t *testing.T) {
	b, clock := newTestBuffer(Config{})

	b.PushMarketTick("m", 0.50, 0.50)
	clock.Advance(300 * time.Millisecond)
	b.PushMarketTick("m", 0.55, 0.45)

	series := b.ProbSeries("m")
	if len(series) != 1 {
		t.Fatalf("len(series) = %d, want 1", len(series))
	}
	if series[0].UpAsk != 0.55 {
		t.Errorf("UpAsk = %v, want 0.55 (last write wins)", series[0].UpAsk)
	}

	b.PushBtcTick(100_000, 99_000)
	b.PushBtcTick(100_050, 99_000)
	btc := b.BtcSeries()
	if len(btc) != 1 || btc[0].Price != 100_050 {
		t.Errorf("BtcSeries() = %+v, want single point at 100050", btc)
	}
}

func TestBuffer_ClockGoingBackwardsKeepsOrder(t *testing.T) {
	b, clock := newTestBuffer(Config{})

	b.PushMarketTick("m", 0.5, 0.5)
	clock.Advance(-5 * time.Second)
	b.PushMarketTick("m", 0.6, 0.4)

	series := b.ProbSeries("m")
	if len(series) != 1 {
		t.Fatalf("len(series) = %d, want 1", len(series))
	}
	if series[0].UpAsk != 0.6 {
		t.Errorf("UpAsk = %v, want 0.6", series[0].UpAsk)
	}
}

func TestBuffer_PointCap(t *testing.T) {
	b, clock := newTestBuffer(Config{MaxPoints: 10})

	for i := 0; i < 25; i++ {
		b.PushMarketTick("m", float64(i)/100, 0)
		clock.Advance(time.Second)
	}

	series := b.ProbSeries("m")
	if len(series) != 10 {
		t.Fatalf("len(series) = %d, want 10", len(series))
	}
	if series[0].UpAsk != 0.15 {
		t.Errorf("oldest retained UpAsk = %v, want 0.15", series[0].UpAsk)
	}
	for i := 1; i < len(series); i++ {
		if series[i].Time <= series[i-1].Time {
			t.Fatalf("times not strictly increasing at %d", i)
		}
	}
}

func TestBuffer_EvictsLeastRecentlyPushedSeries(t *testing.T) {
	b, _ := newTestBuffer(Config{MaxSeries: 3})

	b.PushMarketTick("a", 0.1, 0.9)
	b.PushMarketTick("b", 0.2, 0.8)
	b.PushMarketTick("c", 0.3, 0.7)
	b.PushMarketTick("a", 0.15, 0.85) // "b" is now least recent
	b.PushMarketTick("d", 0.4, 0.6)

	st := b.State()
	if len(st.ProbSeries) != 3 {
		t.Fatalf("series = %d, want 3", len(st.ProbSeries))
	}
	if _, ok := st.ProbSeries["b"]; ok {
		t.Error("series b should have been evicted")
	}
	for _, slug := range []string{"a", "c", "d"} {
		if _, ok := st.ProbSeries[slug]; !ok {
			t.Errorf("series %s missing", slug)
		}
	}
	if got := b.Stats().EvictedSeries; got != 1 {
		t.Errorf("EvictedSeries = %d, want 1", got)
	}
}

func TestBuffer_EmptySlugIgnored(t *testing.T) {
	b, _ := newTestBuffer(Config{})
	b.PushMarketTick("", 0.5, 0.5)
	if n := len(b.State().ProbSeries); n != 0 {
		t.Errorf("series = %d, want 0", n)
	}
}

func TestBuffer_StateIsCopy(t *testing.T) {
	b, _ := newTestBuffer(Config{})
	b.PushMarketTick("m", 0.5, 0.5)

	st := b.State()
	st.ProbSeries["m"][0].UpAsk = 0.99
	delete(st.ProbSeries, "m")

	series := b.ProbSeries("m")
	if len(series) != 1 || series[0].UpAsk != 0.5 {
		t.Errorf("buffer mutated through State(): %+v", series)
	}
}

func TestBuffer_SubscribeProbSnapshotThenAppends(t *testing.T) {
	b, clock := newTestBuffer(Config{})

	b.PushMarketTick("m", 0.62, 0.38)
	clock.Advance(time.Second)

	snapshot, sub := b.SubscribeProb("m")
	defer sub.Close()

	if len(snapshot) != 1 || snapshot[0].UpAsk != 0.62 {
		t.Fatalf("snapshot = %+v", snapshot)
	}

	b.PushMarketTick("m", 0.70, 0.30)
	b.PushMarketTick("other", 0.1, 0.9)

	select {
	case p := <-sub.C():
		if p.UpAsk != 0.70 {
			t.Errorf("appended UpAsk = %v, want 0.70", p.UpAsk)
		}
		if p.Time != snapshot[0].Time+1 {
			t.Errorf("appended Time = %d, want %d", p.Time, snapshot[0].Time+1)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for appended point")
	}

	select {
	case p := <-sub.C():
		t.Errorf("unexpected point from another series: %+v", p)
	default:
	}
}

func TestBuffer_SubscribeNoGapUnderConcurrentPushes(t *testing.T) {
	b, _ := newTestBuffer(Config{MaxPoints: 10_000})

	// Each push gets its own second so every point is distinct.
	var sec int64 = 1_760_000_000
	var secMu sync.Mutex
	b.SetClock(func() time.Time {
		secMu.Lock()
		defer secMu.Unlock()
		sec++
		return time.Unix(sec, 0)
	})

	const total = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			b.PushMarketTick("m", float64(i), 0)
		}
	}()

	snapshot, sub := b.SubscribeProb("m")
	wg.Wait()
	sub.Close()

	seen := len(snapshot)
	var lastTime int64
	if seen > 0 {
		lastTime = snapshot[seen-1].Time
	}
	for p := range sub.C() {
		if p.Time <= lastTime {
			t.Fatalf("subscription delivered out-of-order or duplicate point at %d", p.Time)
		}
		lastTime = p.Time
		seen++
	}
	if sub.Lagged() {
		t.Fatal("subscription lagged; raise the test's push count margin")
	}
	if seen != total {
		t.Errorf("snapshot + appends = %d points, want %d", seen, total)
	}
}

func TestBuffer_SubscribeBtc(t *testing.T) {
	b, clock := newTestBuffer(Config{})
	b.PushBtcTick(100_000, 99_500)
	clock.Advance(time.Second)

	snapshot, sub := b.SubscribeBtc()
	defer sub.Close()
	if len(snapshot) != 1 {
		t.Fatalf("len(snapshot) = %d, want 1", len(snapshot))
	}

	b.PushBtcTick(100_100, 99_500)
	select {
	case p := <-sub.C():
		if p.Price != 100_100 || p.Open != 99_500 {
			t.Errorf("point = %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for btc point")
	}
}

func TestBuffer_ResetClearsAndSignals(t *testing.T) {
	b, _ := newTestBuffer(Config{})
	b.PushMarketTick("m", 0.5, 0.5)
	b.PushBtcTick(1, 1)

	_, sub := b.SubscribeProb("m")
	defer sub.Close()

	b.Reset()

	st := b.State()
	if len(st.ProbSeries) != 0 || len(st.BtcSeries) != 0 {
		t.Errorf("State() after Reset = %+v", st)
	}
	select {
	case <-sub.Reset():
	default:
		t.Error("subscription did not see reset")
	}

	// Subscription survives the reset.
	b.PushMarketTick("m", 0.6, 0.4)
	select {
	case <-sub.C():
	case <-time.After(time.Second):
		t.Fatal("subscription stopped receiving after reset")
	}
}

func TestSubscription_LaggedWhenFull(t *testing.T) {
	b, clock := newTestBuffer(Config{})
	_, sub := b.SubscribeProb("m")
	defer sub.Close()

	for i := 0; i < subscriptionBuffer+5; i++ {
		b.PushMarketTick("m", 0.5, 0.5)
		clock.Advance(time.Second)
	}

	if !sub.Lagged() {
		t.Error("Lagged() = false, want true")
	}
	if got := sub.Dropped(); got != 5 {
		t.Errorf("Dropped() = %d, want 5", got)
	}
}

func TestSubscription_CloseIdempotent(t *testing.T) {
	b, _ := newTestBuffer(Config{})
	_, sub := b.SubscribeProb("m")

	sub.Close()
	sub.Close()

	// Push after close must not panic on the closed channel.
	b.PushMarketTick("m", 0.5, 0.5)

	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed")
	}
}
