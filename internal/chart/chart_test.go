package chart

import (
	"context"
	"testing"
	"time"

	"github.com/rickgao/botwatch/internal/history"
	"github.com/rickgao/botwatch/internal/model"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.62, 62},
		{0.38, 38},
		{0.57, 57},
		{0.505, 50.5},
		{0, 0},
		{1, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.in); got != tt.want {
			t.Errorf("Percent(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestProbFeed_HydratesMidSession(t *testing.T) {
	buf := history.New(history.Config{}, nil)
	slug := "btc-updown-2026-10-16-1200"

	// Data arrives before the chart mounts.
	buf.PushMarketTick(slug, 0.62, 0.38)

	feed := ProbFeed(context.Background(), buf, slug)
	defer feed.Close()

	if len(feed.Initial) != 1 {
		t.Fatalf("len(Initial) = %d, want 1", len(feed.Initial))
	}
	p := feed.Initial[0]
	if p.UpAsk != 62 || p.DownAsk != 38 {
		t.Errorf("Initial[0] = %+v, want up_ask 62 and down_ask 38", p)
	}
}

func TestProbFeed_StreamsAppends(t *testing.T) {
	buf := history.New(history.Config{}, nil)
	now := time.Unix(1_760_000_000, 0)
	buf.SetClock(func() time.Time { return now })

	feed := ProbFeed(context.Background(), buf, "m")
	defer feed.Close()

	if len(feed.Initial) != 0 {
		t.Fatalf("len(Initial) = %d, want 0", len(feed.Initial))
	}

	buf.PushMarketTick("m", 0.55, 0.45)

	select {
	case p := <-feed.C():
		if p.UpAsk != 55 || p.DownAsk != 45 || p.Time != now.Unix() {
			t.Errorf("point = %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for appended point")
	}
}

func TestFeed_ResetAndClose(t *testing.T) {
	buf := history.New(history.Config{}, nil)
	feed := BtcFeed(context.Background(), buf)

	buf.Reset()
	select {
	case <-feed.Reset():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for reset signal")
	}

	feed.Close()
	if _, ok := <-feed.C(); ok {
		t.Error("feed channel should be closed after Close")
	}
}

func TestFeed_StopsOnContextCancel(t *testing.T) {
	buf := history.New(history.Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	feed := BtcFeed(ctx, buf)

	cancel()
	select {
	case _, ok := <-feed.C():
		if ok {
			t.Error("unexpected point")
		}
	case <-time.After(time.Second):
		t.Fatal("feed did not stop on cancel")
	}
	feed.Close()
}

func TestCandles(t *testing.T) {
	base := int64(1_760_000_020) // 40s into a minute
	points := []history.BtcPoint{
		{Time: base, Price: 100},
		{Time: base + 5, Price: 105},
		{Time: base + 10, Price: 95},
		{Time: base + 19, Price: 101}, // last sample of the first bar
		{Time: base + 20, Price: 102}, // next minute
		{Time: base + 30, Price: 99},
	}

	got := Candles(points, time.Minute)
	want := []Candle{
		{Time: base - 40, Open: 100, High: 105, Low: 95, Close: 101},
		{Time: base + 20, Open: 102, High: 102, Low: 99, Close: 99},
	}

	if len(got) != len(want) {
		t.Fatalf("len(Candles) = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candle %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCandleAggregator_Closed(t *testing.T) {
	agg := NewCandleAggregator(0) // falls back to one minute

	if _, closed := agg.Add(60, 1); closed != nil {
		t.Error("first sample should not close a bar")
	}
	if _, closed := agg.Add(119, 2); closed != nil {
		t.Error("same-minute sample should not close a bar")
	}
	bar, closed := agg.Add(120, 3)
	if closed == nil {
		t.Fatal("new minute should close the previous bar")
	}
	if closed.Time != 60 || closed.Close != 2 {
		t.Errorf("closed = %+v", closed)
	}
	if bar.Time != 120 || bar.Open != 3 {
		t.Errorf("bar = %+v", bar)
	}
	if cur, ok := agg.Current(); !ok || cur != bar {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}
}

func TestLines(t *testing.T) {
	btc := []history.BtcPoint{{Time: 1, Price: 100, Open: 90}}
	if got := BtcLine(btc); got[0] != (LinePoint{Time: 1, Value: 100}) {
		t.Errorf("BtcLine = %+v", got)
	}
	if got := BtcOpenLine(btc); got[0] != (LinePoint{Time: 1, Value: 90}) {
		t.Errorf("BtcOpenLine = %+v", got)
	}

	prob := ProbSeries([]history.ProbPoint{{Time: 2, UpAsk: 0.3, DownAsk: 0.7}})
	if got := UpAskLine(prob); got[0] != (LinePoint{Time: 2, Value: 30}) {
		t.Errorf("UpAskLine = %+v", got)
	}
	if got := DownAskLine(prob); got[0] != (LinePoint{Time: 2, Value: 70}) {
		t.Errorf("DownAskLine = %+v", got)
	}
}

func TestMarkerFor(t *testing.T) {
	at := time.Unix(1_760_000_000, 0)

	tests := []struct {
		name      string
		ev        model.TradeEvent
		wantColor string
		wantShape string
		wantText  string
	}{
		{
			name:      "fill up",
			ev:        model.TradeEvent{Type: "fill", Time: at, Payload: map[string]any{"outcome": "up", "size": 10.0, "price": 0.42}},
			wantColor: ColorBuy,
			wantShape: "arrowUp",
			wantText:  "FILL 10 @42",
		},
		{
			name:      "fill down",
			ev:        model.TradeEvent{Type: "fill", Time: at, Payload: map[string]any{"side": "DOWN"}},
			wantColor: ColorSell,
			wantShape: "arrowDown",
			wantText:  "FILL",
		},
		{
			name:      "merge",
			ev:        model.TradeEvent{Type: "merge", Time: at},
			wantColor: ColorMerge,
			wantShape: "square",
			wantText:  "MERGE",
		},
		{
			name:      "unknown type",
			ev:        model.TradeEvent{Type: "custom", Time: at},
			wantColor: ColorNeutral,
			wantShape: "circle",
			wantText:  "CUSTOM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MarkerFor(tt.ev)
			if m.Time != at.Unix() {
				t.Errorf("Time = %d, want %d", m.Time, at.Unix())
			}
			if m.Color != tt.wantColor || m.Shape != tt.wantShape {
				t.Errorf("style = %s/%s, want %s/%s", m.Color, m.Shape, tt.wantColor, tt.wantShape)
			}
			if m.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", m.Text, tt.wantText)
			}
		})
	}
}

func TestMarkers_FilterAndSort(t *testing.T) {
	events := []model.TradeEvent{
		{Type: "hedge", MarketSlug: "a", Time: time.Unix(30, 0)},
		{Type: "fill", MarketSlug: "b", Time: time.Unix(10, 0)},
		{Type: "entry", MarketSlug: "a", Time: time.Unix(20, 0)},
	}

	got := Markers(events, "a")
	if len(got) != 2 {
		t.Fatalf("len(Markers) = %d, want 2", len(got))
	}
	if got[0].Time != 20 || got[1].Time != 30 {
		t.Errorf("markers not sorted: %+v", got)
	}

	if all := Markers(events, ""); len(all) != 3 || all[0].Time != 10 {
		t.Errorf("Markers(all) = %+v", all)
	}
}

func TestFeed_LaggedWhenConsumerStalls(t *testing.T) {
	buf := history.New(history.Config{MaxPoints: 2000}, nil)
	now := time.Unix(1_760_000_000, 0)
	buf.SetClock(func() time.Time { return now })

	feed := BtcFeed(context.Background(), buf)
	defer feed.Close()

	// Nobody reads feed.C(), so the feed's buffer and the subscription's both fill.
	for i := 0; i < 1000; i++ {
		now = now.Add(time.Second)
		buf.PushBtcTick(float64(60_000+i), 60_000)
	}

	deadline := time.After(time.Second)
	for !feed.Lagged() {
		select {
		case <-deadline:
			t.Fatal("feed never reported lag")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
