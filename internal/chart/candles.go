package chart

import (
	"time"

	"github.com/rickgao/botwatch/internal/history"
)

// CandleAggregator folds price samples into fixed-width OHLC bars.
// Samples must arrive in time order; an older sample is folded into the current bar.
type CandleAggregator struct {
	interval int64
	cur      Candle
	has      bool
}

// NewCandleAggregator creates an aggregator. Intervals under one second use DefaultCandleInterval.
func NewCandleAggregator(interval time.Duration) *CandleAggregator {
	if interval < time.Second {
		interval = DefaultCandleInterval
	}
	return &CandleAggregator{interval: int64(interval / time.Second)}
}

// Add folds one sample and returns the bar it landed in.
// closed is the previous bar when this sample started a new one.
func (a *CandleAggregator) Add(ts int64, price float64) (bar Candle, closed *Candle) {
	start := ts - ts%a.interval

	if !a.has {
		a.cur = Candle{Time: start, Open: price, High: price, Low: price, Close: price}
		a.has = true
		return a.cur, nil
	}

	if start > a.cur.Time {
		prev := a.cur
		a.cur = Candle{Time: start, Open: price, High: price, Low: price, Close: price}
		return a.cur, &prev
	}

	if price > a.cur.High {
		a.cur.High = price
	}
	if price < a.cur.Low {
		a.cur.Low = price
	}
	a.cur.Close = price
	return a.cur, nil
}

// Current returns the open bar.
func (a *CandleAggregator) Current() (Candle, bool) {
	return a.cur, a.has
}

// Candles aggregates a BTC series into bars.
func Candles(points []history.BtcPoint, interval time.Duration) []Candle {
	agg := NewCandleAggregator(interval)
	var out []Candle
	for _, p := range points {
		bar, closed := agg.Add(p.Time, p.Price)
		if closed != nil || len(out) == 0 {
			out = append(out, bar)
			continue
		}
		out[len(out)-1] = bar
	}
	return out
}
