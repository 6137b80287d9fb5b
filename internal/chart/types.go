package chart

import "time"

// DefaultCandleInterval is the BTC candle width.
const DefaultCandleInterval = time.Minute

// LinePoint is a single {time, value} sample. Time is unix seconds.
type LinePoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// ProbPoint is a market's probability sample in percent (0.62 -> 62).
type ProbPoint struct {
	Time    int64   `json:"time"`
	UpAsk   float64 `json:"up_ask"`
	DownAsk float64 `json:"down_ask"`
}

// Candle is one OHLC bar. Time is the bar's start in unix seconds.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Marker annotates a series at one time.
type Marker struct {
	Time  int64  `json:"time"`
	Color string `json:"color"`
	Shape string `json:"shape"` // arrowUp, arrowDown, circle, square
	Text  string `json:"text"`
}
