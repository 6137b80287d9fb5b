package chart

import (
	"math"

	"github.com/rickgao/botwatch/internal/history"
)

// Percent converts a raw probability to percent, rounded to two decimals.
func Percent(p float64) float64 {
	return math.Round(p*10000) / 100
}

// FromProb converts one history point.
func FromProb(p history.ProbPoint) ProbPoint {
	return ProbPoint{
		Time:    p.Time,
		UpAsk:   Percent(p.UpAsk),
		DownAsk: Percent(p.DownAsk),
	}
}

// ProbSeries converts a history series.
func ProbSeries(points []history.ProbPoint) []ProbPoint {
	out := make([]ProbPoint, len(points))
	for i, p := range points {
		out[i] = FromProb(p)
	}
	return out
}

// UpAskLine extracts the up-outcome line from probability points.
func UpAskLine(points []ProbPoint) []LinePoint {
	out := make([]LinePoint, len(points))
	for i, p := range points {
		out[i] = LinePoint{Time: p.Time, Value: p.UpAsk}
	}
	return out
}

// DownAskLine extracts the down-outcome line from probability points.
func DownAskLine(points []ProbPoint) []LinePoint {
	out := make([]LinePoint, len(points))
	for i, p := range points {
		out[i] = LinePoint{Time: p.Time, Value: p.DownAsk}
	}
	return out
}

// BtcLine converts BTC history to a price line.
func BtcLine(points []history.BtcPoint) []LinePoint {
	out := make([]LinePoint, len(points))
	for i, p := range points {
		out[i] = LinePoint{Time: p.Time, Value: p.Price}
	}
	return out
}

// BtcOpenLine converts BTC history to the window-open reference line.
func BtcOpenLine(points []history.BtcPoint) []LinePoint {
	out := make([]LinePoint, len(points))
	for i, p := range points {
		out[i] = LinePoint{Time: p.Time, Value: p.Open}
	}
	return out
}
