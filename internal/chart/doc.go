// Package chart adapts history and trade events to the series shapes a charting library
// consumes: {time, value} lines, probability points in percent, OHLC candles and markers.
//
// Feeds read the current series and subscribe to appends in one step, so a chart that
// mounts mid-session hydrates instantly and never misses a point.
package chart
