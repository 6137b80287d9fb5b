// Package server exposes the dashboard state over HTTP.
//
// Routes:
//   - GET  /health                     liveness plus the displayed connection status
//   - GET  /metrics                    Prometheus exposition
//   - GET  /api/state                  consistent snapshot of every store slice
//   - GET  /api/history/btc            BTC line, window open line and 1m candles
//   - GET  /api/history/:slug          probability series in percent plus trade markers
//   - GET  /api/stream/btc             websocket: BTC history, then appended points
//   - GET  /api/stream/:slug           websocket: probability history, then appended points
//   - GET  /api/sessions               past sessions
//   - GET  /api/mode                   controller status
//   - POST /api/mode/live              switch to the live stream
//   - POST /api/mode/replay/:id        fetch and replay a past session
package server
