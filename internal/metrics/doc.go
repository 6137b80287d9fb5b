// Package metrics provides Prometheus metrics for the sync pipeline.
//
// Key metrics:
//   - Stream connection state, reconnect attempts and routed frames by kind
//   - Mode transitions between live and replay
//   - Session catalog refresh outcomes and latency
//   - Store and history sizes, sampled at scrape time
package metrics
