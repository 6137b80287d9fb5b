// Package history implements the History Buffer component.
//
// The History Buffer:
//   - Keeps a bounded, ordered point log per time series (BTC price, per-market probabilities)
//   - Lets charts that mount after data started flowing hydrate instantly
//   - Hands out snapshot+subscription pairs atomically so no append is missed between them
//   - Evicts oldest points per series (fixed ring) and least-recently-pushed series
package history
