// Package poller keeps the catalog of past sessions fresh.
//
// The poller:
//   - Lists sessions from the configured source on a fixed interval
//   - Fetches pages after the first concurrently, with a bound on in-flight requests
//   - Keeps the last good catalog when a refresh fails
package poller
