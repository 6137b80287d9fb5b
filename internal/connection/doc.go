// Package connection implements the Stream Transport component.
//
// The Stream Transport:
//   - Maintains one persistent WebSocket connection to the bot process
//   - Forwards every received frame exactly once, in receive order, to a single handler
//   - Sends an application-level {"type":"ping"} keepalive while the connection is open
//   - Reconnects with exponential backoff (1s doubling to 30s, unlimited retries)
//   - Closes deterministically: no reconnect is ever armed after an intentional Close
package connection
