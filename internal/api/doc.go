// Package api provides the REST client for the bot's session API.
//
// Endpoints (relative to the configured rest_url):
//   - GET /sessions?limit=&offset=  session catalog, newest first
//   - GET /sessions/{id}            one session with its final snapshot and trade events
//
// Requests retry with jittered exponential backoff on 5xx and 429.
package api
