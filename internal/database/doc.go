// Package database reads past bot sessions straight from the bot's PostgreSQL database.
//
// Access is read-only. The bot owns the schema:
//   - sessions: one row per run, with the final state snapshot as JSONB
//   - session_events: the session's trade events as JSONB payloads, in insert order
//
// SessionStore satisfies the same SessionSource contract as the REST client, so the
// mode controller can replay from either.
package database
