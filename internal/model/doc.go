// Package model defines the bot state types shared by the stream, store and chart layers.
//
// All types mirror the JSON emitted by the bot process over the live stream and the
// session REST endpoints.
//
// Conventions:
//   - Probabilities / asks: float64 in [0, 1]
//   - Money: decimal.Decimal (bankroll, exposure, PnL)
//   - Timestamps: time.Time, decoded from unix seconds, unix milliseconds or RFC 3339
//   - IDs: string slugs for markets, uuid.UUID for client-side trade event IDs
package model
