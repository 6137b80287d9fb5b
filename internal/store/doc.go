// Package store implements the State Store component.
//
// The store holds the canonical snapshot of current bot state, split into named slices
// (connection, markets, pnl, exposure, bankroll, btc, config, meta, trend, events).
// A single writer applies each message under one write lock, so readers never see a
// half-applied update. Consumers subscribe to the slices they render and are woken only
// when one of those slices changes.
package store
