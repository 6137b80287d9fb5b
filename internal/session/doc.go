// Package session switches the dashboard between the live stream and replay of a past session.
//
// The Controller is the only caller of Transport.Connect and Transport.Close once the
// daemon is running. Every transition holds the controller lock from the first side effect
// to the last, so the transport is open exactly when the mode is live.
package session
