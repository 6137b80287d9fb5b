// Package router implements the Message Router component.
//
// The router is the single writer of the state store and the history buffer. It parses
// each frame from the stream transport, classifies it by its "type" field, and applies it
// under one lock so a frame is either fully applied or not at all. Replay payloads go
// through the same path as live frames.
package router
