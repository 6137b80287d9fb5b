package model

import "errors"

// Errors shared by every session source.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session payload")
)
