package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Match errors
	ErrMatchNotFound = errors.New("match not found")
	ErrMatchFull     = errors.New("match is full")
)
