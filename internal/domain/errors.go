// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates the input is missing required fields or carries
// values outside the accepted range.
var ErrValidation = errors.New("invalid input")

// ErrUnauthorized indicates the acting reviewer is not known to the directory.
var ErrUnauthorized = errors.New("reviewer not recognized")

// ErrInsufficientAuthority indicates the reviewer's tier does not cover the
// decision's current required review level.
var ErrInsufficientAuthority = errors.New("insufficient authority for required review level")

// ErrAlreadyTerminal indicates the decision has already reached a terminal
// status and accepts no further review actions.
var ErrAlreadyTerminal = errors.New("decision already in terminal status")

// ErrUnavailable indicates a store or directory I/O failure. Callers may
// retry with backoff; the engine never retries on its own.
var ErrUnavailable = errors.New("backing service unavailable")
