package common

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation requires a user
	// session and none is active.
	ErrNotAuthenticated = errors.New("user not logged in")

	// ErrNotFound covers missing targets and targets owned by another user.
	ErrNotFound = errors.New("not found")

	// ErrStoreFault wraps any document-store or local-store failure.
	ErrStoreFault = errors.New("store fault")

	// Blob-store faults. They are never shown to the user; the operation is
	// requeued instead.
	ErrUploadFault = errors.New("upload fault")
	ErrDeleteFault = errors.New("delete fault")

	// ErrInvalidToken is returned for malformed or badly signed auth tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)
