// Package common defines shared constants and sentinel errors used across
// the annosync client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Remote service errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("remote service unavailable")

	// Sync errors.
	ErrSyncInProgress   = errors.New("sync already in progress")
	ErrIncompleteUpload = errors.New("upload pass incomplete")
	ErrMissingArticle   = errors.New("annotation references unknown article")

	// Credential errors.
	ErrInvalidToken   = errors.New("invalid token")
	ErrCorruptedToken = errors.New("stored token cannot be decrypted")
)
