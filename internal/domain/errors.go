package domain

import "errors"

var (
	ErrVotingNotFound    = errors.New("voting not found")
	ErrUserStatsNotFound = errors.New("user stats not found")

	// ErrConflict is returned by a versioned Put when the stored version no longer
	// matches the version the caller read.
	ErrConflict = errors.New("version conflict")
	// ErrConcurrencyConflict means a read-modify-write cycle kept losing to
	// concurrent writers until the retry budget ran out.
	ErrConcurrencyConflict = errors.New("concurrency conflict not resolved")

	// ErrAlreadyGone marks chat API failures whose target no longer exists
	// (deleted message, user that already left). Callers treat it as success.
	ErrAlreadyGone = errors.New("target already gone")

	ErrModerationUnavailable = errors.New("moderation service unavailable")
)
