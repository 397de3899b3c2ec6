package domain

import "errors"

var (
	// ErrValidation signals malformed input (bad rating range, missing profile fields).
	ErrValidation = errors.New("validation failed")
	// ErrMentorNotFound signals a missing mentor profile.
	ErrMentorNotFound = errors.New("mentor not found")
	// ErrRetrievalUnavailable signals an embedding backend failure.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrInsufficientData signals a retrain attempt below the minimum sample count.
	// It is a reported outcome, not a failure: prior predictor state stays intact.
	ErrInsufficientData = errors.New("insufficient training data")
	// ErrStorageFailure signals a failed append or persist.
	ErrStorageFailure = errors.New("storage failure")
	// ErrNoFeedback signals that no feedback has been recorded yet,
	// so no performance report can be ranked.
	ErrNoFeedback = errors.New("no feedback recorded yet")
	// ErrAdviceUnavailable signals an advisory generator failure.
	ErrAdviceUnavailable = errors.New("advice unavailable")
)
