package domain

import "errors"

var (
	// ErrInvalidAssessment indicates the assessment payload is malformed.
	ErrInvalidAssessment = errors.New("invalid assessment")
	// ErrUnsupportedDuration is returned for challenge lengths the generator does not support.
	ErrUnsupportedDuration = errors.New("unsupported challenge duration")
	// ErrDayIndexOutOfRange indicates a check-in referenced a day outside the plan.
	ErrDayIndexOutOfRange = errors.New("day index out of range")
	// ErrFutureCheckInNotAllowed indicates a check-in for a day not yet reached.
	ErrFutureCheckInNotAllowed = errors.New("future check-in not allowed")
	// ErrChallengeNotActive indicates the challenge lifecycle does not permit the operation.
	ErrChallengeNotActive = errors.New("challenge not active")
	// ErrChallengeNotFound is returned when a challenge cannot be located.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrIdempotentReplay indicates an existing challenge was found for the provided idempotency key.
	ErrIdempotentReplay = errors.New("challenge already exists for idempotency key")
)
