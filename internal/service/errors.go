package service

import "errors"

var (
	// ErrGenerationExhausted is returned when every generation attempt
	// produced a code that already exists. Fatal to the single call only.
	ErrGenerationExhausted = errors.New("exhausted attempts to generate unique short code")
	// ErrCodeCollision is returned when a generated code lost the race
	// between the generator's check and the store write. Retryable: the
	// caller is expected to re-invoke Shorten.
	ErrCodeCollision = errors.New("short code collision, retry the request")
	// ErrInvalidCode is returned for inputs that cannot be a short code.
	// Rejected before touching storage.
	ErrInvalidCode = errors.New("invalid short code")
	// ErrMalformedRecord is returned when a stored URL does not parse as an
	// absolute http/https URL even after normalization. Resolving it would
	// redirect to an unsafe or relative target.
	ErrMalformedRecord = errors.New("stored url is malformed")
)
