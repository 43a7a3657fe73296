package core

import "errors"

var (
	// ErrChallengeNotFound is returned when no challenge exists for an id
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeExpired is returned when a challenge is past its expiry
	ErrChallengeExpired = errors.New("challenge has expired")

	// ErrChallengeConsumed is returned when a challenge was already used
	// by a successful verification
	ErrChallengeConsumed = errors.New("challenge already consumed")

	// ErrSignatureMismatch is returned when a signature fails its
	// cryptographic check or contradicts the claimed identifier
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrUnsupportedMethod is returned for an unknown recovery method tag
	ErrUnsupportedMethod = errors.New("unsupported recovery method")

	// ErrInvalidIdentifier is returned when an identifier does not parse
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrUnknownIdentifier is returned when an identifier parses but no
	// registered key or account matches it
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrUserCancelled is returned client-side when the platform prompt
	// was cancelled, denied by policy, or timed out
	ErrUserCancelled = errors.New("user cancelled or platform denied signing")

	// ErrInvalidToken is returned when a session token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when a session token has expired
	ErrTokenExpired = errors.New("token has expired")

	// ErrStoreOperationFailed is returned when a store operation fails
	ErrStoreOperationFailed = errors.New("store operation failed")
)
