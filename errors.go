package mailbox

import "errors"

var (
	// ErrNotInitialized is returned by Register before Init.
	ErrNotInitialized = errors.New("mailbox not initialized")

	// ErrRegistryFull is returned when MaxConsumers tokens are already registered.
	ErrRegistryFull = errors.New("consumer registry full")

	// ErrResourceExhausted wraps a failure to allocate a consumer queue.
	// The registry is left unchanged and the registration may be retried.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrInvalidToken is returned for the empty token.
	ErrInvalidToken = errors.New("invalid consumer token")
)
