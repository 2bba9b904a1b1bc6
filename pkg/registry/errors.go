package registry

import "errors"

var (
	// ErrRegistryClosed is returned when connecting to a closed registry.
	ErrRegistryClosed = errors.New("registry is closed")

	// ErrSessionNotFound is returned when addressing an identity with no live session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyIdentity is returned when connecting with an empty identity.
	ErrEmptyIdentity = errors.New("identity cannot be empty")

	// ErrNilTransport is returned when connecting with a nil transport.
	ErrNilTransport = errors.New("transport cannot be nil")
)
