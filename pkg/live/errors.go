package live

import "errors"

var (
	// ErrUnauthorized is returned when a connection cannot be authenticated.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConnClosed is returned from sends on a closed connection.
	ErrConnClosed = errors.New("connection closed")
)
