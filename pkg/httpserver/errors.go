package httpserver

import "errors"

var (
	// ErrStart wraps listen failures surfaced by Run.
	ErrStart = errors.New("failed to start HTTP server")
	// ErrShutdown wraps graceful-shutdown failures surfaced by Shutdown.
	ErrShutdown = errors.New("failed to shutdown HTTP server gracefully")
)
