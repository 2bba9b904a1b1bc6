package notifier

import "context"

// Sink is the boundary to one external delivery provider (email gateway,
// SMS gateway, push service). The engine treats providers as pluggable: one
// sink is registered per external channel.
type Sink interface {
	// Send delivers content to the recipient and returns the provider's
	// reference id for the accepted message, if any.
	Send(ctx context.Context, recipient, subject, body string) (providerRef string, err error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, recipient, subject, body string) (string, error)

func (f SinkFunc) Send(ctx context.Context, recipient, subject, body string) (string, error) {
	return f(ctx, recipient, subject, body)
}
