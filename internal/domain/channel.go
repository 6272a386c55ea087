package domain

import "context"

// Source is a long-lived connection that publishes inbound events until ctx ends.
// A non-nil error means the connection was lost and cannot be resumed.
type Source interface {
	Name() string
	Start(ctx context.Context, queue EventQueue) error
}

// Sender delivers a formatted message body to a destination chat.
type Sender interface {
	Send(ctx context.Context, chatID string, body string) error
}
