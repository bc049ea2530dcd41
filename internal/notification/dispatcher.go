package notification

import "context"

// Message is a token-bearing notification addressed to a user's verified address
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Dispatcher sends notifications. Delivery is best-effort from the caller's
// point of view; callers queue through the outbox rather than call Send inline.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}
