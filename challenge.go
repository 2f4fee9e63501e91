package merhist

import (
	"context"
	"time"
)

// Challenge describes a pending one-time-code prompt.
type Challenge struct {
	// CorrelationID ties a prompt to its response.
	CorrelationID string

	// Hint tells the human where the code was sent (e.g., "SMS").
	Hint string

	SentAt time.Time
}

// ChallengeRelay delivers an authentication one-time-code prompt to a human
// and receives the reply out of band. Implementations include a purely local
// interactive terminal and a remote-notification adapter.
type ChallengeRelay interface {
	// SendChallenge delivers the prompt and returns the pending challenge.
	SendChallenge(ctx context.Context, hint string) (*Challenge, error)

	// AwaitResponse blocks until the human supplies the code for the given
	// challenge or the timeout elapses. Timeout or rejection returns EAUTH.
	AwaitResponse(ctx context.Context, ch *Challenge, timeout time.Duration) (string, error)
}
