package mock

import (
	"context"
	"time"

	"github.com/kimata/merhist"
)

var _ merhist.ChallengeRelay = (*ChallengeRelay)(nil)

// ChallengeRelay is a mock implementation of merhist.ChallengeRelay.
type ChallengeRelay struct {
	SendChallengeFn func(ctx context.Context, hint string) (*merhist.Challenge, error)
	AwaitResponseFn func(ctx context.Context, ch *merhist.Challenge, timeout time.Duration) (string, error)
}

func (r *ChallengeRelay) SendChallenge(ctx context.Context, hint string) (*merhist.Challenge, error) {
	return r.SendChallengeFn(ctx, hint)
}

func (r *ChallengeRelay) AwaitResponse(ctx context.Context, ch *merhist.Challenge, timeout time.Duration) (string, error) {
	return r.AwaitResponseFn(ctx, ch, timeout)
}
