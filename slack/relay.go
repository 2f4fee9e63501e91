// Package slack implements merhist.ChallengeRelay for unattended runs: the
// one-time-code prompt is posted to a Slack incoming webhook and the reply
// is picked up from a response file written by the operator.
package slack

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/kimata/merhist"
)

// DefaultPollInterval is how often AwaitResponse re-reads the response file.
const DefaultPollInterval = 2 * time.Second

// Ensure Relay implements merhist.ChallengeRelay at compile time.
var _ merhist.ChallengeRelay = (*Relay)(nil)

// Relay notifies a Slack channel that a login code is needed and waits for
// the code to appear in responseFile. The file is consumed (removed) once
// read so a stale code never satisfies a later challenge.
type Relay struct {
	client       *resty.Client
	webhookURL   string
	responseFile string
	pollInterval time.Duration
}

// Option configures a Relay.
type Option func(*Relay)

// WithPollInterval overrides how often the response file is checked.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		r.pollInterval = d
	}
}

// NewRelay creates a Relay posting to webhookURL and reading codes from
// responseFile.
func NewRelay(webhookURL, responseFile string, opts ...Option) *Relay {
	r := &Relay{
		client:       resty.New().SetTimeout(10 * time.Second),
		webhookURL:   webhookURL,
		responseFile: responseFile,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SendChallenge posts the prompt to the webhook and returns the pending
// challenge.
func (r *Relay) SendChallenge(ctx context.Context, hint string) (*merhist.Challenge, error) {
	ch := &merhist.Challenge{
		CorrelationID: uuid.NewString(),
		Hint:          hint,
		SentAt:        time.Now(),
	}

	// Any stale response predates this challenge and must not satisfy it.
	if err := os.Remove(r.responseFile); err != nil && !os.IsNotExist(err) {
		return nil, merhist.WrapErrorf(err, merhist.EAUTH, "clearing response file")
	}

	msg := fmt.Sprintf(
		"A login one-time code was sent via %s (challenge %s).\nWrite it to %s on the crawler host.",
		hint, ch.CorrelationID, r.responseFile,
	)
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": msg}).
		Post(r.webhookURL)
	if err != nil {
		return nil, merhist.WrapErrorf(err, merhist.EAUTH, "posting challenge notification")
	}
	if resp.IsError() {
		return nil, merhist.Errorf(merhist.EAUTH, "challenge notification rejected: %s", resp.Status())
	}
	return ch, nil
}

// AwaitResponse polls the response file until the code shows up or the
// timeout elapses.
func (r *Relay) AwaitResponse(ctx context.Context, ch *merhist.Challenge, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		code, ok, err := r.readResponse()
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
		if time.Now().After(deadline) {
			return "", merhist.Errorf(merhist.EAUTH, "no code received for challenge %s within %s", ch.CorrelationID, timeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// readResponse consumes the response file if it holds a code.
func (r *Relay) readResponse() (string, bool, error) {
	data, err := os.ReadFile(r.responseFile)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, merhist.WrapErrorf(err, merhist.EAUTH, "reading response file")
	}

	code := strings.TrimSpace(string(data))
	if code == "" {
		return "", false, nil
	}
	if err := os.Remove(r.responseFile); err != nil {
		return "", false, merhist.WrapErrorf(err, merhist.EAUTH, "consuming response file")
	}
	return code, true, nil
}
