// Package terminal implements merhist.ChallengeRelay against an interactive
// terminal: the prompt is printed and the code is read from standard input.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kimata/merhist"
)

// Ensure Relay implements merhist.ChallengeRelay at compile time.
var _ merhist.ChallengeRelay = (*Relay)(nil)

// Relay prompts on out and reads one-time codes line by line from in.
// Relay is not safe for concurrent use; login runs a single challenge at a
// time.
type Relay struct {
	in   *bufio.Reader
	out  io.Writer
	once sync.Once

	// lines receives one entry per line read from in. The reader goroutine
	// starts on first AwaitResponse and runs for the life of the process;
	// stdin reads cannot be cancelled.
	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// NewRelay creates a Relay reading from in and prompting on out.
func NewRelay(in io.Reader, out io.Writer) *Relay {
	return &Relay{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan lineResult),
	}
}

// SendChallenge prints the prompt and returns the pending challenge.
func (r *Relay) SendChallenge(ctx context.Context, hint string) (*merhist.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := &merhist.Challenge{
		CorrelationID: uuid.NewString(),
		Hint:          hint,
		SentAt:        time.Now(),
	}

	if _, err := fmt.Fprintf(r.out, "A one-time code was sent via %s. Enter it here: ", hint); err != nil {
		return nil, merhist.WrapErrorf(err, merhist.EAUTH, "writing code prompt")
	}
	return ch, nil
}

// AwaitResponse reads one line from the terminal. The deadline keeps an
// unattended run from hanging on a prompt nobody will answer.
func (r *Relay) AwaitResponse(ctx context.Context, ch *merhist.Challenge, timeout time.Duration) (string, error) {
	r.once.Do(func() { go r.readLines() })

	select {
	case res := <-r.lines:
		if res.err != nil {
			return "", merhist.WrapErrorf(res.err, merhist.EAUTH, "reading code from terminal")
		}
		code := strings.TrimSpace(res.text)
		if code == "" {
			return "", merhist.Errorf(merhist.EAUTH, "empty code entered for challenge %s", ch.CorrelationID)
		}
		return code, nil
	case <-time.After(timeout):
		return "", merhist.Errorf(merhist.EAUTH, "no code entered for challenge %s within %s", ch.CorrelationID, timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Relay) readLines() {
	for {
		text, err := r.in.ReadString('\n')
		r.lines <- lineResult{text: text, err: err}
		if err != nil {
			return
		}
	}
}
