package crawl_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/kimata/merhist"
	"github.com/kimata/merhist/crawl"
	gq "github.com/kimata/merhist/goquery"
	"github.com/kimata/merhist/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// loginBrowser scripts a browser for the login handshake. Each map entry
// overrides one wait outcome; everything else succeeds.
type loginBrowser struct {
	*mock.Browser

	inputs     map[string]string
	clicked    []string
	navigated  []string
	resets     int
	valid      bool
	accountErr func() error
}

func newLoginBrowser() *loginBrowser {
	b := &loginBrowser{
		Browser: &mock.Browser{},
		inputs:  map[string]string{},
	}
	b.NavigateFn = func(_ context.Context, url string) error {
		b.navigated = append(b.navigated, url)
		return nil
	}
	b.SessionValidFn = func(_ context.Context) bool { return b.valid }
	b.InputFn = func(_ context.Context, selector, text string) error {
		b.inputs[selector] = text
		return nil
	}
	b.ClickMatchingFn = func(_ context.Context, _, pattern string) error {
		b.clicked = append(b.clicked, pattern)
		return nil
	}
	b.WaitVisibleFn = func(_ context.Context, selector string, _ time.Duration) error {
		if selector == gq.AccountButton && b.accountErr != nil {
			return b.accountErr()
		}
		return nil
	}
	b.ResetFn = func(_ context.Context) error {
		b.resets++
		return nil
	}
	return b
}

func staticRelay(code string) *mock.ChallengeRelay {
	return &mock.ChallengeRelay{
		SendChallengeFn: func(_ context.Context, hint string) (*merhist.Challenge, error) {
			return &merhist.Challenge{CorrelationID: "ch-1", Hint: hint, SentAt: time.Now()}, nil
		},
		AwaitResponseFn: func(_ context.Context, _ *merhist.Challenge, _ time.Duration) (string, error) {
			return code, nil
		},
	}
}

func TestSessionManager_Login(t *testing.T) {
	t.Parallel()

	t.Run("drives the full handshake", func(t *testing.T) {
		t.Parallel()

		browser := newLoginBrowser()
		m := crawl.NewSessionManager(browser, staticRelay("123456"), "user@example.com", "hunter2", discardLogger())

		require.NoError(t, m.Login(context.Background()))

		assert.Contains(t, browser.navigated, merhist.LoginURL)
		assert.Equal(t, "user@example.com", browser.inputs[gq.LoginEmailInput])
		assert.Equal(t, "hunter2", browser.inputs[gq.LoginPassInput])
		assert.Equal(t, "123456", browser.inputs[gq.LoginCodeInput])
		assert.Equal(t, []string{gq.TextLogin, gq.TextCodeSubmit}, browser.clicked)
	})

	t.Run("skips when the session is still valid", func(t *testing.T) {
		t.Parallel()

		browser := newLoginBrowser()
		browser.valid = true
		m := crawl.NewSessionManager(browser, staticRelay("123456"), "u", "p", discardLogger())

		require.NoError(t, m.Login(context.Background()))

		assert.NotContains(t, browser.navigated, merhist.LoginURL)
		assert.Empty(t, browser.clicked)
	})

	t.Run("retries a failed pass and succeeds", func(t *testing.T) {
		t.Parallel()

		browser := newLoginBrowser()
		failures := 1
		browser.accountErr = func() error {
			if failures > 0 {
				failures--
				return errors.New("account control not rendered")
			}
			return nil
		}

		sends := 0
		relay := staticRelay("123456")
		base := relay.SendChallengeFn
		relay.SendChallengeFn = func(ctx context.Context, hint string) (*merhist.Challenge, error) {
			sends++
			return base(ctx, hint)
		}

		m := crawl.NewSessionManager(browser, relay, "u", "p", discardLogger())

		require.NoError(t, m.Login(context.Background()))
		assert.Equal(t, 2, sends, "each pass sends its own challenge")
	})

	t.Run("exhausting passes is an auth failure", func(t *testing.T) {
		t.Parallel()

		browser := newLoginBrowser()
		browser.accountErr = func() error { return errors.New("never confirmed") }
		m := crawl.NewSessionManager(browser, staticRelay("123456"), "u", "p", discardLogger())

		err := m.Login(context.Background())

		require.Error(t, err)
		assert.Equal(t, merhist.EAUTH, merhist.ErrorCode(err))
	})

	t.Run("challenge timeout is fatal without a second pass", func(t *testing.T) {
		t.Parallel()

		browser := newLoginBrowser()
		sends := 0
		relay := &mock.ChallengeRelay{
			SendChallengeFn: func(_ context.Context, hint string) (*merhist.Challenge, error) {
				sends++
				return &merhist.Challenge{CorrelationID: "ch-1", Hint: hint}, nil
			},
			AwaitResponseFn: func(_ context.Context, ch *merhist.Challenge, timeout time.Duration) (string, error) {
				return "", merhist.Errorf(merhist.EAUTH, "no code received within %s", timeout)
			},
		}
		m := crawl.NewSessionManager(browser, relay, "u", "p", discardLogger())

		err := m.Login(context.Background())

		require.Error(t, err)
		assert.Equal(t, merhist.EAUTH, merhist.ErrorCode(err))
		assert.Equal(t, 1, sends, "a timed-out challenge must not trigger another")
	})
}

func TestSessionManager_Recover(t *testing.T) {
	t.Parallel()

	t.Run("resets the profile and logs in again", func(t *testing.T) {
		t.Parallel()

		browser := newLoginBrowser()
		m := crawl.NewSessionManager(browser, staticRelay("123456"), "u", "p", discardLogger())

		require.NoError(t, m.Recover(context.Background()))

		assert.Equal(t, 1, browser.resets)
		assert.Contains(t, browser.navigated, merhist.LoginURL)
	})

	t.Run("reset failures exhaust into a session error", func(t *testing.T) {
		t.Parallel()

		browser := newLoginBrowser()
		browser.ResetFn = func(_ context.Context) error {
			browser.resets++
			return errors.New("browser will not restart")
		}
		m := crawl.NewSessionManager(browser, staticRelay("123456"), "u", "p", discardLogger())

		err := m.Recover(context.Background())

		require.Error(t, err)
		assert.Equal(t, merhist.ESESSION, merhist.ErrorCode(err))
		assert.Equal(t, crawl.DefaultRecoverAttempts, browser.resets)
	})

	t.Run("failed relogin is a session error", func(t *testing.T) {
		t.Parallel()

		browser := newLoginBrowser()
		browser.accountErr = func() error { return errors.New("never confirmed") }
		m := crawl.NewSessionManager(browser, staticRelay("123456"), "u", "p", discardLogger())

		err := m.Recover(context.Background())

		require.Error(t, err)
		assert.Equal(t, merhist.ESESSION, merhist.ErrorCode(err))
		assert.Equal(t, 1, browser.resets, "a fully failed login ends recovery")
	})
}

var _ crawl.Session = (*crawl.SessionManager)(nil)
