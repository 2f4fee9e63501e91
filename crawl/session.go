package crawl

import (
	"context"
	"log/slog"
	"time"

	"github.com/kimata/merhist"
	gq "github.com/kimata/merhist/goquery"
)

// Session manager defaults.
const (
	DefaultLoginAttempts    = 2
	DefaultRecoverAttempts  = 2
	DefaultFormTimeout      = 30 * time.Second
	DefaultChallengeTimeout = 5 * time.Minute
)

// Session is the authenticated-session capability the crawler drives.
type Session interface {
	// Login establishes an authenticated session, relaying the one-time
	// code challenge to a human. Exhaustion of login attempts, or a
	// challenge timeout or rejection, returns EAUTH.
	Login(ctx context.Context) error

	// Valid reports whether the session still works.
	Valid(ctx context.Context) bool

	// Recover rebuilds an expired session from scratch. Exhaustion of
	// recovery attempts returns ESESSION.
	Recover(ctx context.Context) error
}

// Ensure SessionManager implements Session at compile time.
var _ Session = (*SessionManager)(nil)

// SessionManager owns the login handshake: credential form, out-of-band
// one-time-code challenge, and post-login verification. The session itself
// lives in the browser profile; SessionManager never persists anything.
type SessionManager struct {
	browser merhist.Browser
	relay   merhist.ChallengeRelay
	logger  *slog.Logger

	email    string
	password string

	// LoginAttempts bounds full login passes per Login call.
	LoginAttempts int

	// RecoverAttempts bounds profile-reset-and-relogin cycles per Recover
	// call.
	RecoverAttempts int

	// FormTimeout bounds each wait for a login form element to render.
	FormTimeout time.Duration

	// ChallengeTimeout bounds the wait for the human-supplied code.
	ChallengeTimeout time.Duration
}

// NewSessionManager creates a SessionManager with default attempt budgets.
func NewSessionManager(browser merhist.Browser, relay merhist.ChallengeRelay, email, password string, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		browser:          browser,
		relay:            relay,
		logger:           logger,
		email:            email,
		password:         password,
		LoginAttempts:    DefaultLoginAttempts,
		RecoverAttempts:  DefaultRecoverAttempts,
		FormTimeout:      DefaultFormTimeout,
		ChallengeTimeout: DefaultChallengeTimeout,
	}
}

// Login drives the login form up to LoginAttempts times. A challenge
// timeout or rejection is fatal immediately: the human is not answering,
// so a second pass would only send a code nobody will relay.
func (m *SessionManager) Login(ctx context.Context) error {
	// Reuse a live session from a previous run when the profile still
	// holds one.
	if m.Valid(ctx) {
		m.logger.Info("existing session still valid, skipping login")
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= m.LoginAttempts; attempt++ {
		err, fatal := m.loginOnce(ctx)
		if err == nil {
			m.logger.Info("login succeeded", "attempt", attempt)
			return nil
		}
		if fatal || ctx.Err() != nil {
			return err
		}
		lastErr = err
		m.logger.Warn("login attempt failed", "attempt", attempt, "err", err)
	}
	return merhist.WrapErrorf(lastErr, merhist.EAUTH, "login failed after %d attempts", m.LoginAttempts)
}

// loginOnce runs a single full login pass. The fatal flag marks failures
// that further passes cannot fix.
func (m *SessionManager) loginOnce(ctx context.Context) (err error, fatal bool) {
	if err := m.browser.Navigate(ctx, merhist.LoginURL); err != nil {
		return merhist.WrapErrorf(err, merhist.EAUTH, "loading login page"), false
	}
	if err := m.browser.WaitVisible(ctx, gq.LoginEmailInput, m.FormTimeout); err != nil {
		return merhist.WrapErrorf(err, merhist.EAUTH, "waiting for credential form"), false
	}
	if err := m.browser.Input(ctx, gq.LoginEmailInput, m.email); err != nil {
		return merhist.WrapErrorf(err, merhist.EAUTH, "entering identifier"), false
	}
	if err := m.browser.Input(ctx, gq.LoginPassInput, m.password); err != nil {
		return merhist.WrapErrorf(err, merhist.EAUTH, "entering password"), false
	}
	if err := m.browser.ClickMatching(ctx, gq.LoginStartButton, gq.TextLogin); err != nil {
		return merhist.WrapErrorf(err, merhist.EAUTH, "submitting credentials"), false
	}

	// Credentials accepted when the one-time-code form renders.
	if err := m.browser.WaitVisible(ctx, gq.LoginCodeInput, m.FormTimeout); err != nil {
		return merhist.WrapErrorf(err, merhist.EAUTH, "code form did not render"), false
	}

	ch, err := m.relay.SendChallenge(ctx, "SMS")
	if err != nil {
		return err, true
	}
	m.logger.Info("one-time code requested", "challenge", ch.CorrelationID)

	code, err := m.relay.AwaitResponse(ctx, ch, m.ChallengeTimeout)
	if err != nil {
		return err, true
	}

	if err := m.browser.Input(ctx, gq.LoginCodeInput, code); err != nil {
		return merhist.WrapErrorf(err, merhist.EAUTH, "entering code"), false
	}
	if err := m.browser.ClickMatching(ctx, gq.LoginStartButton, gq.TextCodeSubmit); err != nil {
		return merhist.WrapErrorf(err, merhist.EAUTH, "submitting code"), false
	}

	// The account control only renders for authenticated sessions.
	if err := m.browser.WaitVisible(ctx, gq.AccountButton, m.FormTimeout); err != nil {
		return merhist.WrapErrorf(err, merhist.EAUTH, "login not confirmed"), false
	}
	return nil, false
}

// Valid navigates to the top page and checks for the account control.
func (m *SessionManager) Valid(ctx context.Context) bool {
	if err := m.browser.Navigate(ctx, merhist.TopURL); err != nil {
		return false
	}
	return m.browser.SessionValid(ctx)
}

// Recover resets the browser profile and logs in again, up to
// RecoverAttempts times.
func (m *SessionManager) Recover(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= m.RecoverAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.logger.Warn("recovering session", "attempt", attempt)

		if err := m.browser.Reset(ctx); err != nil {
			lastErr = err
			continue
		}
		if err := m.Login(ctx); err != nil {
			lastErr = err
			if merhist.ErrorCode(err) == merhist.EAUTH {
				// A failed login already burned its own attempt budget;
				// resetting the profile again will not change the outcome.
				break
			}
			continue
		}
		return nil
	}
	return merhist.WrapErrorf(lastErr, merhist.ESESSION, "session recovery failed after %d attempts", m.RecoverAttempts)
}
