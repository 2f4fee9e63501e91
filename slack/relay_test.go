package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kimata/merhist"
	"github.com/kimata/merhist/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelay_SendChallenge(t *testing.T) {
	t.Parallel()

	t.Run("posts prompt to webhook", func(t *testing.T) {
		t.Parallel()

		var payload struct {
			Text string `json:"text"`
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		responseFile := filepath.Join(t.TempDir(), "code.txt")
		relay := slack.NewRelay(srv.URL, responseFile)

		ch, err := relay.SendChallenge(context.Background(), "SMS")
		require.NoError(t, err)

		assert.NotEmpty(t, ch.CorrelationID)
		assert.Equal(t, "SMS", ch.Hint)
		assert.Contains(t, payload.Text, "SMS")
		assert.Contains(t, payload.Text, ch.CorrelationID)
		assert.Contains(t, payload.Text, responseFile)
	})

	t.Run("clears stale response file", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		responseFile := filepath.Join(t.TempDir(), "code.txt")
		require.NoError(t, os.WriteFile(responseFile, []byte("000000"), 0o644))

		relay := slack.NewRelay(srv.URL, responseFile)

		_, err := relay.SendChallenge(context.Background(), "SMS")
		require.NoError(t, err)

		_, err = os.Stat(responseFile)
		assert.True(t, os.IsNotExist(err), "stale response should be removed")
	})

	t.Run("webhook rejection is an auth failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		relay := slack.NewRelay(srv.URL, filepath.Join(t.TempDir(), "code.txt"))

		_, err := relay.SendChallenge(context.Background(), "SMS")
		require.Error(t, err)
		assert.Equal(t, merhist.EAUTH, merhist.ErrorCode(err))
	})
}

func TestRelay_AwaitResponse(t *testing.T) {
	t.Parallel()

	newRelay := func(t *testing.T) (*slack.Relay, string) {
		t.Helper()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)
		responseFile := filepath.Join(t.TempDir(), "code.txt")
		return slack.NewRelay(srv.URL, responseFile, slack.WithPollInterval(10*time.Millisecond)), responseFile
	}

	t.Run("returns code once file appears", func(t *testing.T) {
		t.Parallel()

		relay, responseFile := newRelay(t)
		ch, err := relay.SendChallenge(context.Background(), "SMS")
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = os.WriteFile(responseFile, []byte("123456\n"), 0o644)
		}()

		code, err := relay.AwaitResponse(context.Background(), ch, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "123456", code)

		_, err = os.Stat(responseFile)
		assert.True(t, os.IsNotExist(err), "response file should be consumed")
	})

	t.Run("ignores empty file until a code is written", func(t *testing.T) {
		t.Parallel()

		relay, responseFile := newRelay(t)
		ch, err := relay.SendChallenge(context.Background(), "SMS")
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(responseFile, []byte("  \n"), 0o644))
		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = os.WriteFile(responseFile, []byte("654321"), 0o644)
		}()

		code, err := relay.AwaitResponse(context.Background(), ch, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "654321", code)
	})

	t.Run("times out without a response", func(t *testing.T) {
		t.Parallel()

		relay, _ := newRelay(t)
		ch, err := relay.SendChallenge(context.Background(), "SMS")
		require.NoError(t, err)

		_, err = relay.AwaitResponse(context.Background(), ch, 50*time.Millisecond)
		require.Error(t, err)
		assert.Equal(t, merhist.EAUTH, merhist.ErrorCode(err))
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		t.Parallel()

		relay, _ := newRelay(t)
		ch, err := relay.SendChallenge(context.Background(), "SMS")
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = relay.AwaitResponse(ctx, ch, 5*time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
