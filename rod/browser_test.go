//go:build integration

package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kimata/merhist"
	"github.com/kimata/merhist/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Browser implements merhist.Browser.
var _ merhist.Browser = (*rod.Browser)(nil)

func newBrowser(t *testing.T) *rod.Browser {
	t.Helper()
	b, err := rod.NewBrowser(
		rod.WithProfileDir(t.TempDir()),
		rod.WithDebugDir(t.TempDir()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBrowser_Navigate_ReturnsRenderedHTML(t *testing.T) {
	t.Parallel()

	srv := serve(t, `<!DOCTYPE html>
<html>
<body>
<div id="content">Loading...</div>
<script>
document.getElementById('content').textContent = 'JavaScript Rendered';
</script>
</body>
</html>`)

	b := newBrowser(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, b.Navigate(ctx, srv.URL))

	html, err := b.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "JavaScript Rendered")
}

func TestBrowser_Navigate_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {} // never respond
	}))
	defer srv.Close()

	b := newBrowser(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Navigate(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBrowser_ClickMatching_ClicksByLabel(t *testing.T) {
	t.Parallel()

	srv := serve(t, `<!DOCTYPE html>
<html>
<body>
<button onclick="document.title='wrong'">キャンセル</button>
<button onclick="document.title='clicked'">もっと見る</button>
</body>
</html>`)

	b := newBrowser(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, b.Navigate(ctx, srv.URL))
	require.NoError(t, b.ClickMatching(ctx, "button", "もっと見る"))

	html, err := b.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "<title>clicked</title>")
}

func TestBrowser_Input_ReplacesExistingValue(t *testing.T) {
	t.Parallel()

	srv := serve(t, `<!DOCTYPE html>
<html>
<body>
<input name="emailOrPhone" value="stale">
<button onclick="document.title=document.querySelector('input').value">send</button>
</body>
</html>`)

	b := newBrowser(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, b.Navigate(ctx, srv.URL))
	require.NoError(t, b.Input(ctx, `input[name="emailOrPhone"]`, "user@example.com"))
	require.NoError(t, b.Click(ctx, "button"))

	html, err := b.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "<title>user@example.com</title>")
	assert.NotContains(t, html, "stale")
}

func TestBrowser_WaitVisible_WaitsForDelayedElement(t *testing.T) {
	t.Parallel()

	srv := serve(t, `<!DOCTYPE html>
<html>
<body>
<script>
setTimeout(function() {
	var d = document.createElement('div');
	d.id = 'late';
	d.textContent = 'here';
	document.body.appendChild(d);
}, 500);
</script>
</body>
</html>`)

	b := newBrowser(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, b.Navigate(ctx, srv.URL))
	assert.NoError(t, b.WaitVisible(ctx, "#late", 10*time.Second))
}

func TestBrowser_WaitHidden_ReturnsWhenElementDisappears(t *testing.T) {
	t.Parallel()

	srv := serve(t, `<!DOCTYPE html>
<html>
<body>
<div class="loading">spinner</div>
<script>
setTimeout(function() {
	document.querySelector('.loading').remove();
}, 500);
</script>
</body>
</html>`)

	b := newBrowser(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, b.Navigate(ctx, srv.URL))
	assert.NoError(t, b.WaitHidden(ctx, ".loading", 10*time.Second))

	// Absent elements count as hidden immediately.
	assert.NoError(t, b.WaitHidden(ctx, ".never-existed", time.Second))
}

func TestBrowser_WaitHidden_TimesOutOnPersistentElement(t *testing.T) {
	t.Parallel()

	srv := serve(t, `<!DOCTYPE html><html><body><div class="loading">stuck</div></body></html>`)

	b := newBrowser(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, b.Navigate(ctx, srv.URL))
	assert.Error(t, b.WaitHidden(ctx, ".loading", time.Second))
}

func TestBrowser_DumpState_WritesHTMLAndScreenshot(t *testing.T) {
	t.Parallel()

	srv := serve(t, `<!DOCTYPE html><html><body><p>dump me</p></body></html>`)

	debugDir := t.TempDir()
	b, err := rod.NewBrowser(
		rod.WithProfileDir(t.TempDir()),
		rod.WithDebugDir(debugDir),
	)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, b.Navigate(ctx, srv.URL))

	base, err := b.DumpState(ctx)
	require.NoError(t, err)
	assert.Equal(t, debugDir, filepath.Dir(base))

	html, err := os.ReadFile(base + ".html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "dump me")

	shot, err := os.Stat(base + ".png")
	require.NoError(t, err)
	assert.NotZero(t, shot.Size())
}

func TestBrowser_SessionValid_ProbesSelector(t *testing.T) {
	t.Parallel()

	loggedIn := serve(t, `<!DOCTYPE html><html><body><div class="account-button-content"></div></body></html>`)
	loggedOut := serve(t, `<!DOCTYPE html><html><body><p>login please</p></body></html>`)

	b := newBrowser(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, b.Navigate(ctx, loggedIn.URL))
	assert.True(t, b.SessionValid(ctx))

	require.NoError(t, b.Navigate(ctx, loggedOut.URL))
	assert.False(t, b.SessionValid(ctx))
}

func TestBrowser_Reset_WipesProfileAndRelaunches(t *testing.T) {
	t.Parallel()

	srv := serve(t, `<!DOCTYPE html><html><body>ok</body></html>`)

	profileDir := t.TempDir()
	b, err := rod.NewBrowser(
		rod.WithProfileDir(profileDir),
		rod.WithDebugDir(t.TempDir()),
	)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, b.Navigate(ctx, srv.URL))

	firstPID := b.LauncherPID()
	require.NotZero(t, firstPID)

	require.NoError(t, b.Reset(ctx))

	assert.NotEqual(t, firstPID, b.LauncherPID())

	// The browser is usable again after the restart.
	require.NoError(t, b.Navigate(ctx, srv.URL))
	html, err := b.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "ok")
}
