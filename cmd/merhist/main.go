package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/kimata/merhist"
	"github.com/kimata/merhist/crawl"
	merhisthttp "github.com/kimata/merhist/http"
	"github.com/kimata/merhist/rod"
	"github.com/kimata/merhist/slack"
	merhistslog "github.com/kimata/merhist/slog"
	"github.com/kimata/merhist/sqlite"
	"github.com/kimata/merhist/terminal"
	"github.com/kimata/merhist/xlsx"
	"github.com/lmittmann/tint"
)

// defaultPace is the minimum interval between item fetches.
const defaultPace = 2 * time.Second

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// SQLite database used by the store.
	DB *sqlite.DB
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("merhist"),
		kong.Description("Incrementally collect Mercari sold and bought transaction history."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := kongCtx.Command()
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		cmd = cmd[:i]
	}
	if cmd == "" {
		return nil // help was shown
	}

	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
	deps.Logger = logger

	if cli.DB != "" {
		m.DBPath = cli.DB
	}

	// fetch-one works without the store; everything else needs it.
	if cmd == "crawl" || cmd == "export" {
		m.DB = sqlite.NewDB(m.DBPath)
		if err := m.DB.Open(); err != nil {
			if merhist.ErrorCode(err) == merhist.ECONFLICT {
				fmt.Fprintln(stderr, "Hint: another merhist run holds the database; wait for it or remove a stale lock file")
			}
			return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
		}
		defer m.Close()

		deps.Store = merhistslog.NewLoggingStore(sqlite.NewStore(m.DB), logger)
	}

	switch cmd {
	case "crawl":
		browser, err := newBrowser(cli.Crawl.Headless, cli.Crawl.Profile, cli.Crawl.Debug, logger)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
			return err
		}
		defer browser.Close()

		relay := newRelay(cli.Crawl.SlackWebhook, cli.Crawl.SlackResponseFile, stdout)
		session := crawl.NewSessionManager(browser, relay, cli.Crawl.Email, cli.Crawl.Password, logger)

		deps.Session = session
		deps.Fetcher = merhistslog.NewLoggingFetcher(crawl.NewDetailFetcher(browser, logger), logger)
		deps.Report = xlsx.NewReportWriter(cli.Crawl.Output,
			xlsx.WithImageFetcher(merhisthttp.NewImageFetcher()))
		deps.Crawler = &crawl.Crawler{
			Session:    session,
			Fetcher:    deps.Fetcher,
			NewWalker:  crawl.NewWalkers(browser),
			Store:      deps.Store,
			Report:     deps.Report,
			Pacer:      crawl.NewPacer(defaultPace),
			Force:      merhist.NewForceScope(cli.Crawl.ForceAll, cli.Crawl.ForceSold, cli.Crawl.ForceBought),
			Thumbnails: !cli.Crawl.NoThumb,
			Logger:     logger,
		}

	case "export":
		deps.Report = xlsx.NewReportWriter(cli.Export.Output,
			xlsx.WithImageFetcher(merhisthttp.NewImageFetcher()))
		deps.Crawler = &crawl.Crawler{
			Store:  deps.Store,
			Report: deps.Report,
			Logger: logger,
		}

	case "fetch-one":
		browser, err := newBrowser(cli.FetchOne.Headless, cli.FetchOne.Profile, cli.FetchOne.Debug, logger)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
			return err
		}
		defer browser.Close()

		relay := newRelay(cli.FetchOne.SlackWebhook, cli.FetchOne.SlackResponseFile, stdout)
		deps.Session = crawl.NewSessionManager(browser, relay, cli.FetchOne.Email, cli.FetchOne.Password, logger)
		deps.Fetcher = merhistslog.NewLoggingFetcher(crawl.NewDetailFetcher(browser, logger), logger)
	}

	return kongCtx.Run(deps)
}

// newBrowser launches the shared browser session with logging.
func newBrowser(headless bool, profileDir, debugDir string, logger *slog.Logger) (merhist.Browser, error) {
	browser, err := rod.NewBrowser(
		rod.WithHeadless(headless),
		rod.WithProfileDir(profileDir),
		rod.WithDebugDir(debugDir),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return rod.NewLoggingBrowser(browser, logger), nil
}

// newRelay picks the challenge relay: Slack when a webhook is configured,
// the interactive terminal otherwise.
func newRelay(webhook, responseFile string, stdout io.Writer) merhist.ChallengeRelay {
	if webhook != "" {
		return slack.NewRelay(webhook, responseFile)
	}
	return terminal.NewRelay(os.Stdin, stdout)
}

func defaultDBPath() string {
	if path := os.Getenv("MERHIST_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "merhist.db"
	}
	dir := filepath.Join(home, ".merhist")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "merhist.db")
}
