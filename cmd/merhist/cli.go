package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/kimata/merhist"
	"github.com/kimata/merhist/crawl"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
	Store   merhist.Store
	Report  merhist.ReportWriter
	Crawler *crawl.Crawler
	Fetcher crawl.Fetcher
	Session crawl.Session
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Crawl    CrawlCmd    `cmd:"" default:"withargs" help:"Collect new transaction records and render the report"`
	Export   ExportCmd   `cmd:"" help:"Render the report from already collected records"`
	FetchOne FetchOneCmd `cmd:"" name:"fetch-one" help:"Fetch a single order by URL and print it as JSON"`

	DB    string `help:"SQLite database path (default honors MERHIST_DB)"`
	Debug bool   `help:"Enable debug logging"`
}

// CrawlCmd is the "crawl" subcommand and the default.
type CrawlCmd struct {
	Email    string `env:"MERCARI_EMAIL" help:"Login identifier (email or phone)"`
	Password string `env:"MERCARI_PASSWORD" help:"Login password"`

	ForceAll    bool `name:"force-all" help:"Re-fetch every record of both types"`
	ForceSold   bool `name:"force-sold" help:"Re-fetch every sold record"`
	ForceBought bool `name:"force-bought" help:"Re-fetch every bought record"`

	Output  string `short:"o" default:"merhist.xlsx" help:"Report output path"`
	NoThumb bool   `name:"no-thumb" help:"Omit the thumbnail column from the report"`

	Headless bool   `default:"true" negatable:"" help:"Run the browser headless"`
	Profile  string `default:"profile" help:"Browser profile directory"`
	Debug    string `name:"debug-dir" default:"debug" help:"Directory for failure page dumps"`

	SlackWebhook      string `env:"SLACK_WEBHOOK_URL" help:"Post one-time-code prompts to this Slack webhook instead of the terminal"`
	SlackResponseFile string `default:"merhist_code.txt" help:"File polled for the code when using Slack"`
}

// ExportCmd is the "export" subcommand.
type ExportCmd struct {
	Output  string `short:"o" default:"merhist.xlsx" help:"Report output path"`
	NoThumb bool   `name:"no-thumb" help:"Omit the thumbnail column from the report"`
}

// FetchOneCmd is the "fetch-one" subcommand, a debugging aid that fetches a
// single order without touching the store.
type FetchOneCmd struct {
	URL  string `arg:"" help:"Order URL"`
	Type string `default:"bought" enum:"sold,bought" help:"Record type the order belongs to"`

	Email    string `env:"MERCARI_EMAIL" help:"Login identifier (email or phone)"`
	Password string `env:"MERCARI_PASSWORD" help:"Login password"`

	Headless bool   `default:"true" negatable:"" help:"Run the browser headless"`
	Profile  string `default:"profile" help:"Browser profile directory"`
	Debug    string `name:"debug-dir" default:"debug" help:"Directory for failure page dumps"`

	SlackWebhook      string `env:"SLACK_WEBHOOK_URL" help:"Post one-time-code prompts to this Slack webhook instead of the terminal"`
	SlackResponseFile string `default:"merhist_code.txt" help:"File polled for the code when using Slack"`
}
