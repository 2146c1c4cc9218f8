package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/k2fort/arcfeed/internal/config"
	"github.com/k2fort/arcfeed/internal/eventfeed"
	"github.com/k2fort/arcfeed/internal/ingest"
	"github.com/k2fort/arcfeed/internal/logger"
	"github.com/k2fort/arcfeed/internal/notifier"
	"github.com/k2fort/arcfeed/internal/scraper"
	"github.com/k2fort/arcfeed/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// options holds the persistent flags shared by every subcommand
type options struct {
	configPath   string
	envFile      string
	dataDir      string
	logLevel     string
	logFormat    string
	verbose      bool
	delay        time.Duration
	detailPolicy string
	format       string
	dryRunNotify bool
}

// app is the wired runtime of one command invocation
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	store *storage.Store
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "arcfeed",
		Short: "Aggregate ARC Raiders news, patch notes and event timers",
		Long: `A CLI tool that keeps news.json, patches.json and events.json up to date.
News entries are scraped from the official listing, classified into news and
patch notes, merged into the existing files and re-sorted by date. Event
timers are mirrored verbatim from the event feed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (or env: ARCFEED_CONFIG)")
	flags.StringVar(&opts.envFile, "env-file", "", "Env file to load (default: .env when present)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Directory holding news.json, patches.json and events.json")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: json or console")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging (same as --log-level debug)")
	flags.DurationVar(&opts.delay, "delay", 0, "Politeness delay between detail fetches, 0 disables")
	flags.StringVar(&opts.detailPolicy, "detail-policy", "", "Detail fetch policy: refetch or skip-known")
	flags.StringVar(&opts.format, "format", "text", "Output format: text or json")
	flags.BoolVar(&opts.dryRunNotify, "dry-run-notify", false, "Print new-entry notifications instead of sending them")

	cmd.AddCommand(
		newSyncCmd(opts),
		newNewsCmd(opts),
		newEventsCmd(opts),
		newListCmd(opts),
		newServeCmd(opts),
	)

	return cmd
}

func newSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Update the news and patch-notes buckets, then the event snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			report, newsErr := a.runNews(ctx, opts, cmd.OutOrStdout())
			if newsErr != nil {
				a.log.Error("News run failed, buckets left untouched", logger.Fields{"stage": "news"}, newsErr)
			}

			// Event sync is independent and never changes the exit status
			a.runEvents(ctx)

			if newsErr != nil {
				return newsErr
			}
			return writeReport(cmd.OutOrStdout(), report, opts.format)
		},
	}
}

func newNewsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "Update the news and patch-notes buckets only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			report, err := a.runNews(ctx, opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), report, opts.format)
		},
	}
}

func newEventsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Mirror the event-timer feed into events.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			if result := a.runEvents(ctx); result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %d bytes to %s\n", len(result.Bytes), a.store.EventsPath())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Event feed unavailable, previous snapshot kept.")
			}
			return nil
		},
	}
}

func newServeCmd(opts *options) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the persisted files over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return a.newServer().Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")

	return cmd
}

// setup loads configuration, applies flag overrides and initializes logging and storage
func setup(cmd *cobra.Command, opts *options) (*app, error) {
	format := OutputFormat(strings.ToLower(opts.format))
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("invalid format: %s (must be 'text' or 'json')", opts.format)
	}

	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: opts.configPath,
		EnvFile:    opts.envFile,
	})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if flags.Changed("delay") {
		cfg.Fetch.PolitenessDelay = opts.delay
	}
	if opts.detailPolicy != "" {
		cfg.Fetch.DetailPolicy = opts.detailPolicy
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)

	store, err := storage.New(cfg.DataDir, storage.Files{
		News:    cfg.Files.News,
		Patches: cfg.Files.Patches,
		Events:  cfg.Files.Events,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	log.Debug("Configuration loaded", logger.Fields{
		"dataDir": store.DataDir(),
		"source":  cfg.Source.URL,
		"kind":    cfg.Source.Kind,
		"events":  cfg.Events.URL,
		"policy":  cfg.Fetch.DetailPolicy,
		"delay":   cfg.Fetch.PolitenessDelay.String(),
	})

	return &app{cfg: cfg, log: log, store: store}, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Format, "console") {
		return logger.NewConsole(level, w), nil
	}
	return logger.New(level, w), nil
}

// runNews executes one news run against the store
func (a *app) runNews(ctx context.Context, opts *options, out io.Writer) (*ingest.Report, error) {
	extractor, err := newExtractor(a.cfg.Source)
	if err != nil {
		return nil, err
	}

	sc := scraper.New(scraper.Options{
		UserAgent:        a.cfg.Fetch.UserAgent,
		ListingTimeout:   a.cfg.Fetch.ListingTimeout,
		DetailTimeout:    a.cfg.Fetch.DetailTimeout,
		PolitenessDelay:  a.cfg.Fetch.PolitenessDelay,
		Extractor:        extractor,
		ContentSelectors: a.cfg.Source.ContentSelectors,
		Readability:      a.cfg.Source.ReadabilityFallback,
	})

	a.log.Debug("Scraper ready", logger.Fields{
		"kind":  extractor.Name(),
		"delay": sc.Delay().String(),
	})

	var origin *url.URL
	if a.cfg.Source.Origin != "" {
		origin, err = url.Parse(a.cfg.Source.Origin)
		if err != nil {
			return nil, fmt.Errorf("parsing source origin: %w", err)
		}
	}

	metrics := logger.NewMetrics()
	n, err := a.newNotifier(opts.dryRunNotify, out, metrics)
	if err != nil {
		return nil, err
	}

	svc, err := ingest.NewService(sc, ingest.Config{
		ListingURL:   a.cfg.Source.URL,
		Origin:       origin,
		DateLayouts:  a.cfg.Source.DateLayouts,
		DetailPolicy: a.cfg.Fetch.DetailPolicy,
	}, ingest.WithLogger(a.log), ingest.WithMetrics(metrics), ingest.WithNotifier(n))
	if err != nil {
		return nil, err
	}

	report, err := svc.Sync(ctx, a.store)
	if err != nil {
		return nil, err
	}

	a.log.Debug("Run metrics", logger.Fields{"metrics": metrics.GetSnapshot()})
	return report, nil
}

// runEvents syncs the event snapshot. Failures are logged and reported as nil.
func (a *app) runEvents(ctx context.Context) *eventfeed.Result {
	client := eventfeed.NewClient(a.cfg.Events.URL,
		eventfeed.WithTimeout(a.cfg.Events.Timeout),
		eventfeed.WithUserAgent(a.cfg.Fetch.UserAgent),
	)

	result, err := ingest.SyncEvents(ctx, client, a.store, a.log)
	if err != nil {
		return nil
	}
	return result
}

func (a *app) newNotifier(dryRun bool, out io.Writer, metrics *logger.Metrics) (notifier.Notifier, error) {
	if dryRun {
		return notifier.NewDryRunNotifier(out), nil
	}
	if a.cfg.Notify.Telegram.Enabled() {
		return notifier.NewTelegramNotifier(a.cfg.Notify.Telegram.BotToken, a.cfg.Notify.Telegram.ChatID,
			notifier.WithMetrics(metrics))
	}
	return notifier.Nop{}, nil
}

// newExtractor resolves the configured source kind from the extractor registry
func newExtractor(src config.SourceConfig) (scraper.Extractor, error) {
	cards := make([]scraper.CardStrategy, 0, len(src.Cards))
	for _, c := range src.Cards {
		cards = append(cards, scraper.CardStrategy{
			Card:     c.Card,
			Title:    c.Title,
			Date:     c.Date,
			DateAttr: c.DateAttr,
			Link:     c.Link,
			LinkAttr: c.LinkAttr,
			Summary:  c.Summary,
		})
	}

	registry := scraper.NewRegistry(
		scraper.NewHTMLExtractor(cards),
		scraper.NewJSONExtractor(scraper.JSONKeys{
			Items:   src.JSON.Items,
			Title:   src.JSON.Title,
			Link:    src.JSON.Link,
			Date:    src.JSON.Date,
			Summary: src.JSON.Summary,
			Content: src.JSON.Content,
		}),
		scraper.NewFeedExtractor(),
	)

	return registry.Resolve(src.Kind)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Execute runs the CLI and exits with ExitError on any fatal failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted, nothing written.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
