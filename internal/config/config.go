// Package config loads arcfeed settings from defaults, an optional YAML
// file, an optional .env file and ARCFEED_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/k2fort/arcfeed/internal/eventfeed"
	"github.com/k2fort/arcfeed/internal/ingest"
	"github.com/k2fort/arcfeed/internal/scraper"
)

const (
	envPrefix     = "ARCFEED"
	configPathEnv = "ARCFEED_CONFIG"

	DefaultNewsURL   = "https://arcraiders.com/news"
	DefaultEventsURL = eventfeed.DefaultURL
	DefaultUserAgent = scraper.DefaultUserAgent
)

// Source kinds understood by the scraper registry
const (
	SourceHTML = "html"
	SourceJSON = "json"
	SourceRSS  = "rss"
)

// Detail fetch policies
const (
	// PolicyRefetch fetches every detail page and lets the merge keep the richer content
	PolicyRefetch = ingest.PolicyRefetch
	// PolicySkipKnown never fetches or merges links already persisted (first-seen wins)
	PolicySkipKnown = ingest.PolicySkipKnown
)

// Config holds all arcfeed settings
type Config struct {
	DataDir string       `yaml:"data_dir"`
	Files   FilesConfig  `yaml:"files"`
	Source  SourceConfig `yaml:"source"`
	Fetch   FetchConfig  `yaml:"fetch"`
	Events  EventsConfig `yaml:"events"`
	Notify  NotifyConfig `yaml:"notify"`
	Server  ServerConfig `yaml:"server"`
	Log     LogConfig    `yaml:"log"`
}

// FilesConfig names the persisted files inside DataDir
type FilesConfig struct {
	News    string `yaml:"news"`
	Patches string `yaml:"patches"`
	Events  string `yaml:"events"`
}

// SourceConfig describes the news listing and how to extract it
type SourceConfig struct {
	Kind                string        `yaml:"kind"`
	URL                 string        `yaml:"url"`
	Origin              string        `yaml:"origin"` // defaults to scheme://host of URL
	DateLayouts         []string      `yaml:"date_layouts"`
	Cards               []CardConfig  `yaml:"cards"`
	ContentSelectors    []string      `yaml:"content_selectors"`
	ReadabilityFallback bool          `yaml:"readability_fallback"`
	JSON                JSONKeyConfig `yaml:"json"`
}

// CardConfig is one selector strategy for repeated listing cards
type CardConfig struct {
	Card     string `yaml:"card"`
	Title    string `yaml:"title"`
	Date     string `yaml:"date"`
	DateAttr string `yaml:"date_attr"`
	Link     string `yaml:"link"` // empty: the card element itself
	LinkAttr string `yaml:"link_attr"`
	Summary  string `yaml:"summary"`
}

// JSONKeyConfig lists candidate keys, tried in order, for the json source kind
type JSONKeyConfig struct {
	Items   []string `yaml:"items"`
	Title   []string `yaml:"title"`
	Link    []string `yaml:"link"`
	Date    []string `yaml:"date"`
	Summary []string `yaml:"summary"`
	Content []string `yaml:"content"`
}

// FetchConfig controls network behaviour of the news pipeline
type FetchConfig struct {
	ListingTimeout  time.Duration `yaml:"listing_timeout"`
	DetailTimeout   time.Duration `yaml:"detail_timeout"`
	PolitenessDelay time.Duration `yaml:"politeness_delay"`
	UserAgent       string        `yaml:"user_agent"`
	DetailPolicy    string        `yaml:"detail_policy"`
}

// EventsConfig describes the event-timer feed
type EventsConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// NotifyConfig groups outbound notification channels
type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig holds Telegram Bot API credentials
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Enabled reports whether both credentials are present
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// ServerConfig configures the read-only HTTP server
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LogConfig configures logging output
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// envOverrides are read with envconfig using the ARCFEED_ prefix.
// Durations are strings so that an unset variable is distinguishable from zero.
type envOverrides struct {
	DataDir          string `envconfig:"DATA_DIR"`
	SourceKind       string `envconfig:"SOURCE_KIND"`
	SourceURL        string `envconfig:"SOURCE_URL"`
	EventsURL        string `envconfig:"EVENTS_URL"`
	DetailPolicy     string `envconfig:"DETAIL_POLICY"`
	PolitenessDelay  string `envconfig:"POLITENESS_DELAY"`
	UserAgent        string `envconfig:"USER_AGENT"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
	ServerPort       int    `envconfig:"SERVER_PORT"`
	LogLevel         string `envconfig:"LOG_LEVEL"`
	LogFormat        string `envconfig:"LOG_FORMAT"`
}

// LoadOptions points Load at optional files
type LoadOptions struct {
	// ConfigPath is a YAML file; falls back to $ARCFEED_CONFIG. Empty means defaults only.
	ConfigPath string
	// EnvFile is a .env file. A missing file is an error only when set explicitly.
	EnvFile string
}

// DefaultEnvFile is loaded when present and no EnvFile is given
const DefaultEnvFile = ".env"

// Load builds the effective configuration and validates it
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(configPathEnv))
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		cfg = merge(cfg, fileCfg)
	}

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultEnvFile
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}

	// godotenv.Load never overrides variables already set in the environment
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	if env.DataDir != "" {
		c.DataDir = env.DataDir
	}
	if env.SourceKind != "" {
		c.Source.Kind = env.SourceKind
	}
	if env.SourceURL != "" {
		c.Source.URL = env.SourceURL
	}
	if env.EventsURL != "" {
		c.Events.URL = env.EventsURL
	}
	if env.DetailPolicy != "" {
		c.Fetch.DetailPolicy = env.DetailPolicy
	}
	if env.PolitenessDelay != "" {
		d, err := time.ParseDuration(env.PolitenessDelay)
		if err != nil {
			return fmt.Errorf("%s_POLITENESS_DELAY: %w", envPrefix, err)
		}
		c.Fetch.PolitenessDelay = d
	}
	if env.UserAgent != "" {
		c.Fetch.UserAgent = env.UserAgent
	}
	if env.TelegramBotToken != "" {
		c.Notify.Telegram.BotToken = env.TelegramBotToken
	}
	if env.TelegramChatID != "" {
		c.Notify.Telegram.ChatID = env.TelegramChatID
	}
	if env.ServerPort != 0 {
		c.Server.Port = env.ServerPort
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Log.Format = env.LogFormat
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Files.News == "" || c.Files.Patches == "" || c.Files.Events == "" {
		return fmt.Errorf("files.news, files.patches and files.events are required")
	}
	if c.Files.News == c.Files.Patches || c.Files.News == c.Files.Events || c.Files.Patches == c.Files.Events {
		return fmt.Errorf("files must be distinct")
	}

	switch c.Source.Kind {
	case SourceHTML, SourceJSON, SourceRSS:
	default:
		return fmt.Errorf("source.kind must be one of html, json, rss (got %q)", c.Source.Kind)
	}
	if strings.TrimSpace(c.Source.URL) == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Source.Kind == SourceHTML && len(c.Source.Cards) == 0 {
		return fmt.Errorf("source.cards must list at least one card strategy")
	}
	for i, card := range c.Source.Cards {
		if strings.TrimSpace(card.Card) == "" {
			return fmt.Errorf("source.cards[%d].card is required", i)
		}
	}

	switch c.Fetch.DetailPolicy {
	case PolicyRefetch, PolicySkipKnown:
	default:
		return fmt.Errorf("fetch.detail_policy must be %q or %q (got %q)", PolicyRefetch, PolicySkipKnown, c.Fetch.DetailPolicy)
	}
	if c.Fetch.ListingTimeout <= 0 || c.Fetch.DetailTimeout <= 0 {
		return fmt.Errorf("fetch timeouts must be positive")
	}
	if c.Fetch.PolitenessDelay < 0 {
		return fmt.Errorf("fetch.politeness_delay must be >= 0")
	}

	if strings.TrimSpace(c.Events.URL) == "" {
		return fmt.Errorf("events.url is required")
	}
	if c.Events.Timeout <= 0 {
		return fmt.Errorf("events.timeout must be positive")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console (got %q)", c.Log.Format)
	}
	return nil
}

func merge(base, override Config) Config {
	if override.DataDir != "" {
		base.DataDir = override.DataDir
	}

	if override.Files.News != "" {
		base.Files.News = override.Files.News
	}
	if override.Files.Patches != "" {
		base.Files.Patches = override.Files.Patches
	}
	if override.Files.Events != "" {
		base.Files.Events = override.Files.Events
	}

	if override.Source.Kind != "" {
		base.Source.Kind = override.Source.Kind
	}
	if override.Source.URL != "" {
		base.Source.URL = override.Source.URL
	}
	if override.Source.Origin != "" {
		base.Source.Origin = override.Source.Origin
	}
	if len(override.Source.DateLayouts) > 0 {
		base.Source.DateLayouts = override.Source.DateLayouts
	}
	if len(override.Source.Cards) > 0 {
		base.Source.Cards = override.Source.Cards
	}
	if len(override.Source.ContentSelectors) > 0 {
		base.Source.ContentSelectors = override.Source.ContentSelectors
	}
	if override.Source.ReadabilityFallback {
		base.Source.ReadabilityFallback = true
	}
	base.Source.JSON = mergeJSONKeys(base.Source.JSON, override.Source.JSON)

	if override.Fetch.ListingTimeout != 0 {
		base.Fetch.ListingTimeout = override.Fetch.ListingTimeout
	}
	if override.Fetch.DetailTimeout != 0 {
		base.Fetch.DetailTimeout = override.Fetch.DetailTimeout
	}
	if override.Fetch.PolitenessDelay != 0 {
		base.Fetch.PolitenessDelay = override.Fetch.PolitenessDelay
	}
	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}
	if override.Fetch.DetailPolicy != "" {
		base.Fetch.DetailPolicy = override.Fetch.DetailPolicy
	}

	if override.Events.URL != "" {
		base.Events.URL = override.Events.URL
	}
	if override.Events.Timeout != 0 {
		base.Events.Timeout = override.Events.Timeout
	}

	if override.Notify.Telegram.BotToken != "" {
		base.Notify.Telegram.BotToken = override.Notify.Telegram.BotToken
	}
	if override.Notify.Telegram.ChatID != "" {
		base.Notify.Telegram.ChatID = override.Notify.Telegram.ChatID
	}

	if override.Server.Host != "" {
		base.Server.Host = override.Server.Host
	}
	if override.Server.Port != 0 {
		base.Server.Port = override.Server.Port
	}

	if override.Log.Level != "" {
		base.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		base.Log.Format = override.Log.Format
	}

	return base
}

func mergeJSONKeys(base, override JSONKeyConfig) JSONKeyConfig {
	if len(override.Items) > 0 {
		base.Items = override.Items
	}
	if len(override.Title) > 0 {
		base.Title = override.Title
	}
	if len(override.Link) > 0 {
		base.Link = override.Link
	}
	if len(override.Date) > 0 {
		base.Date = override.Date
	}
	if len(override.Summary) > 0 {
		base.Summary = override.Summary
	}
	if len(override.Content) > 0 {
		base.Content = override.Content
	}
	return base
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		DataDir: ".",
		Files: FilesConfig{
			News:    "news.json",
			Patches: "patches.json",
			Events:  "events.json",
		},
		Source: SourceConfig{
			Kind: SourceHTML,
			URL:  DefaultNewsURL,
			Cards:            defaultCards(),
			ContentSelectors: scraper.DefaultContentSelectors(),
			JSON:             defaultJSONKeys(),
		},
		Fetch: FetchConfig{
			ListingTimeout:  scraper.DefaultListingTimeout,
			DetailTimeout:   scraper.DefaultDetailTimeout,
			PolitenessDelay: scraper.DefaultPolitenessDelay,
			UserAgent:       DefaultUserAgent,
			DetailPolicy:    PolicyRefetch,
		},
		Events: EventsConfig{
			URL:     DefaultEventsURL,
			Timeout: eventfeed.DefaultTimeout,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func defaultCards() []CardConfig {
	strategies := scraper.DefaultCardStrategies()
	cards := make([]CardConfig, 0, len(strategies))
	for _, st := range strategies {
		cards = append(cards, CardConfig{
			Card:     st.Card,
			Title:    st.Title,
			Date:     st.Date,
			DateAttr: st.DateAttr,
			Link:     st.Link,
			LinkAttr: st.LinkAttr,
			Summary:  st.Summary,
		})
	}
	return cards
}

func defaultJSONKeys() JSONKeyConfig {
	keys := scraper.DefaultJSONKeys()
	return JSONKeyConfig{
		Items:   keys.Items,
		Title:   keys.Title,
		Link:    keys.Link,
		Date:    keys.Date,
		Summary: keys.Summary,
		Content: keys.Content,
	}
}
