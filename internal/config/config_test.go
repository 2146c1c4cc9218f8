package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/k2fort/arcfeed/internal/ingest"
	"github.com/k2fort/arcfeed/internal/scraper"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefault_MatchesPipelineDefaults(t *testing.T) {
	cfg := Default()

	strategies := scraper.DefaultCardStrategies()
	if len(cfg.Source.Cards) != len(strategies) {
		t.Fatalf("got %d default cards, want %d", len(cfg.Source.Cards), len(strategies))
	}
	for i, st := range strategies {
		c := cfg.Source.Cards[i]
		got := scraper.CardStrategy{
			Card: c.Card, Title: c.Title, Date: c.Date, DateAttr: c.DateAttr,
			Link: c.Link, LinkAttr: c.LinkAttr, Summary: c.Summary,
		}
		if got != st {
			t.Errorf("card %d = %+v, want %+v", i, got, st)
		}
	}

	if !reflect.DeepEqual(cfg.Source.ContentSelectors, scraper.DefaultContentSelectors()) {
		t.Errorf("ContentSelectors = %v", cfg.Source.ContentSelectors)
	}
	if keys := scraper.DefaultJSONKeys(); !reflect.DeepEqual(cfg.Source.JSON.Items, keys.Items) ||
		!reflect.DeepEqual(cfg.Source.JSON.Summary, keys.Summary) {
		t.Errorf("JSON keys = %+v", cfg.Source.JSON)
	}
	if cfg.Fetch.DetailPolicy != ingest.PolicyRefetch {
		t.Errorf("DetailPolicy = %q, want %q", cfg.Fetch.DetailPolicy, ingest.PolicyRefetch)
	}
	if cfg.Fetch.PolitenessDelay != scraper.DefaultPolitenessDelay {
		t.Errorf("PolitenessDelay = %v", cfg.Fetch.PolitenessDelay)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Source.URL != DefaultNewsURL {
		t.Errorf("Source.URL = %q", cfg.Source.URL)
	}
	if cfg.Source.Kind != SourceHTML {
		t.Errorf("Source.Kind = %q", cfg.Source.Kind)
	}
	if cfg.Events.URL != DefaultEventsURL {
		t.Errorf("Events.URL = %q", cfg.Events.URL)
	}
	if cfg.Events.Timeout != 15*time.Second {
		t.Errorf("Events.Timeout = %v", cfg.Events.Timeout)
	}
	if cfg.Fetch.PolitenessDelay != time.Second {
		t.Errorf("Fetch.PolitenessDelay = %v", cfg.Fetch.PolitenessDelay)
	}
	if cfg.Fetch.DetailPolicy != PolicyRefetch {
		t.Errorf("Fetch.DetailPolicy = %q", cfg.Fetch.DetailPolicy)
	}
	if cfg.Files.News != "news.json" || cfg.Files.Patches != "patches.json" || cfg.Files.Events != "events.json" {
		t.Errorf("Files = %+v", cfg.Files)
	}
	if len(cfg.Source.Cards) == 0 {
		t.Error("no default card strategies")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv(configPathEnv, "")
	dir := t.TempDir()
	path := writeFile(t, dir, "arcfeed.yaml", `
data_dir: /srv/site
source:
  kind: json
  url: https://arcraiders.com/api/news
  date_layouts: ["02.01.2006"]
fetch:
  detail_timeout: 5s
  politeness_delay: 250ms
  detail_policy: skip-known
events:
  timeout: 3s
notify:
  telegram:
    bot_token: abc
    chat_id: "42"
log:
  format: console
`)

	cfg, err := Load(LoadOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DataDir != "/srv/site" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Source.Kind != SourceJSON || cfg.Source.URL != "https://arcraiders.com/api/news" {
		t.Errorf("Source = %+v", cfg.Source)
	}
	if len(cfg.Source.DateLayouts) != 1 || cfg.Source.DateLayouts[0] != "02.01.2006" {
		t.Errorf("DateLayouts = %v", cfg.Source.DateLayouts)
	}
	if cfg.Fetch.DetailTimeout != 5*time.Second || cfg.Fetch.PolitenessDelay != 250*time.Millisecond {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Fetch.ListingTimeout != 60*time.Second {
		t.Errorf("ListingTimeout default lost: %v", cfg.Fetch.ListingTimeout)
	}
	if cfg.Fetch.DetailPolicy != PolicySkipKnown {
		t.Errorf("DetailPolicy = %q", cfg.Fetch.DetailPolicy)
	}
	if cfg.Events.Timeout != 3*time.Second {
		t.Errorf("Events.Timeout = %v", cfg.Events.Timeout)
	}
	if !cfg.Notify.Telegram.Enabled() {
		t.Error("telegram should be enabled")
	}
	if len(cfg.Source.JSON.Items) == 0 {
		t.Error("JSON key defaults lost on merge")
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", "data_dir: /from/env/path\n")
	t.Setenv(configPathEnv, path)

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DataDir != "/from/env/path" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("ARCFEED_DATA_DIR", "/data")
	t.Setenv("ARCFEED_SOURCE_KIND", "rss")
	t.Setenv("ARCFEED_POLITENESS_DELAY", "0s")
	t.Setenv("ARCFEED_TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("ARCFEED_TELEGRAM_CHAT_ID", "chat")
	t.Setenv("ARCFEED_LOG_LEVEL", "debug")

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DataDir != "/data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Source.Kind != SourceRSS {
		t.Errorf("Source.Kind = %q", cfg.Source.Kind)
	}
	if cfg.Fetch.PolitenessDelay != 0 {
		t.Errorf("PolitenessDelay = %v, want 0", cfg.Fetch.PolitenessDelay)
	}
	if cfg.Notify.Telegram.BotToken != "token" || cfg.Notify.Telegram.ChatID != "chat" {
		t.Errorf("Telegram = %+v", cfg.Notify.Telegram)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	t.Setenv(configPathEnv, "")
	const key = "ARCFEED_EVENTS_URL"
	if _, set := os.LookupEnv(key); set {
		t.Skipf("%s already set in the environment", key)
	}
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	path := writeFile(t, dir, "test.env", key+"=https://events.example.com/timers\n")

	cfg, err := Load(LoadOptions{EnvFile: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Events.URL != "https://events.example.com/timers" {
		t.Errorf("Events.URL = %q", cfg.Events.URL)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(configPathEnv, "")
	dir := t.TempDir()

	tests := []struct {
		name    string
		opts    LoadOptions
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing config file",
			opts:    LoadOptions{ConfigPath: filepath.Join(dir, "nope.yaml")},
			wantErr: "reading config",
		},
		{
			name:    "invalid yaml",
			opts:    LoadOptions{ConfigPath: writeFile(t, dir, "bad.yaml", "source: [unclosed")},
			wantErr: "parsing config",
		},
		{
			name:    "missing explicit env file",
			opts:    LoadOptions{EnvFile: filepath.Join(dir, "missing.env")},
			wantErr: "env file",
		},
		{
			name:    "bad delay",
			env:     map[string]string{"ARCFEED_POLITENESS_DELAY": "soon"},
			wantErr: "POLITENESS_DELAY",
		},
		{
			name:    "unknown source kind",
			env:     map[string]string{"ARCFEED_SOURCE_KIND": "graphql"},
			wantErr: "source.kind",
		},
		{
			name:    "unknown detail policy",
			env:     map[string]string{"ARCFEED_DETAIL_POLICY": "sometimes"},
			wantErr: "detail_policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.opts)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = " " }},
		{"shared file names", func(c *Config) { c.Files.Patches = c.Files.News }},
		{"no cards for html", func(c *Config) { c.Source.Cards = nil }},
		{"card without selector", func(c *Config) { c.Source.Cards = []CardConfig{{Title: "h2"}} }},
		{"zero detail timeout", func(c *Config) { c.Fetch.DetailTimeout = 0 }},
		{"negative delay", func(c *Config) { c.Fetch.PolitenessDelay = -time.Second }},
		{"empty events url", func(c *Config) { c.Events.URL = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	base := Default()
	if err := base.Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}
