// Package config loads settings from an optional yaml file and command
// line flags, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

const DefaultFile = "speclens.yaml"

type Config struct {
	Listen    string         `koanf:"listen"`
	DataDir   string         `koanf:"data-dir"`
	Templates TemplateConfig `koanf:"templates"`
	Proxy     ProxyConfig    `koanf:"proxy"`
	Fetch     FetchConfig    `koanf:"fetch"`
	History   HistoryConfig  `koanf:"history"`
	Relay     RelayConfig    `koanf:"relay"`
	Log       LogConfig      `koanf:"log"`
}

// TemplateConfig points at a directory of snippet templates that replace
// the built in ones.
type TemplateConfig struct {
	Dir string `koanf:"dir"`
}

type ProxyConfig struct {
	Timeout           time.Duration `koanf:"timeout"`
	MaxResponseSize   int64         `koanf:"max-response-size"`
	ValidateResponses bool          `koanf:"validate-responses"`
}

type FetchConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	Breaker BreakerConfig `koanf:"breaker"`
}

type BreakerConfig struct {
	Failures uint32 `koanf:"failures"`
}

type HistoryConfig struct {
	Limit int `koanf:"limit"`
}

type RelayConfig struct {
	Token            string `koanf:"token"`
	ValidateRequests bool   `koanf:"validate-requests"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaults() map[string]any {
	dataDir := ".speclens"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".speclens")
	}
	return map[string]any{
		"listen":                  "127.0.0.1:4010",
		"data-dir":                dataDir,
		"proxy.timeout":           30 * time.Second,
		"proxy.max-response-size": int64(50 * 1024 * 1024),
		"fetch.timeout":           30 * time.Second,
		"fetch.breaker.failures":  uint32(5),
		"history.limit":           50,
		"relay.validate-requests": true,
		"log.level":               "info",
		"log.format":              "text",
	}
}

// flagKeys maps command line flags to config keys.
var flagKeys = []struct {
	flag string
	key  string
}{
	{"listen", "listen"},
	{"data-dir", "data-dir"},
	{"templates", "templates.dir"},
	{"proxy-timeout", "proxy.timeout"},
	{"max-response-size", "proxy.max-response-size"},
	{"validate-responses", "proxy.validate-responses"},
	{"fetch-timeout", "fetch.timeout"},
	{"breaker-failures", "fetch.breaker.failures"},
	{"history-limit", "history.limit"},
	{"token", "relay.token"},
	{"validate-requests", "relay.validate-requests"},
	{"log-level", "log.level"},
	{"log-format", "log.format"},
}

// BindFlags registers the persistent flags shared by every command.
func BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "Config file path (default: speclens.yaml)")
	flags.String("listen", "", "Relay listen address")
	flags.String("data-dir", "", "Directory holding the SQLite database")
	flags.String("templates", "", "Custom snippet templates directory")
	flags.Duration("proxy-timeout", 0, "Timeout for relayed requests")
	flags.Int64("max-response-size", 0, "Largest response body buffered, in bytes")
	flags.Bool("validate-responses", false, "Validate responses against the loaded spec")
	flags.Duration("fetch-timeout", 0, "Timeout for spec downloads")
	flags.Uint32("breaker-failures", 0, "Consecutive fetch failures before a host is paused")
	flags.Int("history-limit", 0, "Number of history entries kept")
	flags.String("token", "", "Bearer token required by the relay API")
	flags.Bool("validate-requests", true, "Validate relay API requests")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text, json")
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	configFile := flagString(cmd, "config")
	if configFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			configFile = DefaultFile
		}
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if flagsMap := buildFlagsMap(cmd); len(flagsMap) > 0 {
		if err := k.Load(confmap.Provider(flagsMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func flagString(cmd *cobra.Command, name string) string {
	if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
		return v
	}
	if v, err := cmd.PersistentFlags().GetString(name); err == nil && v != "" {
		return v
	}
	return ""
}

// buildFlagsMap returns the flags the user set explicitly. Values are kept
// as text and converted while unmarshaling.
func buildFlagsMap(cmd *cobra.Command) map[string]any {
	m := make(map[string]any)
	for _, fk := range flagKeys {
		f := cmd.Flags().Lookup(fk.flag)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(fk.flag)
		}
		if f != nil && f.Changed {
			m[fk.key] = f.Value.String()
		}
	}
	return m
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.Proxy.Timeout <= 0 {
		return fmt.Errorf("invalid proxy timeout: %s (must be positive)", c.Proxy.Timeout)
	}
	if c.Proxy.MaxResponseSize <= 0 {
		return fmt.Errorf("invalid max response size: %d (must be positive)", c.Proxy.MaxResponseSize)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("invalid fetch timeout: %s (must be positive)", c.Fetch.Timeout)
	}
	if c.Fetch.Breaker.Failures == 0 {
		return fmt.Errorf("breaker failures must be at least 1")
	}
	if c.History.Limit < 1 {
		return fmt.Errorf("invalid history limit: %d (must be at least 1)", c.History.Limit)
	}

	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Log.Level)
	}

	validFormats := map[string]bool{"": true, "text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Log.Format)
	}

	return nil
}

