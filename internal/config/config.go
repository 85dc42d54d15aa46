// Package config loads the user configuration file, a JSON document that
// may carry comments and trailing commas.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
)

const fileName = "config.jsonc"

type Config struct {
	// Theme is one of auto|light|dark.
	Theme string `json:"theme,omitempty"`

	// HiddenColumns are not shown in the table view. The uid stays visible
	// as the row header.
	HiddenColumns []string `json:"hiddenColumns,omitempty"`

	PlantUML PlantUMLConfig `json:"plantuml"`
	Log      LogConfig      `json:"log"`
	Journal  JournalConfig  `json:"journal"`
}

type PlantUMLConfig struct {
	// Server is the base URL of a PlantUML server. Empty means the local
	// command is used.
	Server  string `json:"server,omitempty"`
	Command string `json:"command,omitempty"`
	// Format is svg or png.
	Format   string `json:"format,omitempty"`
	CacheDir string `json:"cacheDir,omitempty"`
	// Timeout is a Go duration string ("10s").
	Timeout string `json:"timeout,omitempty"`
}

type LogConfig struct {
	// Level is one of debug|info|warn|error.
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
}

type JournalConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Theme:         "auto",
		HiddenColumns: []string{"path", "root", "uid", "ref", "references", "links"},
		PlantUML: PlantUMLConfig{
			Command:  "plantuml",
			Format:   "svg",
			CacheDir: os.TempDir(),
			Timeout:  "10s",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Dir is the configuration directory. DOORHOLE_CONFIG_DIR overrides it, which
// keeps tests away from the real home directory.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("DOORHOLE_CONFIG_DIR")); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "doorhole"), nil
}

// Path is the default configuration file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads path (or the default location when path is empty), applies
// environment overrides and validates the result. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(jsonc.ToJSON(b), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg.applyEnv()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("DOORHOLE_THEME")); v != "" {
		c.Theme = v
	}
	if v := strings.TrimSpace(os.Getenv("DOORHOLE_PLANTUML_SERVER")); v != "" {
		c.PlantUML.Server = v
	}
	if v := strings.TrimSpace(os.Getenv("DOORHOLE_LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Theme == "" {
		c.Theme = d.Theme
	}
	if c.PlantUML.Command == "" {
		c.PlantUML.Command = d.PlantUML.Command
	}
	if c.PlantUML.Format == "" {
		c.PlantUML.Format = d.PlantUML.Format
	}
	if c.PlantUML.CacheDir == "" {
		c.PlantUML.CacheDir = d.PlantUML.CacheDir
	}
	if c.PlantUML.Timeout == "" {
		c.PlantUML.Timeout = d.PlantUML.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Validate rejects values the rest of the program cannot use.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Theme) {
	case "auto", "light", "dark":
	default:
		return fmt.Errorf("theme: unknown value %q (auto|light|dark)", c.Theme)
	}
	switch strings.ToLower(c.PlantUML.Format) {
	case "svg", "png":
	default:
		return fmt.Errorf("plantuml.format: unknown value %q (svg|png)", c.PlantUML.Format)
	}
	if _, err := c.PlantUMLTimeout(); err != nil {
		return fmt.Errorf("plantuml.timeout: %w", err)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func (c *Config) PlantUMLTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.PlantUML.Timeout)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

// JournalEnabled defaults to true.
func (c *Config) JournalEnabled() bool {
	return c.Journal.Enabled == nil || *c.Journal.Enabled
}

// JournalPath is the sqlite file of the edit journal.
func (c *Config) JournalPath() (string, error) {
	if c.Journal.Path != "" {
		return c.Journal.Path, nil
	}
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.sqlite"), nil
}

// LogFile is the log destination.
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "doorhole.log"), nil
}

// StateDir holds the log file and the journal. DOORHOLE_STATE_DIR
// overrides it.
func StateDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("DOORHOLE_STATE_DIR")); v != "" {
		return v, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "doorhole"), nil
}

// Hidden reports whether column is configured as hidden.
func (c *Config) Hidden(column string) bool {
	for _, h := range c.HiddenColumns {
		if strings.EqualFold(h, column) {
			return true
		}
	}
	return false
}
