// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bureau-foundation/fileshare/lib/record"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "FILESHARE_CONFIG"

// Config is the configuration for a fileshare session.
type Config struct {
	// Folder is the shared folder the sync client replicates.
	Folder string `yaml:"folder"`

	// StateDir holds machine-local files that must not be synced:
	// the persisted participant ID and the instance lock.
	StateDir string `yaml:"state_dir"`

	Participant ParticipantConfig `yaml:"participant"`
	Save        SaveConfig        `yaml:"save"`
	Watch       WatchConfig       `yaml:"watch"`
	Record      RecordConfig      `yaml:"record"`
	Log         LogConfig         `yaml:"log"`
}

// ParticipantConfig identifies this writer.
type ParticipantConfig struct {
	// ID overrides the derived participant identity. Empty means
	// hostname, then a persisted random ID.
	ID string `yaml:"id"`

	// Window distinguishes several sessions of one participant.
	Window string `yaml:"window"`
}

// SaveConfig tunes the save scheduler.
type SaveConfig struct {
	// Interval is the debounce interval between a change and its save.
	// Default: 1s
	Interval time.Duration `yaml:"interval"`
}

// WatchConfig tunes the folder watcher's settle policy.
type WatchConfig struct {
	// StabilityThreshold is how long a file's size must stay unchanged
	// before it is read. Default: 200ms
	StabilityThreshold time.Duration `yaml:"stability_threshold"`

	// PollInterval is how often settling files are checked.
	// Default: 100ms
	PollInterval time.Duration `yaml:"poll_interval"`
}

// RecordConfig controls the on-disk record format.
type RecordConfig struct {
	// Compression is none, lz4, or zstd. Default: none
	Compression string `yaml:"compression"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is debug, info, warn, or error. Default: info
	Level string `yaml:"level"`

	// Format is json or text. Default: json
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Folder:   filepath.Join(homeDir, "fileshare"),
		StateDir: filepath.Join(homeDir, ".local", "state", "fileshare"),
		Save: SaveConfig{
			Interval: time.Second,
		},
		Watch: WatchConfig{
			StabilityThreshold: 200 * time.Millisecond,
			PollInterval:       100 * time.Millisecond,
		},
		Record: RecordConfig{
			Compression: string(record.CompressionNone),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from the file named by FILESHARE_CONFIG.
// It fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your fileshare.yaml config file, or use --config flag", EnvironmentVariable)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, on top of
// Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a single configuration file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Plain JSON is valid YAML, so one decoder serves both once
		// comments and trailing commas are gone.
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.StateDir = expandVars(c.StateDir, vars)
	vars["FILESHARE_STATE"] = c.StateDir

	c.Folder = expandVars(c.Folder, vars)
	c.Participant.ID = expandVars(c.Participant.ID, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var windowPattern = regexp.MustCompile(`^[A-Za-z0-9._-]*$`)

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Folder == "" {
		errs = append(errs, errors.New("folder is required"))
	}
	if c.StateDir == "" {
		errs = append(errs, errors.New("state_dir is required"))
	}

	if !windowPattern.MatchString(c.Participant.Window) {
		errs = append(errs, fmt.Errorf("participant.window %q may only contain letters, digits, '.', '_' and '-'", c.Participant.Window))
	}

	if c.Save.Interval <= 0 {
		errs = append(errs, fmt.Errorf("save.interval must be positive, got %v", c.Save.Interval))
	}
	if c.Watch.StabilityThreshold <= 0 {
		errs = append(errs, fmt.Errorf("watch.stability_threshold must be positive, got %v", c.Watch.StabilityThreshold))
	}
	if c.Watch.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("watch.poll_interval must be positive, got %v", c.Watch.PollInterval))
	} else if c.Watch.PollInterval > c.Watch.StabilityThreshold {
		errs = append(errs, fmt.Errorf("watch.poll_interval (%v) must not exceed watch.stability_threshold (%v)",
			c.Watch.PollInterval, c.Watch.StabilityThreshold))
	}

	if _, err := record.ParseCompression(c.Record.Compression); err != nil {
		errs = append(errs, fmt.Errorf("record.compression: %w", err))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be one of: json, text (got %q)", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level must be one of: debug, info, warn, error (got %q)", c.Log.Level)
	}
	return level, nil
}

// Compression parses Record.Compression.
func (c *Config) Compression() (record.Compression, error) {
	return record.ParseCompression(c.Record.Compression)
}

// EnsurePaths creates the state directory if it doesn't exist. The
// shared folder is created by the session on first save.
func (c *Config) EnsurePaths() error {
	if err := os.MkdirAll(c.StateDir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.StateDir, err)
	}
	return nil
}
