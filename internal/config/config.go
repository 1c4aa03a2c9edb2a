// Package config loads the application configuration from a YAML file,
// creating a default one on first run, and overlays environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// StoreDir is the root directory of the encrypted event store.
	StoreDir string `yaml:"store_dir"`

	// PassphraseEnv names the environment variable holding the store
	// passphrase. When the variable is unset the CLI prompts instead.
	PassphraseEnv string `yaml:"passphrase_env"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// ReminderCron is the sweep schedule for due reminders, in cron
	// syntax with a seconds field (e.g. "0 * * * * *" for every minute).
	ReminderCron string `yaml:"reminder_cron"`

	// DefaultUser is recorded as the creator of events added from the CLI.
	DefaultUser string `yaml:"default_user"`
}

func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		StoreDir:      filepath.Join(home, ".famcal"),
		PassphraseEnv: "FAMCAL_PASSPHRASE",
		LogLevel:      "info",
		ReminderCron:  "0 * * * * *",
		DefaultUser:   "default",
	}
}

// Normalize fills zero values so partially written configs still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.StoreDir == "" {
		c.StoreDir = def.StoreDir
	}
	if c.PassphraseEnv == "" {
		c.PassphraseEnv = def.PassphraseEnv
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = def.LogLevel
	}
	if c.ReminderCron == "" {
		c.ReminderCron = def.ReminderCron
	}
	if c.DefaultUser == "" {
		c.DefaultUser = def.DefaultUser
	}
}

// applyEnv overlays FAMCAL_* environment variables over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("FAMCAL_STORE_DIR"); v != "" {
		c.StoreDir = v
	}
	if v := os.Getenv("FAMCAL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("FAMCAL_REMINDER_CRON"); v != "" {
		c.ReminderCron = v
	}
	if v := os.Getenv("FAMCAL_USER"); v != "" {
		c.DefaultUser = v
	}
}

// Load reads the YAML config at path. A missing file is not an error: the
// default config is written there with 0600 perms and returned. Environment
// variables override file values either way.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.applyEnv()
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".famcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
