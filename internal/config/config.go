// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete roomchat configuration.
type Config struct {
	// General settings
	Version string `toml:"version"`

	// Handle is the display name announced when sharing transcripts.
	Handle string `toml:"handle"`

	// Room store (Redis) configuration
	Store StoreConfig `toml:"store"`

	// Completion service configuration
	LLM LLMConfig `toml:"llm"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Log configuration
	Log LogConfig `toml:"log"`
}

// StoreConfig contains room store connection settings.
type StoreConfig struct {
	// Addr is the Redis host:port
	Addr string `toml:"addr"`
	// Password authenticates against the store (empty = no auth)
	Password string `toml:"password"`
	// DB is the Redis logical database number
	DB int `toml:"db"`
	// RoomTTLHours is how long an idle room survives before eviction
	RoomTTLHours int `toml:"room_ttl_hours"`
	// DialTimeoutSecs bounds the initial connection attempt
	DialTimeoutSecs int `toml:"dial_timeout_secs"`
}

// LLMConfig contains completion service settings.
type LLMConfig struct {
	// APIKey authenticates against the completion service.
	// SECURITY: Prefer the GEMINI_API_KEY environment variable over
	// storing the key on disk.
	APIKey string `toml:"api_key"`
	// Model is the completion model identifier
	Model string `toml:"model"`
	// SystemInstruction is prepended to every request
	SystemInstruction string `toml:"system_instruction"`
	// Temperature controls sampling (0.0-2.0)
	Temperature float32 `toml:"temperature"`
	// MaxRetries for transient service failures
	MaxRetries int `toml:"max_retries"`
	// RequestsPerMinute caps the client-side request rate
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode"`
	// ShowTimestamps displays per-message timestamps
	ShowTimestamps bool `toml:"show_timestamps"`
}

// LogConfig contains log file configuration. The terminal belongs to
// the UI, so logs always go to a file.
type LogConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error"
	Level string `toml:"level"`
	// Path is the log file location (empty = ~/.roomchat/roomchat.log)
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Handle:  "",

		Store: StoreConfig{
			Addr:            "127.0.0.1:6379",
			Password:        "",
			DB:              0,
			RoomTTLHours:    72,
			DialTimeoutSecs: 5,
		},

		LLM: LLMConfig{
			APIKey:            "",
			Model:             "gemini-2.0-flash",
			SystemInstruction: "",
			Temperature:       0.7,
			MaxRetries:        2,
			RequestsPerMinute: 30,
		},

		UI: UIConfig{
			Theme:          "dark",
			CompactMode:    false,
			ShowTimestamps: false,
		},

		Log: LogConfig{
			Level: "info",
			Path:  "",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the roomchat configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".roomchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.roomchat/config.toml, falling back
// to defaults when no file exists. Environment overrides are applied
// last, then the result is validated.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path. A
// missing file is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := loadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadTOML decodes a TOML file over cfg.
// SECURITY: Checks and fixes file permissions on load.
func loadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors aggregates all validation failures.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Error()
	}
	return strings.Join(parts, "; ")
}

// Validate checks the configuration for invalid values. All failures
// are collected so the user sees everything wrong at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Store.Addr == "" {
		errs = append(errs, ValidationError{"store.addr", "must not be empty"})
	}
	if c.Store.DB < 0 {
		errs = append(errs, ValidationError{"store.db", "must not be negative"})
	}
	if c.Store.RoomTTLHours <= 0 {
		errs = append(errs, ValidationError{"store.room_ttl_hours", "must be positive"})
	}

	if c.LLM.Model == "" {
		errs = append(errs, ValidationError{"llm.model", "must not be empty"})
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, ValidationError{"llm.temperature", "must be in [0.0, 2.0]"})
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, ValidationError{"llm.max_retries", "must not be negative"})
	}
	if c.LLM.RequestsPerMinute <= 0 {
		errs = append(errs, ValidationError{"llm.requests_per_minute", "must be positive"})
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{"ui.theme", `must be "dark", "light", or "auto"`})
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{"log.level", `must be "debug", "info", "warn", or "error"`})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills in zero values left by a partial config file.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Store.Addr == "" {
		c.Store.Addr = def.Store.Addr
	}
	if c.Store.RoomTTLHours == 0 {
		c.Store.RoomTTLHours = def.Store.RoomTTLHours
	}
	if c.Store.DialTimeoutSecs == 0 {
		c.Store.DialTimeoutSecs = def.Store.DialTimeoutSecs
	}
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = def.LLM.Temperature
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = def.LLM.MaxRetries
	}
	if c.LLM.RequestsPerMinute == 0 {
		c.LLM.RequestsPerMinute = def.LLM.RequestsPerMinute
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides. Environment
// values win over both defaults and file values, so deployments can
// inject credentials without touching disk.
func (c *Config) ApplyEnvOverrides() {
	// GEMINI_API_KEY / ROOMCHAT_API_KEY
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("ROOMCHAT_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}

	// ROOMCHAT_MODEL
	if model := os.Getenv("ROOMCHAT_MODEL"); model != "" {
		c.LLM.Model = model
	}

	// ROOMCHAT_REDIS_ADDR
	if addr := os.Getenv("ROOMCHAT_REDIS_ADDR"); addr != "" {
		c.Store.Addr = addr
	}

	// ROOMCHAT_REDIS_PASSWORD
	if pw := os.Getenv("ROOMCHAT_REDIS_PASSWORD"); pw != "" {
		c.Store.Password = pw
	}

	// ROOMCHAT_REDIS_DB
	if db := os.Getenv("ROOMCHAT_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.Store.DB = n
		}
	}

	// ROOMCHAT_HANDLE
	if handle := os.Getenv("ROOMCHAT_HANDLE"); handle != "" {
		c.Handle = handle
	}

	// ROOMCHAT_THEME
	if theme := os.Getenv("ROOMCHAT_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	// ROOMCHAT_LOG_LEVEL
	if level := os.Getenv("ROOMCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// RoomTTL returns the room expiry as a duration.
func (c *Config) RoomTTL() time.Duration {
	return time.Duration(c.Store.RoomTTLHours) * time.Hour
}

// DialTimeout returns the store dial timeout as a duration.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.Store.DialTimeoutSecs) * time.Second
}

// LogPath returns the resolved log file path.
func (c *Config) LogPath() (string, error) {
	if c.Log.Path != "" {
		return c.Log.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "roomchat.log"), nil
}

// RequireAPIKey returns an error when no completion service credential
// is configured. Called before any room is entered so the failure is
// immediate and actionable.
func (c *Config) RequireAPIKey() error {
	if c.LLM.APIKey == "" {
		return errors.New("no API key configured: set GEMINI_API_KEY or llm.api_key in config.toml")
	}
	return nil
}
