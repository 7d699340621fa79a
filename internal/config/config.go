// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/simbo1905/mcp-switchboard/internal/cloud"
	"github.com/simbo1905/mcp-switchboard/internal/secretstore"
	"github.com/simbo1905/mcp-switchboard/internal/util"
)

// FileName is the settings file inside the application directory.
const FileName = "settings.toml"

// Default file names for derived paths.
const (
	DefaultLogFile     = "switchboard.log"
	DefaultHistoryFile = "history.db"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config holds the non-secret settings. The credential and preferred model
// live in the encrypted store, never here.
type Config struct {
	API     APIConfig     `toml:"api" json:"api"`
	Log     LogConfig     `toml:"log" json:"log"`
	History HistoryConfig `toml:"history" json:"history"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// APIConfig contains completion API settings.
type APIConfig struct {
	// BaseURL is the OpenAI-compatible API root
	BaseURL string `toml:"base_url" json:"base_url"`
	// CatalogURL overrides <base_url>/models
	CatalogURL string `toml:"catalog_url" json:"catalog_url"`
	// RequestTimeoutSecs bounds catalog requests and stream response headers
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// StreamIdleTimeoutSecs ends a stream that goes silent; 0 disables
	StreamIdleTimeoutSecs int `toml:"stream_idle_timeout_secs" json:"stream_idle_timeout_secs"`
	// RequestsPerMinute is the client-side request limit; 0 is unlimited
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// File is the log path; empty means <app dir>/switchboard.log, "-" is stderr
	File string `toml:"file" json:"file"`
	// Format is "text" or "json"
	Format string `toml:"format" json:"format"`
}

// HistoryConfig contains session history settings.
type HistoryConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the database path; empty means <app dir>/history.db
	Path string `toml:"path" json:"path"`
}

// UIConfig contains terminal output settings.
type UIConfig struct {
	// RenderMarkdown renders completed answers with glamour
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
	// WordWrap is the column width for rendered output
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:               cloud.DefaultBaseURL,
			RequestTimeoutSecs:    60,
			StreamIdleTimeoutSecs: 120,
			RequestsPerMinute:     60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		UI: UIConfig{
			RenderMarkdown: false,
			WordWrap:       80,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the application directory shared with the secret store.
func Dir() (string, error) {
	return secretstore.DefaultDir()
}

// Path returns the settings file path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// LogFile resolves the log destination against dir.
func (c *Config) LogFile(dir string) string {
	switch {
	case c.Log.File == "-":
		return c.Log.File
	case c.Log.File == "":
		return filepath.Join(dir, DefaultLogFile)
	case filepath.IsAbs(c.Log.File):
		return c.Log.File
	default:
		return filepath.Join(dir, c.Log.File)
	}
}

// HistoryPath resolves the history database path against dir.
func (c *Config) HistoryPath(dir string) string {
	switch {
	case c.History.Path == "":
		return filepath.Join(dir, DefaultHistoryFile)
	case filepath.IsAbs(c.History.Path):
		return c.History.Path
	default:
		return filepath.Join(dir, c.History.Path)
	}
}

// ensureSecurePermissions checks and fixes permissions on the settings file.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads <dir>/settings.toml over the defaults, then applies environment
// overrides, fills zero values and validates. A missing file is not an
// error.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := Path(dir)
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat settings file: %w", err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}

// LoadFile reads <dir>/settings.toml over the defaults without applying
// environment overrides. Used when editing the file so that overrides are
// never written back.
func LoadFile(dir string) (*Config, error) {
	cfg := Default()
	path := Path(dir)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err := LoadTOML(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg. Keys absent from the file keep their
// current values.
func LoadTOML(cfg *Config, path string) error {
	// Permissions are best effort; some filesystems cannot honour them.
	_ = ensureSecurePermissions(path)

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode settings file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown settings: %s", strings.Join(keys, ", "))
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to <dir>/settings.toml.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func Save(cfg *Config, dir string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# mcp-switchboard settings")
	fmt.Fprintln(&buf, "# The API key is not stored here; use `switchboard config set-key`.")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := util.AtomicWriteFile(Path(dir), buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a settings validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// Validate checks every field and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if msg := checkURL(c.API.BaseURL); msg != "" {
		errs = append(errs, ValidationError{Field: "api.base_url", Message: msg})
	}
	if c.API.CatalogURL != "" {
		if msg := checkURL(c.API.CatalogURL); msg != "" {
			errs = append(errs, ValidationError{Field: "api.catalog_url", Message: msg})
		}
	}
	if c.API.RequestTimeoutSecs < 1 || c.API.RequestTimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.request_timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.API.RequestTimeoutSecs),
		})
	}
	if c.API.StreamIdleTimeoutSecs < 0 || c.API.StreamIdleTimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "api.stream_idle_timeout_secs",
			Message: fmt.Sprintf("must be between 0 and 3600, got %d", c.API.StreamIdleTimeoutSecs),
		})
	}
	if c.API.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.requests_per_minute",
			Message: fmt.Sprintf("must not be negative, got %d", c.API.RequestsPerMinute),
		})
	}

	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: trace, debug, info, warn, error", c.Log.Level),
		})
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: text, json", c.Log.Format),
		})
	}

	if c.UI.WordWrap < 20 || c.UI.WordWrap > 400 {
		errs = append(errs, ValidationError{
			Field:   "ui.word_wrap",
			Message: fmt.Sprintf("must be between 20 and 400, got %d", c.UI.WordWrap),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Sprintf("invalid URL scheme '%s', must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return "URL has no host"
	}
	return ""
}

// SetDefaults fills zero values that have no meaning of their own.
// stream_idle_timeout_secs, requests_per_minute and the booleans are left
// alone because zero/false is a valid choice for them.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.RequestTimeoutSecs == 0 {
		c.API.RequestTimeoutSecs = defaults.API.RequestTimeoutSecs
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = defaults.UI.WordWrap
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - SWITCHBOARD_BASE_URL: overrides api.base_url
//   - SWITCHBOARD_CATALOG_URL: overrides api.catalog_url
//   - SWITCHBOARD_IDLE_TIMEOUT: overrides api.stream_idle_timeout_secs
//   - SWITCHBOARD_LOG_LEVEL: overrides log.level
//   - SWITCHBOARD_LOG_FORMAT: overrides log.format
//   - SWITCHBOARD_LOG_FILE: overrides log.file
//   - SWITCHBOARD_HISTORY: "0"/"false" disables history
//
// The API key variable is handled by the secret store, not here.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SWITCHBOARD_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("SWITCHBOARD_CATALOG_URL"); v != "" {
		c.API.CatalogURL = v
	}
	if v := os.Getenv("SWITCHBOARD_IDLE_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.API.StreamIdleTimeoutSecs = secs
		}
	}
	if v := os.Getenv("SWITCHBOARD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SWITCHBOARD_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("SWITCHBOARD_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("SWITCHBOARD_HISTORY"); v != "" {
		c.History.Enabled = parseBool(v)
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a setting using dot notation (e.g., "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a setting using dot notation. String values are converted to
// the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if key == "" || len(parts) != 2 {
		return reflect.Value{}, fmt.Errorf("invalid key: %q (expected section.name)", key)
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown setting: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("'%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field name ("base_url" -> "BaseUrl"; matched case-insensitively).
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// AllKeys returns every setting key in dot notation.
func AllKeys() []string {
	return []string{
		"api.base_url",
		"api.catalog_url",
		"api.request_timeout_secs",
		"api.stream_idle_timeout_secs",
		"api.requests_per_minute",
		"log.level",
		"log.file",
		"log.format",
		"history.enabled",
		"history.path",
		"ui.render_markdown",
		"ui.word_wrap",
	}
}

// Clone returns a copy of the settings.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the settings as indented JSON for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
