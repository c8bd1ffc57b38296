package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	defaultFileName = "tell.toml"
	// DefaultModel is written to a freshly created config file.
	DefaultModel  = "gemma2:2b"
	envConfigPath = "TELL_CONFIG"
)

var (
	// ErrNoConfigDir indicates the platform user config directory could not be determined.
	ErrNoConfigDir = errors.New("cannot determine user config directory")

	errMissingModel = errors.New("model must be a non-empty string")
)

// Config is the persisted tell configuration.
type Config struct {
	Model string `toml:"model"`
}

// ParseError reports a config file whose content could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DefaultConfig returns the configuration created on first run.
func DefaultConfig() *Config {
	return &Config{Model: DefaultModel}
}

// ResolvePath resolves config file path from CLI override, environment, or default.
func ResolvePath(pathOverride string) (string, error) {
	if path := strings.TrimSpace(pathOverride); path != "" {
		return filepath.Clean(path), nil
	}
	if path := strings.TrimSpace(os.Getenv(envConfigPath)); path != "" {
		return filepath.Clean(path), nil
	}
	return DefaultPath()
}

// DefaultPath returns <user config dir>/tell.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("%w: %v", ErrNoConfigDir, err)
	}
	return filepath.Join(dir, defaultFileName), nil
}

// Load reads config from path. When the file is missing, the default config
// is written to path and returned.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		cfg := DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			return nil, &ParseError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	model, ok := v.Get("model").(string)
	if !ok || strings.TrimSpace(model) == "" {
		return nil, &ParseError{Path: path, Err: errMissingModel}
	}
	return &Config{Model: model}, nil
}

// Save persists cfg to path, replacing any existing file.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("write config: nil config")
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeFile(path, encoded)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
