package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/xob0t/CoverCard/pkg/render"
)

// Config is the full covercard configuration.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Acquire   AcquireConfig   `toml:"acquire"`
	Templates TemplatesConfig `toml:"templates"`
	Fonts     FontsConfig     `toml:"fonts"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// ServerConfig configures covercard serve.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

// AcquireConfig configures background image loading.
type AcquireConfig struct {
	Timeout   Duration `toml:"timeout"`
	MaxBytes  int64    `toml:"max_bytes"`
	MaxPixels int      `toml:"max_pixels"`
}

// TemplatesConfig points at the template persistence service.
type TemplatesConfig struct {
	ServiceURL string `toml:"service_url"`
}

// FontsConfig overrides the embedded fonts per role. Paths may point at
// TTF, OTF or TTC files.
type FontsConfig struct {
	SerifBold      string   `toml:"serif_bold"`
	ScriptRegular  string   `toml:"script_regular"`
	ScriptMedium   string   `toml:"script_medium"`
	ScriptItalic   string   `toml:"script_italic"`
	ScriptSemibold string   `toml:"script_semibold"`
	CJKBlack       string   `toml:"cjk_black"`
	SansRegular    string   `toml:"sans_regular"`
	Fallbacks      []string `toml:"fallbacks"`
}

// Paths converts the font section for render.NewFontManager.
func (f FontsConfig) Paths() render.FontPaths {
	return render.FontPaths{
		SansRegular:    f.SansRegular,
		SerifBold:      f.SerifBold,
		ScriptRegular:  f.ScriptRegular,
		ScriptMedium:   f.ScriptMedium,
		ScriptItalic:   f.ScriptItalic,
		ScriptSemibold: f.ScriptSemibold,
		CJKBlack:       f.CJKBlack,
		Fallbacks:      f.Fallbacks,
	}
}

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/covercard/config.toml
//  2. ~/.config/covercard/config.toml
//
// If no file exists, returns DefaultConfig() with environment overrides.
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path. Unlike Load,
// a missing file is an error.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader reads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			MaxUploadMB: 10,
		},
		Acquire: AcquireConfig{
			Timeout:   Duration{30 * time.Second},
			MaxBytes:  20 << 20,
			MaxPixels: 100_000_000,
		},
	}
}

// SlogLevel maps the configured level name to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COVERCARD_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("COVERCARD_TEMPLATE_SERVICE"); v != "" {
		cfg.Templates.ServiceURL = v
	}
	if v := os.Getenv("COVERCARD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string

	xdg := xdgConfigHome(home)
	paths = append(paths, filepath.Join(xdg, "covercard", "config.toml"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, "covercard", "config.toml"))
	}

	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}
