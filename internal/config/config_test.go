package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Acquire.Timeout.Duration != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Acquire.Timeout)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("level = %v", cfg.SlogLevel())
	}
}

func TestLoadFromReader(t *testing.T) {
	t.Setenv("COVERCARD_ADDR", "")
	t.Setenv("COVERCARD_TEMPLATE_SERVICE", "")
	t.Setenv("COVERCARD_LOG_LEVEL", "")

	const src = `
[log]
level = "debug"

[server]
addr = ":9000"

[acquire]
timeout = "5s"

[templates]
service_url = "http://templates.local"

[fonts]
script_regular = "/fonts/GreatVibes.ttf"
fallbacks = ["/fonts/NotoSansSC.ttc"]
`
	cfg, err := LoadFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %v", cfg.SlogLevel())
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.MaxUploadMB != 10 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Acquire.Timeout.Duration != 5*time.Second || cfg.Acquire.MaxBytes != 20<<20 || cfg.Acquire.MaxPixels != 100_000_000 {
		t.Errorf("acquire = %+v", cfg.Acquire)
	}
	if cfg.Templates.ServiceURL != "http://templates.local" {
		t.Errorf("service = %q", cfg.Templates.ServiceURL)
	}
	paths := cfg.Fonts.Paths()
	if paths.ScriptRegular != "/fonts/GreatVibes.ttf" || len(paths.Fallbacks) != 1 {
		t.Errorf("fonts = %+v", paths)
	}
}

func TestLoadFromReaderErrors(t *testing.T) {
	for _, src := range []string{
		"[acquire]\ntimeout = \"soon\"\n",
		"[acquire]\ntimeout = \"-1s\"\n",
		"[server\n",
	} {
		if _, err := LoadFromReader(strings.NewReader(src)); err == nil {
			t.Errorf("expected error for %q", src)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COVERCARD_ADDR", "0.0.0.0:1234")
	t.Setenv("COVERCARD_TEMPLATE_SERVICE", "http://svc")
	t.Setenv("COVERCARD_LOG_LEVEL", "warn")

	cfg, err := LoadFromReader(strings.NewReader("[server]\naddr = \":80\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != "0.0.0.0:1234" {
		t.Errorf("Addr = %q, env should win", cfg.Server.Addr)
	}
	if cfg.Templates.ServiceURL != "http://svc" {
		t.Errorf("ServiceURL = %q", cfg.Templates.ServiceURL)
	}
	if cfg.SlogLevel() != slog.LevelWarn {
		t.Errorf("level = %v", cfg.SlogLevel())
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")
	_, err := LoadFromFile(path)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want a not-exist error for a named file", err)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("COVERCARD_ADDR", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != DefaultConfig().Server.Addr {
		t.Errorf("Addr = %q, want defaults when no config file exists", cfg.Server.Addr)
	}
}

func TestLoadSearchesXDG(t *testing.T) {
	t.Setenv("COVERCARD_LOG_LEVEL", "")
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir := filepath.Join(xdg, "covercard")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[log]\nlevel = \"error\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SlogLevel() != slog.LevelError {
		t.Errorf("level = %v, want error from XDG config", cfg.SlogLevel())
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatal(err)
	}
	if d.Duration != 90*time.Second {
		t.Errorf("Duration = %v", d.Duration)
	}
	b, _ := d.MarshalText()
	if string(b) != "1m30s" {
		t.Errorf("MarshalText = %q", b)
	}
	if err := d.UnmarshalText(nil); err != nil || d.Duration != 0 {
		t.Errorf("empty text: %v %v", d.Duration, err)
	}
}
