package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("COVERCARD_LOG_LEVEL", "error")
}

func TestRunVersionAndHelp(t *testing.T) {
	for _, args := range [][]string{{"version"}, {"help"}, {"--help"}, {"render", "--help"}} {
		if code := run(args); code != 0 {
			t.Errorf("run(%v) = %d, want 0", args, code)
		}
	}
}

func TestRunRenderWritesCard(t *testing.T) {
	isolateConfig(t)
	out := filepath.Join(t.TempDir(), "card.png")

	code := run([]string{"-o", out, "--bg", "clean_solid", "--text-style", "gold",
		"--font-size", "48", "--line-height", "1.3", "--preview", "Hello", "World"})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 750 || cfg.Height != 1000 {
		t.Errorf("size = %dx%d", cfg.Width, cfg.Height)
	}

	if _, err := os.Stat(previewPath(out)); err != nil {
		t.Errorf("preview not written: %v", err)
	}
}

func TestRunRenderConfigErrorExitCode(t *testing.T) {
	isolateConfig(t)
	out := filepath.Join(t.TempDir(), "card.png")
	// No font size anywhere.
	if code := run([]string{"-o", out, "--line-height", "1.2", "Hello"}); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if code := run([]string{"-o", out, "--mode", "poster", "--font-size", "40", "--line-height", "1.2", "x"}); code != 2 {
		t.Errorf("unknown mode exit code = %d, want 2", code)
	}
}

func TestRunRenderUsageErrors(t *testing.T) {
	isolateConfig(t)
	if code := run([]string{"--font-size", "40"}); code != 1 {
		t.Errorf("missing output exit code = %d, want 1", code)
	}
	if code := run([]string{"-o", "card.gif"}); code != 1 {
		t.Errorf("bad format exit code = %d, want 1", code)
	}
}

func TestRunInitThenBatch(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	if code := run([]string{"init", "--dir", dir}); code != 0 {
		t.Fatalf("init exit code = %d", code)
	}
	for _, name := range []string{"template.json", "lines.txt", "overlay.yaml", "photo-overlay.ccbundle"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}

	out := filepath.Join(t.TempDir(), "cards")
	code := run([]string{"batch", "--dir", dir, "--out", out, "--text-file", filepath.Join(dir, "lines.txt"), "--format", "jpg", "-j", "2"})
	if code != 0 {
		t.Fatalf("batch exit code = %d", code)
	}
	for _, name := range []string{"template.jpg", "overlay.jpg", "photo-overlay.jpg"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
}

func TestRunStyles(t *testing.T) {
	if code := run([]string{"styles", "--json"}); code != 0 {
		t.Errorf("exit code = %d", code)
	}
}

func TestOutputNames(t *testing.T) {
	got := outputNames([]string{"d/a.json", "d/b.json", "d/b.ccbundle", "d/c.yaml"}, ".png")
	want := []string{"a.png", "b-json.png", "b-ccbundle.png", "c.png"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPreviewPath(t *testing.T) {
	if got := previewPath("/tmp/card.png"); got != "/tmp/card.preview.png" {
		t.Errorf("previewPath = %q", got)
	}
}

func TestRunMissingConfigFile(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	code := run([]string{"--config", filepath.Join(dir, "missing.toml"), "-o", filepath.Join(dir, "card.png"),
		"--font-size", "40", "--line-height", "1.2", "x"})
	if code != 1 {
		t.Errorf("exit code = %d, want 1 for a missing --config file", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "card.png")); err == nil {
		t.Error("card written despite the config error")
	}
}
