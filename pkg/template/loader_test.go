package template

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestParseTemplateFormats(t *testing.T) {
	jsonSrc, _ := GetExampleTemplate()
	tj, err := ParseTemplate([]byte(jsonSrc), ".json")
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if tj.TextStyle != "gold" || tj.FontSize != 40 || tj.LineHeight != 1.2 || tj.TextLines != 3 {
		t.Errorf("json decode: %+v", tj)
	}

	ty, err := ParseTemplate([]byte(GetExampleOverlayTemplate()), ".YML")
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if ty.TemplateType != "overlay" || ty.MaskOpacity != 0.5 || ty.LineHeight != 1.4 {
		t.Errorf("yaml decode: %+v", ty)
	}

	if _, err := ParseTemplate([]byte("{"), ".json"); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestLoadTemplateResolvesRelativeBackground(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bg.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	src := `{"template_type":"insert","font_size":40,"line_height":1.2,"text_lines":1,"custom_background_path":"bg.png"}`
	path := filepath.Join(dir, "t.json")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	tmpl, cleanup, err := LoadTemplate(path)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	if want := filepath.Join(dir, "bg.png"); tmpl.CustomBackgroundPath != want {
		t.Errorf("CustomBackgroundPath = %q, want %q", tmpl.CustomBackgroundPath, want)
	}
}

func TestLoadTemplateKeepsRemoteAndSession(t *testing.T) {
	for _, p := range []string{"https://example.com/a.png", SessionBackground, "missing.png"} {
		if got := resolveRelative(p, "/tmp"); got != p {
			t.Errorf("resolveRelative(%q) = %q", p, got)
		}
	}
}

func TestBundleRoundTrip(t *testing.T) {
	tmpl := ImageTemplate{
		Name:                 "bundle",
		TemplateType:         "overlay",
		TextStyle:            "handwritten_casual",
		BackgroundStyle:      "minimal_gradient",
		FontSize:             56,
		LineHeight:           1.4,
		MaskOpacity:          0.5,
		TextLines:            2,
		CustomBackgroundPath: "/some/local/file.png",
	}
	bg := []byte("not really a png")

	path := filepath.Join(t.TempDir(), "card"+BundleExt)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteBundle(f, tmpl, bg, ".png"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, cleanup, err := LoadTemplate(path)
	if err != nil {
		t.Fatal(err)
	}

	if got.Name != "bundle" || got.MaskOpacity != 0.5 || got.TextLines != 2 {
		t.Errorf("template fields lost: %+v", got)
	}
	data, err := os.ReadFile(got.CustomBackgroundPath)
	if err != nil {
		t.Fatalf("bundled background not extracted: %v", err)
	}
	if !bytes.Equal(data, bg) {
		t.Error("bundled background content mismatch")
	}

	dir := filepath.Dir(got.CustomBackgroundPath)
	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("cleanup did not remove the temp dir")
	}
}

func TestWriteBundleDropsLocalPathWithoutImage(t *testing.T) {
	var buf bytes.Buffer
	tmpl := ImageTemplate{TemplateType: "insert", CustomBackgroundPath: "/home/me/bg.png"}
	if err := WriteBundle(&buf, tmpl, nil, ""); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "template.json" {
		t.Fatalf("unexpected members: %d", len(zr.File))
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	var out bytes.Buffer
	out.ReadFrom(rc)
	if bytes.Contains(out.Bytes(), []byte("/home/me")) {
		t.Error("local path leaked into bundle")
	}
}

func TestLoadBundleRejectsZipSlip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("../escape.txt")
	w.Write([]byte("x"))
	zw.Close()

	path := filepath.Join(t.TempDir(), "evil"+BundleExt)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	if _, cleanup, err := LoadBundle(path); err == nil {
		cleanup()
		t.Fatal("expected zip slip error")
	}
}

func TestParseLines(t *testing.T) {
	tests := []struct {
		in   string
		want TextLines
	}{
		{"a\nb\nc\n", TextLines{"a", "b", "c"}},
		{"a\r\n\r\nc", TextLines{"a", "", "c"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := ParseLines([]byte(tt.in))
		if len(got) != len(tt.want) {
			t.Errorf("ParseLines(%q) = %q, want %q", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseLines(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestListTemplateFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.json", "c" + BundleExt, "notes.txt", "d.yml"} {
		os.WriteFile(filepath.Join(dir, name), nil, 0644)
	}
	os.Mkdir(filepath.Join(dir, "sub.json"), 0755)

	files, err := ListTemplateFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	want := []string{"a.json", "b.yaml", "c" + BundleExt, "d.yml"}
	if len(names) != len(want) {
		t.Fatalf("files = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
