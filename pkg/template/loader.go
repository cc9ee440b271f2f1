// loader.go - Load template records (JSON, YAML, .ccbundle ZIP) and text line files.
package template

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// BundleExt is the file extension of a template bundle.
const BundleExt = ".ccbundle"

// Bundle member names.
const (
	bundleTemplate   = "template.json"
	bundleBackground = "background"
)

// LoadTemplate reads a template record from a .json, .yaml/.yml or .ccbundle file.
// The returned cleanup function releases bundle temp files; it is never nil.
func LoadTemplate(path string) (*ImageTemplate, func(), error) {
	noop := func() {}

	if strings.EqualFold(filepath.Ext(path), BundleExt) {
		return LoadBundle(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, noop, fmt.Errorf("read template: %w", err)
	}
	t, err := ParseTemplate(data, filepath.Ext(path))
	if err != nil {
		return nil, noop, fmt.Errorf("%s: %w", path, err)
	}
	t.CustomBackgroundPath = resolveRelative(t.CustomBackgroundPath, filepath.Dir(path))
	return t, noop, nil
}

// ParseTemplate decodes a template record. ext selects the format (".yaml",
// ".yml" or anything else for JSON).
func ParseTemplate(data []byte, ext string) (*ImageTemplate, error) {
	var t ImageTemplate
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse template YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse template JSON: %w", err)
		}
	}
	return &t, nil
}

// LoadBundle opens a .ccbundle ZIP, extracts it to a temp directory, parses
// template.json and resolves a bundled background relative to that directory.
// The returned cleanup function removes the temp directory.
func LoadBundle(path string) (*ImageTemplate, func(), error) {
	noop := func() {}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, noop, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	tmpDir, err := os.MkdirTemp("", "ccbundle-*")
	if err != nil {
		return nil, noop, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	if err := extractZip(&r.Reader, tmpDir); err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("extract %s: %w", path, err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, bundleTemplate))
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("read %s: %w", bundleTemplate, err)
	}

	t, err := ParseTemplate(data, ".json")
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	t.CustomBackgroundPath = resolveRelative(t.CustomBackgroundPath, tmpDir)

	return t, cleanup, nil
}

// WriteBundle writes a .ccbundle ZIP holding the template and, when bg is
// non-empty, its background image. bgExt is the image extension (".png", ".jpg").
func WriteBundle(w io.Writer, t ImageTemplate, bg []byte, bgExt string) error {
	zw := zip.NewWriter(w)

	if len(bg) > 0 {
		name := bundleBackground + bgExt
		bw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := bw.Write(bg); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		t.CustomBackgroundPath = name
	} else if t.BackgroundSource() != "" && !isRemote(t.CustomBackgroundPath) {
		// A local path is meaningless inside the archive.
		t.CustomBackgroundPath = ""
	}

	tw, err := zw.Create(bundleTemplate)
	if err != nil {
		return fmt.Errorf("create %s: %w", bundleTemplate, err)
	}
	enc := json.NewEncoder(tw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("encode %s: %w", bundleTemplate, err)
	}

	return zw.Close()
}

// LoadLines reads a text file with one display line per line.
func LoadLines(path string) (TextLines, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return ParseLines(data), nil
}

// ParseLines splits text into display lines. Blank lines are kept because
// they still occupy a layout slot; a trailing newline does not add one.
func ParseLines(data []byte) TextLines {
	var lines TextLines
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines
}

// ListTemplateFiles returns the template files directly inside dir, sorted.
func ListTemplateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml", BundleExt:
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// resolveRelative makes a relative file reference absolute using baseDir when
// that file exists. Anything else (URLs, asset ids, the session sentinel) is
// returned unchanged.
func resolveRelative(p, baseDir string) string {
	if p == "" || p == SessionBackground || filepath.IsAbs(p) || isRemote(p) {
		return p
	}
	candidate := filepath.Join(baseDir, p)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return p
}

func isRemote(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:")
}

// extractZip extracts all files from a zip reader into destDir.
func extractZip(r *zip.Reader, destDir string) error {
	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)

		// Guard against zip slip.
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal path in zip: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

// extractFile writes a single zip entry to disk.
func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
