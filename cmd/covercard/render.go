package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/xob0t/CoverCard/pkg/generator"
	"github.com/xob0t/CoverCard/pkg/render"
	"github.com/xob0t/CoverCard/pkg/template"
)

// renderTemplate runs the full card pipeline for one template record.
func (a *app) renderTemplate(ctx context.Context, t template.ImageTemplate, lines template.TextLines) (*image.NRGBA, error) {
	if t.TextLines == 0 && len(lines) > 0 {
		t.TextLines = min(len(lines), template.MaxLines)
	}

	cfg, err := t.StyleConfig()
	if err != nil {
		return nil, &template.ConfigError{Field: "template_type", Reason: err.Error()}
	}

	if err := a.loader.Attach(ctx, &cfg, t.BackgroundSource()); err != nil {
		a.log.Warn("custom background unavailable, using fallback", "template", t.Name, "err", err)
	}

	for _, w := range template.Warnings(cfg, lines, render.Catalog{}) {
		a.log.Warn(w, "template", t.Name)
	}

	return a.compositor.RenderImage(cfg, lines)
}

// ── render ──

func runRender(args []string) error {
	var (
		g          globals
		over       template.Overrides
		output     string
		tmplPath   string
		tmplID     int
		textFile   string
		seed       uint64
		preview    bool
		fontSize   int
		lineHeight float64
		mask       float64
		lineCount  int
	)

	fs := newFlagSet("render")
	g.register(fs)
	fs.StringVarP(&output, "output", "o", "", "Output file path (.png, .jpg, .bmp)")
	fs.StringVarP(&tmplPath, "template", "t", "", "Template record (.json, .yaml, .ccbundle)")
	fs.IntVar(&tmplID, "template-id", 0, "Template record id on the template service")
	fs.StringVar(&over.Mode, "mode", "", "insert or overlay")
	fs.StringVar(&over.BackgroundStyle, "bg", "", "Background style id")
	fs.StringVar(&over.TextStyle, "text-style", "", "Text style id")
	fs.StringVar(&over.TextColor, "color", "", "Text color")
	fs.StringVar(&over.CustomBackground, "background", "", "Custom background: path, URL or data URL")
	fs.IntVar(&fontSize, "font-size", 0, "Font size in pixels")
	fs.Float64Var(&lineHeight, "line-height", 0, "Line height multiplier")
	fs.Float64Var(&mask, "mask", 0, "Overlay mask opacity")
	fs.IntVar(&lineCount, "lines", 0, "Number of line slots (1-4)")
	fs.StringVar(&textFile, "text-file", "", "File with one line per line")
	fs.Uint64Var(&seed, "seed", 0, "Seed for randomized backgrounds")
	fs.BoolVar(&preview, "preview", false, "Also write a 300x400 preview")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if output == "" {
		return fmt.Errorf("output file is required (-o)")
	}
	if ext := filepath.Ext(output); !generator.Supported(ext) {
		return fmt.Errorf("unsupported output format %q", ext)
	}

	setIf(fs, "font-size", &over.FontSize, fontSize)
	setIf(fs, "line-height", &over.LineHeight, lineHeight)
	setIf(fs, "mask", &over.MaskOpacity, mask)
	setIf(fs, "lines", &over.LineCount, lineCount)

	var opts []render.Option
	if fs.Changed("seed") {
		opts = append(opts, render.WithSeed(seed))
	}
	a, err := newApp(g, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	base := template.ImageTemplate{TemplateType: string(template.ModeInsert)}
	switch {
	case tmplPath != "":
		t, cleanup, err := template.LoadTemplate(tmplPath)
		if err != nil {
			return err
		}
		defer cleanup()
		base = *t
	case tmplID != 0:
		client, err := a.templateClient("")
		if err != nil {
			return err
		}
		t, err := client.Get(ctx, tmplID)
		if err != nil {
			return err
		}
		base = *t
	}

	lines, err := readLines(textFile, fs.Args())
	if err != nil {
		return err
	}

	t := template.Merge(base, over)
	a.log.Debug("rendering card", "template", t.Name, "output", output, "lines", len(lines))

	img, err := a.renderTemplate(ctx, t, lines)
	if err != nil {
		return err
	}
	if err := generator.Generate(output, generator.Config{Image: img}); err != nil {
		return err
	}
	fmt.Printf("Done: %s\n", output)

	if preview {
		p := previewPath(output)
		small := generator.Preview(img, generator.PreviewWidth, generator.PreviewHeight)
		if err := generator.Generate(p, generator.Config{Image: small}); err != nil {
			return err
		}
		fmt.Printf("Preview: %s\n", p)
	}
	return nil
}

// setIf stores v in *dst only when the flag was given on the command line.
func setIf[T any](fs *pflag.FlagSet, name string, dst **T, v T) {
	if fs.Changed(name) {
		*dst = &v
	}
}

func readLines(path string, args []string) (template.TextLines, error) {
	if path != "" {
		return template.LoadLines(path)
	}
	return template.TextLines(args), nil
}

func previewPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + ".preview" + ext
}

// ── batch ──

func runBatch(args []string) error {
	var (
		g        globals
		dir      string
		outDir   string
		textFile string
		format   string
		jobs     int
		seed     uint64
	)

	fs := newFlagSet("batch")
	g.register(fs)
	fs.StringVar(&dir, "dir", "", "Directory of template records")
	fs.StringVar(&outDir, "out", "", "Output directory")
	fs.StringVar(&textFile, "text-file", "", "Lines applied to every template")
	fs.StringVar(&format, "format", ".png", "Output extension")
	fs.IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Parallel renders")
	fs.Uint64Var(&seed, "seed", 0, "Seed for randomized backgrounds")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if dir == "" || outDir == "" {
		return fmt.Errorf("--dir and --out are required")
	}
	if !strings.HasPrefix(format, ".") {
		format = "." + format
	}
	if !generator.Supported(format) {
		return fmt.Errorf("unsupported output format %q", format)
	}

	var opts []render.Option
	if fs.Changed("seed") {
		opts = append(opts, render.WithSeed(seed))
	}
	a, err := newApp(g, opts...)
	if err != nil {
		return err
	}

	lines, err := readLines(textFile, fs.Args())
	if err != nil {
		return err
	}
	files, err := template.ListTemplateFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no template records in %s", dir)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	names := outputNames(files, format)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(jobs, 1))
	for i, f := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, cleanup, err := template.LoadTemplate(f)
			if err != nil {
				return err
			}
			defer cleanup()

			img, err := a.renderTemplate(ctx, *t, lines)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(f), err)
			}

			out := filepath.Join(outDir, names[i])
			if err := generator.Generate(out, generator.Config{Image: img}); err != nil {
				return err
			}
			a.log.Info("rendered", "template", filepath.Base(f), "output", out)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	fmt.Printf("Done: %d cards in %s\n", len(files), outDir)
	return nil
}

// outputNames maps each template file to "<stem><format>". Files sharing a
// stem (card.json and card.ccbundle) get their source extension appended.
func outputNames(files []string, format string) []string {
	stems := make([]string, len(files))
	count := make(map[string]int, len(files))
	for i, f := range files {
		base := filepath.Base(f)
		stems[i] = strings.TrimSuffix(base, filepath.Ext(base))
		count[stems[i]]++
	}

	names := make([]string, len(files))
	for i, f := range files {
		if count[stems[i]] > 1 {
			names[i] = stems[i] + "-" + strings.TrimPrefix(filepath.Ext(f), ".") + format
			continue
		}
		names[i] = stems[i] + format
	}
	return names
}

// ── init ──

func runInit(args []string) error {
	fs := newFlagSet("init")
	dir := fs.String("dir", ".", "Directory for the sample files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := os.MkdirAll(*dir, 0755); err != nil {
		return err
	}

	tmpl, lines := template.GetExampleTemplate()
	files := map[string]string{
		"template.json": tmpl,
		"lines.txt":     lines,
		"overlay.yaml":  template.GetExampleOverlayTemplate(),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(*dir, name), []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	// A bundle with its own background shows how overlays look with a photo.
	t, err := template.ParseTemplate([]byte(template.GetExampleOverlayTemplate()), ".yaml")
	if err != nil {
		return err
	}
	var bg strings.Builder
	if err := generator.GenerateToWriter(&bg, ".png", generator.Config{Color: "#34495e"}); err != nil {
		return err
	}
	bundlePath := filepath.Join(*dir, "photo-overlay"+template.BundleExt)
	f, err := os.Create(bundlePath)
	if err != nil {
		return err
	}
	if err := template.WriteBundle(f, *t, []byte(bg.String()), ".png"); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("Created: template.json, lines.txt, overlay.yaml, photo-overlay%s in %s\n", template.BundleExt, *dir)
	fmt.Println("Run: covercard -o card.png -t template.json --text-file lines.txt")
	if len(render.SystemCJKFonts()) == 0 {
		fmt.Println("Note: the built-in fonts have no CJK glyphs and no system CJK font was found.")
		fmt.Println("      Set [fonts] fallbacks in config.toml to a CJK font (e.g. Noto Sans CJK) to render Chinese text.")
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
