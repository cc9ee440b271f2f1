// CoverCard - Template-driven card images.
//
// Usage:
//
//	covercard [render] -o <file> [--template <path>] [options] [line ...]
//	covercard batch --dir <templates> --out <dir> --text-file <lines>
//	covercard styles
//	covercard templates
//	covercard serve [--addr 127.0.0.1:8080]
//	covercard init
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/xob0t/CoverCard/clients/server"
	"github.com/xob0t/CoverCard/internal/config"
	"github.com/xob0t/CoverCard/pkg/acquire"
	"github.com/xob0t/CoverCard/pkg/render"
	"github.com/xob0t/CoverCard/pkg/template"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := "render"
	if len(args) > 0 {
		switch args[0] {
		case "render", "batch", "styles", "templates", "serve", "init":
			cmd, args = args[0], args[1:]
		case "help", "-h", "--help":
			printUsage()
			return 0
		case "version", "--version":
			fmt.Printf("covercard %s\n", version)
			return 0
		}
	}

	var err error
	switch cmd {
	case "render":
		err = runRender(args)
	case "batch":
		err = runBatch(args)
	case "styles":
		err = runStyles(args)
	case "templates":
		err = runTemplates(args)
	case "serve":
		err = runServe(args)
	case "init":
		err = runInit(args)
	}

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, template.ErrConfiguration) {
			return 2
		}
		return 1
	}
	return 0
}

// ── Shared setup ──

// globals are the flags every command accepts.
type globals struct {
	configPath string
	verbose    bool
}

func (g *globals) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/covercard/config.toml)")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "Debug logging")
}

// app bundles what the commands share once flags are parsed.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	compositor *render.Compositor
	loader     *acquire.Loader
}

func newApp(g globals, opts ...render.Option) (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFromFile(g.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.SlogLevel()
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	render.SetLogger(logger)

	paths := cfg.Fonts.Paths()
	if len(paths.Fallbacks) == 0 {
		if found := render.SystemCJKFonts(); len(found) > 0 {
			paths.Fallbacks = found[:1]
			logger.Debug("using system CJK fallback font", "path", found[0])
		}
	}
	fonts, err := render.NewFontManager(paths)
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	comp, err := render.New(append([]render.Option{render.WithFonts(fonts)}, opts...)...)
	if err != nil {
		return nil, err
	}

	loader := acquire.New(
		acquire.WithTimeout(cfg.Acquire.Timeout.Duration),
		acquire.WithMaxBytes(cfg.Acquire.MaxBytes),
		acquire.WithMaxPixels(cfg.Acquire.MaxPixels),
	)

	return &app{cfg: cfg, log: logger, compositor: comp, loader: loader}, nil
}

func (a *app) templateClient(override string) (*template.Client, error) {
	url := override
	if url == "" {
		url = a.cfg.Templates.ServiceURL
	}
	if url == "" {
		return nil, errors.New("no template service configured (set [templates] service_url or COVERCARD_TEMPLATE_SERVICE)")
	}
	return template.NewClient(url, nil), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = printUsage
	return fs
}

// ── Small commands ──

func runStyles(args []string) error {
	fs := newFlagSet("styles")
	asJSON := fs.Bool("json", false, "Print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *asJSON {
		return printJSON(render.Styles())
	}
	fmt.Print(template.FormatCatalog(render.Styles()))
	return nil
}

func runTemplates(args []string) error {
	var g globals
	fs := newFlagSet("templates")
	g.register(fs)
	service := fs.String("service", "", "Template service base URL")
	asJSON := fs.Bool("json", false, "Print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	client, err := a.templateClient(*service)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	list, err := client.List(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(list)
	}
	for _, t := range list {
		fmt.Printf("%4d  %-24s %-8s bg=%-18s text=%-22s %dpx x%d\n",
			t.ID, t.Name, t.TemplateType, t.BackgroundStyle, t.TextStyle, t.FontSize, t.TextLines)
	}
	return nil
}

func runServe(args []string) error {
	var g globals
	fs := newFlagSet("serve")
	g.register(fs)
	addr := fs.String("addr", "", "Listen address (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	if *addr != "" {
		a.cfg.Server.Addr = *addr
	}

	var client *template.Client
	if a.cfg.Templates.ServiceURL != "" {
		client = template.NewClient(a.cfg.Templates.ServiceURL, nil)
	}

	srv, err := server.New(server.Options{
		Addr:        a.cfg.Server.Addr,
		MaxUploadMB: a.cfg.Server.MaxUploadMB,
		Compositor:  a.compositor,
		Loader:      a.loader,
		Templates:   client,
		Logger:      a.log,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return srv.Run(ctx)
}

func printUsage() {
	fmt.Print(`CoverCard - Template-driven card images (750x1000)

USAGE:
    covercard [render] -o <file> [options] [line ...]
    covercard batch --dir <templates> --out <dir> --text-file <lines>
    covercard styles [--json]
    covercard templates [--service <url>] [--json]
    covercard serve [--addr <host:port>]
    covercard init [--dir <path>]

RENDER:
    -o, --output <path>     Output file (.png, .jpg, .bmp)
    -t, --template <path>   Template record (.json, .yaml, .ccbundle)
    --template-id <n>       Template record from the template service
    --mode <m>              insert | overlay
    --bg <id>               Background style id
    --text-style <id>       Text style id
    --color <css>           Text color
    --font-size <px>        Font size (required unless the template has one)
    --line-height <x>       Line height multiplier
    --mask <0-1>            Overlay mask opacity
    --lines <n>             Number of line slots (1-4)
    --background <src>      Custom background: path, URL or data URL
    --text-file <path>      Read lines from a file instead of arguments
    --seed <n>              Seed for randomized backgrounds
    --preview               Also write a 300x400 preview next to the output

BATCH:
    --dir <path>            Directory of template records
    --out <path>            Output directory
    --text-file <path>      Lines applied to every template
    --format <ext>          Output extension (default .png)
    -j, --jobs <n>          Parallel renders (default: CPU count)
    --seed <n>              Seed for randomized backgrounds

GLOBAL:
    --config <path>         Config file
    -v, --verbose           Debug logging

EXAMPLES:
    covercard init
    covercard -o card.png -t template.json --text-file lines.txt
    covercard -o card.png --bg soft_blur --text-style handwritten_warm --font-size 56 --line-height 1.3 "Hello" "World"
    covercard -o card.png -t overlay.yaml --background photo.jpg "Caption"
    covercard batch --dir templates --out cards --text-file lines.txt
    covercard serve --addr :8080
`)
}
