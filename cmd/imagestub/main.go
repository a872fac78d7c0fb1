// imagestub — Placeholder image service.
//
// Usage:
//
//	imagestub serve [options]
//	imagestub render -o <file> [--size WxH] [--bg <color>] [--fg <color>] [--text <text>] [--qr]
//	imagestub color <color>...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/xob0t/imagestub/clients/server"
	"github.com/xob0t/imagestub/pkg/cache"
	"github.com/xob0t/imagestub/pkg/generator"
	"github.com/xob0t/imagestub/pkg/logging"
	"github.com/xob0t/imagestub/pkg/metrics"
	"github.com/xob0t/imagestub/pkg/params"
	"github.com/xob0t/imagestub/pkg/render"
)

type serveOpts struct {
	Logging logging.Opts `group:"Logging Options" namespace:"logging" env-namespace:"LOGGING"`
	HTTP    server.Opts  `group:"HTTP Options" namespace:"http" env-namespace:"HTTP"`
	Cache   cache.Opts   `group:"Cache Options" namespace:"cache" env-namespace:"CACHE"`
	Metrics metrics.Opts `group:"Metrics Options" namespace:"metrics" env-namespace:"METRICS"`
	Font    string       `long:"font" env:"FONT" description:"TTF/OTF font for captions (default: embedded Go Mono)"`
}

type renderOpts struct {
	Logging    logging.Opts `group:"Logging Options" namespace:"logging" env-namespace:"LOGGING"`
	Output     string       `short:"o" long:"output" description:"Output file; the extension selects the format" required:"true"`
	Format     string       `long:"format" description:"Output format, overriding the extension (png, jpeg, gif, bmp, tiff, svg, avi)"`
	Size       string       `long:"size" description:"Resolution as WxH" default:"200x200"`
	Background string       `long:"bg" description:"Background color" default:"7d7d7d"`
	Foreground string       `long:"fg" description:"Text color" default:"ffffff"`
	Text       string       `long:"text" description:"Caption, or QR content with --qr"`
	QR         bool         `long:"qr" description:"Render --text as a QR code"`
	Duration   int          `long:"duration" description:"Duration in seconds (AVI only)" default:"1"`
	Font       string       `long:"font" env:"FONT" description:"TTF/OTF font for captions (default: embedded Go Mono)"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fatal(fmt.Errorf("load .env: %w", err))
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "render":
		err = runRender(os.Args[2:])
	case "color":
		err = runColor(os.Stdout, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}

	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
		return
	}
	if err != nil {
		fatal(err)
	}
}

func runServe(args []string) error {
	var opts serveOpts
	if _, err := flags.ParseArgs(&opts, args); err != nil {
		return err
	}
	if err := logging.Init(&opts.Logging); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer, err := render.NewRenderer(opts.Font)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	c, err := cache.New(ctx, opts.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	m := metrics.New()
	srv := server.New(&opts.HTTP, renderer, c, m)
	metricsSrv := metrics.NewServer(&opts.Metrics, m)

	slog.Info("imagestub starting",
		"font", renderer.Fonts().Name(),
		"cache", opts.Cache.Backend,
		"max_dimension", opts.HTTP.MaxDimension,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return metricsSrv.Run(gctx) })

	var result *multierror.Error
	if err := g.Wait(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close cache: %w", err))
	}
	slog.Info("imagestub stopped")
	return result.ErrorOrNil()
}

func runRender(args []string) error {
	var opts renderOpts
	if _, err := flags.ParseArgs(&opts, args); err != nil {
		return err
	}
	if err := logging.Init(&opts.Logging); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	renderer, err := render.NewRenderer(opts.Font)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	cfg, err := renderConfig(&opts)
	if err != nil {
		return err
	}
	if cfg.Description.ColorError {
		slog.Warn("color could not be parsed, rendering the error placeholder",
			"bg", opts.Background, "fg", opts.Foreground)
	}

	fmt.Printf("Generating: %s\n", opts.Output)
	if err := generator.Generate(opts.Output, renderer, cfg); err != nil {
		return err
	}
	fmt.Printf("Done: %s\n", opts.Output)
	return nil
}

func renderConfig(opts *renderOpts) (generator.Config, error) {
	res := params.ParseResolution(opts.Size)
	cfg := generator.Config{
		Description: params.Describe(res.Width, res.Height, opts.Background, opts.Foreground, opts.Text),
		QR:          opts.QR,
		Duration:    opts.Duration,
	}
	if opts.Format != "" {
		f, err := generator.ParseFormat(opts.Format)
		if err != nil {
			return cfg, err
		}
		cfg.Format = f
	}
	return cfg, nil
}

// runColor prints one JSON diagnosis per argument.
func runColor(w io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("color: at least one color is required")
	}

	enc := json.NewEncoder(w)
	failed := 0
	for _, raw := range args {
		res := params.Inspect(raw)
		if !res.OK {
			failed++
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d colors could not be parsed", failed, len(args))
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`imagestub — Placeholder images on demand (Pure Go)

USAGE:
    imagestub serve [options]
    imagestub render -o <file> [options]
    imagestub color <color>...

SERVE:
    --http.port <n>              HTTP port (default 8080)
    --cache.backend memory|redis Response cache (default memory)
    --cache.redis.addr <addr>    Redis address when the backend is redis
    --metrics.port <n>           Prometheus port (default 13434)
    --metrics.disable            Do not serve /metrics
    --logging.level <level>      debug, info, warn, error
    --font <path>                Caption font (default Go Mono)
    Every option can also be set from the environment, e.g. HTTP_PORT,
    CACHE_REDIS_ADDR. A .env file in the working directory is loaded first.

ROUTES:
    GET /image/{width}/{height}/{bg}/{fg}   every segment optional
    GET /i/{WxH}/{bg}/{fg}                  compact form
    GET /qr/{WxH}/{bg}/{fg}?text=...        QR code
    GET /color/{color}                      JSON diagnosis
    Query: ?text=<caption>  ?format=png|jpeg|gif|bmp|tiff|svg|avi

RENDER:
    -o, --output <file>    Output file (.png, .jpg, .gif, .bmp, .tiff, .svg, .avi)
    --size WxH             Resolution (default 200x200)
    --bg <color>           Background (default 7d7d7d)
    --fg <color>           Text color (default ffffff)
    --text <text>          Caption override, or QR content with --qr
    --qr                   Render a QR code
    --duration <sec>       AVI duration (default 1)

COLORS:
    #rrggbb  #rrggbbaa  rrggbb  rgb(r, g, b)  rgba(r, g, b, a)  named (navy, lightgray, ...)
    Unparseable colors render a "color format error" placeholder.

EXAMPLES:
    imagestub serve --http.port 9000
    imagestub render -o banner.png --size 1200x300 --bg navy --text "coming soon"
    imagestub render -o code.png --size 300x300 --qr --text https://example.com
    imagestub color "rgba(255, 0, 0, 0.5)" teal
`)
}
