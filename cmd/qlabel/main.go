package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/qlabel/internal/api"
	"github.com/dgallion1/qlabel/internal/config"
	"github.com/dgallion1/qlabel/internal/discover"
	"github.com/dgallion1/qlabel/internal/document"
	"github.com/dgallion1/qlabel/internal/inspect"
	"github.com/dgallion1/qlabel/internal/labeler"
	"github.com/dgallion1/qlabel/internal/pipeline"
)

const usage = `usage: qlabel [run|check|list|serve] [flags]

  run    label chunks and overwrite files (default)
  check  exit 1 if any file would change
  list   print the chunk inventory of each file
  serve  expose the labeler over HTTP
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := "run"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "run", "check", "list", "serve":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	cfg := config.Load()
	fs := newFlagSet(cmd, &cfg, stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 2
	}

	l := labeler.New(labeler.Options{Strict: cfg.Strict})

	if cmd == "serve" {
		log := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: cfg.Level()}))
		return serve(ctx, cfg, l, log)
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	paths, err := resolve(cfg)
	if err != nil {
		log.Error("resolve inputs", "error", err)
		return 1
	}
	if len(paths) == 0 {
		log.Warn("no files matched", "root", cfg.Root, "pattern", cfg.Pattern)
	}

	runner := pipeline.NewRunner(l, log, cfg.Workers, cfg.DryRun)

	switch cmd {
	case "run":
		sum, err := runner.Run(ctx, paths)
		log.Info("done",
			"labeled", sum.Count(pipeline.StatusLabeled),
			"pending", sum.Count(pipeline.StatusPending),
			"unchanged", sum.Count(pipeline.StatusUnchanged),
			"failed", sum.Count(pipeline.StatusFailed),
		)
		if err != nil {
			return 1
		}
		return 0

	case "check":
		sum, err := runner.Check(ctx, paths)
		for _, p := range sum.Changed() {
			fmt.Fprintln(stdout, p)
		}
		if err != nil || len(sum.Changed()) > 0 {
			return 1
		}
		return 0

	default:
		return list(paths, stdout, log)
	}
}

// newFlagSet binds the command-line flags onto cfg, using its current
// values as defaults.
func newFlagSet(cmd string, cfg *config.Config, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("qlabel "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage); fs.PrintDefaults() }
	fs.StringVar(&cfg.Root, "root", cfg.Root, "directory to start the project root search from")
	fs.StringVar(&cfg.Pattern, "pattern", cfg.Pattern, "glob pattern relative to the project root")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "files processed concurrently")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "fail files that end in a chunk header")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "report changes without writing")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port for serve")
	return fs
}

func resolve(cfg config.Config) ([]string, error) {
	root, err := discover.FindRoot(cfg.Root)
	if err != nil {
		return nil, err
	}
	return discover.Resolve(root, cfg.Pattern)
}

func list(paths []string, out io.Writer, log *slog.Logger) int {
	code := 0
	for _, p := range paths {
		doc, err := document.Read(p)
		if err != nil {
			log.Error("read failed", "path", p, "error", err)
			code = 1
			continue
		}
		report, err := inspect.Inspect(p, doc.Bytes())
		if err != nil {
			log.Error("inspect failed", "path", p, "error", err)
			code = 1
			continue
		}
		for _, w := range report.Warnings {
			log.Warn("inspect warning", "path", p, "warning", w)
		}
		fmt.Fprintf(out, "%s (%s)\n", report.Path, report.Title)
		for _, c := range report.Chunks {
			label := c.Label
			if c.Style == inspect.StyleNone {
				label = "-"
			}
			fmt.Fprintf(out, "  %5d  %-9s  %s\n", c.Line, c.Style, label)
		}
		for _, d := range report.Duplicates() {
			log.Warn("duplicate label", "path", p, "label", d)
		}
	}
	return code
}

func serve(ctx context.Context, cfg config.Config, l *labeler.Labeler, log *slog.Logger) int {
	srv := api.NewServer(l, log, cfg)

	httpServer := &http.Server{
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		log.Error("listen failed", "port", cfg.Port, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting qlabel", "port", cfg.Port)
	return runServer(ctx, httpServer, ln, log)
}

// runServer serves on ln until ctx is done, then returns once in-flight
// requests have drained or the shutdown timeout expires.
func runServer(ctx context.Context, httpServer *http.Server, ln net.Listener, log *slog.Logger) int {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		return 1
	}
	<-drained
	return 0
}
