// Command load replaces the warehouse contents with the clean CSV files and
// rebuilds the analytical views.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"moviedw/internal/config"
	"moviedw/internal/logger"
	"moviedw/internal/metrics/datadog"
	"moviedw/internal/storage"
	"moviedw/internal/warehouse"

	// register all backends with the storage factory.
	_ "moviedw/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "config file (YAML or JSON); defaults to CONFIG_PATH")
	backend := fs.String("backend", "", "warehouse backend: postgres, sqlite or mssql (overrides warehouse.kind)")
	dsn := fs.String("dsn", "", "warehouse DSN (overrides warehouse.dsn)")
	skipViews := fs.Bool("skip-views", false, "do not rebuild the analytical views")
	reportPath := fs.String("report", "", "write the load report as YAML to this path")
	verbose := fs.Bool("v", false, "enable debug logs")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "usage: load [-config path] [-backend kind] [-dsn dsn] [-skip-views] [-report path] [-v]\n")
		return 2
	}

	cfg, err := config.Load(*cfgPath, func(c *config.Config) {
		if *backend != "" {
			c.Warehouse.Kind = *backend
		}
		if *dsn != "" {
			c.Warehouse.DSN = *dsn
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	level := cfg.Log.Level
	if *verbose {
		level = "debug"
	}
	z, err := logger.New(level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	defer func() { _ = z.Sync() }()
	std := logger.Std(z)

	closeMetrics := datadog.Install(ctx, cfg.Metrics.Backend, "moviedw_load", cfg.Metrics.Tags, std.Printf)
	defer closeMetrics()

	if d := cfg.Warehouse.StartupDelay; d > 0 {
		std.Printf("stage=load waiting %s for the warehouse to start", d)
		select {
		case <-time.After(d):
		case <-ctx.Done():
			fmt.Fprintf(stderr, "load: %v\n", ctx.Err())
			return 1
		}
	}

	wh, err := storage.Open(ctx, storage.Config{Kind: cfg.Warehouse.Kind, DSN: cfg.DSN()})
	if err != nil {
		fmt.Fprintf(stderr, "load: open %s warehouse: %v\n", cfg.Warehouse.Kind, err)
		return 1
	}
	defer wh.Close()

	l := warehouse.Loader{
		Warehouse: wh,
		LoadDirs:  cfg.Paths.LoadDirs,
		Parser:    cfg.Cleaning.ParserOptions(),
		SkipViews: *skipViews,
		Logger:    std,
	}
	rep, err := l.Run(ctx)

	if *reportPath != "" {
		if werr := writeReport(*reportPath, rep); werr != nil {
			fmt.Fprintf(stderr, "load: %v\n", werr)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return 1
	}

	for _, t := range []string{"filmes", "usuarios", "avaliacoes"} {
		fmt.Fprintf(stdout, "%-10s %d\n", t, rep.Counts[t])
	}
	if rep.Partial() {
		fmt.Fprintln(stdout, "warning: some rows were rejected, see the log")
	}
	return 0
}

func writeReport(path string, rep warehouse.Report) error {
	b, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}
