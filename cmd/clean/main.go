// Command clean runs the movie, user and rating cleaners in order and
// prints a per-stage report. It exits 1 when any stage fails and 2 on
// usage or configuration errors.
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

	"github.com/google/uuid"

	"moviedw/internal/config"
	"moviedw/internal/logger"
	"moviedw/internal/metrics/datadog"
	"moviedw/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "config file (YAML or JSON); defaults to CONFIG_PATH")
	only := fs.String("only", "", "run a single cleaner: movies, users or ratings")
	reportPath := fs.String("report", "", "write the run report as YAML to this path")
	verbose := fs.Bool("v", false, "enable debug logs")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "usage: clean [-config path] [-only entity] [-report path] [-v]\n")
		return 2
	}

	cfg, err := config.Load(*cfgPath)
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

	steps, err := pipeline.CleaningSteps(cfg, *only, std)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	closeMetrics := datadog.Install(ctx, cfg.Metrics.Backend, "moviedw_clean", cfg.Metrics.Tags, std.Printf)
	defer closeMetrics()

	runID := uuid.NewString()
	rep := pipeline.Runner{RunID: runID, Logger: std}.Run(ctx, steps)

	for _, s := range rep.Stages {
		status := "ok"
		if !s.OK {
			status = "FAILED: " + s.Error
		}
		fmt.Fprintf(stdout, "%-14s %s\n", s.Name, status)
	}
	fmt.Fprintln(stdout, rep.Summary())

	if *reportPath != "" {
		if err := pipeline.WriteReport(*reportPath, rep); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
	}
	if rep.Err() != nil {
		return 1
	}
	return 0
}
