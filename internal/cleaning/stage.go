package cleaning

import (
	"context"
	"fmt"
	"log"
	"time"

	"moviedw/internal/config"
	"moviedw/internal/datasource/file"
	"moviedw/internal/metrics"
	csvparser "moviedw/internal/parser/csv"
)

// Logger is the minimal logging interface used by cleaning stages.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Stage runs one entity cleaner against files: read the first existing raw
// candidate, Clean it, write the first writable output candidate.
type Stage struct {
	Config     Config
	InputDirs  []string
	OutputDirs []string

	// Parser holds CSV reader options (see csvparser.ReadTable).
	Parser config.Options

	Logger Logger
}

// Result is what a stage run produced.
type Result struct {
	Summary   Summary `yaml:"summary" json:"summary"`
	Input     string  `yaml:"input" json:"input"`
	Output    string  `yaml:"output" json:"output"`
	Malformed int     `yaml:"malformed" json:"malformed"`
}

// Name is the entity name, used as the stage name in reports.
func (s Stage) Name() string { return s.Config.Entity.Name }

// Run executes the stage. A missing input after every candidate, a missing
// required column and an unwritable output are all fatal.
func (s Stage) Run(ctx context.Context) (res Result, err error) {
	e := s.Config.Entity
	start := time.Now()
	logf := s.logger()
	defer func() { metrics.RecordStep("clean_"+e.Name, start, err) }()

	in, inPath, err := file.Open(file.Candidates(e.RawFile, s.InputDirs...))
	if err != nil {
		return res, fmt.Errorf("cleaning: %s: input: %w", e.Name, err)
	}
	defer in.Close()
	res.Input = inPath
	logf("stage=clean entity=%s input=%s", e.Name, inPath)

	raw, err := csvparser.ReadTable(ctx, in, s.Parser, func(line int, rerr error) {
		res.Malformed++
		logf("stage=clean entity=%s skip line=%d err=%v", e.Name, line, rerr)
	})
	if err != nil {
		return res, fmt.Errorf("cleaning: %s: read %s: %w", e.Name, inPath, err)
	}

	clean, sum, err := Clean(raw, s.Config)
	res.Summary = sum
	if err != nil {
		return res, fmt.Errorf("cleaning: %w", err)
	}

	out, outPath, err := file.CreateFirstWritable(file.Candidates(e.CleanFile, s.OutputDirs...))
	if err != nil {
		return res, fmt.Errorf("cleaning: %s: output: %w", e.Name, err)
	}
	if err := csvparser.WriteTable(out, clean); err != nil {
		_ = out.Close()
		return res, fmt.Errorf("cleaning: %s: write %s: %w", e.Name, outPath, err)
	}
	if err := out.Close(); err != nil {
		return res, fmt.Errorf("cleaning: %s: close %s: %w", e.Name, outPath, err)
	}
	res.Output = outPath

	metrics.AddRecords(e.Name+"_read", sum.Read)
	metrics.AddRecords(e.Name+"_duplicates", sum.Duplicates)
	metrics.AddRecords(e.Name+"_rejected", sum.RejectedTotal())
	metrics.AddRecords(e.Name+"_kept", sum.Kept)

	logf("stage=clean %s malformed=%d output=%s duration=%s",
		sum, res.Malformed, outPath, time.Since(start).Truncate(time.Millisecond))
	return res, nil
}

func (s Stage) logger() func(string, ...any) {
	if s.Logger == nil {
		return log.Printf
	}
	return s.Logger.Printf
}
