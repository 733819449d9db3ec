// Package pipeline runs the cleaning stages in order and reports which
// succeeded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"moviedw/internal/cleaning"
	"moviedw/internal/config"
)

// Logger is the minimal logging interface used by the runner.
type Logger interface {
	Printf(format string, v ...any)
}

// Step is one named unit of work. Detail is whatever the step wants
// recorded in the report.
type Step struct {
	Name string
	Run  func(ctx context.Context) (detail any, err error)
}

// StageResult is the outcome of one step.
type StageResult struct {
	Name     string        `yaml:"name"`
	OK       bool          `yaml:"ok"`
	Error    string        `yaml:"error,omitempty"`
	Duration time.Duration `yaml:"duration"`
	Detail   any           `yaml:"detail,omitempty"`
}

// Report is the outcome of a run.
type Report struct {
	RunID    string        `yaml:"run_id"`
	Started  time.Time     `yaml:"started"`
	Duration time.Duration `yaml:"duration"`
	Stages   []StageResult `yaml:"stages"`

	errs []error
}

// Succeeded counts the stages that finished without error.
func (r Report) Succeeded() int {
	n := 0
	for _, s := range r.Stages {
		if s.OK {
			n++
		}
	}
	return n
}

// Summary renders "n/N stages succeeded".
func (r Report) Summary() string {
	return fmt.Sprintf("%d/%d stages succeeded", r.Succeeded(), len(r.Stages))
}

// Err joins the errors of every failed stage, or returns nil.
func (r Report) Err() error { return errors.Join(r.errs...) }

// Runner executes steps sequentially. A failing step does not stop the
// ones after it; the stages are independent files.
type Runner struct {
	RunID  string
	Logger Logger

	now func() time.Time
}

// Run executes steps in order. It stops early only when ctx is done.
func (r Runner) Run(ctx context.Context, steps []Step) Report {
	now := r.now
	if now == nil {
		now = time.Now
	}
	logf := log.Printf
	if r.Logger != nil {
		logf = r.Logger.Printf
	}

	rep := Report{RunID: r.RunID, Started: now()}
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			rep.Stages = append(rep.Stages, StageResult{Name: st.Name, Error: err.Error()})
			rep.errs = append(rep.errs, fmt.Errorf("%s: %w", st.Name, err))
			continue
		}

		start := now()
		logf("stage=%s run_id=%s starting", st.Name, r.RunID)
		detail, err := st.Run(ctx)
		res := StageResult{Name: st.Name, OK: err == nil, Duration: now().Sub(start), Detail: detail}
		if err != nil {
			res.Error = err.Error()
			rep.errs = append(rep.errs, fmt.Errorf("%s: %w", st.Name, err))
			logf("stage=%s run_id=%s failed err=%v", st.Name, r.RunID, err)
		} else {
			logf("stage=%s run_id=%s ok duration=%s", st.Name, r.RunID, res.Duration.Truncate(time.Millisecond))
		}
		rep.Stages = append(rep.Stages, res)
	}
	rep.Duration = now().Sub(rep.Started)

	for _, s := range rep.Stages {
		status := "ok"
		if !s.OK {
			status = "FAILED"
		}
		logf("report stage=%s status=%s", s.Name, status)
	}
	logf("report run_id=%s %s", r.RunID, rep.Summary())
	return rep
}

// WriteReport writes rep as YAML to path.
func WriteReport(path string, rep Report) error {
	b, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("pipeline: marshal report: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("pipeline: write report: %w", err)
	}
	return nil
}

// CleaningSteps builds the movie, user and rating cleaning steps from cfg.
// only, when set, keeps the single entity with that name or table.
func CleaningSteps(cfg config.Config, only string, logger Logger) ([]Step, error) {
	d := cleaning.Defaults{
		Score:         cfg.Cleaning.DefaultScore,
		Comment:       cfg.Cleaning.DefaultComment,
		MaxCommentLen: cfg.Cleaning.MaxCommentLen,
	}

	var steps []Step
	for _, name := range []string{"movies", "users", "ratings"} {
		cc, _ := cleaning.ForEntity(name, d)
		if only != "" && only != cc.Entity.Name && only != cc.Entity.Table {
			continue
		}
		st := cleaning.Stage{
			Config:     cc,
			InputDirs:  cfg.Paths.InputDirs,
			OutputDirs: cfg.Paths.OutputDirs,
			Parser:     cfg.Cleaning.ParserOptions(),
			Logger:     logger,
		}
		steps = append(steps, Step{
			Name: "clean_" + st.Name(),
			Run: func(ctx context.Context) (any, error) {
				return st.Run(ctx)
			},
		})
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("pipeline: unknown entity %q (movies|users|ratings)", only)
	}
	return steps, nil
}
