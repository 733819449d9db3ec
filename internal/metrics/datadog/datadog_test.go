package datadog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"moviedw/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last() datadogV2.MetricPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payloads[len(f.payloads)-1]
}

func newTestBackend(t *testing.T, sub *fakeSubmitter) *Backend {
	t.Helper()
	b, err := NewBackend(context.Background(), Options{
		JobName:   "load",
		Tags:      []string{"team:data"},
		now:       func() time.Time { return time.Unix(1700000000, 0) },
		newTicker: func(time.Duration) *time.Ticker { return time.NewTicker(time.Hour) },
		submitter: sub,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b
}

func seriesByMetric(p datadogV2.MetricPayload) map[string][]datadogV2.MetricSeries {
	out := map[string][]datadogV2.MetricSeries{}
	for _, s := range p.Series {
		out[s.Metric] = append(out[s.Metric], s)
	}
	return out
}

func TestResolveEnvTag(t *testing.T) {
	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV_wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV_used_when_ENV_empty", env: "", dd: "stage", want: "env:stage"},
		{name: "whitespace_ignored", env: "   ", dd: "\t", want: "env:unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ENV", tc.env)
			t.Setenv("DD_ENV", tc.dd)
			if got := resolveEnvTag(); got != tc.want {
				t.Fatalf("resolveEnvTag()=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestFlush_SubmitsAndResets(t *testing.T) {
	t.Setenv("ENV", "test")
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer b.Close()

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "ratings", "status": "ok"})
	b.IncCounter(metrics.RecordsTotal, 30, metrics.Labels{"kind": "ratings_remapped"})
	b.IncCounter(metrics.BatchesTotal, 2, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, 1.5, metrics.Labels{"step": "ratings", "status": "ok"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if sub.count() != 1 {
		t.Fatalf("submissions=%d, want 1", sub.count())
	}

	got := seriesByMetric(sub.last())
	step := got["moviedw.step.total"]
	if len(step) != 1 || *step[0].Points[0].Value != 1 {
		t.Fatalf("step series=%v", step)
	}
	wantTags := []string{"env:test", "job:load", "team:data", "step:ratings", "status:ok"}
	if !reflect.DeepEqual(step[0].Tags, wantTags) {
		t.Fatalf("tags=%v, want %v", step[0].Tags, wantTags)
	}
	if rec := got["moviedw.records.total"]; len(rec) != 1 || *rec[0].Points[0].Value != 30 {
		t.Fatalf("records series=%v", rec)
	}
	if _, ok := got["moviedw.batches.total"]; !ok {
		t.Fatalf("missing batches series")
	}
	if p50 := got["moviedw.step.duration_seconds.p50"]; len(p50) != 1 || *p50[0].Points[0].Value != 1.5 {
		t.Fatalf("p50 series=%v", p50)
	}
	if *step[0].Points[0].Timestamp != 1700000000 {
		t.Fatalf("timestamp=%d", *step[0].Points[0].Timestamp)
	}

	// Buffers were reset: a second flush submits nothing.
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if sub.count() != 1 {
		t.Fatalf("submissions after empty flush=%d, want 1", sub.count())
	}
}

func TestFlush_WrapsSubmitError(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("403 forbidden")}
	b := newTestBackend(t, sub)
	defer b.Close()

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "movies", "status": "error"})
	err := b.Flush()
	if err == nil || !strings.Contains(err.Error(), "datadog submit") {
		t.Fatalf("err=%v, want datadog submit error", err)
	}
}

func TestIgnoresUnknownAndInvalidSamples(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)

	b.IncCounter("something_else", 1, nil)
	b.IncCounter(metrics.StepTotal, 0, nil)
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{})
	b.ObserveHistogram(metrics.StepDurationSeconds, -1, nil)
	b.ObserveHistogram("other_histogram", 3, nil)

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sub.count() != 0 {
		t.Fatalf("submissions=%d, want 0", sub.count())
	}
}

func TestClose_FlushesTail(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "views", "status": "ok"})

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sub.count() != 1 {
		t.Fatalf("submissions=%d, want 1", sub.count())
	}
}

func TestStepStatusKeyRoundTrip(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ step, status string }{{"ddl", "ok"}, {"", "ok"}, {"load", ""}} {
		step, status := splitStepStatusKey(stepStatusKey(tc.step, tc.status))
		if step != tc.step || status != tc.status {
			t.Fatalf("roundtrip got=(%q,%q), want=(%q,%q)", step, status, tc.step, tc.status)
		}
	}
	if step, status := splitStepStatusKey("no-sep"); step != "no-sep" || status != "unknown" {
		t.Fatalf("splitStepStatusKey()=(%q,%q)", step, status)
	}
}

func TestPercentileNearestRank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    []float64
		p    float64
		want float64
	}{
		{name: "empty", s: nil, p: 0.50, want: 0},
		{name: "single", s: []float64{7}, p: 0.95, want: 7},
		{name: "p_le_0", s: []float64{1, 2, 3}, p: -1, want: 1},
		{name: "p_ge_1", s: []float64{1, 2, 3}, p: 2, want: 3},
		{name: "median", s: []float64{1, 2, 3, 4, 5}, p: 0.50, want: 3},
	}
	for _, tc := range tests {
		if got := percentileNearestRank(tc.s, tc.p); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAddPercentiles_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []float64{5, 1, 3, 2, 4}
	var series []datadogV2.MetricSeries
	addPercentiles(&series, []string{"env:test"}, "moviedw.step.duration_seconds", stepStatusKey("load", "ok"), in, 1)

	if len(series) != 6 {
		t.Fatalf("series=%d, want 6", len(series))
	}
	if !reflect.DeepEqual(in, []float64{5, 1, 3, 2, 4}) {
		t.Fatalf("input mutated: %v", in)
	}
	if series[4].Metric != "moviedw.step.duration_seconds.max" || *series[4].Points[0].Value != 5 {
		t.Fatalf("max series=%v", series[4])
	}
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	if got := ParseTagsCSV(""); got != nil {
		t.Fatalf("empty=%v", got)
	}
	got := ParseTagsCSV(" env:prod, ,team:data ")
	if !reflect.DeepEqual(got, []string{"env:prod", "team:data"}) {
		t.Fatalf("ParseTagsCSV=%v", got)
	}
}

func TestWrapInitErr(t *testing.T) {
	t.Parallel()

	if wrapInitErr(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	in := errors.New("boom")
	if got := wrapInitErr(in); !errors.Is(got, in) || !strings.Contains(got.Error(), "datadog metrics init:") {
		t.Fatalf("wrapInitErr=%v", got)
	}
}

func TestInstall_DisabledBackendsAreNoops(t *testing.T) {
	for _, name := range []string{"", "none", "prometheus"} {
		var logged []string
		closeFn := Install(context.Background(), name, "moviedw_test", "", func(f string, a ...any) {
			logged = append(logged, fmt.Sprintf(f, a...))
		})
		closeFn()
		if name == "prometheus" {
			if len(logged) != 1 || !strings.Contains(logged[0], "unknown backend") {
				t.Fatalf("backend %q: logs=%v", name, logged)
			}
		} else if len(logged) != 0 {
			t.Fatalf("backend %q: unexpected logs %v", name, logged)
		}
	}
}
