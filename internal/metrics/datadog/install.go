package datadog

import (
	"context"
	"time"

	"moviedw/internal/metrics"
)

// Install activates the metrics backend named by backend ("", "none",
// "datadog" or "dd") and returns the function that flushes and closes it.
// A backend that fails to start leaves metrics disabled; the run goes on.
func Install(ctx context.Context, backend, job, tagsCSV string, logf func(string, ...any)) func() {
	switch backend {
	case "", "none":
		return func() {}
	case "datadog", "dd":
	default:
		logf("metrics: unknown backend %q; metrics disabled", backend)
		return func() {}
	}

	tags := ParseTagsCSV(tagsCSV)
	b, err := NewBackend(ctx, Options{JobName: job, Tags: tags, FlushEvery: 60 * time.Second})
	if err != nil {
		logf("metrics: failed to init datadog backend: %v; using nop", err)
		return func() {}
	}
	logf("metrics: backend=datadog job_name=%s tags=%v", job, tags)
	metrics.SetBackend(b)
	return func() {
		if err := b.Close(); err != nil {
			logf("metrics: datadog close/flush error: %v", err)
		}
		metrics.SetBackend(nil)
	}
}
