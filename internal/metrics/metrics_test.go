package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	samples  map[string]int
	flushes  int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{counters: map[string]float64{}, samples: map[string]int{}}
}

func (b *recordingBackend) IncCounter(name string, delta float64, labels Labels) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counters[name+"|"+labels["step"]+labels["kind"]+"|"+labels["status"]] += delta
}

func (b *recordingBackend) ObserveHistogram(name string, value float64, labels Labels) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples[name+"|"+labels["step"]+"|"+labels["status"]]++
}

func (b *recordingBackend) Flush() error {
	b.flushes++
	return nil
}

func TestFacade_RoutesToInstalledBackend(t *testing.T) {
	b := newRecordingBackend()
	SetBackend(b)
	t.Cleanup(func() { SetBackend(nil) })

	RecordStep("ratings", time.Now(), nil)
	RecordStep("ratings", time.Now(), errors.New("boom"))
	AddRecords("ratings_read", 10)
	AddRecords("ratings_read", 0)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if got := b.counters[StepTotal+"|ratings|ok"]; got != 1 {
		t.Fatalf("ok steps=%v, want 1", got)
	}
	if got := b.counters[StepTotal+"|ratings|error"]; got != 1 {
		t.Fatalf("error steps=%v, want 1", got)
	}
	if got := b.counters[RecordsTotal+"|ratings_read|"]; got != 10 {
		t.Fatalf("records=%v, want 10", got)
	}
	if b.samples[StepDurationSeconds+"|ratings|ok"] != 1 {
		t.Fatalf("duration samples=%v", b.samples)
	}
	if b.flushes != 1 {
		t.Fatalf("flushes=%d, want 1", b.flushes)
	}
}

func TestFacade_NilRestoresNop(t *testing.T) {
	SetBackend(nil)
	IncCounter(StepTotal, 1, nil)
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush: %v", err)
	}
}
