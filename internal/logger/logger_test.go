package logger

import (
	"strings"
	"testing"

	klog "github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Formats(t *testing.T) {
	t.Parallel()

	for _, f := range []string{"", "console", "json"} {
		z, err := New("debug", f)
		if err != nil {
			t.Fatalf("New(%q): %v", f, err)
		}
		_ = z.Sync()
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := New("loud", "json"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestStd_RoutesToZap(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	l := Std(zap.New(core))
	l.Printf("stage=%s ok", "movies")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want 1", len(entries))
	}
	if !strings.Contains(entries[0].Message, "stage=movies ok") {
		t.Fatalf("message=%q", entries[0].Message)
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	Discard{}.Printf("dropped %d", 1)
}

func TestKratos_LevelsAndFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	kl := Kratos(zap.New(core))

	if err := kl.Log(klog.LevelWarn, "msg", "slow query", "route", "/filmes", "odd"); err != nil {
		t.Fatalf("Log: %v", err)
	}
	_ = kl.Log(klog.LevelInfo)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zap.WarnLevel || e.Message != "slow query" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	fields := e.ContextMap()
	if fields["route"] != "/filmes" || fields["odd"] != "KEYVALS UNPAIRED" {
		t.Fatalf("fields=%v", fields)
	}
}
