package file

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestCandidates(t *testing.T) {
	t.Parallel()

	got := Candidates("a.csv", "/app/input", ".", "..")
	want := []string{"/app/input/a.csv", "a.csv", "../a.csv"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d]=%q, want %q", i, got[i], want[i])
		}
	}
}

func TestFirstExisting_PicksFirstInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	second := filepath.Join(dir, "b")
	third := filepath.Join(dir, "c")
	for _, d := range []string{second, third} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(d, "x.csv"), []byte(filepath.Base(d)), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths := Candidates("x.csv", filepath.Join(dir, "missing"), second, third)
	rc, p, err := Open(paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if p != filepath.Join(second, "x.csv") || string(b) != "b" {
		t.Fatalf("picked %q (%q)", p, b)
	}
}

func TestFirstExisting_NoneFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := FirstExisting([]string{filepath.Join(dir, "nope.csv"), dir})
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("err=%v, want ErrNoCandidate", err)
	}
}

func TestCreateFirstWritable_SkipsUnwritable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bad := filepath.Join(dir, "does", "not", "exist", "out.csv")
	good := filepath.Join(dir, "out.csv")

	f, p, err := CreateFirstWritable([]string{bad, good})
	if err != nil {
		t.Fatalf("CreateFirstWritable: %v", err)
	}
	defer f.Close()
	if p != good {
		t.Fatalf("path=%q, want %q", p, good)
	}

	_, _, err = CreateFirstWritable([]string{bad})
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("err=%v, want ErrNoCandidate", err)
	}
}
