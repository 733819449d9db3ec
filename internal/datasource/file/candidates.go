// Package file resolves data files against ordered lists of candidate paths.
//
// Container deployments mount inputs under /app/input and outputs under
// /app/data; local runs fall back to the working directory and its parent.
// The first candidate that works wins.
package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoCandidate is returned when no candidate path is usable.
var ErrNoCandidate = errors.New("no candidate path available")

// Candidates joins name onto each directory, in order.
func Candidates(name string, dirs ...string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d == "" || d == "." {
			out = append(out, name)
			continue
		}
		out = append(out, filepath.Join(d, name))
	}
	return out
}

// FirstExisting returns the first candidate that exists as a regular file.
func FirstExisting(paths []string) (string, error) {
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err == nil && fi.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrNoCandidate, strings.Join(paths, ", "))
}

// Open opens the first existing candidate.
func Open(paths []string) (io.ReadCloser, string, error) {
	p, err := FirstExisting(paths)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", p, err)
	}
	return f, p, nil
}

// CreateFirstWritable creates (or truncates) the first candidate whose
// directory accepts writes. Errors from every failed candidate are joined
// under ErrNoCandidate.
func CreateFirstWritable(paths []string) (*os.File, string, error) {
	var errs []error
	for _, p := range paths {
		f, err := os.Create(p)
		if err == nil {
			return f, p, nil
		}
		errs = append(errs, err)
	}
	return nil, "", fmt.Errorf("%w: %w", ErrNoCandidate, errors.Join(errs...))
}
