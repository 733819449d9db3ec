// Package csv reads and writes the pipeline's CSV datasets.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"moviedw/internal/config"
	"moviedw/internal/transformer"
	"moviedw/internal/transformer/builtin"
)

// ErrEmptyInput is returned when the source has no header row.
var ErrEmptyInput = errors.New("csv: empty input")

// ReadTable reads a headered CSV into a Table.
//
// Options (config.Options):
//   - comma (rune, default ','), lazy_quotes (bool, default false)
//   - trim_space (bool, default true): trim cells; empty cells become nil
//   - header_map (map[string]string): rename raw headers after trimming
//
// Malformed records are skipped and reported through onErr: records the
// reader cannot parse, and records with more fields than the header.
// Records with fewer fields are padded with nil.
func ReadTable(
	ctx context.Context,
	src io.Reader,
	opt config.Options,
	onErr func(line int, err error),
) (transformer.Table, error) {
	comma := opt.Rune("comma", ',')
	trim := opt.Bool("trim_space", true)
	hm := opt.StringMap("header_map")

	cr := csv.NewReader(src)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1

	report := func(line int, err error) {
		if onErr != nil {
			onErr(line, err)
		}
	}

	hdr, err := cr.Read()
	if err == io.EOF {
		return transformer.Table{}, ErrEmptyInput
	}
	if err != nil {
		return transformer.Table{}, fmt.Errorf("csv: read header: %w", err)
	}

	cols := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if builtin.HasEdgeSpace(h) {
			h = strings.TrimSpace(h)
		}
		if mapped, ok := hm[h]; ok {
			h = mapped
		}
		cols[i] = h
	}

	t := transformer.Table{Columns: cols}
	for {
		select {
		case <-ctx.Done():
			return transformer.Table{}, ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return transformer.Table{}, fmt.Errorf("csv read: %w", err)
			}
			report(pe.StartLine, fmt.Errorf("csv read: %w", err))
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(rec) > len(cols) {
			report(line, fmt.Errorf("csv read: %d fields, header has %d", len(rec), len(cols)))
			continue
		}

		row := transformer.Row{V: make([]any, len(cols)), Line: line}
		for i := range cols {
			if i >= len(rec) {
				continue
			}
			v := rec[i]
			if trim && builtin.HasEdgeSpace(v) {
				v = strings.TrimSpace(v)
			}
			if v != "" {
				row.V[i] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
}
