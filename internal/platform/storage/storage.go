// Package storage reads job inputs from and writes result tables to a
// bucket, with a local-directory backend for development.
package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"collector/internal/core/job"
	"collector/internal/utils/urlutil"
)

// ErrNotFound marks a missing object.
var ErrNotFound = errors.New("object not found")

// Store is the minimal bucket surface the jobs need.
type Store interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte, contentType string) error
}

// ReadInputTable loads and cleans the shared input CSV: the URL column is
// accepted under either spelling, rows without a usable http(s) URL are
// dropped, and exact duplicates are collapsed.
func ReadInputTable(ctx context.Context, store Store, spec job.Spec) ([]job.Input, error) {
	raw, err := store.ReadFile(ctx, spec.InputPath())
	if err != nil {
		return nil, fmt.Errorf("read input table %s: %w", spec.InputPath(), err)
	}

	r := csv.NewReader(strings.NewReader(string(raw)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse input table %s: %w", spec.InputPath(), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("input table %s is empty", spec.InputPath())
	}

	idCol, urlCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "fac_id_unif":
			idCol = i
		case "url":
			urlCol = i
		}
	}
	if idCol < 0 || urlCol < 0 {
		return nil, fmt.Errorf("input table %s: required columns fac_id_unif and URL not found", spec.InputPath())
	}

	seen := make(map[string]struct{})
	var inputs []job.Input
	for _, row := range rows[1:] {
		if len(row) <= idCol || len(row) <= urlCol {
			continue
		}
		in := job.Input{
			FacIDUnif: strings.TrimSpace(row[idCol]),
			URL:       strings.TrimSpace(row[urlCol]),
		}
		if in.FacIDUnif == "" || !urlutil.IsValid(in.URL) {
			continue
		}
		key := in.FacIDUnif + "\t" + in.URL
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// ReadPrompt loads the job's extraction prompt.
func ReadPrompt(ctx context.Context, store Store, spec job.Spec) (string, error) {
	raw, err := store.ReadFile(ctx, spec.PromptPath())
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", spec.PromptPath(), err)
	}
	return string(raw), nil
}

// WriteTable sanitizes, deduplicates and writes rows as a TSV with header.
func WriteTable(ctx context.Context, store Store, spec job.Spec, path string, rows [][]string) error {
	rows = DedupRows(spec, rows)

	var b strings.Builder
	b.WriteString(strings.Join(spec.Header, "\t"))
	b.WriteByte('\n')
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = SanitizeCell(cell)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	if err := store.WriteFile(ctx, path, []byte(b.String()), "text/tab-separated-values"); err != nil {
		return fmt.Errorf("write table %s: %w", path, err)
	}
	return nil
}

// cellReplacer strips the characters that would corrupt a TSV row.
var cellReplacer = strings.NewReplacer(
	"\t", " ", "\n", " ", "\r", " ",
	"\x00", " ", "\x0b", " ", "\x0c", " ",
	`"`, "'", "\\", "/",
)

const maxCellLen = 500

// SanitizeCell makes a value safe to embed in a TSV cell: control characters
// and tabs become spaces, quoting characters are defanged, whitespace is
// collapsed, and oversized values are clamped.
func SanitizeCell(v string) string {
	v = cellReplacer.Replace(v)
	v = strings.Join(strings.Fields(v), " ")
	if len(v) > maxCellLen {
		cut := v[:maxCellLen-3]
		for len(cut) > 0 {
			if r, size := utf8.DecodeLastRuneInString(cut); r != utf8.RuneError || size != 1 {
				break
			}
			cut = cut[:len(cut)-1]
		}
		v = cut + "..."
	}
	return v
}
