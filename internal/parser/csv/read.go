// Package csv reads spreadsheet exports into positional string rows.
//
// Unlike header-named CSV ingestion, these exports are addressed by column
// index: the human-readable header rows (typically two of them) carry merged
// cells and annotations and are skipped, and the mapping configuration binds
// indexes to fields.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Options controls how an export is read.
type Options struct {
	// HeaderRows is the number of leading rows to discard.
	HeaderRows int

	// Comma is the field delimiter; zero means ','.
	Comma rune

	// TrimSpace trims each cell. Exports routinely carry stray padding.
	TrimSpace bool

	// LazyQuotes tolerates bare quotes inside fields, which some spreadsheet
	// tools emit.
	LazyQuotes bool
}

// ReadFile reads a whole export into memory. These files are small (hundreds
// of rows); the batch model keeps the run single-pass and deterministic.
func ReadFile(path string, opt Options) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	rows, err := Read(f, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// Read reads all data rows from r, skipping opt.HeaderRows leading rows.
// Rows keep their source width; short rows are NOT padded, so callers see
// missing columns as out-of-range indexes.
func Read(r io.Reader, opt Options) ([][]string, error) {
	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	var (
		rows [][]string
		line int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv read at line %d: %w", line+1, err)
		}
		line++
		if line <= opt.HeaderRows {
			continue
		}

		row := make([]string, len(rec))
		for i, v := range rec {
			// A UTF-8 BOM only survives to here when no header rows are
			// skipped ahead of the data.
			if line == 1 && i == 0 {
				v = strings.TrimPrefix(v, "\uFEFF")
			}
			if opt.TrimSpace && hasEdgeSpace(v) {
				v = strings.TrimSpace(v)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
}

func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(first) || unicode.IsSpace(last)
}
