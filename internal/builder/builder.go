// Package builder turns raw CSV rows into the finished record collection.
// It is the single-pass batch core: any row-level failure aborts the whole
// build, so a run either produces a complete collection or nothing.
package builder

import (
	"fmt"

	"qmetl/internal/mapping"
	"qmetl/internal/normalize"
)

// Builder drives field resolution, flag aggregation, constant application
// and the sub-record merge across all rows of the primary export.
type Builder struct {
	mapping *mapping.File
	norm    *normalize.Normalizer

	// strictDefaults substitutes a configured default only when the source
	// cell was empty or missing, instead of whenever the normalized value
	// is falsy. Off by default for output compatibility.
	strictDefaults bool
}

// New constructs a Builder. The mapping must already be validated (see
// mapping.File.Validate); Build relies on that and does not re-check it.
func New(m *mapping.File, n *normalize.Normalizer, strictDefaults bool) *Builder {
	return &Builder{mapping: m, norm: n, strictDefaults: strictDefaults}
}

// Build produces the record collection from primary data rows, then merges
// sub-record data rows into it. Both inputs are data rows only; header rows
// are skipped by the CSV reader.
//
// Build fails on the first error: this is a batch job with no
// partial-success mode.
func (b *Builder) Build(primary, sub [][]string) ([]Record, error) {
	recs := make([]Record, 0, len(primary))

	for i, row := range primary {
		if blankRow(row) {
			// Blank separator rows appear between sections of the export.
			continue
		}

		rec, err := b.buildRecord(row, i+1)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if b.mapping.SubRecords != nil && sub != nil {
		if err := b.mergeSubRecords(recs, sub); err != nil {
			return nil, err
		}
	}

	return recs, nil
}

// buildRecord assembles one record: sourced fields first, then flag
// aggregations, then constants. Constants are applied last so they override
// any sourced value of the same name.
func (b *Builder) buildRecord(row []string, line int) (Record, error) {
	rec := make(Record, len(b.mapping.Fields)+len(b.mapping.Flags)+len(b.mapping.Constants))

	for i := range b.mapping.Fields {
		if err := b.resolveField(&b.mapping.Fields[i], row, line, rec); err != nil {
			return nil, err
		}
	}

	for _, fl := range b.mapping.Flags {
		rec[fl.Field] = b.aggregateFlags(fl, row)
	}

	for k, v := range b.mapping.Constants {
		rec[k] = v
	}

	if rec.ID(b.mapping.IDField) == "" {
		return nil, fmt.Errorf("row %d: identifying field %q is empty", line, b.mapping.IDField)
	}

	return rec, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
