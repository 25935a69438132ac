// Package inspect samples a spreadsheet export and summarizes its columns,
// which is the groundwork for authoring a new column mapping: it reports per
// column how cells normalize, how many rows fill it, and how many distinct
// values it holds, and points out checkbox-style columns that belong in a
// flag aggregation.
package inspect

import (
	"fmt"
	"strings"

	"qmetl/internal/normalize"
)

// distinctCap bounds per-column distinct tracking so a high-cardinality
// column (titles, descriptions) cannot grow the report run unbounded.
const distinctCap = 1000

const maxSamples = 3

// ColumnReport summarizes one column of the export.
type ColumnReport struct {
	Index int

	// Kind is the dominant normalized class of the column's non-empty
	// cells: "boolean", "number", "null", "text", or "mixed". A column
	// with no values at all reports "empty".
	Kind string

	// Filled counts rows with a non-empty cell in this column.
	Filled int

	// Distinct counts distinct raw values, capped at distinctCap.
	Distinct int
	Capped   bool

	// Samples holds up to three distinct example values in row order.
	Samples []string
}

// Report summarizes a whole export.
type Report struct {
	Rows    int
	Columns []ColumnReport
}

// Columns builds a Report from data rows. Rows may be ragged; a short row
// simply does not contribute to the columns it lacks.
func Columns(rows [][]string, norm *normalize.Normalizer) *Report {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	rep := &Report{Rows: len(rows), Columns: make([]ColumnReport, width)}

	for col := 0; col < width; col++ {
		cr := ColumnReport{Index: col}
		kinds := map[string]int{}
		distinct := map[string]struct{}{}

		for _, r := range rows {
			if col >= len(r) {
				continue
			}
			raw := strings.TrimSpace(r[col])
			if raw == "" {
				continue
			}
			cr.Filled++
			kinds[kindOf(norm.Value(raw))]++

			if !cr.Capped {
				if _, dup := distinct[raw]; !dup {
					distinct[raw] = struct{}{}
					if len(cr.Samples) < maxSamples {
						cr.Samples = append(cr.Samples, raw)
					}
					if len(distinct) >= distinctCap {
						cr.Capped = true
						distinct = nil
					}
				}
			}
		}

		if cr.Capped {
			cr.Distinct = distinctCap
		} else {
			cr.Distinct = len(distinct)
		}
		cr.Kind = dominantKind(kinds)
		rep.Columns[col] = cr
	}

	return rep
}

// FlagCandidates returns the indexes of columns whose every non-empty cell
// normalizes to boolean. These are the checkbox columns a mapping should
// collapse into a flag aggregation rather than bind one by one.
func (r *Report) FlagCandidates() []int {
	var out []int
	for _, c := range r.Columns {
		if c.Kind == "boolean" && c.Filled > 0 {
			out = append(out, c.Index)
		}
	}
	return out
}

// Render formats the report as an aligned text table for terminal output.
func (r *Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rows=%d columns=%d\n", r.Rows, len(r.Columns))
	fmt.Fprintf(&b, "%-6s %-8s %-8s %-9s %s\n", "col", "kind", "filled", "distinct", "samples")

	for _, c := range r.Columns {
		distinct := fmt.Sprintf("%d", c.Distinct)
		if c.Capped {
			distinct += "+"
		}
		fmt.Fprintf(&b, "%-6d %-8s %-8d %-9s %s\n",
			c.Index, c.Kind, c.Filled, distinct, strings.Join(c.Samples, " | "))
	}

	if cands := r.FlagCandidates(); len(cands) > 0 {
		idx := make([]string, len(cands))
		for i, c := range cands {
			idx[i] = fmt.Sprintf("%d", c)
		}
		fmt.Fprintf(&b, "flag candidates: columns %s\n", strings.Join(idx, ", "))
	}

	return b.String()
}

func kindOf(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case int:
		return "number"
	case nil:
		return "null"
	default:
		return "text"
	}
}

// dominantKind reports the sole observed kind, or "mixed" when a column
// carries more than one. Boolean-plus-text columns are common in hand-edited
// exports and deserve the "mixed" warning.
func dominantKind(kinds map[string]int) string {
	switch len(kinds) {
	case 0:
		return "empty"
	case 1:
		for k := range kinds {
			return k
		}
	}
	return "mixed"
}
