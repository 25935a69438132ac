package builder

import (
	"qmetl/internal/mapping"
	"qmetl/internal/normalize"
)

// resolveField applies one mapping entry to a row, writing at most one field
// into rec.
//
// Only direct entries (no table, no default) treat an out-of-range column as
// fatal: those columns are required by the export layout. Translate and
// default entries tolerate short rows and fall through to their configured
// fallback, the same way flag columns are tolerant.
func (b *Builder) resolveField(f *mapping.FieldSpec, row []string, line int, rec Record) error {
	raw := ""
	present := f.Column < len(row)
	if present {
		raw = row[f.Column]
	}

	switch {
	case f.Translate != nil:
		if v, ok := f.Translate[normalize.FoldKey(raw)]; ok {
			rec[f.Field] = v
		} else if f.HasDefault() {
			rec[f.Field] = f.DefaultValue()
		}
		// No match and no default: the field stays absent.

	case f.HasDefault():
		v := b.norm.Value(raw)
		if b.strictDefaults {
			// Strict mode: only a genuinely empty or missing cell takes the
			// default, so a sourced false/0 survives.
			if !present || raw == "" {
				v = f.DefaultValue()
			}
		} else if isFalsy(v) {
			// Compatible mode: any falsy normalized value takes the default.
			// A legitimate false or 0 is overwritten too; that quirk is part
			// of the established output and is kept unless strict mode is on.
			v = f.DefaultValue()
		}
		rec[f.Field] = v

	default:
		if !present {
			return &MissingColumnError{Field: f.Field, Column: f.Column, Line: line}
		}
		if raw == "" {
			// Present-but-empty omits the field entirely; downstream
			// consumers distinguish "absent" from "empty string".
			return nil
		}
		rec[f.Field] = b.norm.Value(raw)
	}

	return nil
}

// aggregateFlags collects the labels of flag columns whose cell is truthy.
// Order follows the mapping declaration, not column order. Missing columns
// count as not-true: flag columns are sparse by design.
func (b *Builder) aggregateFlags(spec mapping.FlagSpec, row []string) []string {
	labels := make([]string, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		if c.Column >= len(row) {
			continue
		}
		if b.norm.Truthy(row[c.Column]) {
			labels = append(labels, c.Label)
		}
	}
	return labels
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case int:
		return t == 0
	case float64:
		return t == 0
	}
	return false
}
