// Package mapping defines the declarative column-to-field binding that
// drives record construction. The mapping lives in a JSON file next to the
// source spreadsheets so that column layout changes never require a code
// change.
package mapping

import (
	"encoding/json"
	"fmt"

	"qmetl/internal/normalize"
)

// FieldSpec binds one output field to one source column.
//
// Three shapes are supported, mirroring how the spreadsheets are authored:
//   - column only: the cell is normalized and copied; an out-of-range column
//     is a hard failure, an empty cell omits the field.
//   - column + translate: the folded cell is looked up in the table; misses
//     fall back to the default (which may be null).
//   - column + default (no table): a falsy normalized cell is replaced by
//     the default. A legitimate false/0 is indistinguishable from "absent"
//     here and gets overwritten too; see Builder's strict mode.
type FieldSpec struct {
	Field     string          `json:"field"`
	Column    int             `json:"column"`
	Translate map[string]any  `json:"translate,omitempty"`
	Default   json.RawMessage `json:"default,omitempty"`

	defaultVal any
	hasDefault bool
}

// HasDefault reports whether the entry carries a default, including an
// explicit null default.
func (f *FieldSpec) HasDefault() bool { return f.hasDefault }

// DefaultValue returns the decoded default. Only meaningful when
// HasDefault() is true; an explicit null default decodes to nil.
func (f *FieldSpec) DefaultValue() any { return f.defaultVal }

// FlagColumn binds one checkbox-style column to a category label.
type FlagColumn struct {
	Column int    `json:"column"`
	Label  string `json:"label"`
}

// FlagSpec collapses several checkbox columns into one list field. Output
// order follows declaration order here, not column order.
type FlagSpec struct {
	Field   string       `json:"field"`
	Columns []FlagColumn `json:"columns"`
}

// SubRecordSource describes the secondary CSV whose rows attach to primary
// records by foreign key. Column layout follows the export convention:
// [foreign key, name, (unused), description, ...].
type SubRecordSource struct {
	// Field is the list field created on the parent record, e.g. "strata".
	Field string `json:"field"`

	KeyColumn         int `json:"key_column"`
	NameColumn        int `json:"name_column"`
	DescriptionColumn int `json:"description_column"`

	HeaderRows int `json:"header_rows"`

	// Source names the export for diagnostics ("quality-strata.csv").
	Source string `json:"source,omitempty"`
}

// File is one complete mapping document.
type File struct {
	// RecordType tags the output collection and selects the schema document.
	RecordType string `json:"record_type"`

	// IDField is the identifying field of a record ("measureId"). Sub-record
	// foreign keys resolve against it and publication keys derive from it.
	IDField string `json:"id_field"`

	HeaderRows int `json:"header_rows"`

	// Constants are applied to every record after sourced fields and
	// override any sourced value of the same name.
	Constants map[string]any `json:"constants,omitempty"`

	Fields     []FieldSpec      `json:"fields"`
	Flags      []FlagSpec       `json:"flags,omitempty"`
	SubRecords *SubRecordSource `json:"sub_records,omitempty"`

	// Source names the primary export for diagnostics.
	Source string `json:"source,omitempty"`
}

// Validate checks the mapping once at load time so that row processing can
// rely on it blindly.
//
// Translation-table keys must already be in folded form (lowercase, trimmed,
// no diacritics). That used to be an informal contract between config author
// and lookup code; it is enforced here instead.
func (m *File) Validate() error {
	if m.RecordType == "" {
		return fmt.Errorf("mapping: record_type is required")
	}
	if m.IDField == "" {
		return fmt.Errorf("mapping: id_field is required")
	}
	if len(m.Fields) == 0 {
		return fmt.Errorf("mapping: no field entries")
	}

	seen := make(map[string]struct{}, len(m.Fields))
	idMapped := false
	for i := range m.Fields {
		f := &m.Fields[i]
		if f.Field == "" {
			return fmt.Errorf("mapping: fields[%d] has no field name", i)
		}
		if f.Column < 0 {
			return fmt.Errorf("mapping: field %q has negative column %d", f.Field, f.Column)
		}
		if _, dup := seen[f.Field]; dup {
			return fmt.Errorf("mapping: field %q mapped twice", f.Field)
		}
		seen[f.Field] = struct{}{}
		if f.Field == m.IDField {
			idMapped = true
		}

		for k := range f.Translate {
			if k != normalize.FoldKey(k) {
				return fmt.Errorf("mapping: field %q translation key %q is not in folded (lowercase, trimmed) form", f.Field, k)
			}
		}

		if len(f.Default) > 0 {
			f.hasDefault = true
			if err := json.Unmarshal(f.Default, &f.defaultVal); err != nil {
				return fmt.Errorf("mapping: field %q default: %w", f.Field, err)
			}
		}
	}
	if !idMapped {
		return fmt.Errorf("mapping: id_field %q has no field entry", m.IDField)
	}

	for i, fl := range m.Flags {
		if fl.Field == "" {
			return fmt.Errorf("mapping: flags[%d] has no field name", i)
		}
		if len(fl.Columns) == 0 {
			return fmt.Errorf("mapping: flag field %q has no columns", fl.Field)
		}
		for _, c := range fl.Columns {
			if c.Label == "" {
				return fmt.Errorf("mapping: flag field %q column %d has no label", fl.Field, c.Column)
			}
		}
	}

	if sr := m.SubRecords; sr != nil {
		if sr.Field == "" {
			return fmt.Errorf("mapping: sub_records.field is required")
		}
		if sr.KeyColumn < 0 || sr.NameColumn < 0 || sr.DescriptionColumn < 0 {
			return fmt.Errorf("mapping: sub_records columns must be non-negative")
		}
	}

	return nil
}
