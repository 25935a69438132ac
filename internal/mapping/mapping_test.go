package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFile() *File {
	return &File{
		RecordType: "quality-measures",
		IDField:    "measureId",
		HeaderRows: 2,
		Constants:  map[string]any{"category": "quality"},
		Fields: []FieldSpec{
			{Field: "title", Column: 0},
			{Field: "measureId", Column: 2},
		},
		Flags: []FlagSpec{
			{Field: "submissionMethods", Columns: []FlagColumn{{Column: 10, Label: "claims"}}},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validFile().Validate())
}

func TestValidate_RequiresIDFieldEntry(t *testing.T) {
	m := validFile()
	m.IDField = "somethingElse"
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id_field")
}

func TestValidate_RejectsUnfoldedTranslationKeys(t *testing.T) {
	m := validFile()
	m.Fields[0].Translate = map[string]any{"Intermediate Outcome": "intermediateOutcome"}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "folded")
}

func TestValidate_RejectsDuplicateFields(t *testing.T) {
	m := validFile()
	m.Fields = append(m.Fields, FieldSpec{Field: "title", Column: 5})
	require.Error(t, m.Validate())
}

func TestValidate_DecodesDefaults(t *testing.T) {
	m := validFile()
	m.Fields = append(m.Fields,
		FieldSpec{Field: "isInverse", Column: 7, Default: []byte("false")},
		FieldSpec{Field: "metricType", Column: 8, Default: []byte("null")},
	)
	require.NoError(t, m.Validate())

	inv := &m.Fields[2]
	require.True(t, inv.HasDefault())
	assert.Equal(t, false, inv.DefaultValue())

	mt := &m.Fields[3]
	require.True(t, mt.HasDefault())
	assert.Nil(t, mt.DefaultValue())

	// No default configured at all.
	assert.False(t, m.Fields[0].HasDefault())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.json")

	doc := `{
		"record_type": "quality-measures",
		"id_field": "measureId",
		"header_rows": 2,
		"fields": [
			{"field": "title", "column": 0},
			{"field": "measureId", "column": 2},
			{"field": "measureType", "column": 5, "translate": {"process": "process"}, "default": null}
		],
		"sub_records": {"field": "strata", "key_column": 0, "name_column": 1, "description_column": 3, "header_rows": 2}
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "quality-measures", m.RecordType)
	assert.Equal(t, 3, len(m.Fields))
	require.NotNil(t, m.SubRecords)
	assert.Equal(t, "strata", m.SubRecords.Field)

	// Explicit null default survives loading.
	mt := &m.Fields[2]
	assert.True(t, mt.HasDefault())
	assert.Nil(t, mt.DefaultValue())
}

func TestLoad_BadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
