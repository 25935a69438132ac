package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const measuresSchema = `
type: array
uniqueItemProperties:
  - measureId
items:
  type: object
  required:
    - measureId
    - title
  properties:
    measureId:
      type: string
    title:
      type: string
    strata:
      type: array
      items:
        type: object
        required: [name]
        properties:
          name: {type: string}
          description: {type: string}
`

func parseTestDoc(t *testing.T) *Document {
	t.Helper()
	d, err := Parse("quality-measures", 2025, []byte(measuresSchema))
	require.NoError(t, err)
	return d
}

func TestValidate_Valid(t *testing.T) {
	d := parseTestDoc(t)

	res, err := d.Validate([]any{
		map[string]any{"measureId": "M1", "title": "A"},
		map[string]any{"measureId": "M2", "title": "B", "strata": []any{
			map[string]any{"name": "S1", "description": "d"},
		}},
	})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "valid", res.Summary())
}

func TestValidate_StructuralViolation(t *testing.T) {
	d := parseTestDoc(t)

	res, err := d.Validate([]any{
		map[string]any{"measureId": "M1"}, // missing title
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Summary(), "invalid")
}

func TestValidate_DuplicateIdentifiers(t *testing.T) {
	d := parseTestDoc(t)

	res, err := d.Validate([]any{
		map[string]any{"measureId": "M1", "title": "A"},
		map[string]any{"measureId": "M2", "title": "B"},
		map[string]any{"measureId": "M1", "title": "C"},
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)

	require.Len(t, res.Errors, 1)
	v := res.Errors[0]
	assert.Equal(t, "uniqueItemProperties", v.Constraint)
	// The violation references both elements: the duplicate's path and the
	// first occurrence inside the expectation text.
	assert.Equal(t, "(root)[2]", v.Path)
	assert.Contains(t, v.Expected, "(root)[0]")
}

func TestValidate_UniqueByPropertySubset(t *testing.T) {
	doc := `
type: array
uniqueItemProperties: [firstName, lastName]
items:
  type: object
`
	d, err := Parse("people", 2025, []byte(doc))
	require.NoError(t, err)

	res, err := d.Validate([]any{
		map[string]any{"firstName": "A", "lastName": "B", "age": 1},
		map[string]any{"firstName": "A", "lastName": "C", "age": 1},
		map[string]any{"firstName": "A", "lastName": "B", "age": 2},
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "(root)[2]", res.Errors[0].Path)
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	d := parseTestDoc(t)

	in := []any{map[string]any{"measureId": "M1", "title": "A"}}
	_, err := d.Validate(in)
	require.NoError(t, err)

	assert.Equal(t, []any{map[string]any{"measureId": "M1", "title": "A"}}, in)
}

func TestRegistry_Load(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2025"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "2025", "quality-measures-schema.yaml"),
		[]byte(measuresSchema), 0o644))

	r := NewRegistry(dir)
	d, err := r.Load("quality-measures", 2025)
	require.NoError(t, err)
	assert.Equal(t, "quality-measures", d.RecordType)
	assert.Equal(t, 2025, d.Year)

	_, err = r.Load("quality-measures", 2024)
	require.Error(t, err)
}

func TestParse_BadSchema(t *testing.T) {
	_, err := Parse("x", 2025, []byte(": not yaml ["))
	require.Error(t, err)
}
