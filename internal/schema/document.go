// Package schema validates finished record collections against versioned
// structural schema documents.
//
// Schema documents are YAML (human-editable, diff-friendly) laid out by
// performance year and record type:
//
//	<dir>/<year>/<record-type>-schema.yaml
//
// Structural validation is standard JSON Schema. On top of that, documents
// may use one custom keyword, "uniqueItemProperties": an array whose
// elements must be unique with respect to a named subset of properties.
// Record identifiers must be unique across the whole collection, and plain
// JSON Schema cannot express that.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Registry locates schema documents on disk.
type Registry struct {
	Dir string
}

func NewRegistry(dir string) *Registry {
	return &Registry{Dir: dir}
}

// Load reads and compiles the schema document for (recordType, year).
func (r *Registry) Load(recordType string, year int) (*Document, error) {
	path := filepath.Join(r.Dir, strconv.Itoa(year), recordType+"-schema.yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema document: %w", err)
	}

	d, err := Parse(recordType, year, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Document is one compiled schema document.
type Document struct {
	RecordType string
	Year       int

	root     any
	compiled *gojsonschema.Schema
}

// Parse decodes a YAML schema document and compiles its structural part.
// The uniqueItemProperties keyword is unknown to the compiler and ignored
// there; Validate applies it separately.
func Parse(recordType string, year int, b []byte) (*Document, error) {
	var root any
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("parse schema yaml: %w", err)
	}
	root = jsonify(root)

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(root))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Document{
		RecordType: recordType,
		Year:       year,
		root:       root,
		compiled:   compiled,
	}, nil
}

// jsonify converts a decoded YAML tree into a JSON-compatible one. yaml.v3
// produces string-keyed maps for conventional documents; non-string keys
// are stringified rather than rejected.
func jsonify(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = jsonify(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = jsonify(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = jsonify(val)
		}
		return out
	default:
		return v
	}
}
