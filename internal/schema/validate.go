package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Violation is one schema failure, structured for tooling.
type Violation struct {
	Path       string `json:"path"`
	Constraint string `json:"constraint"`
	Expected   string `json:"expected"`
	Actual     any    `json:"actual,omitempty"`
}

// Result is the outcome of validating one document. The validator reports
// every problem it finds rather than stopping at the first.
type Result struct {
	Valid  bool        `json:"valid"`
	Errors []Violation `json:"errors,omitempty"`
}

// Summary renders a one-line human-readable verdict.
func (r *Result) Summary() string {
	if r.Valid {
		return "valid"
	}
	return fmt.Sprintf("invalid: %d schema violation(s), first: %s: %s",
		len(r.Errors), r.Errors[0].Path, r.Errors[0].Expected)
}

// ValidationError wraps a failed Result as an error so callers can abort
// and still reach every individual violation through errors.As.
type ValidationError struct {
	RecordType string
	Year       int
	Result     *Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s/%d: %s", e.RecordType, e.Year, e.Result.Summary())
}

// Validate checks doc against the document's structural schema and its
// uniqueItemProperties constraints. It is read-only: doc is serialized to
// JSON up front and never mutated.
func (d *Document) Validate(doc any) (*Result, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}

	res, err := d.compiled.Validate(gojsonschema.NewBytesLoader(b))
	if err != nil {
		return nil, fmt.Errorf("schema validate: %w", err)
	}

	out := &Result{Valid: true}
	for _, e := range res.Errors() {
		out.Errors = append(out.Errors, Violation{
			Path:       e.Field(),
			Constraint: e.Type(),
			Expected:   e.Description(),
			Actual:     e.Value(),
		})
	}

	// Uniqueness runs on a private decoded copy so the caller's structures
	// are untouched.
	var inst any
	if err := json.Unmarshal(b, &inst); err != nil {
		return nil, fmt.Errorf("decode document copy: %w", err)
	}
	walkUnique(d.root, inst, "(root)", &out.Errors)

	out.Valid = len(out.Errors) == 0
	return out, nil
}

// walkUnique descends schema and instance in parallel, applying any
// uniqueItemProperties keyword it finds to the array at the same location.
// Only "items" and "properties" affect instance location, which covers the
// document shapes these schemas use.
func walkUnique(schemaNode, instNode any, path string, errs *[]Violation) {
	sm, ok := schemaNode.(map[string]any)
	if !ok {
		return
	}

	if rawProps, ok := sm["uniqueItemProperties"].([]any); ok {
		if arr, ok := instNode.([]any); ok {
			props := make([]string, 0, len(rawProps))
			for _, p := range rawProps {
				if s, ok := p.(string); ok {
					props = append(props, s)
				}
			}
			checkUnique(arr, props, path, errs)
		}
	}

	if items, ok := sm["items"].(map[string]any); ok {
		if arr, ok := instNode.([]any); ok {
			for i, el := range arr {
				walkUnique(items, el, fmt.Sprintf("%s[%d]", path, i), errs)
			}
		}
	}

	if propSchemas, ok := sm["properties"].(map[string]any); ok {
		if obj, ok := instNode.(map[string]any); ok {
			for name, sub := range propSchemas {
				if v, present := obj[name]; present {
					walkUnique(sub, v, path+"."+name, errs)
				}
			}
		}
	}
}

// checkUnique reports every element whose property subset duplicates an
// earlier element's. The violation references both elements.
func checkUnique(arr []any, props []string, path string, errs *[]Violation) {
	if len(props) == 0 {
		return
	}

	seen := make(map[string]int, len(arr))
	for i, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}

		parts := make([]string, len(props))
		for j, p := range props {
			v, present := obj[p]
			if !present {
				parts[j] = "\x00absent"
				continue
			}
			b, err := json.Marshal(v)
			if err != nil {
				parts[j] = fmt.Sprint(v)
				continue
			}
			parts[j] = string(b)
		}
		key := strings.Join(parts, "\x1f")

		if first, dup := seen[key]; dup {
			*errs = append(*errs, Violation{
				Path:       fmt.Sprintf("%s[%d]", path, i),
				Constraint: "uniqueItemProperties",
				Expected: fmt.Sprintf("elements unique by [%s]; duplicates element %s[%d]",
					strings.Join(props, ", "), path, first),
				Actual: strings.Join(parts, ", "),
			})
			continue
		}
		seen[key] = i
	}
}
