package builder

// Record is one fully-built output entity: sourced fields, constants, flag
// aggregations, and optionally an attached sub-record list. Keeping it a
// plain map means the JSON boundary is the data model; there is no separate
// serialization step to drift.
type Record map[string]any

// SubRecord is a child row (e.g. a performance-rate stratum) attached to
// exactly one Record via its foreign key.
type SubRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ID returns the record's identifying value under field, or "" when the
// field is absent or not a string.
func (r Record) ID(field string) string {
	s, _ := r[field].(string)
	return s
}
