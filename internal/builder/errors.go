package builder

import "fmt"

// MissingColumnError reports a direct-mapped field whose source column does
// not exist in a row. The two exports are fixed-width by convention, so a
// short row means the export is malformed and the run must stop.
type MissingColumnError struct {
	Field  string
	Column int
	Line   int // 1-based data-row number, after header skip
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("row %d: missing source column %d for field %q", e.Line, e.Column, e.Field)
}

// UnresolvedForeignKeyError reports a sub-record row whose foreign key
// matches no primary record. That means the two exports are out of sync;
// silently dropping the row would hide corrupt source data.
type UnresolvedForeignKeyError struct {
	Key           string
	PrimarySource string
	SubSource     string
}

func (e *UnresolvedForeignKeyError) Error() string {
	return fmt.Sprintf("sub-record key %q (from %s) matches no record in %s", e.Key, e.SubSource, e.PrimarySource)
}
