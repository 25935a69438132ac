package builder

import "strings"

// mergeSubRecords attaches secondary-export rows to their parent records by
// foreign key. This mutates recs in place; callers must treat the input
// collection as consumed.
func (b *Builder) mergeSubRecords(recs []Record, rows [][]string) error {
	sr := b.mapping.SubRecords

	for _, row := range rows {
		key := ""
		if sr.KeyColumn < len(row) {
			key = strings.TrimSpace(row[sr.KeyColumn])
		}
		if key == "" {
			// Blank separator row.
			continue
		}

		parent := findRecord(recs, b.mapping.IDField, key)
		if parent == nil {
			return &UnresolvedForeignKeyError{
				Key:           key,
				PrimarySource: b.mapping.Source,
				SubSource:     sr.Source,
			}
		}

		child := SubRecord{
			Name:        strings.TrimSpace(cellAt(row, sr.NameColumn)),
			Description: strings.TrimSpace(cellAt(row, sr.DescriptionColumn)),
		}

		list, _ := parent[sr.Field].([]SubRecord)
		parent[sr.Field] = append(list, child)
	}

	return nil
}

// findRecord returns the first record whose identifying field equals key.
// Identifying values are assumed unique; the validator enforces that on the
// finished collection.
func findRecord(recs []Record, idField, key string) Record {
	for _, r := range recs {
		if r.ID(idField) == key {
			return r
		}
	}
	return nil
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
