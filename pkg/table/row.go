package table

// Row is one denormalized record. Value returns an empty string for fields the
// row does not carry.
type Row interface {
	Value(field string) string
}

// MapRow is a Row backed by a plain map
type MapRow map[string]string

// Value returns the value stored under field
func (r MapRow) Value(field string) string {
	return r[field]
}

// RowsFromMaps converts plain maps into rows
func RowsFromMaps(maps []map[string]string) []Row {
	rows := make([]Row, len(maps))
	for i, m := range maps {
		rows[i] = MapRow(m)
	}

	return rows
}
