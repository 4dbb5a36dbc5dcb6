package table

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Snapshot is the serializable state of a table
type Snapshot struct {
	Data          []SnapshotRow     `json:"data"`
	Fields        []Field           `json:"fields"`
	TotalCount    int               `json:"total_count"`
	FilteredCount int               `json:"filtered_count"`
	Filters       map[string]Filter `json:"filters"`
	SearchQuery   string            `json:"search_query"`
}

// SnapshotRow is one filtered row with its 1-based position. It encodes as a
// JSON object with row_number first, followed by the fields in display order.
type SnapshotRow struct {
	RowNumber int
	Names     []string
	Values    []string
}

// Get returns the value of the named field
func (r SnapshotRow) Get(name string) string {
	for i, n := range r.Names {
		if n == name {
			return r.Values[i]
		}
	}

	return ""
}

// MarshalJSON implements json.Marshaler
func (r SnapshotRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(`{"` + RowNumberKey + `":`)
	buf.WriteString(strconv.Itoa(r.RowNumber))

	for i, name := range r.Names {
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, err
		}

		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// ToDict builds the JSON response form of the table. Row numbers reflect the
// position within the current filtered rows.
func (t *Table) ToDict() Snapshot {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.Name
	}

	data := make([]SnapshotRow, len(t.filtered))
	for i, row := range t.filtered {
		values := make([]string, len(names))
		for j, name := range names {
			values[j] = row.Value(name)
		}

		data[i] = SnapshotRow{
			RowNumber: i + 1,
			Names:     names,
			Values:    values,
		}
	}

	return Snapshot{
		Data:          data,
		Fields:        t.Fields(),
		TotalCount:    t.TotalCount(),
		FilteredCount: t.FilteredCount(),
		Filters:       t.Filters(),
		SearchQuery:   t.searchQuery,
	}
}
