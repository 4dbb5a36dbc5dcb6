package table

import "strings"

// Request parameter names understood by ParseQuery
const (
	ParamSearch    = "search"
	ParamDateField = "date_field"
	ParamDate      = "date"
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
)

// QueryStep is one recorded operation of a Query
type QueryStep struct {
	Op    Op
	Field string
	Value string
	Start string
	End   string
}

// Query is an ordered list of table operations that can be applied to any table
type Query struct {
	steps []QueryStep
}

// NewQuery returns an empty query
func NewQuery() *Query {
	return &Query{}
}

// Search appends a free-text search
func (q *Query) Search(query string) *Query {
	q.steps = append(q.steps, QueryStep{Op: OpSearch, Value: query})

	return q
}

// FilterByDate appends an exact date filter
func (q *Query) FilterByDate(field, value string) *Query {
	q.steps = append(q.steps, QueryStep{Op: OpFilterByDate, Field: field, Value: value})

	return q
}

// FilterByDateRange appends a date range filter
func (q *Query) FilterByDateRange(field, start, end string) *Query {
	q.steps = append(q.steps, QueryStep{Op: OpFilterByDateRange, Field: field, Start: start, End: end})

	return q
}

// Steps returns the recorded operations in order
func (q *Query) Steps() []QueryStep {
	return append([]QueryStep(nil), q.steps...)
}

// Empty reports whether the query has no operations
func (q *Query) Empty() bool {
	return len(q.steps) == 0
}

// Apply runs the recorded operations against t in order and returns the result
func (q *Query) Apply(t *Table) *Table {
	for _, step := range q.steps {
		switch step.Op {
		case OpSearch:
			t = t.Search(step.Value)
		case OpFilterByDate:
			t = t.FilterByDate(step.Field, step.Value)
		case OpFilterByDateRange:
			t = t.FilterByDateRange(step.Field, step.Start, step.End)
		case OpClearFilters:
			t = t.ClearFilters()
		}
	}

	return t
}

// ParseQuery builds the report request pipeline from request parameters:
// search first, then either an exact date filter (when "date" is given) or a
// range filter on date_field. Without date_field no date filter is applied.
func ParseQuery(get func(key string) string) *Query {
	q := NewQuery()

	// The search text is matched as given, spaces included
	if search := get(ParamSearch); search != "" {
		q.Search(search)
	}

	field := strings.TrimSpace(get(ParamDateField))
	if field == "" {
		return q
	}

	if date := strings.TrimSpace(get(ParamDate)); date != "" {
		return q.FilterByDate(field, date)
	}

	start := strings.TrimSpace(get(ParamStartDate))
	end := strings.TrimSpace(get(ParamEndDate))

	if start != "" || end != "" {
		q.FilterByDateRange(field, start, end)
	}

	return q
}
