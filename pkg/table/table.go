package table

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNilRow is returned when a row collection contains a nil row
var ErrNilRow = errors.New("row must not be nil")

// FilterType identifies the kind of date filter recorded for a field
type FilterType string

const (
	// FilterExact matches a single day
	FilterExact FilterType = "exact"
	// FilterRange matches an inclusive day range
	FilterRange FilterType = "range"
)

// Filter is the last date filter applied to a field. Dates are kept as the
// caller supplied them.
type Filter struct {
	Type  FilterType `json:"type"`
	Value string     `json:"value,omitempty"`
	Start string     `json:"start,omitempty"`
	End   string     `json:"end,omitempty"`
}

// Option configures a Table
type Option func(*Table)

// WithLogger sets the logger used to report skipped filters
func WithLogger(log logrus.FieldLogger) Option {
	return func(t *Table) {
		if log != nil {
			t.log = log.WithField("component", "table")
		}
	}
}

//nolint:gochecknoglobals // Shared no-op logger
var discardLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return l
}()

// Table holds rows and field metadata and exposes a filtered view of them.
//
// A Table is immutable: Search, FilterByDate, FilterByDateRange and
// ClearFilters return a new Table and leave the receiver unchanged, so a table
// can be shared freely. Date filters narrow the current filtered rows while
// Search always starts again from the full data set.
type Table struct {
	fields      []Field
	textFields  []string
	original    []Row
	filtered    []Row
	filters     map[string]Filter
	searchQuery string
	steps       []Step
	log         logrus.FieldLogger
}

// New builds a table from rows and fields. Fields are validated eagerly.
func New(rows []Row, fields []Field, opts ...Option) (*Table, error) {
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}

	for i, row := range rows {
		if row == nil {
			return nil, fmt.Errorf("%w: row %d", ErrNilRow, i)
		}
	}

	t := &Table{
		fields:   append([]Field(nil), fields...),
		original: append(make([]Row, 0, len(rows)), rows...),
		filters:  make(map[string]Filter),
		log:      discardLogger,
	}

	for _, f := range t.fields {
		if f.Type == FieldText {
			t.textFields = append(t.textFields, f.Name)
		}
	}

	t.filtered = t.copyOriginal()

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// MustNew is like New but panics on invalid input
func MustNew(rows []Row, fields []Field, opts ...Option) *Table {
	t, err := New(rows, fields, opts...)
	if err != nil {
		panic(err)
	}

	return t
}

// Search keeps rows where any text field contains query, ignoring case.
// It always scans the full data set, replacing the result of any earlier
// search or date filter. An empty query resets the filtered rows but keeps
// the recorded date filters.
func (t *Table) Search(query string) *Table {
	next := t.clone()
	before := len(t.filtered)

	if query == "" {
		next.filtered = t.copyOriginal()
		next.searchQuery = ""

		return next.record(Step{Op: OpSearch, Outcome: OutcomeReset, Before: before, After: len(next.filtered)})
	}

	needle := strings.ToLower(query)
	result := make([]Row, 0, len(t.original))

	for _, row := range t.original {
		if t.matches(row, needle) {
			result = append(result, row)
		}
	}

	next.filtered = result
	next.searchQuery = query

	return next.record(Step{Op: OpSearch, Outcome: OutcomeApplied, Before: before, After: len(result)})
}

// FilterByDate keeps the currently filtered rows whose field falls on the
// same day as value. An unparsable value drops any filter recorded for the
// field and leaves the rows untouched.
func (t *Table) FilterByDate(field, value string) *Table {
	next := t.clone()
	before := len(t.filtered)

	target, ok := ParseDate(value)
	if !ok {
		delete(next.filters, field)
		t.logSkipped(OpFilterByDate, field, logrus.Fields{"value": value})

		return next.record(Step{Op: OpFilterByDate, Field: field, Outcome: OutcomeCleared, Before: before, After: before, Err: ErrUnparsableDate})
	}

	t.warnUnknownField(field)

	next.filtered = t.keep(field, func(d time.Time) bool {
		return sameDay(d, target)
	})
	next.filters[field] = Filter{Type: FilterExact, Value: value}

	return next.record(Step{Op: OpFilterByDate, Field: field, Outcome: OutcomeApplied, Before: before, After: len(next.filtered)})
}

// FilterByDateRange keeps the currently filtered rows whose field falls
// within [start, end], inclusive by day. Reversed bounds are swapped. If
// either bound does not parse the field filter is dropped and the rows are
// left untouched.
func (t *Table) FilterByDateRange(field, start, end string) *Table {
	next := t.clone()
	before := len(t.filtered)

	from, okFrom := ParseDate(start)
	to, okTo := ParseDate(end)

	if !okFrom || !okTo {
		delete(next.filters, field)
		t.logSkipped(OpFilterByDateRange, field, logrus.Fields{"start": start, "end": end})

		return next.record(Step{Op: OpFilterByDateRange, Field: field, Outcome: OutcomeCleared, Before: before, After: before, Err: ErrUnparsableDate})
	}

	if from.After(to) {
		from, to = to, from
	}

	t.warnUnknownField(field)

	next.filtered = t.keep(field, func(d time.Time) bool {
		return !d.Before(from) && !d.After(to)
	})
	next.filters[field] = Filter{Type: FilterRange, Start: start, End: end}

	return next.record(Step{Op: OpFilterByDateRange, Field: field, Outcome: OutcomeApplied, Before: before, After: len(next.filtered)})
}

// ClearFilters resets the filtered rows, the date filters and the search query
func (t *Table) ClearFilters() *Table {
	next := t.clone()
	next.filtered = t.copyOriginal()
	next.filters = make(map[string]Filter)
	next.searchQuery = ""

	return next.record(Step{Op: OpClearFilters, Outcome: OutcomeReset, Before: len(t.filtered), After: len(next.filtered)})
}

// FilteredData returns the rows left after the applied operations, in their original order
func (t *Table) FilteredData() []Row {
	return append([]Row(nil), t.filtered...)
}

// TotalCount returns the number of rows before filtering
func (t *Table) TotalCount() int {
	return len(t.original)
}

// FilteredCount returns the number of rows after filtering
func (t *Table) FilteredCount() int {
	return len(t.filtered)
}

// Fields returns the field metadata in display order
func (t *Table) Fields() []Field {
	return append([]Field(nil), t.fields...)
}

// Filters returns the active date filters keyed by field name
func (t *Table) Filters() map[string]Filter {
	filters := make(map[string]Filter, len(t.filters))
	for k, v := range t.filters {
		filters[k] = v
	}

	return filters
}

// SearchQuery returns the active search query as supplied by the caller
func (t *Table) SearchQuery() string {
	return t.searchQuery
}

// Steps returns every operation applied since construction
func (t *Table) Steps() []Step {
	return append([]Step(nil), t.steps...)
}

// LastStep returns the most recent operation, if any
func (t *Table) LastStep() (Step, bool) {
	if len(t.steps) == 0 {
		return Step{}, false
	}

	return t.steps[len(t.steps)-1], true
}

func (t *Table) clone() *Table {
	next := *t
	next.filters = t.Filters()
	next.steps = t.Steps()

	return &next
}

func (t *Table) record(step Step) *Table {
	t.steps = append(t.steps, step)

	return t
}

func (t *Table) copyOriginal() []Row {
	return append(make([]Row, 0, len(t.original)), t.original...)
}

func (t *Table) matches(row Row, needle string) bool {
	for _, name := range t.textFields {
		if strings.Contains(strings.ToLower(row.Value(name)), needle) {
			return true
		}
	}

	return false
}

// keep returns the filtered rows whose field parses to a date accepted by match.
// Rows with a missing or unparsable date are dropped.
func (t *Table) keep(field string, match func(time.Time) bool) []Row {
	result := make([]Row, 0, len(t.filtered))

	for _, row := range t.filtered {
		d, ok := ParseDate(row.Value(field))
		if ok && match(d) {
			result = append(result, row)
		}
	}

	return result
}

func (t *Table) logSkipped(op Op, field string, fields logrus.Fields) {
	t.log.WithFields(fields).
		WithField("op", op).
		WithField("field", field).
		Debug("Skipping date filter with unparsable date")
}

func (t *Table) warnUnknownField(field string) {
	if _, ok := lookupField(t.fields, field); !ok {
		t.log.WithField("field", field).Debug("Date filter on unknown field matches no rows")
	}
}
