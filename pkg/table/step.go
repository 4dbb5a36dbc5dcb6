package table

import "errors"

// ErrUnparsableDate marks a date filter that was skipped because a date did not parse
var ErrUnparsableDate = errors.New("date is not in DD.MM.YYYY format")

// Op names a table operation
type Op string

const (
	// OpSearch is a free-text search over text fields
	OpSearch Op = "search"
	// OpFilterByDate keeps rows matching one calendar day
	OpFilterByDate Op = "filter_by_date"
	// OpFilterByDateRange keeps rows within an inclusive day range
	OpFilterByDateRange Op = "filter_by_date_range"
	// OpClearFilters resets search and filters
	OpClearFilters Op = "clear_filters"
)

// Outcome is the typed result of a single operation
type Outcome string

const (
	// OutcomeApplied means the operation narrowed the filtered rows
	OutcomeApplied Outcome = "applied"
	// OutcomeCleared means the input was unusable: the field filter was dropped and rows were left untouched
	OutcomeCleared Outcome = "cleared"
	// OutcomeReset means the filtered rows were reset to the full data set
	OutcomeReset Outcome = "reset"
)

// Step records one operation applied to a table
type Step struct {
	Op      Op      `json:"op"`
	Field   string  `json:"field,omitempty"`
	Outcome Outcome `json:"outcome"`
	// Before and After are the filtered row counts around the operation
	Before int   `json:"before"`
	After  int   `json:"after"`
	Err    error `json:"-"`
}

// Skipped reports whether the step was a pass-through because of bad input
func (s Step) Skipped() bool {
	return s.Outcome == OutcomeCleared
}
