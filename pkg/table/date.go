package table

import (
	"strings"
	"time"
)

// DateLayout is the display format of all dates: DD.MM.YYYY
const DateLayout = "02.01.2006"

// parseLayout also accepts single digit days and months ("1.6.2024")
const parseLayout = "2.1.2006"

// ParseDate parses a DD.MM.YYYY string into a UTC calendar day.
// Empty, malformed and impossible dates (31.02.2024) report false.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	parsed, err := time.Parse(parseLayout, value)
	if err != nil {
		return time.Time{}, false
	}

	return parsed, true
}

// sameDay compares two dates by calendar day
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}
