package spec

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseDate accepts the date shapes found in the index and timeline files:
// plain dates, ISO timestamps with or without zone, and git's iso format.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == Defaults.DateDisplay {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
