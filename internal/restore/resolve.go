package restore

import (
	"fmt"
	"time"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
)

// dateLayouts are the human-entered forms show/validate/restore/delete
// accept for DATE, tried in order; catalog.TimeFromID's own layout is
// tried first since it is also a valid, unambiguous DATE argument.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses a DATE argument in any of the accepted forms.
func ParseDate(s string) (time.Time, error) {
	if t, err := catalog.TimeFromID(s); err == nil {
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("restore: %q is not a recognized date", s)
}

// FindRecord resolves a DATE argument (empty meaning "the latest DONE
// record") against list, which must be sorted descending by start
// time the way catalog.List returns it. A non-empty DATE selects the
// most recent DONE record whose start time is at or before it; a
// date-only DATE ("2006-01-02") covers the whole of that day.
func FindRecord(list []*catalog.Record, dateArg string) (*catalog.Record, error) {
	if dateArg == "" {
		for _, r := range list {
			if r.Status == catalog.StatusDone {
				return r, nil
			}
		}
		return nil, fmt.Errorf("restore: no DONE backup found in catalog")
	}

	target, err := ParseDate(dateArg)
	if err != nil {
		return nil, err
	}
	if _, err := time.Parse("2006-01-02", dateArg); err == nil {
		target = target.Add(24*time.Hour - time.Nanosecond)
	}
	for _, r := range list {
		if r.Status != catalog.StatusDone {
			continue
		}
		if !r.StartTime.After(target) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("restore: no DONE backup found at or before %s", dateArg)
}
