// Package snapshot models completed backups as dated directories under a
// destination root. A snapshot's identity is its directory name in the
// canonical YYYY-MM-DD form.
package snapshot

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Layout is the canonical directory-name form of a snapshot date.
const Layout = "2006-01-02"

// Date is a calendar date with no time component, in the local zone.
type Date struct {
	t time.Time
}

// NewDate builds a Date from its calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.Local)}
}

// Today returns the current calendar date.
func Today() Date {
	return FromTime(time.Now())
}

// FromTime truncates a time.Time to its calendar date.
func FromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a directory base name in the Layout form. Names that are
// not valid calendar dates (e.g. "2020-13-40", "notadate") fail.
func ParseDate(name string) (Date, error) {
	t, err := time.ParseInLocation(Layout, name, time.Local)
	if err != nil {
		return Date{}, err
	}
	// time.Parse normalizes out-of-range components; reject anything that
	// does not round-trip to the same name.
	d := FromTime(t)
	if d.String() != name {
		return Date{}, &time.ParseError{Layout: Layout, Value: name, Message: ": day out of range"}
	}
	return d, nil
}

// String returns the canonical directory name for the date.
func (d Date) String() string {
	return d.t.Format(Layout)
}

// Time exposes the date as a time.Time at midnight local time.
func (d Date) Time() time.Time { return d.t }

// Year returns the calendar year.
func (d Date) Year() int { return d.t.Year() }

// Month returns the calendar month.
func (d Date) Month() time.Month { return d.t.Month() }

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return FromTime(d.t.AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Equal reports whether two dates name the same day.
func (d Date) Equal(other Date) bool { return d.String() == other.String() }

// WeekStart returns the most recent day on or before d that falls on
// firstWeekday, i.e. the boundary of the week containing d.
func (d Date) WeekStart(firstWeekday time.Weekday) Date {
	offset := (int(d.Weekday()) - int(firstWeekday) + 7) % 7
	return d.AddDays(-offset)
}

// List scans backupDir for direct child directories whose base name parses
// as a snapshot date and returns the dates in ascending order. A missing or
// non-directory backupDir yields an empty list; misnamed children and plain
// files are skipped.
func List(backupDir string) []Date {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return nil
	}

	var dates []Date
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		d, err := ParseDate(entry.Name())
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}

// Dir returns the on-disk path of the snapshot for date d under backupDir.
func Dir(backupDir string, d Date) string {
	return filepath.Join(backupDir, d.String())
}
