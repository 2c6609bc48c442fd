// Package retention decides which dated snapshots to delete from a backup
// destination. Policies are pure values: given the same snapshot dates and
// the same reference day they always select the same stale set.
package retention

import (
	"sort"
	"time"

	"github.com/youcefh/backsnap/internal/snapshot"
)

// Policy selects the stale snapshots among a destination's dated snapshots.
type Policy interface {
	// Stale returns the dates to delete, in ascending order. today is the
	// day the policy is evaluated against; dates may arrive in any order.
	Stale(dates []snapshot.Date, today snapshot.Date) []snapshot.Date
}

// FixedCount keeps the Max most recent snapshots and marks the rest stale.
type FixedCount struct {
	Max int
}

// GFS is grandfather-father-son tiered retention. Each tier keeps a number
// of representatives: the last Days calendar days, one snapshot per week for
// the Weeks most recent weeks (weeks begin on FirstWeekday), one per month
// for the Months most recent months, and one per year for the Years most
// recent years. A snapshot kept by any tier is kept overall.
type GFS struct {
	Years        int
	Months       int
	Weeks        int
	Days         int
	FirstWeekday time.Weekday
}

func (p FixedCount) Stale(dates []snapshot.Date, _ snapshot.Date) []snapshot.Date {
	max := p.Max
	if max < 0 {
		max = 0
	}
	sorted := sortedCopy(dates)
	if len(sorted) <= max {
		return nil
	}
	// sorted is ascending, so everything before the last max entries is stale.
	stale := sorted[:len(sorted)-max]
	return append([]snapshot.Date(nil), stale...)
}

func (p GFS) Stale(dates []snapshot.Date, today snapshot.Date) []snapshot.Date {
	sorted := sortedCopy(dates)
	keep := make(map[string]bool, len(sorted))

	// Daily tier: every snapshot within the Days-day window ending today.
	if p.Days > 0 {
		cutoff := today.AddDays(-(p.Days - 1))
		for _, d := range sorted {
			if !d.Before(cutoff) {
				keep[d.String()] = true
			}
		}
	}

	markTier(sorted, keep, p.Weeks, func(d snapshot.Date) string {
		return d.WeekStart(p.FirstWeekday).String()
	})
	markTier(sorted, keep, p.Months, func(d snapshot.Date) string {
		return snapshot.NewDate(d.Year(), d.Month(), 1).String()
	})
	markTier(sorted, keep, p.Years, func(d snapshot.Date) string {
		return snapshot.NewDate(d.Year(), time.January, 1).String()
	})

	var stale []snapshot.Date
	for _, d := range sorted {
		if !keep[d.String()] {
			stale = append(stale, d)
		}
	}
	return stale
}

// markTier keeps the earliest snapshot of each of the count most recent
// buckets. keyOf maps a date to its bucket boundary in Layout form, so
// bucket keys sort chronologically as strings.
func markTier(sorted []snapshot.Date, keep map[string]bool, count int, keyOf func(snapshot.Date) string) {
	if count <= 0 {
		return
	}

	earliest := make(map[string]snapshot.Date)
	var keys []string
	for _, d := range sorted {
		key := keyOf(d)
		if _, seen := earliest[key]; !seen {
			// sorted is ascending, so the first hit is the earliest in-bucket.
			earliest[key] = d
			keys = append(keys, key)
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > count {
		keys = keys[:count]
	}
	for _, key := range keys {
		keep[earliest[key].String()] = true
	}
}

func sortedCopy(dates []snapshot.Date) []snapshot.Date {
	sorted := append([]snapshot.Date(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Before(sorted[j])
	})
	return sorted
}
