// Package quota evaluates the per-user daily scan limit.
package quota

import "time"

// DailyScanLimit is the number of media-bearing turns allowed per UTC day.
const DailyScanLimit = 100

const dayLayout = "2006-01-02"

// Today returns the UTC calendar date used for scan accounting.
func Today(now time.Time) string {
	return now.UTC().Format(dayLayout)
}

// CanScan reports whether another scan fits under limit today. A counter
// recorded on another day does not count against today.
func CanScan(lastScanDate string, scansToday, limit int, today string) bool {
	if lastScanDate != today {
		return limit > 0
	}
	return scansToday < limit
}
