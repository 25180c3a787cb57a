// Package timezone resolves wall-clock time for anything user-facing.
// Storage and scheduling stay in UTC; Kuala Lumpur is the default wherever
// a calendar date or clock leaks out (booking numbers, display times).
package timezone

import "time"

const Default = "Asia/Kuala_Lumpur"

// Location resolves tz, falling back to Kuala Lumpur on an empty or
// unknown name. A bad client preference never breaks a response.
func Location(tz string) *time.Location {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	loc, err := time.LoadLocation(Default)
	if err != nil {
		// tzdata missing from the image; UTC keeps the system running.
		return time.UTC
	}
	return loc
}

// Display converts a stored UTC instant to the wall clock of tz.
func Display(t time.Time, tz string) time.Time {
	return t.In(Location(tz))
}
