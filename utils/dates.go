// utils/dates.go
package utils

import "time"

// BeginningOfDay truncates t to local midnight; the dashboard's "today"
// window starts here.
func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
