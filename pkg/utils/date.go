package utils

import (
	"log"
	"time"
)

// TimeNowET returns the current time in US Eastern time, the reference
// timezone for US market data.
func TimeNowET() time.Time {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Fatal("Failed to load location", err)
	}
	return time.Now().In(loc)
}

// PeriodKey formats a time as the period identifier used in the portfolio
// history, e.g. "2026-08-2" for the second half of August 2026.
func PeriodKey(t time.Time) string {
	half := "1"
	if t.Day() > 15 {
		half = "2"
	}
	return t.Format("2006-01") + "-" + half
}

// PrettyDate formats a time for human-facing messages.
func PrettyDate(t time.Time) string {
	return t.Format("Mon, 02 Jan 2006 15:04")
}

// DaysBetween returns whole days from start to end, never negative.
func DaysBetween(start, end time.Time) int {
	days := int(end.Sub(start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
