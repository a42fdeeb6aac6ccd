// Package clock provides an injectable notion of "now" and the KST calendar day
// used to key daily archives.
package clock

import "time"

// KST is Korea Standard Time (UTC+9, no daylight saving).
var KST = time.FixedZone("KST", 9*60*60)

// DayLayout is the archive date format.
const DayLayout = "20060102"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// OrSystem returns c, or the wall clock if c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return System{}
	}
	return c
}

// Day returns the KST calendar day of t as YYYYMMDD.
func Day(t time.Time) string {
	return t.In(KST).Format(DayLayout)
}

// Today returns the current KST day of c.
func Today(c Clock) string {
	return Day(c.Now())
}

// PreviousDay returns the day before a YYYYMMDD day string.
func PreviousDay(day string) (string, error) {
	t, err := time.ParseInLocation(DayLayout, day, KST)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -1).Format(DayLayout), nil
}

// Month returns YYYYMM of t in KST, shifted by offset months.
func Month(t time.Time, offset int) string {
	k := t.In(KST)
	first := time.Date(k.Year(), k.Month(), 1, 0, 0, 0, 0, KST)
	return first.AddDate(0, offset, 0).Format("200601")
}
