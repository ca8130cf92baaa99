// Package schedule holds the calendar arithmetic for recurring
// membership due dates.
package schedule

import "time"

// NextDueDate returns the date one calendar month after d, keeping the
// day-of-month where the target month is long enough and clamping to
// the last valid day otherwise (Jan 31 -> Feb 28/29, Mar 31 -> Apr 30).
//
// time.AddDate cannot be used here: it normalizes overflow days into
// the following month (Jan 31 + 1 month = Mar 2/3).
func NextDueDate(d time.Time) time.Time {
	year, month, day := d.Date()

	month++
	if month > time.December {
		month = time.January
		year++
	}

	if last := DaysInMonth(year, month); day > last {
		day = last
	}

	return time.Date(year, month, day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	switch month {
	case time.January, time.March, time.May, time.July, time.August, time.October, time.December:
		return 31
	case time.April, time.June, time.September, time.November:
		return 30
	case time.February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 30
	}
}

// IsLeapYear applies the Gregorian rule: divisible by 4, except
// centuries unless divisible by 400.
func IsLeapYear(year int) bool {
	if year%400 == 0 {
		return true
	}
	if year%100 == 0 {
		return false
	}
	return year%4 == 0
}
