package dates

import "time"

// BusinessDays counts Monday to Friday calendar days from start's day up to,
// but not including, end's day. It returns 0 when either instant is zero or
// start is after end.
func BusinessDays(start, end time.Time) int {
	if start.IsZero() || end.IsZero() || start.After(end) {
		return 0
	}

	from := civilDay(start)
	to := civilDay(end)

	diff := int(to.Sub(from).Hours() / 24)
	weeks := diff / 7
	result := weeks * 5

	cursor := from.AddDate(0, 0, weeks*7)
	for cursor.Before(to) {
		if !isWeekend(cursor.Weekday()) {
			result++
		}
		cursor = cursor.AddDate(0, 0, 1)
	}
	return result
}

// AddBusinessDays moves t forward (or backward for negative amounts) by the
// given number of business days. A start on a weekend that lands on a
// weekend is pulled back to the nearest business day. Wall clock time is
// kept.
func AddBusinessDays(t time.Time, amount int) time.Time {
	if t.IsZero() {
		return t
	}

	startedOnWeekend := isWeekend(t.Weekday())
	sign := 1
	if amount < 0 {
		sign = -1
	}

	d := t.AddDate(0, 0, (amount/5)*7)

	rest := amount % 5
	if rest < 0 {
		rest = -rest
	}
	for rest > 0 {
		d = d.AddDate(0, 0, sign)
		if !isWeekend(d.Weekday()) {
			rest--
		}
	}

	if startedOnWeekend && isWeekend(d.Weekday()) && amount != 0 {
		if d.Weekday() == time.Saturday {
			if sign < 0 {
				d = d.AddDate(0, 0, 2)
			} else {
				d = d.AddDate(0, 0, -1)
			}
		}
		if d.Weekday() == time.Sunday {
			if sign < 0 {
				d = d.AddDate(0, 0, 1)
			} else {
				d = d.AddDate(0, 0, -2)
			}
		}
	}
	return d
}

// civilDay maps t to UTC midnight of its calendar day in its own location,
// so day arithmetic is not affected by DST shifts.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isWeekend(day time.Weekday) bool {
	return day == time.Saturday || day == time.Sunday
}
