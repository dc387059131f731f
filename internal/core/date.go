package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrDateFormat is returned when a textual date cannot be parsed.
var ErrDateFormat = errors.New("invalid date format")

// CalendarDate is a plain Gregorian calendar day without time or zone.
// It is an immutable value: operations return a new CalendarDate.
// Ordering is lexicographic on (year, month, day).
type CalendarDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// NewCalendarDate creates a CalendarDate from year, month and day.
func NewCalendarDate(year, month, day int) CalendarDate {
	return CalendarDate{Year: year, Month: month, Day: day}
}

// Today returns the local wall-clock date.
func Today() CalendarDate {
	y, m, d := time.Now().Date()
	return CalendarDate{Year: y, Month: int(m), Day: d}
}

// Yesterday returns the day before today.
func Yesterday() CalendarDate {
	return Today().DayBefore()
}

// daysInMonth returns the day count for month in year.
// February uses the divisible-by-4 leap rule with no century exception.
// Dates already stored by clients were rolled over with this rule; changing
// it to the full Gregorian rule would shift their values.
func daysInMonth(month, year int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if year%4 == 0 {
			return 29
		}
		return 28
	default:
		return 31
	}
}

// Validate checks that the date names an actual calendar day.
func (d CalendarDate) Validate() error {
	if d.Month < 1 || d.Month > 12 {
		return ErrInvalidMonth
	}
	if d.Day < 1 || d.Day > daysInMonth(d.Month, d.Year) {
		return ErrInvalidDay
	}
	return nil
}

// Compare orders by year, then month, then day. It returns -1 when d is
// earlier than o, 0 when equal and +1 when later.
func (d CalendarDate) Compare(o CalendarDate) int {
	if d.Year != o.Year {
		return sign(d.Year - o.Year)
	}
	if d.Month != o.Month {
		return sign(d.Month - o.Month)
	}
	return sign(d.Day - o.Day)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// Before reports whether d is earlier than o.
func (d CalendarDate) Before(o CalendarDate) bool { return d.Compare(o) < 0 }

// After reports whether d is later than o.
func (d CalendarDate) After(o CalendarDate) bool { return d.Compare(o) > 0 }

// DayBefore returns the previous calendar day, rolling the month and year
// back as needed.
func (d CalendarDate) DayBefore() CalendarDate {
	prev := CalendarDate{Year: d.Year, Month: d.Month, Day: d.Day - 1}
	if prev.Day == 0 {
		prev.Month--
		if prev.Month == 0 {
			prev.Month = 12
			prev.Year--
		}
		prev.Day = daysInMonth(prev.Month, prev.Year)
	}
	return prev
}

// DayAfter returns the next calendar day, rolling the month and year forward
// as needed.
func (d CalendarDate) DayAfter() CalendarDate {
	next := CalendarDate{Year: d.Year, Month: d.Month, Day: d.Day + 1}
	if next.Day > daysInMonth(next.Month, next.Year) {
		next.Day = 1
		next.Month++
	}
	if next.Month > 12 {
		next.Month = 1
		next.Year++
	}
	return next
}

// ParseCalendarDate parses "YYYY-M-D" or "YYYY-MM-DD". Any non-numeric
// component or wrong piece count yields ErrDateFormat; components are never
// silently zero-filled.
func ParseCalendarDate(s string) (CalendarDate, error) {
	pieces := strings.Split(strings.TrimSpace(s), "-")
	if len(pieces) != 3 {
		return CalendarDate{}, fmt.Errorf("%w: %q", ErrDateFormat, s)
	}
	var nums [3]int
	for i, p := range pieces {
		n, err := strconv.Atoi(p)
		if err != nil {
			return CalendarDate{}, fmt.Errorf("%w: %q", ErrDateFormat, s)
		}
		nums[i] = n
	}
	return CalendarDate{Year: nums[0], Month: nums[1], Day: nums[2]}, nil
}

// String renders the canonical "YYYY-M-D" form with no zero padding.
// ParseCalendarDate accepts everything String produces.
func (d CalendarDate) String() string {
	return fmt.Sprintf("%d-%d-%d", d.Year, d.Month, d.Day)
}

// ISO renders the zero-padded "YYYY-MM-DD" form used in CSV exports.
func (d CalendarDate) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MonthName returns the full English month name, defaulting to "January"
// for out-of-range months.
func (d CalendarDate) MonthName() string {
	names := []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
	if d.Month < 1 || d.Month > 12 {
		return names[0]
	}
	return names[d.Month-1]
}
