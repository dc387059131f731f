package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// CategoryBudget pairs a category's spending with its budget for a month.
type CategoryBudget struct {
	Name   string
	Spent  Money
	Budget Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year          int
	Month         int // 1-12
	Total         Money
	ByCategory    []CategoryAmount
	PreviousTotal Money
}

// DailyTotal is one day's spending, nil-equivalent days carrying zero.
type DailyTotal struct {
	Date   CalendarDate
	Amount Money
}

// Total sums the amounts of all receipts.
func Total(receipts []Receipt) Money {
	var total Money
	for _, r := range receipts {
		total = total.Add(r.Amount)
	}
	return total
}

// TotalsByCategory aggregates receipt amounts per category, sorted by
// descending amount and then name for stable chart ordering.
func TotalsByCategory(receipts []Receipt) []CategoryAmount {
	byName := map[string]int64{}
	for _, r := range receipts {
		byName[r.Category] += r.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(byName))
	for name, cents := range byName {
		out = append(out, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DailyTotals walks day by day from the earliest receipt date through "to"
// and sums receipts per day, so charts render a continuous series even when
// no receipts exist for a day.
func DailyTotals(receipts []Receipt, to CalendarDate) []DailyTotal {
	if len(receipts) == 0 {
		return nil
	}
	first := receipts[0].Date
	for _, r := range receipts[1:] {
		if r.Date.Before(first) {
			first = r.Date
		}
	}

	byDay := map[CalendarDate]int64{}
	for _, r := range receipts {
		byDay[r.Date] += r.Amount.Cents
	}

	var out []DailyTotal
	for d := first; !d.After(to); d = d.DayAfter() {
		out = append(out, DailyTotal{Date: d, Amount: Money{Cents: byDay[d]}})
	}
	return out
}

// DailyAverage returns the average spend over days that have at least one
// receipt. The second return is false when there are no receipts.
func DailyAverage(receipts []Receipt) (Money, bool) {
	days := map[CalendarDate]struct{}{}
	var total int64
	for _, r := range receipts {
		days[r.Date] = struct{}{}
		total += r.Amount.Cents
	}
	if len(days) == 0 {
		return Money{}, false
	}
	return Money{Cents: total / int64(len(days))}, true
}
