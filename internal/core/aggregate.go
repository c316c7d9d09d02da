package core

import "sort"

// CategoryTotal is one aggregated row of the per-category view.
type CategoryTotal struct {
	Category string
	Total    Money
}

// DateTotal is one point of the spending trend.
type DateTotal struct {
	Date  Date
	Total Money
}

// SumByCategory groups records by category (exact, case-sensitive match) and
// sums the amounts per group. The result has one entry per distinct category
// observed; iteration order carries no meaning.
func SumByCategory(records []Record) map[string]Money {
	out := make(map[string]Money, len(records))
	for _, r := range records {
		out[r.Category] = out[r.Category].Add(r.Amount)
	}
	return out
}

// SumByDate groups records by calendar date and sums the amounts per group,
// returning entries ordered ascending by date for trend plotting.
func SumByDate(records []Record) []DateTotal {
	byDate := make(map[Date]Money, len(records))
	for _, r := range records {
		byDate[r.Date] = byDate[r.Date].Add(r.Amount)
	}
	out := make([]DateTotal, 0, len(byDate))
	for d, m := range byDate {
		out = append(out, DateTotal{Date: d, Total: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// Total sums the amounts of all records.
func Total(records []Record) Money {
	var t Money
	for _, r := range records {
		t = t.Add(r.Amount)
	}
	return t
}

// CategoryTotals converts the per-category mapping to rows sorted by total
// descending (ties by name) for stable display.
func CategoryTotals(byCategory map[string]Money) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(byCategory))
	for c, m := range byCategory {
		out = append(out, CategoryTotal{Category: c, Total: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}
