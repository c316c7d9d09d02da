package core

import "testing"

func rec(date Date, cents int64, cat string) Record {
	return Record{Date: date, Amount: Money{Cents: cents}, Category: cat}
}

func TestSumByCategoryEmpty(t *testing.T) {
	if got := SumByCategory(nil); len(got) != 0 {
		t.Fatalf("expected empty mapping, got %v", got)
	}
	if got := SumByDate(nil); len(got) != 0 {
		t.Fatalf("expected empty trend, got %v", got)
	}
}

func TestSumByCategoryMergesSameCategory(t *testing.T) {
	d := NewDate(2026, 1, 1)
	got := SumByCategory([]Record{rec(d, 1000, "Food"), rec(d, 1500, "Food")})
	if len(got) != 1 {
		t.Fatalf("expected single entry, got %v", got)
	}
	if got["Food"].Cents != 2500 {
		t.Fatalf("expected 2500, got %d", got["Food"].Cents)
	}
}

func TestSumByCategoryIsCaseSensitive(t *testing.T) {
	d := NewDate(2026, 1, 1)
	got := SumByCategory([]Record{rec(d, 100, "food"), rec(d, 200, "Food")})
	if len(got) != 2 {
		t.Fatalf("case-sensitive grouping expected 2 entries, got %v", got)
	}
}

func TestSumByCategoryConservation(t *testing.T) {
	records := []Record{
		rec(NewDate(2026, 1, 1), 500, "Food"),
		rec(NewDate(2026, 1, 2), 700, "Rent"),
		rec(NewDate(2026, 1, 2), 300, "Food"),
		rec(NewDate(2026, 1, 3), 0, ""),
	}
	var grouped int64
	for _, m := range SumByCategory(records) {
		grouped += m.Cents
	}
	if total := Total(records).Cents; grouped != total {
		t.Fatalf("conservation violated: groups=%d total=%d", grouped, total)
	}
}

func TestSumByDateOrdersAscending(t *testing.T) {
	d1, d2, d3 := NewDate(2026, 1, 1), NewDate(2026, 1, 2), NewDate(2026, 1, 3)
	// Inserted out of order on purpose.
	got := SumByDate([]Record{rec(d2, 700, "a"), rec(d3, 300, "b"), rec(d1, 500, "c")})
	want := []DateTotal{{d1, Money{500}}, {d2, Money{700}}, {d3, Money{300}}}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestCategoryTotalsSortedForDisplay(t *testing.T) {
	got := CategoryTotals(map[string]Money{
		"Rent": {Cents: 900},
		"Food": {Cents: 300},
		"Bus":  {Cents: 300},
	})
	want := []CategoryTotal{
		{"Rent", Money{900}},
		{"Bus", Money{300}},
		{"Food", Money{300}},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}
