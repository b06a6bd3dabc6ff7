package domain

import (
	"fmt"
	"testing"
	"time"
)

func day(d int, hour int) time.Time {
	return time.Date(2025, 9, d, hour, 0, 0, 0, time.UTC)
}

func TestApplyQuoteStreakGrowsByCalendarDays(t *testing.T) {
	var stats Statistics
	for i := 0; i < 5; i++ {
		stats = ApplyQuote(stats, "", day(1+i, 12))
	}
	if stats.CurrentStreak != 5 {
		t.Fatalf("после 5 дней подряд ожидали серию 5, получили %d", stats.CurrentStreak)
	}
	if stats.LongestStreak != 5 {
		t.Fatalf("лучшая серия должна быть не меньше текущей, получили %d", stats.LongestStreak)
	}
	if stats.TotalQuotes != 5 {
		t.Fatalf("ожидали 5 цитат, получили %d", stats.TotalQuotes)
	}
}

func TestApplyQuoteSameDayDoesNotGrowStreak(t *testing.T) {
	var stats Statistics
	stats = ApplyQuote(stats, "", day(1, 10))
	stats = ApplyQuote(stats, "", day(1, 23))
	if stats.CurrentStreak != 1 {
		t.Fatalf("повтор в тот же день не растит серию, получили %d", stats.CurrentStreak)
	}
}

func TestApplyQuoteMidnightBoundary(t *testing.T) {
	var stats Statistics
	stats = ApplyQuote(stats, "", time.Date(2025, 9, 1, 23, 59, 0, 0, time.UTC))
	stats = ApplyQuote(stats, "", time.Date(2025, 9, 2, 0, 1, 0, 0, time.UTC))
	if stats.CurrentStreak != 2 {
		t.Fatalf("23:59 и 00:01 — соседние календарные дни, получили %d", stats.CurrentStreak)
	}
}

func TestApplyQuoteGapResetsStreak(t *testing.T) {
	var stats Statistics
	stats = ApplyQuote(stats, "", day(1, 12))
	stats = ApplyQuote(stats, "", day(2, 12))
	stats = ApplyQuote(stats, "", day(5, 12))
	if stats.CurrentStreak != 1 {
		t.Fatalf("пропуск дня сбрасывает серию в 1, получили %d", stats.CurrentStreak)
	}
	if stats.LongestStreak != 2 {
		t.Fatalf("лучшая серия должна сохраниться, получили %d", stats.LongestStreak)
	}
}

func TestApplyQuoteFavoriteAuthors(t *testing.T) {
	var stats Statistics
	for i := 0; i < 12; i++ {
		stats = ApplyQuote(stats, fmt.Sprintf("Автор %d", i), day(1, 12))
	}
	if len(stats.FavoriteAuthors) != 10 {
		t.Fatalf("список авторов ограничен десятью, получили %d", len(stats.FavoriteAuthors))
	}
	if stats.FavoriteAuthors[0] != "Автор 11" {
		t.Fatalf("последний автор должен быть первым, получили %q", stats.FavoriteAuthors[0])
	}
	for _, a := range stats.FavoriteAuthors {
		if a == "Автор 0" || a == "Автор 1" {
			t.Fatalf("самые давние авторы должны вытесниться: %v", stats.FavoriteAuthors)
		}
	}

	// Повтор существующего автора поднимает его наверх без дублей.
	stats = ApplyQuote(stats, "Автор 5", day(1, 13))
	if stats.FavoriteAuthors[0] != "Автор 5" {
		t.Fatalf("повторный автор должен подняться наверх, получили %q", stats.FavoriteAuthors[0])
	}
	seen := map[string]int{}
	for _, a := range stats.FavoriteAuthors {
		seen[a]++
		if seen[a] > 1 {
			t.Fatalf("дубликат автора %q", a)
		}
	}
}

func TestApplyQuoteMonthlyCounts(t *testing.T) {
	var stats Statistics
	stats = ApplyQuote(stats, "", time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC))
	stats = ApplyQuote(stats, "", time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC))
	stats = ApplyQuote(stats, "", time.Date(2025, 9, 2, 12, 0, 0, 0, time.UTC))
	if len(stats.MonthlyCounts) != 2 {
		t.Fatalf("ожидали счётчики двух месяцев, получили %v", stats.MonthlyCounts)
	}
	if stats.MonthlyCounts[1].Month != 9 || stats.MonthlyCounts[1].Count != 2 {
		t.Fatalf("за сентябрь должно быть 2 цитаты: %v", stats.MonthlyCounts)
	}
}
