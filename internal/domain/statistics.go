package domain

import "time"

const maxFavoriteAuthors = 10

// ApplyQuote пересчитывает статистику пользователя после новой цитаты.
// Функция чистая: хранилище вызывает её внутри транзакции и записывает
// результат целиком, поэтому статистика не бывает обновлена частично.
func ApplyQuote(stats Statistics, author string, now time.Time) Statistics {
	stats.TotalQuotes++
	stats = applyStreak(stats, now)
	if author != "" {
		stats.FavoriteAuthors = pushAuthor(stats.FavoriteAuthors, author)
	}
	stats.MonthlyCounts = bumpMonthlyCount(stats.MonthlyCounts, now)
	day := dateOnly(now)
	stats.LastQuoteDate = &day
	return stats
}

// applyStreak сравнивает календарные дни, а не прошедшие часы:
// цитата в 23:59 и следующая в 00:01 считаются соседними днями.
func applyStreak(stats Statistics, now time.Time) Statistics {
	today := dateOnly(now)
	switch {
	case stats.LastQuoteDate == nil:
		stats.CurrentStreak = 1
	case dateOnly(*stats.LastQuoteDate).Equal(today):
		// сегодня уже учтено
	case dateOnly(*stats.LastQuoteDate).AddDate(0, 0, 1).Equal(today):
		stats.CurrentStreak++
	default:
		stats.CurrentStreak = 1
	}
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	return stats
}

// pushAuthor держит список в порядке «недавние впереди» и ограничивает
// его десятью различными авторами, вытесняя самого давнего.
func pushAuthor(authors []string, author string) []string {
	out := make([]string, 0, len(authors)+1)
	out = append(out, author)
	for _, a := range authors {
		if a == author {
			continue
		}
		out = append(out, a)
	}
	if len(out) > maxFavoriteAuthors {
		out = out[:maxFavoriteAuthors]
	}
	return out
}

func bumpMonthlyCount(counts []MonthlyCount, now time.Time) []MonthlyCount {
	month := int(now.Month())
	year := now.Year()
	for i := range counts {
		if counts[i].Month == month && counts[i].Year == year {
			counts[i].Count++
			return counts
		}
	}
	return append(counts, MonthlyCount{Month: month, Year: year, Count: 1})
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
