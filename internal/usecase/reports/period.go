package reports

import (
	"time"

	"tg-quotes-bot/internal/domain"
)

// isoWeekStart возвращает понедельник ISO-недели (week, year).
// 4 января всегда лежит в первой неделе года.
func isoWeekStart(year, week int, loc *time.Location) time.Time {
	jan4 := time.Date(year, 1, 4, 0, 0, 0, 0, loc)
	monday := jan4.AddDate(0, 0, -((int(jan4.Weekday()) + 6) % 7))
	return monday.AddDate(0, 0, (week-1)*7)
}

// weekBounds возвращает полуинтервал [from, to) ISO-недели.
func weekBounds(year, week int, loc *time.Location) (time.Time, time.Time) {
	from := isoWeekStart(year, week, loc)
	return from, from.AddDate(0, 0, 7)
}

// monthBounds возвращает полуинтервал [from, to) календарного месяца.
func monthBounds(year, month int, loc *time.Location) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}

// weeksOfMonth возвращает ISO-недели месяца. Неделя принадлежит месяцу,
// в котором лежит её четверг: граничные недели не попадают в оба месяца.
func weeksOfMonth(year, month int, loc *time.Location) []domain.WeekKey {
	from, to := monthBounds(year, month, loc)
	var keys []domain.WeekKey
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		if day.Weekday() != time.Thursday {
			continue
		}
		y, w := day.ISOWeek()
		keys = append(keys, domain.WeekKey{Year: y, Week: w})
	}
	return keys
}
