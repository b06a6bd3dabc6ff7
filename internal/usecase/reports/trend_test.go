package reports

import (
	"testing"
	"time"

	"tg-quotes-bot/internal/domain"
)

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		name  string
		tones []string
		want  domain.Trend
	}{
		{"одинаковые тона", []string{"нейтральный", "нейтральный", "нейтральный"}, domain.TrendStable},
		{"строгий рост", []string{"задумчивый", "нейтральный", "вдохновляющий"}, domain.TrendGrowing},
		{"строгое падение", []string{"энергичный", "позитивный", "задумчивый"}, domain.TrendShifting},
		{"немонотонная последовательность", []string{"задумчивый", "энергичный", "нейтральный"}, domain.TrendMixed},
		{"меньше трёх разных точек", []string{"задумчивый", "позитивный"}, domain.TrendMixed},
		{"нет данных", nil, domain.TrendStable},
		{"неизвестные тона пропускаются", []string{"странный", "нейтральный", "нейтральный"}, domain.TrendStable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyTrend(tc.tones); got != tc.want {
				t.Fatalf("ожидали %q, получили %q", tc.want, got)
			}
		})
	}
}

func TestTopThemesOrdersByFrequency(t *testing.T) {
	themes := []string{"жизнь", "любовь", "жизнь", "время", "любовь", "жизнь"}
	got := topThemes(themes, 2)
	if len(got) != 2 || got[0] != "жизнь" || got[1] != "любовь" {
		t.Fatalf("ожидали [жизнь любовь], получили %v", got)
	}
}

func TestWeeksOfMonthThursdayRule(t *testing.T) {
	// Сентябрь 2025: 1-е — понедельник, все недели целиком в месяце,
	// кроме последней (чт 2 октября) — её четверг уже в октябре.
	keys := weeksOfMonth(2025, 9, time.UTC)
	if len(keys) != 4 {
		t.Fatalf("ожидали 4 недели, получили %d: %v", len(keys), keys)
	}
	if keys[0].Week != 36 || keys[len(keys)-1].Week != 39 {
		t.Fatalf("ожидали недели 36..39, получили %v", keys)
	}

	// Январь 2026: 1 января — четверг, первая неделя принадлежит январю.
	keys = weeksOfMonth(2026, 1, time.UTC)
	if keys[0].Week != 1 || keys[0].Year != 2026 {
		t.Fatalf("ожидали первую неделю 2026, получили %v", keys[0])
	}
}

func TestIsoWeekStartIsMonday(t *testing.T) {
	start := isoWeekStart(2025, 38, time.UTC)
	if start.Weekday() != time.Monday {
		t.Fatalf("начало недели должно быть понедельником, получили %v", start.Weekday())
	}
	y, w := start.ISOWeek()
	if y != 2025 || w != 38 {
		t.Fatalf("ожидали неделю 38/2025, получили %d/%d", w, y)
	}
}
