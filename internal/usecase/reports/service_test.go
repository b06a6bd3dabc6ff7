package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/domain"
)

type memReportRepo struct {
	weeklies  []domain.WeeklyReport
	monthlies []domain.MonthlyReport
	nextID    int64
}

func (m *memReportRepo) CreateWeekly(_ context.Context, report domain.WeeklyReport) (domain.WeeklyReport, bool, error) {
	for _, w := range m.weeklies {
		if w.UserID == report.UserID && w.Week == report.Week && w.Year == report.Year {
			return w, false, nil
		}
	}
	m.nextID++
	report.ID = m.nextID
	report.CreatedAt = time.Now()
	m.weeklies = append(m.weeklies, report)
	return report, true, nil
}

func (m *memReportRepo) GetWeekly(_ context.Context, userID int64, week, year int) (domain.WeeklyReport, error) {
	for _, w := range m.weeklies {
		if w.UserID == userID && w.Week == week && w.Year == year {
			return w, nil
		}
	}
	return domain.WeeklyReport{}, domain.ErrNotFound
}

func (m *memReportRepo) ListWeeklies(_ context.Context, userID int64, keys []domain.WeekKey) ([]domain.WeeklyReport, error) {
	var out []domain.WeeklyReport
	for _, key := range keys {
		for _, w := range m.weeklies {
			if w.UserID == userID && w.Week == key.Week && w.Year == key.Year {
				out = append(out, w)
			}
		}
	}
	return out, nil
}

func (m *memReportRepo) CreateMonthly(_ context.Context, report domain.MonthlyReport) (domain.MonthlyReport, bool, error) {
	for _, r := range m.monthlies {
		if r.UserID == report.UserID && r.Month == report.Month && r.Year == report.Year {
			return r, false, nil
		}
	}
	m.nextID++
	report.ID = m.nextID
	report.CreatedAt = time.Now()
	m.monthlies = append(m.monthlies, report)
	return report, true, nil
}

func (m *memReportRepo) GetMonthly(_ context.Context, userID int64, month, year int) (domain.MonthlyReport, error) {
	for _, r := range m.monthlies {
		if r.UserID == userID && r.Month == month && r.Year == year {
			return r, nil
		}
	}
	return domain.MonthlyReport{}, domain.ErrNotFound
}

type memQuoteRepo struct {
	quotes []domain.Quote
}

func (m *memQuoteRepo) SubmitQuote(context.Context, int64, domain.Quote, int, time.Time) (domain.SubmitOutcome, error) {
	return domain.SubmitOutcome{}, nil
}
func (m *memQuoteRepo) CountForDay(context.Context, int64, time.Time) (int, error) { return 0, nil }
func (m *memQuoteRepo) MapCountsForDay(context.Context, time.Time) (map[int64]int, error) {
	return nil, nil
}

func (m *memQuoteRepo) ListForPeriod(_ context.Context, userID int64, from, to time.Time) ([]domain.Quote, error) {
	var out []domain.Quote
	for _, q := range m.quotes {
		if q.UserID == userID && !q.CreatedAt.Before(from) && q.CreatedAt.Before(to) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memQuoteRepo) ListEarliestForPeriod(ctx context.Context, userID int64, from, to time.Time, limit int) ([]domain.Quote, error) {
	out, err := m.ListForPeriod(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stubUsers struct {
	users []domain.User
}

func (s *stubUsers) UpsertByTGID(context.Context, int64, string) (domain.User, bool, error) {
	return domain.User{}, false, nil
}
func (s *stubUsers) GetByTGID(context.Context, int64) (domain.User, error) {
	return domain.User{}, domain.ErrNotFound
}
func (s *stubUsers) GetByID(context.Context, int64) (domain.User, error) {
	return domain.User{}, domain.ErrNotFound
}
func (s *stubUsers) ListEligibleForReminders(context.Context) ([]domain.User, error) {
	return s.users, nil
}
func (s *stubUsers) ListRegisteredBefore(_ context.Context, before time.Time) ([]domain.User, error) {
	var out []domain.User
	for _, u := range s.users {
		if u.RegisteredAt.Before(before) {
			out = append(out, u)
		}
	}
	return out, nil
}
func (s *stubUsers) SetReminder(context.Context, int64, domain.ReminderSettings) error { return nil }
func (s *stubUsers) DisableReminders(context.Context, int64) error                     { return nil }
func (s *stubUsers) MarkOnboarded(context.Context, int64) error                        { return nil }
func (s *stubUsers) UpdateLastSentAt(context.Context, int64, time.Time) error          { return nil }

type fakeAnalyzer struct {
	fail          bool
	weekCalls     int
	weekliesCalls int
	quotesCalls   int
}

func (f *fakeAnalyzer) AnalyzeWeek(context.Context, []string) (domain.WeeklyAnalysis, error) {
	f.weekCalls++
	if f.fail {
		return domain.WeeklyAnalysis{}, errors.New("таймаут")
	}
	return domain.WeeklyAnalysis{
		DominantThemes: []string{"жизнь"},
		EmotionalTone:  "позитивный",
		Insights:       "хорошая неделя",
	}, nil
}

func (f *fakeAnalyzer) AnalyzeMonthWeeklies(context.Context, []domain.WeeklyReport) (domain.MonthlyAnalysis, error) {
	f.weekliesCalls++
	if f.fail {
		return domain.MonthlyAnalysis{}, errors.New("таймаут")
	}
	return domain.MonthlyAnalysis{Profile: "вдумчивый читатель", BookSuggestions: []string{"Игра в бисер"}}, nil
}

func (f *fakeAnalyzer) AnalyzeMonthQuotes(context.Context, []domain.Quote) (domain.MonthlyAnalysis, error) {
	f.quotesCalls++
	if f.fail {
		return domain.MonthlyAnalysis{}, errors.New("таймаут")
	}
	return domain.MonthlyAnalysis{Profile: "начинающий коллекционер"}, nil
}

func newReportService(repo *memReportRepo, quotes *memQuoteRepo, users *stubUsers, analyzer *fakeAnalyzer, now time.Time) *Service {
	svc := NewService(repo, quotes, users, analyzer, time.UTC, Config{}, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc
}

func quoteAt(userID int64, day time.Time, author string, themes ...string) domain.Quote {
	return domain.Quote{UserID: userID, Text: "цитата", Author: author, Themes: themes, CreatedAt: day}
}

func TestGenerateWeeklySkipsEmptyWeek(t *testing.T) {
	svc := newReportService(&memReportRepo{}, &memQuoteRepo{}, &stubUsers{}, &fakeAnalyzer{}, time.Now())
	report, err := svc.GenerateWeekly(context.Background(), 1, 38, 2025)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if report != nil {
		t.Fatalf("неделя без цитат должна пропускаться")
	}
}

func TestGenerateWeeklyIdempotent(t *testing.T) {
	quotes := &memQuoteRepo{quotes: []domain.Quote{
		quoteAt(1, time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC), "Сенека", "время"),
	}}
	analyzer := &fakeAnalyzer{}
	svc := newReportService(&memReportRepo{}, quotes, &stubUsers{}, analyzer, time.Now())

	first, err := svc.GenerateWeekly(context.Background(), 1, 38, 2025)
	if err != nil || first == nil {
		t.Fatalf("ожидали отчёт, получили %v, %v", first, err)
	}
	second, err := svc.GenerateWeekly(context.Background(), 1, 38, 2025)
	if err != nil || second == nil {
		t.Fatalf("ожидали отчёт, получили %v, %v", second, err)
	}
	if first.ID != second.ID {
		t.Fatalf("повторная генерация должна вернуть ту же запись")
	}
	if analyzer.weekCalls != 1 {
		t.Fatalf("анализатор должен вызываться один раз, вызван %d", analyzer.weekCalls)
	}
}

func TestGenerateWeeklyFallbackOnAnalyzerFailure(t *testing.T) {
	quotes := &memQuoteRepo{quotes: []domain.Quote{
		quoteAt(1, time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC), "Сенека", "время", "жизнь"),
		quoteAt(1, time.Date(2025, 9, 17, 10, 0, 0, 0, time.UTC), "", "время"),
	}}
	svc := newReportService(&memReportRepo{}, quotes, &stubUsers{}, &fakeAnalyzer{fail: true}, time.Now())

	report, err := svc.GenerateWeekly(context.Background(), 1, 38, 2025)
	if err != nil || report == nil {
		t.Fatalf("провал анализатора не должен отменять отчёт: %v", err)
	}
	if report.Analysis.EmotionalTone != "нейтральный" {
		t.Fatalf("ожидали нейтральный тон фолбэка, получили %q", report.Analysis.EmotionalTone)
	}
	if len(report.Analysis.DominantThemes) == 0 || report.Analysis.DominantThemes[0] != "время" {
		t.Fatalf("темы фолбэка должны браться из цитат, получили %v", report.Analysis.DominantThemes)
	}
	if report.Metrics.Quotes != 2 || report.Metrics.ActiveDays != 2 || report.Metrics.UniqueAuthors != 1 {
		t.Fatalf("неверные метрики недели: %+v", report.Metrics)
	}
}

func monthUser(registered time.Time) domain.User {
	return domain.User{ID: 1, RegisteredAt: registered}
}

func seedWeeklies(repo *memReportRepo, count int, tones ...string) {
	for i := 0; i < count; i++ {
		tone := "нейтральный"
		if i < len(tones) {
			tone = tones[i]
		}
		repo.weeklies = append(repo.weeklies, domain.WeeklyReport{
			ID: int64(100 + i), UserID: 1, Week: 36 + i, Year: 2025,
			Metrics:  domain.WeeklyMetrics{Quotes: 5, UniqueAuthors: 2, ActiveDays: 3},
			Analysis: domain.WeeklyAnalysis{DominantThemes: []string{"жизнь"}, EmotionalTone: tone},
		})
	}
}

func TestGenerateMonthlyMethodBoundary(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	registered := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// Две недели — запасная стратегия по цитатам.
	repo := &memReportRepo{}
	seedWeeklies(repo, 2)
	quotes := &memQuoteRepo{quotes: []domain.Quote{
		quoteAt(1, time.Date(2025, 9, 5, 10, 0, 0, 0, time.UTC), "Сенека", "время"),
	}}
	analyzer := &fakeAnalyzer{}
	svc := newReportService(repo, quotes, &stubUsers{}, analyzer, now)

	report, err := svc.GenerateMonthly(context.Background(), monthUser(registered), 9, 2025)
	if err != nil || report == nil {
		t.Fatalf("ожидали отчёт: %v", err)
	}
	if report.Method != domain.MethodTopQuotes {
		t.Fatalf("с двумя неделями ожидали top_quotes, получили %s", report.Method)
	}
	if analyzer.quotesCalls != 1 || analyzer.weekliesCalls != 0 {
		t.Fatalf("ожидали анализ по цитатам, вызовы: %+v", analyzer)
	}

	// Три недели — агрегирующая стратегия.
	repo = &memReportRepo{}
	seedWeeklies(repo, 3)
	analyzer = &fakeAnalyzer{}
	svc = newReportService(repo, quotes, &stubUsers{}, analyzer, now)

	report, err = svc.GenerateMonthly(context.Background(), monthUser(registered), 9, 2025)
	if err != nil || report == nil {
		t.Fatalf("ожидали отчёт: %v", err)
	}
	if report.Method != domain.MethodWeeklyReports {
		t.Fatalf("с тремя неделями ожидали weekly_reports, получили %s", report.Method)
	}
	if report.Metrics.TotalQuotes != 15 || report.Metrics.WeeksActive != 3 {
		t.Fatalf("метрики должны суммироваться по неделям: %+v", report.Metrics)
	}
	if len(report.WeeklyReportIDs) != 3 {
		t.Fatalf("ожидали ссылки на три недельных отчёта, получили %v", report.WeeklyReportIDs)
	}
}

func TestGenerateMonthlyIdempotent(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	registered := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &memReportRepo{}
	seedWeeklies(repo, 3)
	svc := newReportService(repo, &memQuoteRepo{}, &stubUsers{}, &fakeAnalyzer{}, now)

	first, err := svc.GenerateMonthly(context.Background(), monthUser(registered), 9, 2025)
	if err != nil || first == nil {
		t.Fatalf("ожидали отчёт: %v", err)
	}
	second, err := svc.GenerateMonthly(context.Background(), monthUser(registered), 9, 2025)
	if err != nil || second == nil {
		t.Fatalf("ожидали отчёт: %v", err)
	}
	if first.ID != second.ID || first.Offer.PromoCode != second.Offer.PromoCode {
		t.Fatalf("повторная генерация должна вернуть ту же запись")
	}
	if len(repo.monthlies) != 1 {
		t.Fatalf("в хранилище должен быть один отчёт, найдено %d", len(repo.monthlies))
	}
}

func TestGenerateMonthlySkips(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	svc := newReportService(&memReportRepo{}, &memQuoteRepo{}, &stubUsers{}, &fakeAnalyzer{}, now)

	// Зарегистрирован меньше месяца назад.
	young := monthUser(time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC))
	report, err := svc.GenerateMonthly(context.Background(), young, 9, 2025)
	if err != nil || report != nil {
		t.Fatalf("молодой пользователь должен пропускаться: %v, %v", report, err)
	}

	// Нет ни недель, ни цитат.
	old := monthUser(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	report, err = svc.GenerateMonthly(context.Background(), old, 9, 2025)
	if err != nil || report != nil {
		t.Fatalf("месяц без данных должен пропускаться: %v, %v", report, err)
	}
}

func TestGenerateMonthlyTrendFromWeeklies(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	registered := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &memReportRepo{}
	seedWeeklies(repo, 3, "задумчивый", "нейтральный", "вдохновляющий")
	svc := newReportService(repo, &memQuoteRepo{}, &stubUsers{}, &fakeAnalyzer{}, now)

	report, err := svc.GenerateMonthly(context.Background(), monthUser(registered), 9, 2025)
	if err != nil || report == nil {
		t.Fatalf("ожидали отчёт: %v", err)
	}
	if report.Metrics.EmotionalTrend != domain.TrendGrowing {
		t.Fatalf("ожидали растущую динамику, получили %s", report.Metrics.EmotionalTrend)
	}
	if report.Offer.Discount == 0 || report.Offer.PromoCode == "" {
		t.Fatalf("месячный отчёт должен содержать спецпредложение: %+v", report.Offer)
	}
	if !report.Offer.ValidUntil.Equal(now.AddDate(0, 0, 7)) {
		t.Fatalf("окно действия промокода должно быть 7 дней, получили %v", report.Offer.ValidUntil)
	}
}

func TestGenerateWeeklyForAllAccumulatesStats(t *testing.T) {
	now := time.Date(2025, 9, 21, 20, 0, 0, 0, time.UTC) // воскресенье недели 38
	users := &stubUsers{users: []domain.User{
		{ID: 1, RegisteredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, RegisteredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 3, RegisteredAt: now}, // слишком молодой, не попадает в выборку
	}}
	quotes := &memQuoteRepo{quotes: []domain.Quote{
		quoteAt(1, time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC), "Сенека", "время"),
	}}
	svc := newReportService(&memReportRepo{}, quotes, users, &fakeAnalyzer{}, now)

	stats := svc.GenerateWeeklyForAll(context.Background(), now)
	if stats.Total != 2 {
		t.Fatalf("ожидали 2 пользователей в пакете, получили %d", stats.Total)
	}
	if stats.Generated != 1 || stats.Skipped != 1 || stats.Failed != 0 {
		t.Fatalf("неожиданные итоги пакета: %+v", stats)
	}
}
