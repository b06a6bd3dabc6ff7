package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
)

// GenerateMonthly строит отчёт за календарный месяц или возвращает
// существующий. Стратегия выбирается по данным: при достаточном числе
// недельных отчётов месяц собирается из них, иначе — напрямую из
// самых ранних цитат месяца. Пользователь моложе месяца и месяц без
// данных пропускаются: возвращается nil без ошибки.
func (s *Service) GenerateMonthly(ctx context.Context, user domain.User, month, year int) (*domain.MonthlyReport, error) {
	now := s.now()
	if user.RegisteredAt.After(now.AddDate(0, -1, 0)) {
		return nil, nil
	}

	existing, err := s.reports.GetMonthly(ctx, user.ID, month, year)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	keys := weeksOfMonth(year, month, s.loc)
	weeklies, err := s.reports.ListWeeklies(ctx, user.ID, keys)
	if err != nil {
		return nil, err
	}

	buildStart := time.Now()
	var report domain.MonthlyReport
	if len(weeklies) >= s.cfg.MinWeeklyReports {
		report = s.buildFromWeeklies(ctx, user.ID, weeklies)
	} else {
		from, to := monthBounds(year, month, s.loc)
		quotes, err := s.quotes.ListForPeriod(ctx, user.ID, from, to)
		if err != nil {
			return nil, err
		}
		if len(weeklies) == 0 && len(quotes) == 0 {
			return nil, nil
		}
		top, err := s.quotes.ListEarliestForPeriod(ctx, user.ID, from, to, s.cfg.TopQuotes)
		if err != nil {
			return nil, err
		}
		report = s.buildFromQuotes(ctx, user.ID, weeklies, quotes, top)
	}

	report.UserID = user.ID
	report.Month = month
	report.Year = year
	report.Offer = s.buildOffer(now)

	saved, created, err := s.reports.CreateMonthly(ctx, report)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.IncReportGenerated("monthly", string(saved.Method))
		metrics.ObserveReportBuild("monthly", buildStart)
	}
	return &saved, nil
}

// buildFromWeeklies собирает месяц из недельных отчётов. Промпт для
// модели строится из готовых недельных выжимок, а не из всех цитат.
func (s *Service) buildFromWeeklies(ctx context.Context, userID int64, weeklies []domain.WeeklyReport) domain.MonthlyReport {
	var (
		ids    []int64
		themes []string
		tones  []string
		m      domain.MonthlyMetrics
	)
	for _, w := range weeklies {
		ids = append(ids, w.ID)
		themes = append(themes, w.Analysis.DominantThemes...)
		tones = append(tones, w.Analysis.EmotionalTone)
		m.TotalQuotes += w.Metrics.Quotes
		m.UniqueAuthors += w.Metrics.UniqueAuthors
		m.ActiveDays += w.Metrics.ActiveDays
	}
	m.WeeksActive = len(weeklies)
	m.TopThemes = topThemes(themes, 5)
	m.EmotionalTrend = classifyTrend(tones)

	analysis, err := s.analyzer.AnalyzeMonthWeeklies(ctx, weeklies)
	if err != nil {
		s.log.Warn().Err(err).Int64("user", userID).Msg("месячный анализ по неделям не удался, подставлен фолбэк")
		analysis = fallbackMonthlyAnalysis(m.TopThemes)
	}

	return domain.MonthlyReport{
		WeeklyReportIDs: ids,
		Method:          domain.MethodWeeklyReports,
		Metrics:         m,
		Analysis:        analysis,
	}
}

// buildFromQuotes — запасная стратегия: нарратив строится из самых
// ранних цитат месяца, метрики — из полного набора за месяц.
func (s *Service) buildFromQuotes(ctx context.Context, userID int64, weeklies []domain.WeeklyReport, quotes, top []domain.Quote) domain.MonthlyReport {
	var (
		ids    []int64
		tones  []string
		themes []string
	)
	for _, w := range weeklies {
		ids = append(ids, w.ID)
		tones = append(tones, w.Analysis.EmotionalTone)
	}

	authors := make(map[string]struct{})
	days := make(map[string]struct{})
	weeks := make(map[domain.WeekKey]struct{})
	for _, q := range quotes {
		if q.Author != "" {
			authors[strings.ToLower(q.Author)] = struct{}{}
		}
		days[q.CreatedAt.In(s.loc).Format("2006-01-02")] = struct{}{}
		y, w := q.CreatedAt.In(s.loc).ISOWeek()
		weeks[domain.WeekKey{Year: y, Week: w}] = struct{}{}
		themes = append(themes, q.Themes...)
	}

	m := domain.MonthlyMetrics{
		TotalQuotes:    len(quotes),
		UniqueAuthors:  len(authors),
		ActiveDays:     len(days),
		WeeksActive:    len(weeks),
		TopThemes:      topThemes(themes, 5),
		EmotionalTrend: classifyTrend(tones),
	}

	analysis, err := s.analyzer.AnalyzeMonthQuotes(ctx, top)
	if err != nil {
		s.log.Warn().Err(err).Int64("user", userID).Msg("месячный анализ по цитатам не удался, подставлен фолбэк")
		analysis = fallbackMonthlyAnalysis(m.TopThemes)
	}

	return domain.MonthlyReport{
		WeeklyReportIDs: ids,
		Method:          domain.MethodTopQuotes,
		Metrics:         m,
		Analysis:        analysis,
	}
}

// fallbackMonthlyAnalysis — фиксированный нарратив на случай отказа
// языковой модели: запись отчёта всегда полная.
func fallbackMonthlyAnalysis(themes []string) domain.MonthlyAnalysis {
	profile := "Вы собираете цитаты, которые помогают осмыслять происходящее."
	if len(themes) > 0 {
		profile = fmt.Sprintf("В этом месяце вас занимали темы: %s.", strings.Join(themes, ", "))
	}
	return domain.MonthlyAnalysis{
		Profile:         profile,
		Growth:          "Коллекция продолжает расти: вы регулярно возвращаетесь к чтению.",
		Recommendations: "Перечитайте сохранённое за месяц и отметьте, что отзывается сильнее всего.",
	}
}
