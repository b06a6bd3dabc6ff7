package reports

import (
	"context"
	"errors"
	"strings"
	"time"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
)

// GenerateWeekly строит отчёт за ISO-неделю (week, year) или возвращает
// уже существующий. Неделя без цитат пропускается: возвращается nil
// без ошибки. Провал анализатора подменяется детерминированной
// выжимкой из тем цитат, отчёт создаётся в любом случае.
func (s *Service) GenerateWeekly(ctx context.Context, userID int64, week, year int) (*domain.WeeklyReport, error) {
	existing, err := s.reports.GetWeekly(ctx, userID, week, year)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	from, to := weekBounds(year, week, s.loc)
	quotes, err := s.quotes.ListForPeriod(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, nil
	}

	buildStart := time.Now()
	texts := make([]string, 0, len(quotes))
	for _, q := range quotes {
		texts = append(texts, q.Text)
	}
	analysis, err := s.analyzer.AnalyzeWeek(ctx, texts)
	if err != nil {
		s.log.Warn().Err(err).Int64("user", userID).Int("week", week).Msg("недельный анализ не удался, подставлен фолбэк")
		analysis = fallbackWeeklyAnalysis(quotes)
	}

	report := domain.WeeklyReport{
		UserID:   userID,
		Week:     week,
		Year:     year,
		Metrics:  weeklyMetrics(quotes),
		Analysis: analysis,
	}
	saved, created, err := s.reports.CreateWeekly(ctx, report)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.IncReportGenerated("weekly", "weekly")
		metrics.ObserveReportBuild("weekly", buildStart)
	}
	return &saved, nil
}

// weeklyMetrics считает количественные итоги недели.
func weeklyMetrics(quotes []domain.Quote) domain.WeeklyMetrics {
	authors := make(map[string]struct{})
	days := make(map[string]struct{})
	for _, q := range quotes {
		if q.Author != "" {
			authors[strings.ToLower(q.Author)] = struct{}{}
		}
		days[q.CreatedAt.Format("2006-01-02")] = struct{}{}
	}
	return domain.WeeklyMetrics{
		Quotes:        len(quotes),
		UniqueAuthors: len(authors),
		ActiveDays:    len(days),
	}
}

// fallbackWeeklyAnalysis собирает выжимку без языковой модели:
// темы берутся из классификации цитат, тон нейтральный.
func fallbackWeeklyAnalysis(quotes []domain.Quote) domain.WeeklyAnalysis {
	var themes []string
	for _, q := range quotes {
		themes = append(themes, q.Themes...)
	}
	dominant := topThemes(themes, 3)
	if len(dominant) == 0 {
		dominant = []string{"размышления"}
	}
	return domain.WeeklyAnalysis{
		DominantThemes: dominant,
		EmotionalTone:  "нейтральный",
		Insights:       "За неделю коллекция пополнилась новыми цитатами.",
	}
}
