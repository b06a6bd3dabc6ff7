package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
)

const weeklyColumns = `id, user_id, week, year, quotes, unique_authors, active_days,
dominant_themes, emotional_tone, insights, created_at`

func scanWeekly(row userRow) (domain.WeeklyReport, error) {
	var r domain.WeeklyReport
	err := row.Scan(&r.ID, &r.UserID, &r.Week, &r.Year,
		&r.Metrics.Quotes, &r.Metrics.UniqueAuthors, &r.Metrics.ActiveDays,
		&r.Analysis.DominantThemes, &r.Analysis.EmotionalTone, &r.Analysis.Insights, &r.CreatedAt)
	return r, err
}

// CreateWeekly сохраняет недельный отчёт. Нарушение уникальности
// (user_id, week, year) означает конкурентную или повторную генерацию:
// возвращается существующая запись и false.
func (p *Postgres) CreateWeekly(ctx context.Context, report domain.WeeklyReport) (domain.WeeklyReport, bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO weekly_reports (user_id, week, year, quotes, unique_authors, active_days,
    dominant_themes, emotional_tone, insights)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id, created_at
`, report.UserID, report.Week, report.Year,
		report.Metrics.Quotes, report.Metrics.UniqueAuthors, report.Metrics.ActiveDays,
		report.Analysis.DominantThemes, report.Analysis.EmotionalTone, report.Analysis.Insights,
	).Scan(&report.ID, &report.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "weekly_reports_insert", "weekly_reports", start, err)
	if isUniqueViolation(err) {
		existing, getErr := p.GetWeekly(ctx, report.UserID, report.Week, report.Year)
		if getErr != nil {
			return domain.WeeklyReport{}, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return domain.WeeklyReport{}, false, err
	}
	userID := report.UserID
	_ = p.saveBusinessMetric(ctx, domain.BusinessMetric{
		Event:    domain.BusinessMetricEventWeeklyGenerated,
		UserID:   &userID,
		Metadata: map[string]any{"week": report.Week, "year": report.Year},
	})
	return report, true, nil
}

// GetWeekly возвращает недельный отчёт периода.
func (p *Postgres) GetWeekly(ctx context.Context, userID int64, week, year int) (domain.WeeklyReport, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	report, err := scanWeekly(p.pool.QueryRow(ctx, `
SELECT `+weeklyColumns+` FROM weekly_reports
WHERE user_id=$1 AND week=$2 AND year=$3
`, userID, week, year))
	metrics.ObserveNetworkRequest("postgres", "weekly_reports_get", "weekly_reports", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.WeeklyReport{}, domain.ErrNotFound
	}
	return report, err
}

// ListWeeklies возвращает недельные отчёты по списку ISO-недель.
func (p *Postgres) ListWeeklies(ctx context.Context, userID int64, keys []domain.WeekKey) ([]domain.WeeklyReport, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	years := make([]int, 0, len(keys))
	weeks := make([]int, 0, len(keys))
	for _, key := range keys {
		years = append(years, key.Year)
		weeks = append(weeks, key.Week)
	}

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+weeklyColumns+` FROM weekly_reports
WHERE user_id=$1 AND (year, week) IN (SELECT unnest($2::int[]), unnest($3::int[]))
ORDER BY year, week
`, userID, years, weeks)
	metrics.ObserveNetworkRequest("postgres", "weekly_reports_list", "weekly_reports", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reports []domain.WeeklyReport
	for rows.Next() {
		r, err := scanWeekly(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

const monthlyColumns = `id, user_id, month, year, weekly_report_ids, generation_method,
total_quotes, unique_authors, active_days, weeks_active, top_themes, emotional_trend,
profile, growth, recommendations, book_suggestions,
discount, valid_until, promo_code, created_at`

func scanMonthly(row userRow) (domain.MonthlyReport, error) {
	var (
		r      domain.MonthlyReport
		method string
		trend  string
	)
	err := row.Scan(&r.ID, &r.UserID, &r.Month, &r.Year, &r.WeeklyReportIDs, &method,
		&r.Metrics.TotalQuotes, &r.Metrics.UniqueAuthors, &r.Metrics.ActiveDays, &r.Metrics.WeeksActive,
		&r.Metrics.TopThemes, &trend,
		&r.Analysis.Profile, &r.Analysis.Growth, &r.Analysis.Recommendations, &r.Analysis.BookSuggestions,
		&r.Offer.Discount, &r.Offer.ValidUntil, &r.Offer.PromoCode, &r.CreatedAt)
	if err != nil {
		return domain.MonthlyReport{}, err
	}
	r.Method = domain.GenerationMethod(method)
	r.Metrics.EmotionalTrend = domain.Trend(trend)
	return r, nil
}

// CreateMonthly сохраняет месячный отчёт. Уникальный индекс
// (user_id, month, year) — единственный механизм идемпотентности:
// при конфликте возвращается существующая запись и false.
func (p *Postgres) CreateMonthly(ctx context.Context, report domain.MonthlyReport) (domain.MonthlyReport, bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO monthly_reports (user_id, month, year, weekly_report_ids, generation_method,
    total_quotes, unique_authors, active_days, weeks_active, top_themes, emotional_trend,
    profile, growth, recommendations, book_suggestions, discount, valid_until, promo_code)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
RETURNING id, created_at
`, report.UserID, report.Month, report.Year, report.WeeklyReportIDs, string(report.Method),
		report.Metrics.TotalQuotes, report.Metrics.UniqueAuthors, report.Metrics.ActiveDays, report.Metrics.WeeksActive,
		report.Metrics.TopThemes, string(report.Metrics.EmotionalTrend),
		report.Analysis.Profile, report.Analysis.Growth, report.Analysis.Recommendations, report.Analysis.BookSuggestions,
		report.Offer.Discount, report.Offer.ValidUntil, report.Offer.PromoCode,
	).Scan(&report.ID, &report.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "monthly_reports_insert", "monthly_reports", start, err)
	if isUniqueViolation(err) {
		existing, getErr := p.GetMonthly(ctx, report.UserID, report.Month, report.Year)
		if getErr != nil {
			return domain.MonthlyReport{}, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return domain.MonthlyReport{}, false, err
	}
	userID := report.UserID
	_ = p.saveBusinessMetric(ctx, domain.BusinessMetric{
		Event:    domain.BusinessMetricEventMonthlyGenerated,
		UserID:   &userID,
		Metadata: map[string]any{"month": report.Month, "year": report.Year, "method": string(report.Method)},
	})
	return report, true, nil
}

// GetMonthly возвращает месячный отчёт периода.
func (p *Postgres) GetMonthly(ctx context.Context, userID int64, month, year int) (domain.MonthlyReport, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	report, err := scanMonthly(p.pool.QueryRow(ctx, `
SELECT `+monthlyColumns+` FROM monthly_reports
WHERE user_id=$1 AND month=$2 AND year=$3
`, userID, month, year))
	metrics.ObserveNetworkRequest("postgres", "monthly_reports_get", "monthly_reports", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MonthlyReport{}, domain.ErrNotFound
	}
	return report, err
}
