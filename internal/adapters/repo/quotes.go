package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
)

func dayBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 0, 1)
}

// SubmitQuote атомарно проверяет дневной лимит, сохраняет цитату и
// обновляет статистику. Строка пользователя блокируется FOR UPDATE,
// поэтому гонка двух одновременных отправок одного пользователя не
// может превысить лимит даже при нескольких репликах гейтвея.
func (p *Postgres) SubmitQuote(ctx context.Context, userID int64, quote domain.Quote, dailyLimit int, now time.Time) (domain.SubmitOutcome, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "quotes", start, err)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}
	defer tx.Rollback(ctx)

	var (
		stats     domain.Statistics
		lastQuote sql.NullTime
	)
	start = time.Now()
	err = tx.QueryRow(ctx, `
SELECT total_quotes, current_streak, longest_streak, last_quote_date, favorite_authors
FROM users WHERE id=$1 FOR UPDATE
`, userID).Scan(&stats.TotalQuotes, &stats.CurrentStreak, &stats.LongestStreak, &lastQuote, &stats.FavoriteAuthors)
	metrics.ObserveNetworkRequest("postgres", "users_get_for_update", "users", start, err)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}
	if lastQuote.Valid {
		ts := lastQuote.Time
		stats.LastQuoteDate = &ts
	}

	dayFrom, dayTo := dayBounds(now)
	var todayCount int
	start = time.Now()
	err = tx.QueryRow(ctx, `
SELECT COUNT(*) FROM quotes WHERE user_id=$1 AND created_at >= $2 AND created_at < $3
`, userID, dayFrom, dayTo).Scan(&todayCount)
	metrics.ObserveNetworkRequest("postgres", "quotes_count_today", "quotes", start, err)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}
	if dailyLimit > 0 && todayCount >= dailyLimit {
		return domain.SubmitOutcome{LimitReached: true, Stats: stats}, nil
	}

	start = time.Now()
	err = tx.QueryRow(ctx, `
INSERT INTO quotes (user_id, text, author, source, category, themes, sentiment, insight, created_at)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,$7,$8,$9)
RETURNING id
`, userID, quote.Text, quote.Author, quote.Source, quote.Category, quote.Themes, string(quote.Sentiment), quote.Insight, now).Scan(&quote.ID)
	metrics.ObserveNetworkRequest("postgres", "quotes_insert", "quotes", start, err)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}
	quote.UserID = userID
	quote.CreatedAt = now

	stats = domain.ApplyQuote(stats, quote.Author, now)

	start = time.Now()
	_, err = tx.Exec(ctx, `
UPDATE users SET total_quotes=$2, current_streak=$3, longest_streak=$4, last_quote_date=$5,
favorite_authors=$6, updated_at=now()
WHERE id=$1
`, userID, stats.TotalQuotes, stats.CurrentStreak, stats.LongestStreak, stats.LastQuoteDate, stats.FavoriteAuthors)
	metrics.ObserveNetworkRequest("postgres", "users_update_stats", "users", start, err)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}

	start = time.Now()
	_, err = tx.Exec(ctx, `
INSERT INTO user_monthly_counts (user_id, month, year, count)
VALUES ($1,$2,$3,1)
ON CONFLICT (user_id, month, year) DO UPDATE SET count = user_monthly_counts.count + 1
`, userID, int(now.Month()), now.Year())
	metrics.ObserveNetworkRequest("postgres", "user_monthly_counts_upsert", "user_monthly_counts", start, err)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "quotes", start, err)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}

	uID := userID
	_ = p.saveBusinessMetric(ctx, domain.BusinessMetric{
		Event:  domain.BusinessMetricEventQuoteAdded,
		UserID: &uID,
		Metadata: map[string]any{
			"category":  quote.Category,
			"sentiment": string(quote.Sentiment),
		},
	})
	return domain.SubmitOutcome{Quote: quote, Stats: stats}, nil
}

// CountForDay считает цитаты пользователя за календарный день.
func (p *Postgres) CountForDay(ctx context.Context, userID int64, day time.Time) (int, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	from, to := dayBounds(day)
	var count int
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM quotes WHERE user_id=$1 AND created_at >= $2 AND created_at < $3
`, userID, from, to).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "quotes_count_for_day", "quotes", start, err)
	return count, err
}

// MapCountsForDay возвращает число цитат за день по всем пользователям разом.
func (p *Postgres) MapCountsForDay(ctx context.Context, day time.Time) (map[int64]int, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	from, to := dayBounds(day)
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT user_id, COUNT(*) FROM quotes
WHERE created_at >= $1 AND created_at < $2
GROUP BY user_id
`, from, to)
	metrics.ObserveNetworkRequest("postgres", "quotes_map_counts_for_day", "quotes", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[int64]int)
	for rows.Next() {
		var (
			userID int64
			count  int
		)
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		counts[userID] = count
	}
	return counts, rows.Err()
}

const quoteColumns = `id, user_id, text, COALESCE(author,''), COALESCE(source,''), category, themes, sentiment, insight, created_at`

func scanQuote(row userRow) (domain.Quote, error) {
	var (
		q         domain.Quote
		sentiment string
	)
	err := row.Scan(&q.ID, &q.UserID, &q.Text, &q.Author, &q.Source, &q.Category, &q.Themes, &sentiment, &q.Insight, &q.CreatedAt)
	if err != nil {
		return domain.Quote{}, err
	}
	q.Sentiment = domain.Sentiment(sentiment)
	return q, nil
}

// ListForPeriod возвращает цитаты пользователя за период [from, to).
func (p *Postgres) ListForPeriod(ctx context.Context, userID int64, from, to time.Time) ([]domain.Quote, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+quoteColumns+` FROM quotes
WHERE user_id=$1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at
`, userID, from, to)
	metrics.ObserveNetworkRequest("postgres", "quotes_list_for_period", "quotes", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var quotes []domain.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// ListEarliestForPeriod возвращает первые limit цитат периода для
// фолбэк-стратегии месячного отчёта.
func (p *Postgres) ListEarliestForPeriod(ctx context.Context, userID int64, from, to time.Time, limit int) ([]domain.Quote, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+quoteColumns+` FROM quotes
WHERE user_id=$1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at
LIMIT $4
`, userID, from, to, limit)
	metrics.ObserveNetworkRequest("postgres", "quotes_list_earliest", "quotes", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var quotes []domain.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
