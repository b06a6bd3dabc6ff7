package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
)

const userColumns = `id, tg_user_id, name, registered_at, onboarded, is_active, is_blocked,
reminder_enabled, reminder_frequency, reminder_times, last_sent_at,
total_quotes, current_streak, longest_streak, last_quote_date, favorite_authors, updated_at`

type userRow interface {
	Scan(dest ...any) error
}

func scanUser(row userRow) (domain.User, error) {
	var (
		u         domain.User
		frequency string
		lastSent  sql.NullTime
		lastQuote sql.NullTime
	)
	err := row.Scan(&u.ID, &u.TGUserID, &u.Name, &u.RegisteredAt, &u.Onboarded, &u.IsActive, &u.IsBlocked,
		&u.Reminder.Enabled, &frequency, &u.Reminder.Times, &lastSent,
		&u.Stats.TotalQuotes, &u.Stats.CurrentStreak, &u.Stats.LongestStreak, &lastQuote, &u.Stats.FavoriteAuthors, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}
	u.Reminder.Frequency = domain.Frequency(frequency)
	if lastSent.Valid {
		ts := lastSent.Time
		u.LastSentAt = &ts
	}
	if lastQuote.Valid {
		ts := lastQuote.Time
		u.Stats.LastQuoteDate = &ts
	}
	return u, nil
}

// UpsertByTGID регистрирует пользователя или обновляет имя.
func (p *Postgres) UpsertByTGID(ctx context.Context, tgUserID int64, name string) (domain.User, bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
INSERT INTO users (tg_user_id, name)
VALUES ($1, NULLIF($2,''))
ON CONFLICT (tg_user_id) DO UPDATE SET name = COALESCE(NULLIF(EXCLUDED.name,''), users.name), updated_at = now()
RETURNING `+userColumns+`, (xmax = 0) AS inserted
`, tgUserID, name)

	var (
		u         domain.User
		frequency string
		lastSent  sql.NullTime
		lastQuote sql.NullTime
		created   bool
	)
	err := row.Scan(&u.ID, &u.TGUserID, &u.Name, &u.RegisteredAt, &u.Onboarded, &u.IsActive, &u.IsBlocked,
		&u.Reminder.Enabled, &frequency, &u.Reminder.Times, &lastSent,
		&u.Stats.TotalQuotes, &u.Stats.CurrentStreak, &u.Stats.LongestStreak, &lastQuote, &u.Stats.FavoriteAuthors, &u.UpdatedAt, &created)
	metrics.ObserveNetworkRequest("postgres", "users_upsert", "users", start, err)
	if err != nil {
		return domain.User{}, false, err
	}
	u.Reminder.Frequency = domain.Frequency(frequency)
	if lastSent.Valid {
		ts := lastSent.Time
		u.LastSentAt = &ts
	}
	if lastQuote.Valid {
		ts := lastQuote.Time
		u.Stats.LastQuoteDate = &ts
	}
	if created {
		userID := u.ID
		_ = p.saveBusinessMetric(ctx, domain.BusinessMetric{
			Event:    domain.BusinessMetricEventUserRegistered,
			UserID:   &userID,
			Metadata: map[string]any{"tg_user_id": u.TGUserID},
		})
	}
	return u, created, nil
}

// GetByTGID возвращает пользователя по Telegram ID вместе с помесячными счётчиками.
func (p *Postgres) GetByTGID(ctx context.Context, tgUserID int64) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	user, err := scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE tg_user_id=$1`, tgUserID))
	metrics.ObserveNetworkRequest("postgres", "users_get_by_tgid", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	user.Stats.MonthlyCounts, err = p.loadMonthlyCounts(ctx, user.ID)
	return user, err
}

// GetByID возвращает пользователя по внутреннему идентификатору.
func (p *Postgres) GetByID(ctx context.Context, id int64) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	user, err := scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	metrics.ObserveNetworkRequest("postgres", "users_get_by_id", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	user.Stats.MonthlyCounts, err = p.loadMonthlyCounts(ctx, user.ID)
	return user, err
}

func (p *Postgres) loadMonthlyCounts(ctx context.Context, userID int64) ([]domain.MonthlyCount, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT month, year, count FROM user_monthly_counts
WHERE user_id=$1 ORDER BY year, month
`, userID)
	metrics.ObserveNetworkRequest("postgres", "user_monthly_counts_list", "user_monthly_counts", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var counts []domain.MonthlyCount
	for rows.Next() {
		var c domain.MonthlyCount
		if err := rows.Scan(&c.Month, &c.Year, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ListEligibleForReminders возвращает базовую выборку получателей:
// активные, не заблокированные, прошедшие онбординг, с включёнными напоминаниями.
func (p *Postgres) ListEligibleForReminders(ctx context.Context) ([]domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+userColumns+` FROM users
WHERE is_active AND NOT is_blocked AND onboarded AND reminder_enabled
`)
	metrics.ObserveNetworkRequest("postgres", "users_list_eligible", "users", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListRegisteredBefore возвращает активных пользователей, зарегистрированных до указанного момента.
func (p *Postgres) ListRegisteredBefore(ctx context.Context, before time.Time) ([]domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+userColumns+` FROM users
WHERE is_active AND NOT is_blocked AND registered_at < $1
`, before)
	metrics.ObserveNetworkRequest("postgres", "users_list_registered_before", "users", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetReminder сохраняет настройки напоминаний.
func (p *Postgres) SetReminder(ctx context.Context, userID int64, settings domain.ReminderSettings) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE users SET reminder_enabled=$2, reminder_frequency=$3, reminder_times=$4, updated_at=now()
WHERE id=$1
`, userID, settings.Enabled, string(settings.Frequency), settings.Times)
	metrics.ObserveNetworkRequest("postgres", "users_set_reminder", "users", start, err)
	return err
}

// DisableReminders выключает напоминания: вызывается при блокировке бота получателем.
func (p *Postgres) DisableReminders(ctx context.Context, userID int64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE users SET reminder_enabled=false, updated_at=now() WHERE id=$1
`, userID)
	metrics.ObserveNetworkRequest("postgres", "users_disable_reminders", "users", start, err)
	if err == nil {
		uID := userID
		_ = p.saveBusinessMetric(ctx, domain.BusinessMetric{
			Event:  domain.BusinessMetricEventRemindersDisabled,
			UserID: &uID,
		})
	}
	return err
}

// MarkOnboarded отмечает завершение онбординга.
func (p *Postgres) MarkOnboarded(ctx context.Context, userID int64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `UPDATE users SET onboarded=true, updated_at=now() WHERE id=$1`, userID)
	metrics.ObserveNetworkRequest("postgres", "users_mark_onboarded", "users", start, err)
	return err
}

// UpdateLastSentAt обновляет отметку последней доставки (best effort).
func (p *Postgres) UpdateLastSentAt(ctx context.Context, userID int64, at time.Time) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `UPDATE users SET last_sent_at=$2 WHERE id=$1`, userID, at)
	metrics.ObserveNetworkRequest("postgres", "users_update_last_sent", "users", start, err)
	if err == nil {
		_ = p.saveBusinessMetric(ctx, domain.BusinessMetric{
			Event:  domain.BusinessMetricEventNotificationSent,
			UserID: &userID,
		})
	}
	return err
}
