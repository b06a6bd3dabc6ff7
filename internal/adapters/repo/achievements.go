package repo

import (
	"context"
	"time"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
)

// ListUnlocked возвращает открытые достижения пользователя.
func (p *Postgres) ListUnlocked(ctx context.Context, userID int64) ([]domain.UnlockedAchievement, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT achievement_id, unlocked_at FROM user_achievements
WHERE user_id=$1 ORDER BY unlocked_at
`, userID)
	metrics.ObserveNetworkRequest("postgres", "user_achievements_list", "user_achievements", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var unlocked []domain.UnlockedAchievement
	for rows.Next() {
		var ua domain.UnlockedAchievement
		if err := rows.Scan(&ua.AchievementID, &ua.UnlockedAt); err != nil {
			return nil, err
		}
		unlocked = append(unlocked, ua)
	}
	return unlocked, rows.Err()
}

// Unlock добавляет отметку об открытии. Уникальный индекс по
// (user_id, achievement_id) страхует от дублей: повторная вставка
// возвращает false.
func (p *Postgres) Unlock(ctx context.Context, userID int64, achievementID string, at time.Time) (bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
INSERT INTO user_achievements (user_id, achievement_id, unlocked_at)
VALUES ($1,$2,$3)
ON CONFLICT (user_id, achievement_id) DO NOTHING
`, userID, achievementID, at)
	metrics.ObserveNetworkRequest("postgres", "user_achievements_unlock", "user_achievements", start, err)
	if err != nil {
		return false, err
	}
	inserted := tag.RowsAffected() > 0
	if inserted {
		uID := userID
		_ = p.saveBusinessMetric(ctx, domain.BusinessMetric{
			Event:    domain.BusinessMetricEventAchievementOpened,
			UserID:   &uID,
			Metadata: map[string]any{"achievement_id": achievementID},
		})
	}
	return inserted, nil
}

// Facts собирает счётчики для условий достижений одним запросом.
func (p *Postgres) Facts(ctx context.Context, userID int64, classicAuthors []string) (domain.AchievementFacts, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var facts domain.AchievementFacts
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT
    COUNT(*) FILTER (WHERE author = ANY($2)),
    COUNT(*) FILTER (WHERE author IS NULL),
    COUNT(DISTINCT category)
FROM quotes WHERE user_id=$1
`, userID, classicAuthors).Scan(&facts.ClassicQuotes, &facts.Authorless, &facts.DistinctCategories)
	metrics.ObserveNetworkRequest("postgres", "quotes_achievement_facts", "quotes", start, err)
	return facts, err
}
