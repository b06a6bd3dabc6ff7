package achievements

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
)

// Service проверяет условия достижений по текущему состоянию
// пользователя. Повторная проверка никогда не открывает достижение
// дважды: членство проверяется по списку открытых, а запись в
// хранилище дополнительно защищена уникальным ключом.
type Service struct {
	repo  domain.AchievementRepo
	users domain.UserRepo
	log   zerolog.Logger
	now   func() time.Time
}

// NewService создаёт движок достижений.
func NewService(repo domain.AchievementRepo, users domain.UserRepo, logger zerolog.Logger) *Service {
	return &Service{repo: repo, users: users, log: logger, now: time.Now}
}

// Evaluate проверяет каталог и возвращает только новые достижения.
func (s *Service) Evaluate(ctx context.Context, userID int64) ([]domain.Achievement, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("профиль пользователя: %w", err)
	}
	unlocked, err := s.repo.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("открытые достижения: %w", err)
	}
	facts, err := s.repo.Facts(ctx, userID, classicAuthors)
	if err != nil {
		return nil, fmt.Errorf("счётчики достижений: %w", err)
	}

	have := make(map[string]struct{}, len(unlocked))
	for _, u := range unlocked {
		have[u.AchievementID] = struct{}{}
	}

	now := s.now()
	var newly []domain.Achievement
	for _, a := range defaultCatalog {
		if _, ok := have[a.ID]; ok {
			continue
		}
		if s.currentValue(a, user, facts, now) < a.Target {
			continue
		}
		inserted, err := s.repo.Unlock(ctx, userID, a.ID, now)
		if err != nil {
			return newly, fmt.Errorf("открытие достижения %s: %w", a.ID, err)
		}
		if inserted {
			metrics.AchievementsUnlockedTotal.Inc()
			newly = append(newly, a)
		}
	}
	return newly, nil
}

// Progress возвращает прогресс по всему каталогу. Чистое чтение.
func (s *Service) Progress(ctx context.Context, userID int64) ([]domain.AchievementProgress, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("профиль пользователя: %w", err)
	}
	unlocked, err := s.repo.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("открытые достижения: %w", err)
	}
	facts, err := s.repo.Facts(ctx, userID, classicAuthors)
	if err != nil {
		return nil, fmt.Errorf("счётчики достижений: %w", err)
	}

	have := make(map[string]struct{}, len(unlocked))
	for _, u := range unlocked {
		have[u.AchievementID] = struct{}{}
	}

	now := s.now()
	out := make([]domain.AchievementProgress, 0, len(defaultCatalog))
	for _, a := range defaultCatalog {
		_, ok := have[a.ID]
		current := s.currentValue(a, user, facts, now)
		if current > a.Target {
			current = a.Target
		}
		if ok {
			current = a.Target
		}
		out = append(out, domain.AchievementProgress{
			Achievement: a,
			Current:     current,
			Unlocked:    ok,
		})
	}
	return out, nil
}

// currentValue выбирает метрику условия по типу достижения.
func (s *Service) currentValue(a domain.Achievement, user domain.User, facts domain.AchievementFacts, now time.Time) int {
	switch a.Type {
	case domain.AchievementQuotesCount:
		return user.Stats.TotalQuotes
	case domain.AchievementStreakDays:
		return user.Stats.CurrentStreak
	case domain.AchievementClassicsCount:
		return facts.ClassicQuotes
	case domain.AchievementOwnThoughts:
		return facts.Authorless
	case domain.AchievementCategoryDiversity:
		return facts.DistinctCategories
	case domain.AchievementDaysWithBot:
		if user.Stats.TotalQuotes < veteranMinQuotes {
			return 0
		}
		return int(now.Sub(user.RegisteredAt).Hours() / 24)
	default:
		s.log.Warn().Str("type", string(a.Type)).Msg("неизвестный тип достижения")
		return 0
	}
}
