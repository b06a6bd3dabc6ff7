package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
)

// AchievementEvaluator проверяет достижения после успешной записи.
type AchievementEvaluator interface {
	Evaluate(ctx context.Context, userID int64) ([]domain.Achievement, error)
}

// Result итог отправки цитаты.
type Result struct {
	Quote           domain.Quote
	Stats           domain.Statistics
	NewAchievements []domain.Achievement
}

// Service принимает цитаты: проверяет дневной лимит, разбирает текст,
// классифицирует и атомарно сохраняет цитату вместе со статистикой.
type Service struct {
	quotes       domain.QuoteRepo
	classifier   domain.Classifier
	achievements AchievementEvaluator
	dailyLimit   int
	log          zerolog.Logger
	now          func() time.Time
}

// NewService создаёт сервис приёма цитат.
func NewService(quotes domain.QuoteRepo, classifier domain.Classifier, achievements AchievementEvaluator, dailyLimit int, logger zerolog.Logger) *Service {
	return &Service{
		quotes:       quotes,
		classifier:   classifier,
		achievements: achievements,
		dailyLimit:   dailyLimit,
		log:          logger,
		now:          time.Now,
	}
}

// Submit обрабатывает свободный текст пользователя. Лимит проверяется
// до обращения к модели: заведомо отклоняемая цитата не тратит вызов
// классификатора. Гонку между репликами закрывает повторная проверка
// внутри транзакции записи. Классификация не может провалить отправку:
// гейтвей всегда возвращает валидный результат. Проверка достижений
// идёт после фиксации записи, её ошибка не отменяет уже сохранённую
// цитату.
func (s *Service) Submit(ctx context.Context, userID int64, rawText string) (Result, error) {
	if strings.TrimSpace(rawText) == "" {
		return Result{}, domain.ErrEmptyQuote
	}

	count, err := s.quotes.CountForDay(ctx, userID, s.now())
	if err != nil {
		return Result{}, fmt.Errorf("счётчик цитат за день: %w", err)
	}
	if count >= s.dailyLimit {
		metrics.QuotesLimitedTotal.Inc()
		return Result{}, domain.ErrDailyLimit
	}

	parsed := ParseQuote(rawText)
	classification := s.classifier.Classify(ctx, parsed.Text, parsed.Author)

	quote := domain.Quote{
		UserID:    userID,
		Text:      parsed.Text,
		Author:    parsed.Author,
		Source:    parsed.Source,
		Category:  classification.Category,
		Themes:    classification.Themes,
		Sentiment: classification.Sentiment,
		Insight:   classification.Insight,
	}

	outcome, err := s.quotes.SubmitQuote(ctx, userID, quote, s.dailyLimit, s.now())
	if err != nil {
		return Result{}, fmt.Errorf("сохранение цитаты: %w", err)
	}
	if outcome.LimitReached {
		metrics.QuotesLimitedTotal.Inc()
		return Result{}, domain.ErrDailyLimit
	}
	metrics.QuotesSavedTotal.Inc()

	newly, err := s.achievements.Evaluate(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user", userID).Msg("проверка достижений после цитаты не удалась")
	}

	return Result{
		Quote:           outcome.Quote,
		Stats:           outcome.Stats,
		NewAchievements: newly,
	}, nil
}

// CountToday возвращает число цитат пользователя за сегодня.
func (s *Service) CountToday(ctx context.Context, userID int64) (int, error) {
	return s.quotes.CountForDay(ctx, userID, s.now())
}

// DailyLimit отдаёт настроенный дневной лимит.
func (s *Service) DailyLimit() int {
	return s.dailyLimit
}
