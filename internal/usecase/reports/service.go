package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/domain"
)

// Config настройки агрегатора отчётов.
type Config struct {
	MinWeeklyReports int
	TopQuotes        int
	OfferDiscount    int
	OfferValidDays   int
}

// Service строит недельные и месячные отчёты. Идемпотентность
// обеспечивается уникальными индексами периодов в хранилище:
// повторная генерация возвращает существующую запись.
type Service struct {
	reports  domain.ReportRepo
	quotes   domain.QuoteRepo
	users    domain.UserRepo
	analyzer domain.Analyzer
	loc      *time.Location
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewService создаёт агрегатор отчётов.
func NewService(reports domain.ReportRepo, quotes domain.QuoteRepo, users domain.UserRepo, analyzer domain.Analyzer, loc *time.Location, cfg Config, logger zerolog.Logger) *Service {
	if cfg.MinWeeklyReports <= 0 {
		cfg.MinWeeklyReports = 3
	}
	if cfg.TopQuotes <= 0 {
		cfg.TopQuotes = 20
	}
	if cfg.OfferDiscount <= 0 {
		cfg.OfferDiscount = 20
	}
	if cfg.OfferValidDays <= 0 {
		cfg.OfferValidDays = 7
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		reports:  reports,
		quotes:   quotes,
		users:    users,
		analyzer: analyzer,
		loc:      loc,
		cfg:      cfg,
		log:      logger,
		now:      time.Now,
	}
}

// GenerateWeeklyForAll строит отчёты за ISO-неделю, содержащую now,
// для всех пользователей старше недели. Ошибка одного пользователя
// не прерывает пакет.
func (s *Service) GenerateWeeklyForAll(ctx context.Context, now time.Time) domain.BatchStats {
	var stats domain.BatchStats
	users, err := s.users.ListRegisteredBefore(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("список пользователей: %v", err))
		return stats
	}
	year, week := now.In(s.loc).ISOWeek()
	stats.Total = len(users)
	for _, u := range users {
		report, err := s.GenerateWeekly(ctx, u.ID, week, year)
		switch {
		case err != nil:
			stats.Failed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("пользователь %d: %v", u.ID, err))
		case report == nil:
			stats.Skipped++
		default:
			stats.Generated++
		}
	}
	return stats
}

// GenerateMonthlyForAll строит отчёты за предыдущий календарный месяц
// для всех пользователей старше месяца.
func (s *Service) GenerateMonthlyForAll(ctx context.Context, now time.Time) domain.BatchStats {
	var stats domain.BatchStats
	users, err := s.users.ListRegisteredBefore(ctx, now.AddDate(0, -1, 0))
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("список пользователей: %v", err))
		return stats
	}

	local := now.In(s.loc)
	prevMonthEnd := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, 0, -1)
	month, year := int(prevMonthEnd.Month()), prevMonthEnd.Year()

	stats.Total = len(users)
	for _, u := range users {
		report, err := s.GenerateMonthly(ctx, u, month, year)
		switch {
		case err != nil:
			stats.Failed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("пользователь %d: %v", u.ID, err))
		case report == nil:
			stats.Skipped++
		default:
			stats.Generated++
		}
	}
	return stats
}
