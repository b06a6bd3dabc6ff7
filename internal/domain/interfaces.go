package domain

import (
	"context"
	"time"
)

// SubmitOutcome итог атомарной записи цитаты вместе со статистикой.
type SubmitOutcome struct {
	Quote        Quote
	Stats        Statistics
	LimitReached bool
}

// WeekKey адресует ISO-неделю.
type WeekKey struct {
	Year int
	Week int
}

// AchievementFacts счётчики, которые нельзя получить из Statistics.
type AchievementFacts struct {
	ClassicQuotes      int
	Authorless         int
	DistinctCategories int
}

// UserRepo управляет профилями пользователей.
type UserRepo interface {
	UpsertByTGID(ctx context.Context, tgUserID int64, name string) (User, bool, error)
	GetByTGID(ctx context.Context, tgUserID int64) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	ListEligibleForReminders(ctx context.Context) ([]User, error)
	ListRegisteredBefore(ctx context.Context, before time.Time) ([]User, error)
	SetReminder(ctx context.Context, userID int64, settings ReminderSettings) error
	DisableReminders(ctx context.Context, userID int64) error
	MarkOnboarded(ctx context.Context, userID int64) error
	UpdateLastSentAt(ctx context.Context, userID int64, at time.Time) error
}

// QuoteRepo управляет цитатами. SubmitQuote проверяет дневной лимит,
// сохраняет цитату и обновляет статистику в одной транзакции: при
// превышении лимита возвращается LimitReached без побочных эффектов.
type QuoteRepo interface {
	SubmitQuote(ctx context.Context, userID int64, quote Quote, dailyLimit int, now time.Time) (SubmitOutcome, error)
	CountForDay(ctx context.Context, userID int64, day time.Time) (int, error)
	MapCountsForDay(ctx context.Context, day time.Time) (map[int64]int, error)
	ListForPeriod(ctx context.Context, userID int64, from, to time.Time) ([]Quote, error)
	ListEarliestForPeriod(ctx context.Context, userID int64, from, to time.Time, limit int) ([]Quote, error)
}

// AchievementRepo хранит открытые достижения.
type AchievementRepo interface {
	ListUnlocked(ctx context.Context, userID int64) ([]UnlockedAchievement, error)
	Unlock(ctx context.Context, userID int64, achievementID string, at time.Time) (bool, error)
	Facts(ctx context.Context, userID int64, classicAuthors []string) (AchievementFacts, error)
}

// ReportRepo хранит отчёты. Create* опираются на уникальный индекс
// периода: повторная генерация возвращает существующую запись и false.
type ReportRepo interface {
	CreateWeekly(ctx context.Context, report WeeklyReport) (WeeklyReport, bool, error)
	GetWeekly(ctx context.Context, userID int64, week, year int) (WeeklyReport, error)
	ListWeeklies(ctx context.Context, userID int64, keys []WeekKey) ([]WeeklyReport, error)
	CreateMonthly(ctx context.Context, report MonthlyReport) (MonthlyReport, bool, error)
	GetMonthly(ctx context.Context, userID int64, month, year int) (MonthlyReport, error)
}

// CategoryRepo отдаёт живой каталог категорий.
type CategoryRepo interface {
	ListActive(ctx context.Context) ([]Category, error)
}

// TemplateRepo отдаёт шаблон уведомления для (dateKey, slot).
type TemplateRepo interface {
	Get(ctx context.Context, dateKey string, slot Slot) (Template, error)
}

// ChatTransport отправляет сообщения пользователю. Блокировка бота
// получателем возвращается как ErrUserBlockedBot.
type ChatTransport interface {
	SendText(ctx context.Context, tgUserID int64, text string, button *TemplateButton) error
	SendImage(ctx context.Context, tgUserID int64, imageRef, caption string, button *TemplateButton) error
}

// Classifier классифицирует цитату. Ошибки коллаборатора поглощаются:
// результат всегда валиден и пригоден для записи.
type Classifier interface {
	Classify(ctx context.Context, text, author string) Classification
}

// Analyzer строит нарративные части отчётов через языковую модель.
type Analyzer interface {
	AnalyzeWeek(ctx context.Context, texts []string) (WeeklyAnalysis, error)
	AnalyzeMonthWeeklies(ctx context.Context, reports []WeeklyReport) (MonthlyAnalysis, error)
	AnalyzeMonthQuotes(ctx context.Context, quotes []Quote) (MonthlyAnalysis, error)
}

// SlotQueue очередь задач доставки между планировщиком и нотификатором.
type SlotQueue interface {
	Enqueue(ctx context.Context, job SlotJob) error
	Pop(ctx context.Context) (SlotJob, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
