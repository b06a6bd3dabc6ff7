package domain

import "time"

// Sentiment описывает эмоциональную окраску цитаты.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Classification результат анализа цитаты языковой моделью.
type Classification struct {
	Category  string
	Themes    []string
	Sentiment Sentiment
	Insight   string
}

// Quote представляет сохранённую цитату пользователя.
// После классификации запись не изменяется.
type Quote struct {
	ID        int64
	UserID    int64
	Text      string
	Author    string
	Source    string
	Category  string
	Themes    []string
	Sentiment Sentiment
	Insight   string
	CreatedAt time.Time
}

// MonthlyCount хранит число цитат за календарный месяц.
type MonthlyCount struct {
	Month int
	Year  int
	Count int
}

// Statistics агрегирует активность пользователя.
type Statistics struct {
	TotalQuotes     int
	CurrentStreak   int
	LongestStreak   int
	LastQuoteDate   *time.Time
	FavoriteAuthors []string
	MonthlyCounts   []MonthlyCount
}

// Frequency задаёт режим напоминаний пользователя.
type Frequency string

const (
	FrequencyOff      Frequency = "off"
	FrequencyRare     Frequency = "rare"
	FrequencyStandard Frequency = "standard"
	FrequencyOften    Frequency = "often"
)

// ReminderSettings настройки напоминаний.
type ReminderSettings struct {
	Enabled   bool
	Frequency Frequency
	Times     []string
}

// User описывает пользователя Telegram в системе.
type User struct {
	ID           int64
	TGUserID     int64
	Name         string
	RegisteredAt time.Time
	Onboarded    bool
	IsActive     bool
	IsBlocked    bool
	Reminder     ReminderSettings
	LastSentAt   *time.Time
	Stats        Statistics
	UpdatedAt    time.Time
}

// AchievementType выбирает метрику, по которой проверяется условие.
type AchievementType string

const (
	AchievementQuotesCount       AchievementType = "quotes_count"
	AchievementStreakDays        AchievementType = "streak_days"
	AchievementClassicsCount     AchievementType = "classics_count"
	AchievementOwnThoughts       AchievementType = "own_thoughts"
	AchievementCategoryDiversity AchievementType = "category_diversity"
	AchievementDaysWithBot       AchievementType = "days_with_bot"
)

// Achievement описывает запись статического каталога достижений.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Type        AchievementType
	Target      int
}

// UnlockedAchievement отметка об открытом достижении пользователя.
type UnlockedAchievement struct {
	AchievementID string
	UnlockedAt    time.Time
}

// AchievementProgress прогресс по достижению для экрана статуса.
type AchievementProgress struct {
	Achievement Achievement
	Current     int
	Unlocked    bool
}

// WeeklyMetrics количественные итоги недели.
type WeeklyMetrics struct {
	Quotes        int
	UniqueAuthors int
	ActiveDays    int
}

// WeeklyAnalysis нарративная часть недельного отчёта.
type WeeklyAnalysis struct {
	DominantThemes []string
	EmotionalTone  string
	Insights       string
}

// WeeklyReport недельный отчёт, один на (userID, week, year).
type WeeklyReport struct {
	ID        int64
	UserID    int64
	Week      int
	Year      int
	Metrics   WeeklyMetrics
	Analysis  WeeklyAnalysis
	CreatedAt time.Time
}

// GenerationMethod показывает, какая стратегия построила месячный отчёт.
type GenerationMethod string

const (
	MethodWeeklyReports GenerationMethod = "weekly_reports"
	MethodTopQuotes     GenerationMethod = "top_quotes"
)

// Trend описывает эмоциональную динамику месяца.
type Trend string

const (
	TrendGrowing  Trend = "растущая"
	TrendStable   Trend = "стабильная"
	TrendShifting Trend = "меняющаяся"
	TrendMixed    Trend = "смешанная"
)

// MonthlyMetrics количественные итоги месяца.
type MonthlyMetrics struct {
	TotalQuotes    int
	UniqueAuthors  int
	ActiveDays     int
	WeeksActive    int
	TopThemes      []string
	EmotionalTrend Trend
}

// MonthlyAnalysis нарративная часть месячного отчёта.
type MonthlyAnalysis struct {
	Profile         string
	Growth          string
	Recommendations string
	BookSuggestions []string
}

// SpecialOffer прикладывается к каждому месячному отчёту.
type SpecialOffer struct {
	Discount   int
	ValidUntil time.Time
	PromoCode  string
}

// MonthlyReport месячный отчёт, один на (userID, month, year).
type MonthlyReport struct {
	ID              int64
	UserID          int64
	Month           int
	Year            int
	WeeklyReportIDs []int64
	Method          GenerationMethod
	Metrics         MonthlyMetrics
	Analysis        MonthlyAnalysis
	Offer           SpecialOffer
	CreatedAt       time.Time
}

// Category элемент живого каталога категорий.
type Category struct {
	ID       int64
	Name     string
	Keywords []string
	IsActive bool
}

// CategoryOther — категория-ловушка: всё, что не удалось сопоставить
// каталогу, попадает сюда. Запись всегда присутствует в каталоге.
const CategoryOther = "ДРУГОЕ"

// Slot именованное окно доставки уведомлений.
type Slot string

const (
	SlotMorning       Slot = "morning"
	SlotDay           Slot = "day"
	SlotEvening       Slot = "evening"
	SlotReport        Slot = "report"
	SlotMonthlyReport Slot = "monthly_report"
)

// IsReminder отличает ежедневные слоты от отчётных.
func (s Slot) IsReminder() bool {
	return s == SlotMorning || s == SlotDay || s == SlotEvening
}

// TemplateButton инлайн-кнопка шаблона.
type TemplateButton struct {
	Text string
	URL  string
}

// Template шаблон уведомления на (dateKey, slot).
type Template struct {
	DateKey  string
	Slot     Slot
	Text     string
	ImageRef string
	Button   *TemplateButton
}

// IsEmpty сообщает, что слоту нечего отправлять.
func (t Template) IsEmpty() bool {
	return t.Text == "" && t.ImageRef == ""
}

// DeliveryStats итоги обработки слота.
type DeliveryStats struct {
	Eligible int
	Sent     int
	Skipped  int
	Blocked  int
	Failed   int
	Errors   []string
}

// BatchStats итоги пакетной генерации отчётов.
type BatchStats struct {
	Total     int
	Generated int
	Skipped   int
	Failed    int
	Errors    []string
}
