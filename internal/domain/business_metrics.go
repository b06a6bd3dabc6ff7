package domain

import (
	"context"
	"time"
)

// События бизнес-аналитики, записываемые в БД.
const (
	BusinessMetricEventUserRegistered    = "user_registered"
	BusinessMetricEventQuoteAdded        = "quote_added"
	BusinessMetricEventAchievementOpened = "achievement_unlocked"
	BusinessMetricEventWeeklyGenerated   = "weekly_report_generated"
	BusinessMetricEventMonthlyGenerated  = "monthly_report_generated"
	BusinessMetricEventNotificationSent  = "notification_sent"
	BusinessMetricEventRemindersDisabled = "reminders_disabled"
)

// BusinessMetric одно событие аналитики.
type BusinessMetric struct {
	Event      string
	UserID     *int64
	Metadata   map[string]any
	OccurredAt time.Time
}

// BusinessMetricRepo сохраняет события аналитики.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}
