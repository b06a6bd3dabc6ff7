package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	QuotesSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quotes_saved_total",
		Help: "Количество сохранённых цитат",
	})
	QuotesLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quotes_limited_total",
		Help: "Отказы по дневному лимиту цитат",
	})
	ClassificationFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "classification_fallback_total",
		Help: "Классификации, ушедшие в детерминированный фолбэк",
	})
	AchievementsUnlockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "achievements_unlocked_total",
		Help: "Открытые достижения",
	})
	ReportsGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_generated_total",
		Help: "Сгенерированные отчёты",
	}, []string{"period", "method"})
	ReportBuildSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "report_build_seconds",
		Help:    "Время построения отчёта",
		Buckets: prometheus.DefBuckets,
	}, []string{"period"})
	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Итоги доставки уведомлений",
	}, []string{"slot", "status"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		QuotesSavedTotal,
		QuotesLimitedTotal,
		ClassificationFallbackTotal,
		AchievementsUnlockedTotal,
		ReportsGeneratedTotal,
		ReportBuildSeconds,
		NotificationsTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// ObserveReportBuild записывает время построения отчёта за период.
func ObserveReportBuild(period string, start time.Time) {
	ReportBuildSeconds.WithLabelValues(period).Observe(time.Since(start).Seconds())
}

// IncReportGenerated увеличивает счётчик сгенерированных отчётов.
func IncReportGenerated(period, method string) {
	ReportsGeneratedTotal.WithLabelValues(period, method).Inc()
}

// IncNotification фиксирует исход доставки в слоте.
func IncNotification(slot, status string) {
	NotificationsTotal.WithLabelValues(slot, status).Inc()
}
