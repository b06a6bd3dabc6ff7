package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Moscow"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token      string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Queue struct {
		Driver string `envconfig:"QUEUE_DRIVER" default:"redis"`
		AMQP   string `envconfig:"AMQP_URL"`
		Name   string `envconfig:"SLOT_QUEUE_NAME" default:"slot_jobs"`
	} `envconfig:""`

	OpenAI struct {
		APIKey         string `envconfig:"OPENAI_API_KEY"`
		BaseURL        string `envconfig:"OPENAI_BASE_URL"`
		Model          string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
		TimeoutSeconds int    `envconfig:"OPENAI_TIMEOUT_SECONDS" default:"15"`
	} `envconfig:""`

	Limits struct {
		DailyQuotes      int `envconfig:"DAILY_QUOTES_LIMIT" default:"10"`
		MinWeeklyReports int `envconfig:"MIN_WEEKLY_REPORTS" default:"3"`
		TopQuotes        int `envconfig:"TOP_QUOTES_LIMIT" default:"20"`
	} `envconfig:""`

	Notify struct {
		Workers       int `envconfig:"NOTIFY_WORKERS" default:"4"`
		RatePerSecond int `envconfig:"NOTIFY_RATE_PER_SECOND" default:"25"`
	} `envconfig:""`

	Offer struct {
		Discount  int `envconfig:"OFFER_DISCOUNT" default:"20"`
		ValidDays int `envconfig:"OFFER_VALID_DAYS" default:"7"`
	} `envconfig:""`
}

// LLMTimeout возвращает таймаут обращений к языковой модели.
func (c AppConfig) LLMTimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSeconds) * time.Second
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
