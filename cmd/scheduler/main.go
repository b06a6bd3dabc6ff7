package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/adapters/analyzer"
	"tg-quotes-bot/internal/adapters/repo"
	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/cache"
	"tg-quotes-bot/internal/infra/config"
	"tg-quotes-bot/internal/infra/db"
	infrahttp "tg-quotes-bot/internal/infra/http"
	"tg-quotes-bot/internal/infra/log"
	"tg-quotes-bot/internal/infra/metrics"
	"tg-quotes-bot/internal/infra/openai"
	"tg-quotes-bot/internal/infra/queue"
	"tg-quotes-bot/internal/usecase/reports"
)

// slotGuardTTL защищает слот от повторной публикации при
// нескольких экземплярах планировщика.
const slotGuardTTL = 20 * time.Hour

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("неизвестная таймзона")
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	openaiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.LLMTimeout())
	analyzerAdapter := analyzer.NewOpenAI(openaiClient, cfg.OpenAI.Model, cfg.LLMTimeout())
	reportService := reports.NewService(repoAdapter, repoAdapter, repoAdapter, analyzerAdapter, loc, reports.Config{
		MinWeeklyReports: cfg.Limits.MinWeeklyReports,
		TopQuotes:        cfg.Limits.TopQuotes,
		OfferDiscount:    cfg.Offer.Discount,
		OfferValidDays:   cfg.Offer.ValidDays,
	}, logger)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	guard := cache.NewRedis(redisClient)

	slotQueue, closeQueue, err := buildQueue(cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к очереди")
	}
	defer closeQueue()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	enqueueSlot := func(slot domain.Slot, before func(now time.Time)) func() {
		return func() {
			now := time.Now().In(loc)
			dateKey := now.Format("2006-01-02")
			key := fmt.Sprintf("slot:%s:%s", dateKey, slot)
			err := guard.Once(key, slotGuardTTL, func() error {
				if before != nil {
					before(now)
				}
				return slotQueue.Enqueue(ctx, domain.SlotJob{
					ID:          uuid.NewString(),
					Slot:        slot,
					DateKey:     dateKey,
					ScheduledAt: now,
				})
			})
			if err != nil {
				logger.Error().Err(err).Str("slot", string(slot)).Msg("слот не опубликован")
				return
			}
			logger.Info().Str("slot", string(slot)).Str("date", dateKey).Msg("слот опубликован")
		}
	}

	c := cron.New(cron.WithLocation(loc))
	mustAdd(logger, c, "0 9 * * *", enqueueSlot(domain.SlotMorning, nil))
	mustAdd(logger, c, "0 14 * * *", enqueueSlot(domain.SlotDay, nil))
	mustAdd(logger, c, "0 19 * * *", enqueueSlot(domain.SlotEvening, nil))
	mustAdd(logger, c, "0 20 * * 0", enqueueSlot(domain.SlotReport, func(now time.Time) {
		logBatch(logger, "weekly", reportService.GenerateWeeklyForAll(ctx, now))
	}))
	mustAdd(logger, c, "0 12 1 * *", enqueueSlot(domain.SlotMonthlyReport, func(now time.Time) {
		logBatch(logger, "monthly", reportService.GenerateMonthlyForAll(ctx, now))
	}))

	srv := infrahttp.NewServer(logger)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	c.Start()
	logger.Info().Str("tz", cfg.TZ).Msg("планировщик запущен")

	<-ctx.Done()
	logger.Info().Msg("остановка планировщика")
	<-c.Stop().Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildQueue(cfg config.AppConfig, redisClient *redis.Client) (domain.SlotQueue, func(), error) {
	if cfg.Queue.Driver == "rabbitmq" {
		q, err := queue.NewRabbitSlotQueue(cfg.Queue.AMQP, cfg.Queue.Name)
		if err != nil {
			return nil, nil, err
		}
		return q, func() { _ = q.Close() }, nil
	}
	return queue.NewRedisSlotQueue(redisClient, cfg.Queue.Name), func() {}, nil
}

func mustAdd(logger zerolog.Logger, c *cron.Cron, spec string, fn func()) {
	if _, err := c.AddFunc(spec, fn); err != nil {
		logger.Fatal().Err(err).Str("spec", spec).Msg("некорректное cron-выражение")
	}
}

func logBatch(logger zerolog.Logger, period string, stats domain.BatchStats) {
	ev := logger.Info()
	if stats.Failed > 0 {
		ev = logger.Warn().Strs("errors", stats.Errors)
	}
	ev.Str("period", period).
		Int("total", stats.Total).
		Int("generated", stats.Generated).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("пакетная генерация отчётов завершена")
}
