package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-quotes-bot/internal/adapters/repo"
	"tg-quotes-bot/internal/adapters/telegram"
	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/cache"
	"tg-quotes-bot/internal/infra/config"
	"tg-quotes-bot/internal/infra/db"
	infrahttp "tg-quotes-bot/internal/infra/http"
	"tg-quotes-bot/internal/infra/log"
	"tg-quotes-bot/internal/infra/metrics"
	"tg-quotes-bot/internal/infra/queue"
	"tg-quotes-bot/internal/usecase/notify"
)

// dispatchGuardTTL не даёт обработать один и тот же слот дважды,
// если задача попала в очередь повторно.
const dispatchGuardTTL = 20 * time.Hour

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

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	transport := telegram.NewSender(botAPI, logger)

	dispatcher := notify.NewService(repoAdapter, repoAdapter, repoAdapter, transport, notify.Config{
		Workers:       cfg.Notify.Workers,
		RatePerSecond: cfg.Notify.RatePerSecond,
		DailyQuotes:   cfg.Limits.DailyQuotes,
	}, loc, logger)

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

	srv := infrahttp.NewServer(logger)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	logger.Info().Str("queue", cfg.Queue.Driver).Msg("нотификатор запущен")

	for {
		job, err := slotQueue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			logger.Error().Err(err).Msg("не удалось получить задачу")
			continue
		}

		key := fmt.Sprintf("dispatch:%s:%s", job.DateKey, job.Slot)
		err = guard.Once(key, dispatchGuardTTL, func() error {
			stats, err := dispatcher.DispatchSlot(ctx, job.Slot, job.DateKey)
			if err != nil {
				return err
			}
			ev := logger.Info()
			if stats.Failed > 0 {
				ev = logger.Warn().Strs("errors", stats.Errors)
			}
			ev.Str("slot", string(job.Slot)).
				Str("date", job.DateKey).
				Int("eligible", stats.Eligible).
				Int("sent", stats.Sent).
				Int("blocked", stats.Blocked).
				Int("failed", stats.Failed).
				Msg("слот обработан")
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Str("slot", string(job.Slot)).Str("date", job.DateKey).Msg("обработка слота прервана")
		}
	}

	logger.Info().Msg("остановка нотификатора")
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
