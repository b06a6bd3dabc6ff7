package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"tg-quotes-bot/internal/adapters/analyzer"
	"tg-quotes-bot/internal/adapters/bot"
	"tg-quotes-bot/internal/adapters/classifier"
	"tg-quotes-bot/internal/adapters/repo"
	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/config"
	"tg-quotes-bot/internal/infra/db"
	infrahttp "tg-quotes-bot/internal/infra/http"
	"tg-quotes-bot/internal/infra/log"
	"tg-quotes-bot/internal/infra/metrics"
	"tg-quotes-bot/internal/infra/openai"
	"tg-quotes-bot/internal/usecase/achievements"
	"tg-quotes-bot/internal/usecase/catalog"
	"tg-quotes-bot/internal/usecase/intake"
	"tg-quotes-bot/internal/usecase/reports"
)

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
	catalogService := catalog.NewService(repoAdapter, 0, logger)

	var quoteClassifier domain.Classifier
	openaiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.LLMTimeout())
	if cfg.OpenAI.APIKey != "" {
		quoteClassifier = classifier.NewOpenAI(openaiClient, catalogService, cfg.OpenAI.Model, cfg.LLMTimeout(), logger)
	} else {
		logger.Warn().Msg("ключ OpenAI не задан, классификация работает детерминированно")
		quoteClassifier = classifier.NewFallback(catalogService)
	}

	achievementService := achievements.NewService(repoAdapter, repoAdapter, logger)
	intakeService := intake.NewService(repoAdapter, quoteClassifier, achievementService, cfg.Limits.DailyQuotes, logger)
	analyzerAdapter := analyzer.NewOpenAI(openaiClient, cfg.OpenAI.Model, cfg.LLMTimeout())
	reportService := reports.NewService(repoAdapter, repoAdapter, repoAdapter, analyzerAdapter, loc, reports.Config{
		MinWeeklyReports: cfg.Limits.MinWeeklyReports,
		TopQuotes:        cfg.Limits.TopQuotes,
		OfferDiscount:    cfg.Offer.Discount,
		OfferValidDays:   cfg.Offer.ValidDays,
	}, logger)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}

	h := bot.NewHandler(botAPI, logger, intakeService, achievementService, reportService, repoAdapter, loc)

	srv := infrahttp.NewServer(logger)
	srv.Router.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Info().Msg("остановка бот-гейтвея")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
