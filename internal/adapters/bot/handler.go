package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/adapters/telegram"
	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
	"tg-quotes-bot/internal/usecase/achievements"
	"tg-quotes-bot/internal/usecase/intake"
	"tg-quotes-bot/internal/usecase/reports"
)

// Handler обслуживает вебхук бота. Любой свободный текст считается
// цитатой и уходит в приём, команды управляют профилем и настройками.
type Handler struct {
	bot          *tgbotapi.BotAPI
	log          zerolog.Logger
	intakeUC     *intake.Service
	achievements *achievements.Service
	reportsUC    *reports.Service
	users        domain.UserRepo
	loc          *time.Location
}

// NewHandler создаёт обработчик.
func NewHandler(bot *tgbotapi.BotAPI, log zerolog.Logger, intakeUC *intake.Service, achievementsUC *achievements.Service, reportsUC *reports.Service, users domain.UserRepo, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		bot:          bot,
		log:          log,
		intakeUC:     intakeUC,
		achievements: achievementsUC,
		reportsUC:    reportsUC,
		users:        users,
		loc:          loc,
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		h.reply(msg.Chat.ID, "Не удалось определить пользователя", nil)
		return
	}
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		h.handleStart(ctx, msg)
	case strings.HasPrefix(text, "/help"):
		h.reply(msg.Chat.ID, h.buildHelpMessage(), h.mainKeyboard())
	case strings.HasPrefix(text, "/stats"):
		h.handleStats(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/achievements"):
		h.handleAchievements(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/report"):
		h.handleReport(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/month"):
		h.handleMonthlyReport(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/reminders"):
		h.handleReminders(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/"):
		h.reply(msg.Chat.ID, "Неизвестная команда. Используйте /help", nil)
	default:
		h.handleQuote(ctx, msg.Chat.ID, msg.From.ID, msg.Text)
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	user, created, err := h.users.UpsertByTGID(ctx, msg.From.ID, name)
	if err != nil {
		h.reply(msg.Chat.ID, fmt.Sprintf("Ошибка сохранения профиля: %v", err), nil)
		return
	}
	if !user.Onboarded {
		if err := h.users.MarkOnboarded(ctx, user.ID); err != nil {
			h.log.Warn().Err(err).Int64("user", user.ID).Msg("не удалось отметить онбординг")
		}
	}
	h.reply(msg.Chat.ID, h.buildStartMessage(created), h.mainKeyboard())
}

func (h *Handler) handleQuote(ctx context.Context, chatID, tgUserID int64, rawText string) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start", nil)
		return
	}

	result, err := h.intakeUC.Submit(ctx, user.ID, rawText)
	switch {
	case errors.Is(err, domain.ErrEmptyQuote):
		h.reply(chatID, "Отправьте текст цитаты", nil)
		return
	case errors.Is(err, domain.ErrDailyLimit):
		h.reply(chatID, "На сегодня лимит цитат исчерпан. Возвращайтесь завтра!", nil)
		return
	case err != nil:
		h.log.Error().Err(err).Int64("user", user.ID).Msg("не удалось сохранить цитату")
		h.reply(chatID, "Не удалось сохранить цитату, попробуйте позже", nil)
		return
	}

	var b strings.Builder
	b.WriteString("✅ Цитата сохранена\n\n")
	b.WriteString(fmt.Sprintf("📂 Категория: %s\n", result.Quote.Category))
	if len(result.Quote.Themes) > 0 {
		b.WriteString(fmt.Sprintf("🏷 Темы: %s\n", strings.Join(result.Quote.Themes, ", ")))
	}
	if result.Quote.Insight != "" {
		b.WriteString("\n💡 " + result.Quote.Insight + "\n")
	}
	if result.Stats.CurrentStreak > 1 {
		b.WriteString(fmt.Sprintf("\n🔥 Серия: %d дней подряд", result.Stats.CurrentStreak))
	}
	for _, a := range result.NewAchievements {
		b.WriteString(fmt.Sprintf("\n\n🏆 Новое достижение: %s — %s", a.Name, a.Description))
	}
	h.reply(chatID, b.String(), nil)
}

func (h *Handler) handleStats(ctx context.Context, chatID, tgUserID int64) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start", nil)
		return
	}
	stats := user.Stats
	lines := []string{
		"📊 Ваша статистика:",
		"",
		fmt.Sprintf("• Всего цитат: %d", stats.TotalQuotes),
		fmt.Sprintf("• Текущая серия: %d", stats.CurrentStreak),
		fmt.Sprintf("• Лучшая серия: %d", stats.LongestStreak),
	}
	if today, err := h.intakeUC.CountToday(ctx, user.ID); err == nil {
		lines = append(lines, fmt.Sprintf("• Сегодня: %d из %d", today, h.intakeUC.DailyLimit()))
	}
	if len(stats.FavoriteAuthors) > 0 {
		lines = append(lines, "• Любимые авторы: "+strings.Join(stats.FavoriteAuthors, ", "))
	}
	h.reply(chatID, strings.Join(lines, "\n"), nil)
}

func (h *Handler) handleAchievements(ctx context.Context, chatID, tgUserID int64) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start", nil)
		return
	}
	progress, err := h.achievements.Progress(ctx, user.ID)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Не удалось получить достижения: %v", err), nil)
		return
	}
	var b strings.Builder
	b.WriteString("🏆 Достижения:\n")
	for _, p := range progress {
		mark := "▫️"
		if p.Unlocked {
			mark = "✅"
		}
		b.WriteString(fmt.Sprintf("\n%s %s — %d/%d", mark, p.Achievement.Name, p.Current, p.Achievement.Target))
	}
	h.reply(chatID, b.String(), nil)
}

func (h *Handler) handleReport(ctx context.Context, chatID, tgUserID int64) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start", nil)
		return
	}
	year, week := time.Now().In(h.loc).ISOWeek()
	report, err := h.reportsUC.GenerateWeekly(ctx, user.ID, week, year)
	if err != nil {
		h.log.Error().Err(err).Int64("user", user.ID).Msg("не удалось построить недельный отчёт")
		h.reply(chatID, "Не удалось построить отчёт, попробуйте позже", nil)
		return
	}
	if report == nil {
		h.reply(chatID, "На этой неделе ещё нет цитат — нечего подводить в итоги", nil)
		return
	}
	h.replyHTML(chatID, reports.FormatWeeklyReport(*report))
}

func (h *Handler) handleMonthlyReport(ctx context.Context, chatID, tgUserID int64) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start", nil)
		return
	}
	local := time.Now().In(h.loc)
	prevMonthEnd := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, h.loc).AddDate(0, 0, -1)
	report, err := h.reportsUC.GenerateMonthly(ctx, user, int(prevMonthEnd.Month()), prevMonthEnd.Year())
	if err != nil {
		h.log.Error().Err(err).Int64("user", user.ID).Msg("не удалось построить месячный отчёт")
		h.reply(chatID, "Не удалось построить отчёт, попробуйте позже", nil)
		return
	}
	if report == nil {
		h.reply(chatID, "За прошлый месяц пока нечего подводить в итоги", nil)
		return
	}
	h.replyHTML(chatID, reports.FormatMonthlyReport(*report))
}

func (h *Handler) handleReminders(ctx context.Context, chatID, tgUserID int64) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start", nil)
		return
	}
	current := string(user.Reminder.Frequency)
	if !user.Reminder.Enabled {
		current = "выключены"
	}
	h.reply(chatID, fmt.Sprintf("Текущий режим напоминаний: %s.\nВыберите подходящий:", current), remindersKeyboard())
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	switch {
	case strings.HasPrefix(data, "freq:"):
		h.handleSetFrequency(ctx, cb.Message.Chat.ID, cb.From.ID, strings.TrimPrefix(data, "freq:"))
	case data == "my_stats":
		h.handleStats(ctx, cb.Message.Chat.ID, cb.From.ID)
	case data == "my_achievements":
		h.handleAchievements(ctx, cb.Message.Chat.ID, cb.From.ID)
	case data == "my_report":
		h.handleReport(ctx, cb.Message.Chat.ID, cb.From.ID)
	case data == "reminders_menu":
		h.handleReminders(ctx, cb.Message.Chat.ID, cb.From.ID)
	case data == "help_menu":
		h.reply(cb.Message.Chat.ID, h.buildHelpMessage(), h.mainKeyboard())
	}
	start := time.Now()
	_, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, ""))
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", strconv.FormatInt(cb.From.ID, 10), start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось ответить на callback")
	}
}

func (h *Handler) handleSetFrequency(ctx context.Context, chatID, tgUserID int64, raw string) {
	freq := domain.Frequency(raw)
	switch freq {
	case domain.FrequencyOff, domain.FrequencyRare, domain.FrequencyStandard, domain.FrequencyOften:
	default:
		h.reply(chatID, "Неизвестный режим напоминаний", nil)
		return
	}
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start", nil)
		return
	}
	settings := domain.ReminderSettings{Enabled: freq != domain.FrequencyOff, Frequency: freq}
	if err := h.users.SetReminder(ctx, user.ID, settings); err != nil {
		h.reply(chatID, fmt.Sprintf("Не удалось сохранить настройку: %v", err), nil)
		return
	}
	if freq == domain.FrequencyOff {
		h.reply(chatID, "Напоминания выключены", nil)
		return
	}
	h.reply(chatID, fmt.Sprintf("Режим напоминаний: %s", freqLabel(freq)), nil)
}

func freqLabel(freq domain.Frequency) string {
	switch freq {
	case domain.FrequencyRare:
		return "редко (вечер, вторник и пятница)"
	case domain.FrequencyStandard:
		return "обычно (каждое утро)"
	case domain.FrequencyOften:
		return "часто (утро, день и вечер)"
	default:
		return string(freq)
	}
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	h.send(chatID, text, keyboard, "")
}

// replyHTML используется для отчётов: их форматтер уже экранирует
// пользовательский текст.
func (h *Handler) replyHTML(chatID int64, text string) {
	h.send(chatID, text, nil, tgbotapi.ModeHTML)
}

func (h *Handler) send(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup, parseMode string) {
	parts := telegram.SplitMessage(text)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = parseMode
		if i == 0 && keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			h.log.Error().Err(err).Msg("не удалось отправить сообщение")
			return
		}
	}
}

func (h *Handler) mainKeyboard() *tgbotapi.InlineKeyboardMarkup {
	buttons := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", "my_stats"),
			tgbotapi.NewInlineKeyboardButtonData("🏆 Достижения", "my_achievements"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 Отчёт недели", "my_report"),
			tgbotapi.NewInlineKeyboardButtonData("🔔 Напоминания", "reminders_menu"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Помощь", "help_menu"),
		),
	)
	return &buttons
}

func remindersKeyboard() *tgbotapi.InlineKeyboardMarkup {
	buttons := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Часто", "freq:often"),
			tgbotapi.NewInlineKeyboardButtonData("Обычно", "freq:standard"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Редко", "freq:rare"),
			tgbotapi.NewInlineKeyboardButtonData("Выключить", "freq:off"),
		),
	)
	return &buttons
}

func (h *Handler) buildStartMessage(created bool) string {
	greeting := "👋 С возвращением!"
	if created {
		greeting = "👋 Добро пожаловать в бот читательского дневника!"
	}
	lines := []string{
		greeting,
		"",
		"Просто отправьте цитату текстом — я определю категорию, темы и настроение.",
		"",
		"Примеры:",
		"• «Быть, а не казаться» Сенека",
		"• Краткость — сестра таланта — Антон Чехов",
		"• Просто своя мысль без автора",
		"",
		"Каждое воскресенье я присылаю итоги недели, раз в месяц — большой разбор вашего чтения.",
		"Команды и настройки — под кнопкой \"ℹ️ Помощь\".",
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) buildHelpMessage() string {
	sections := []string{
		"📖 Команды:",
		"",
		"• Отправьте любой текст — сохраню его как цитату.",
		"• /stats — ваша статистика и серия.",
		"• /achievements — прогресс по достижениям.",
		"• /report — итоги текущей недели.",
		"• /month — большой разбор прошлого месяца.",
		"• /reminders — настроить напоминания.",
		"",
		"В день можно сохранить до 10 цитат.",
	}
	return strings.Join(sections, "\n")
}
