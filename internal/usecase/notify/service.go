package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
)

// Config настройки доставки.
type Config struct {
	Workers       int
	RatePerSecond int
	DailyQuotes   int
}

// Service рассылает уведомления слота. Отбор получателей определяется
// частотой напоминаний пользователя и его активностью за день, доставка
// идёт пулом воркеров под общим ограничителем скорости.
type Service struct {
	users     domain.UserRepo
	quotes    domain.QuoteRepo
	templates domain.TemplateRepo
	transport domain.ChatTransport
	cfg       Config
	loc       *time.Location
	log       zerolog.Logger
	now       func() time.Time
}

// NewService создаёт рассыльщик.
func NewService(users domain.UserRepo, quotes domain.QuoteRepo, templates domain.TemplateRepo, transport domain.ChatTransport, cfg Config, loc *time.Location, logger zerolog.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 25
	}
	if cfg.DailyQuotes <= 0 {
		cfg.DailyQuotes = 10
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		users:     users,
		quotes:    quotes,
		templates: templates,
		transport: transport,
		cfg:       cfg,
		loc:       loc,
		log:       logger,
		now:       time.Now,
	}
}

// DispatchSlot обрабатывает один календарный слот: находит шаблон дня,
// отбирает получателей и доставляет сообщение каждому. Отсутствующий
// или пустой шаблон — тихий no-op. Ошибка одного получателя не
// останавливает рассылку.
func (s *Service) DispatchSlot(ctx context.Context, slot domain.Slot, dateKey string) (domain.DeliveryStats, error) {
	var stats domain.DeliveryStats

	template, err := s.templates.Get(ctx, dateKey, slot)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Info().Str("slot", string(slot)).Str("date", dateKey).Msg("шаблона для слота нет, рассылка пропущена")
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("шаблон слота: %w", err)
	}
	if template.IsEmpty() {
		return stats, nil
	}

	recipients, counts, skipped, err := s.selectRecipients(ctx, slot)
	if err != nil {
		return stats, err
	}
	stats.Eligible = len(recipients)
	stats.Skipped = skipped
	if len(recipients) == 0 {
		return stats, nil
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		jobs    = make(chan domain.User)
		limiter = time.NewTicker(time.Second / time.Duration(s.cfg.RatePerSecond))
	)
	defer limiter.Stop()

	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for user := range jobs {
				select {
				case <-ctx.Done():
					mu.Lock()
					stats.Failed++
					stats.Errors = append(stats.Errors, ctx.Err().Error())
					mu.Unlock()
					continue
				case <-limiter.C:
				}
				outcome := s.deliver(ctx, user, slot, template, counts[user.ID])
				mu.Lock()
				switch outcome.status {
				case deliverySent:
					stats.Sent++
				case deliveryBlocked:
					stats.Blocked++
				case deliveryFailed:
					stats.Failed++
					stats.Errors = append(stats.Errors, outcome.err.Error())
				}
				mu.Unlock()
				metrics.IncNotification(string(slot), outcome.status)
			}
		}()
	}

	for _, user := range recipients {
		jobs <- user
	}
	close(jobs)
	wg.Wait()

	s.log.Info().
		Str("slot", string(slot)).
		Str("date", dateKey).
		Int("eligible", stats.Eligible).
		Int("sent", stats.Sent).
		Int("skipped", stats.Skipped).
		Int("blocked", stats.Blocked).
		Int("failed", stats.Failed).
		Msg("слот обработан")
	return stats, nil
}

// selectRecipients применяет матрицу частот и дневную активность.
// Отчётные слоты частоту игнорируют: базового фильтра достаточно.
// Третьим значением возвращается число отсеянных пользователей.
func (s *Service) selectRecipients(ctx context.Context, slot domain.Slot) ([]domain.User, map[int64]int, int, error) {
	users, err := s.users.ListEligibleForReminders(ctx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("выборка получателей: %w", err)
	}

	var counts map[int64]int
	if slot.IsReminder() {
		counts, err = s.quotes.MapCountsForDay(ctx, s.now().In(s.loc))
		if err != nil {
			return nil, nil, 0, fmt.Errorf("счётчики цитат за день: %w", err)
		}
	}

	now := s.now().In(s.loc)
	skipped := 0
	out := make([]domain.User, 0, len(users))
	for _, user := range users {
		if slot.IsReminder() {
			if !slotAllowed(user.Reminder.Frequency, slot, now.Weekday()) {
				skipped++
				continue
			}
			if counts[user.ID] >= s.cfg.DailyQuotes {
				skipped++
				continue
			}
		}
		out = append(out, user)
	}
	return out, counts, skipped, nil
}

// slotAllowed — фиксированная матрица частот. Неделя начинается
// с понедельника: rare получает только вечерний слот вторника и пятницы.
func slotAllowed(freq domain.Frequency, slot domain.Slot, weekday time.Weekday) bool {
	switch freq {
	case domain.FrequencyOften:
		return true
	case domain.FrequencyStandard:
		return slot == domain.SlotMorning
	case domain.FrequencyRare:
		return slot == domain.SlotEvening && (weekday == time.Tuesday || weekday == time.Friday)
	default:
		return false
	}
}

const (
	deliverySent    = "sent"
	deliveryBlocked = "blocked"
	deliveryFailed  = "failed"
)

type deliveryOutcome struct {
	status string
	err    error
}

// deliver отправляет сообщение одному получателю по форме шаблона:
// только картинка, только текст или картинка с подписью. Недоступная
// картинка деградирует до текста. Блокировка бота выключает напоминания.
func (s *Service) deliver(ctx context.Context, user domain.User, slot domain.Slot, template domain.Template, todayCount int) deliveryOutcome {
	text := template.Text
	if text != "" && slot.IsReminder() {
		text = fmt.Sprintf("%s\n\nСегодня вы сохранили цитат: %d", text, todayCount)
	}

	var err error
	switch {
	case template.ImageRef != "" && text == "":
		err = s.transport.SendImage(ctx, user.TGUserID, template.ImageRef, "", template.Button)
	case template.ImageRef != "":
		err = s.transport.SendImage(ctx, user.TGUserID, template.ImageRef, text, template.Button)
		if err != nil && !errors.Is(err, domain.ErrUserBlockedBot) {
			s.log.Warn().Err(err).Int64("user", user.TGUserID).Msg("картинка недоступна, отправляем текстом")
			err = s.transport.SendText(ctx, user.TGUserID, text, template.Button)
		}
	default:
		err = s.transport.SendText(ctx, user.TGUserID, text, template.Button)
	}

	if errors.Is(err, domain.ErrUserBlockedBot) {
		if disableErr := s.users.DisableReminders(ctx, user.ID); disableErr != nil {
			s.log.Error().Err(disableErr).Int64("user", user.ID).Msg("не удалось выключить напоминания заблокировавшему")
		}
		return deliveryOutcome{status: deliveryBlocked}
	}
	if err != nil {
		return deliveryOutcome{status: deliveryFailed, err: fmt.Errorf("пользователь %d: %w", user.ID, err)}
	}

	if updateErr := s.users.UpdateLastSentAt(ctx, user.ID, s.now()); updateErr != nil {
		s.log.Warn().Err(updateErr).Int64("user", user.ID).Msg("не удалось обновить отметку отправки")
	}
	return deliveryOutcome{status: deliverySent}
}
