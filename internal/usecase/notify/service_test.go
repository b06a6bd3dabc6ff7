package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/domain"
)

type stubUsers struct {
	mu       sync.Mutex
	users    []domain.User
	disabled []int64
	lastSent []int64
}

func (s *stubUsers) UpsertByTGID(context.Context, int64, string) (domain.User, bool, error) {
	return domain.User{}, false, nil
}
func (s *stubUsers) GetByTGID(context.Context, int64) (domain.User, error) {
	return domain.User{}, domain.ErrNotFound
}
func (s *stubUsers) GetByID(context.Context, int64) (domain.User, error) {
	return domain.User{}, domain.ErrNotFound
}
func (s *stubUsers) ListEligibleForReminders(context.Context) ([]domain.User, error) {
	return s.users, nil
}
func (s *stubUsers) ListRegisteredBefore(context.Context, time.Time) ([]domain.User, error) {
	return s.users, nil
}
func (s *stubUsers) SetReminder(context.Context, int64, domain.ReminderSettings) error { return nil }
func (s *stubUsers) DisableReminders(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = append(s.disabled, userID)
	return nil
}
func (s *stubUsers) MarkOnboarded(context.Context, int64) error { return nil }
func (s *stubUsers) UpdateLastSentAt(_ context.Context, userID int64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSent = append(s.lastSent, userID)
	return nil
}

type stubQuotes struct {
	counts map[int64]int
}

func (s *stubQuotes) SubmitQuote(context.Context, int64, domain.Quote, int, time.Time) (domain.SubmitOutcome, error) {
	return domain.SubmitOutcome{}, nil
}
func (s *stubQuotes) CountForDay(context.Context, int64, time.Time) (int, error) { return 0, nil }
func (s *stubQuotes) MapCountsForDay(context.Context, time.Time) (map[int64]int, error) {
	return s.counts, nil
}
func (s *stubQuotes) ListForPeriod(context.Context, int64, time.Time, time.Time) ([]domain.Quote, error) {
	return nil, nil
}
func (s *stubQuotes) ListEarliestForPeriod(context.Context, int64, time.Time, time.Time, int) ([]domain.Quote, error) {
	return nil, nil
}

type stubTemplates struct {
	template domain.Template
	missing  bool
}

func (s *stubTemplates) Get(context.Context, string, domain.Slot) (domain.Template, error) {
	if s.missing {
		return domain.Template{}, domain.ErrNotFound
	}
	return s.template, nil
}

type sentMessage struct {
	tgUserID int64
	text     string
	imageRef string
}

type stubTransport struct {
	mu        sync.Mutex
	sent      []sentMessage
	blocked   map[int64]bool
	imageFail bool
}

func (s *stubTransport) SendText(_ context.Context, tgUserID int64, text string, _ *domain.TemplateButton) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocked[tgUserID] {
		return domain.ErrUserBlockedBot
	}
	s.sent = append(s.sent, sentMessage{tgUserID: tgUserID, text: text})
	return nil
}

func (s *stubTransport) SendImage(_ context.Context, tgUserID int64, imageRef, caption string, _ *domain.TemplateButton) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocked[tgUserID] {
		return domain.ErrUserBlockedBot
	}
	if s.imageFail {
		return errors.New("file not found")
	}
	s.sent = append(s.sent, sentMessage{tgUserID: tgUserID, text: caption, imageRef: imageRef})
	return nil
}

func reminderUser(id int64, freq domain.Frequency) domain.User {
	return domain.User{
		ID:       id,
		TGUserID: id * 100,
		Reminder: domain.ReminderSettings{Enabled: true, Frequency: freq},
	}
}

func newNotifyService(users *stubUsers, quotes *stubQuotes, templates *stubTemplates, transport *stubTransport, now time.Time) *Service {
	svc := NewService(users, quotes, templates, transport, Config{Workers: 2, RatePerSecond: 1000, DailyQuotes: 10}, time.UTC, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestDispatchSlotFrequencyMatrixOverMonth(t *testing.T) {
	rare := reminderUser(1, domain.FrequencyRare)
	standard := reminderUser(2, domain.FrequencyStandard)
	often := reminderUser(3, domain.FrequencyOften)
	off := reminderUser(4, domain.FrequencyOff)

	perUserSlot := make(map[int64]map[domain.Slot]int)
	start := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC) // понедельник
	for day := 0; day < 28; day++ {
		now := start.AddDate(0, 0, day)
		for _, slot := range []domain.Slot{domain.SlotMorning, domain.SlotDay, domain.SlotEvening} {
			users := &stubUsers{users: []domain.User{rare, standard, often, off}}
			transport := &stubTransport{}
			svc := newNotifyService(users, &stubQuotes{}, &stubTemplates{template: domain.Template{Text: "привет"}}, transport, now)

			stats, err := svc.DispatchSlot(context.Background(), slot, now.Format("2006-01-02"))
			if err != nil {
				t.Fatalf("не ожидали ошибку: %v", err)
			}
			if stats.Sent != stats.Eligible {
				t.Fatalf("все отобранные должны получить сообщение: %+v", stats)
			}
			if stats.Eligible+stats.Skipped != 4 {
				t.Fatalf("отсеянные считаются в Skipped: %+v", stats)
			}
			for _, msg := range transport.sent {
				userID := msg.tgUserID / 100
				if perUserSlot[userID] == nil {
					perUserSlot[userID] = make(map[domain.Slot]int)
				}
				perUserSlot[userID][slot]++
			}
		}
	}

	if got := perUserSlot[1]; got[domain.SlotMorning] != 0 || got[domain.SlotDay] != 0 {
		t.Fatalf("rare не должен получать утренние и дневные слоты: %v", got)
	}
	// 4 вторника и 4 пятницы за 28 дней.
	if got := perUserSlot[1][domain.SlotEvening]; got != 8 {
		t.Fatalf("rare должен получить 8 вечерних сообщений, получил %d", got)
	}
	if got := perUserSlot[2]; got[domain.SlotMorning] != 28 || got[domain.SlotDay] != 0 || got[domain.SlotEvening] != 0 {
		t.Fatalf("standard получает только утро каждый день: %v", got)
	}
	if got := perUserSlot[3]; got[domain.SlotMorning] != 28 || got[domain.SlotDay] != 28 || got[domain.SlotEvening] != 28 {
		t.Fatalf("often получает все слоты: %v", got)
	}
	if len(perUserSlot[4]) != 0 {
		t.Fatalf("off не должен получать ничего: %v", perUserSlot[4])
	}
}

func TestDispatchSlotSkipsEngagedUsers(t *testing.T) {
	users := &stubUsers{users: []domain.User{
		reminderUser(1, domain.FrequencyOften),
		reminderUser(2, domain.FrequencyOften),
	}}
	quotes := &stubQuotes{counts: map[int64]int{1: 10}}
	transport := &stubTransport{}
	svc := newNotifyService(users, quotes, &stubTemplates{template: domain.Template{Text: "привет"}}, transport, time.Date(2025, 9, 3, 9, 0, 0, 0, time.UTC))

	stats, err := svc.DispatchSlot(context.Background(), domain.SlotMorning, "2025-09-03")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if stats.Eligible != 1 || stats.Sent != 1 {
		t.Fatalf("пользователь с 10 цитатами за день исключается: %+v", stats)
	}
	if stats.Skipped != 1 {
		t.Fatalf("исключённый по активности попадает в Skipped: %+v", stats)
	}
	if len(transport.sent) != 1 || transport.sent[0].tgUserID != 200 {
		t.Fatalf("сообщение должно уйти только второму пользователю")
	}
}

func TestDispatchSlotEmptyTemplateIsNoop(t *testing.T) {
	users := &stubUsers{users: []domain.User{reminderUser(1, domain.FrequencyOften)}}
	transport := &stubTransport{}

	svc := newNotifyService(users, &stubQuotes{}, &stubTemplates{missing: true}, transport, time.Now())
	stats, err := svc.DispatchSlot(context.Background(), domain.SlotMorning, "2025-09-03")
	if err != nil || stats.Sent != 0 || len(transport.sent) != 0 {
		t.Fatalf("отсутствующий шаблон — тихий no-op: %+v, %v", stats, err)
	}

	svc = newNotifyService(users, &stubQuotes{}, &stubTemplates{template: domain.Template{}}, transport, time.Now())
	stats, err = svc.DispatchSlot(context.Background(), domain.SlotMorning, "2025-09-03")
	if err != nil || stats.Sent != 0 || len(transport.sent) != 0 {
		t.Fatalf("пустой шаблон — тихий no-op: %+v, %v", stats, err)
	}
}

func TestDispatchSlotDisablesRemindersForBlocked(t *testing.T) {
	users := &stubUsers{users: []domain.User{
		reminderUser(1, domain.FrequencyOften),
		reminderUser(2, domain.FrequencyOften),
	}}
	transport := &stubTransport{blocked: map[int64]bool{100: true}}
	svc := newNotifyService(users, &stubQuotes{}, &stubTemplates{template: domain.Template{Text: "привет"}}, transport, time.Date(2025, 9, 3, 9, 0, 0, 0, time.UTC))

	stats, err := svc.DispatchSlot(context.Background(), domain.SlotMorning, "2025-09-03")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if stats.Blocked != 1 || stats.Sent != 1 {
		t.Fatalf("ожидали одного заблокировавшего и одну доставку: %+v", stats)
	}
	if len(users.disabled) != 1 || users.disabled[0] != 1 {
		t.Fatalf("напоминания заблокировавшего должны выключиться: %v", users.disabled)
	}
}

func TestDispatchSlotImageDegradesToText(t *testing.T) {
	users := &stubUsers{users: []domain.User{reminderUser(1, domain.FrequencyOften)}}
	transport := &stubTransport{imageFail: true}
	template := domain.Template{Text: "доброе утро", ImageRef: "file-id"}
	svc := newNotifyService(users, &stubQuotes{}, &stubTemplates{template: template}, transport, time.Date(2025, 9, 3, 9, 0, 0, 0, time.UTC))

	stats, err := svc.DispatchSlot(context.Background(), domain.SlotMorning, "2025-09-03")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if stats.Sent != 1 || stats.Failed != 0 {
		t.Fatalf("недоступная картинка деградирует до текста: %+v", stats)
	}
	if len(transport.sent) != 1 || transport.sent[0].imageRef != "" {
		t.Fatalf("ожидали текстовую доставку, получили %+v", transport.sent)
	}
}

func TestDispatchSlotReportIgnoresFrequency(t *testing.T) {
	users := &stubUsers{users: []domain.User{
		reminderUser(1, domain.FrequencyRare),
		reminderUser(2, domain.FrequencyStandard),
	}}
	transport := &stubTransport{}
	svc := newNotifyService(users, &stubQuotes{}, &stubTemplates{template: domain.Template{Text: "ваш отчёт готов"}}, transport, time.Date(2025, 9, 3, 20, 0, 0, 0, time.UTC))

	stats, err := svc.DispatchSlot(context.Background(), domain.SlotReport, "2025-09-03")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if stats.Sent != 2 {
		t.Fatalf("отчётный слот игнорирует частоту: %+v", stats)
	}
	for _, msg := range transport.sent {
		if msg.text != "ваш отчёт готов" {
			t.Fatalf("к отчётному слоту не добавляется счётчик дня: %q", msg.text)
		}
	}
}
