package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
)

// Sender отправляет сообщения через Bot API. Блокировка бота получателем
// распознаётся по ответу Telegram и возвращается как ErrUserBlockedBot,
// чтобы вызывающая сторона могла отключить напоминания.
type Sender struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

var _ domain.ChatTransport = (*Sender)(nil)

// NewSender создаёт транспорт.
func NewSender(bot *tgbotapi.BotAPI, logger zerolog.Logger) *Sender {
	return &Sender{bot: bot, log: logger}
}

// SendText отправляет текст, при необходимости разбивая его на части.
// Кнопка прикрепляется к последней части, чтобы оказаться под сообщением.
func (s *Sender) SendText(ctx context.Context, tgUserID int64, text string, button *domain.TemplateButton) error {
	parts := SplitMessage(text)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(tgUserID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		if markup := buttonMarkup(button); markup != nil && i == len(parts)-1 {
			msg.ReplyMarkup = markup
		}
		if err := s.send(ctx, tgUserID, "send_message", msg); err != nil {
			return err
		}
	}
	return nil
}

// SendImage отправляет изображение с подписью. imageRef — либо URL,
// либо file_id, уже известный Telegram.
func (s *Sender) SendImage(ctx context.Context, tgUserID int64, imageRef, caption string, button *domain.TemplateButton) error {
	var file tgbotapi.RequestFileData
	if strings.HasPrefix(imageRef, "http://") || strings.HasPrefix(imageRef, "https://") {
		file = tgbotapi.FileURL(imageRef)
	} else {
		file = tgbotapi.FileID(imageRef)
	}
	photo := tgbotapi.NewPhoto(tgUserID, file)
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if markup := buttonMarkup(button); markup != nil {
		photo.ReplyMarkup = markup
	}
	return s.send(ctx, tgUserID, "send_photo", photo)
}

func (s *Sender) send(ctx context.Context, tgUserID int64, op string, msg tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	_, err := s.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", op, strconv.FormatInt(tgUserID, 10), start, err)
	if err != nil {
		if isBlocked(err) {
			return domain.ErrUserBlockedBot
		}
		return err
	}
	return nil
}

// isBlocked распознаёт отказ Telegram доставлять сообщения пользователю.
func isBlocked(err error) bool {
	if apiErr, ok := err.(*tgbotapi.Error); ok {
		if apiErr.Code == 403 {
			return true
		}
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "bot was blocked by the user") ||
		strings.Contains(text, "user is deactivated") ||
		strings.Contains(text, "chat not found")
}

func buttonMarkup(button *domain.TemplateButton) *tgbotapi.InlineKeyboardMarkup {
	if button == nil || button.Text == "" || button.URL == "" {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(button.Text, button.URL),
		),
	)
	return &markup
}
