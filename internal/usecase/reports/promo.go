package reports

import (
	crand "crypto/rand"
	"strings"
	"time"

	"tg-quotes-bot/internal/domain"
)

const (
	promoAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	promoCodeLength = 8
)

func generatePromoCode() (string, error) {
	buf := make([]byte, promoCodeLength)
	if _, err := crand.Read(buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(promoCodeLength)
	for _, raw := range buf {
		idx := int(raw) % len(promoAlphabet)
		b.WriteByte(promoAlphabet[idx])
	}
	return b.String(), nil
}

// buildOffer прикладывает к месячному отчёту спецпредложение с
// промокодом и окном действия от момента генерации.
func (s *Service) buildOffer(now time.Time) domain.SpecialOffer {
	code, err := generatePromoCode()
	if err != nil {
		s.log.Warn().Err(err).Msg("генерация промокода не удалась, используется детерминированный")
		code = "READER" + now.Format("0601")
	}
	return domain.SpecialOffer{
		Discount:   s.cfg.OfferDiscount,
		ValidUntil: now.AddDate(0, 0, s.cfg.OfferValidDays),
		PromoCode:  code,
	}
}
