package reports

import (
	"fmt"
	"html"
	"strings"

	"tg-quotes-bot/internal/domain"
)

// maxOfferBooks — сколько книг из рекомендаций попадает в блок
// спецпредложения месячного отчёта.
const maxOfferBooks = 3

// FormatWeeklyReport формирует текст недельного отчёта для отправки.
func FormatWeeklyReport(r domain.WeeklyReport) string {
	var sections []string

	sections = append(sections, fmt.Sprintf("📊 <b>Итоги недели %d</b>", r.Week))

	stats := []string{
		fmt.Sprintf("• Цитат сохранено: %d", r.Metrics.Quotes),
		fmt.Sprintf("• Разных авторов: %d", r.Metrics.UniqueAuthors),
		fmt.Sprintf("• Активных дней: %d", r.Metrics.ActiveDays),
	}
	sections = append(sections, strings.Join(stats, "\n"))

	if themes := filterNonEmptyStrings(r.Analysis.DominantThemes); len(themes) > 0 {
		sections = append(sections, "🏷 <b>Темы недели</b>\n"+escapeHTML(strings.Join(themes, ", ")))
	}
	if tone := strings.TrimSpace(r.Analysis.EmotionalTone); tone != "" {
		sections = append(sections, "🎭 Настроение недели: "+escapeHTML(tone))
	}
	if insights := strings.TrimSpace(r.Analysis.Insights); insights != "" {
		sections = append(sections, "💡 "+escapeHTML(insights))
	}

	return strings.TrimSpace(strings.Join(sections, "\n\n"))
}

// FormatMonthlyReport формирует текст месячного отчёта для отправки.
func FormatMonthlyReport(r domain.MonthlyReport) string {
	var sections []string

	sections = append(sections, fmt.Sprintf("📚 <b>Ваш читательский месяц %02d.%d</b>", r.Month, r.Year))

	stats := []string{
		fmt.Sprintf("• Цитат за месяц: %d", r.Metrics.TotalQuotes),
		fmt.Sprintf("• Разных авторов: %d", r.Metrics.UniqueAuthors),
		fmt.Sprintf("• Активных дней: %d", r.Metrics.ActiveDays),
		fmt.Sprintf("• Недель с цитатами: %d", r.Metrics.WeeksActive),
	}
	if trend := string(r.Metrics.EmotionalTrend); trend != "" {
		stats = append(stats, "• Эмоциональная динамика: "+escapeHTML(trend))
	}
	sections = append(sections, strings.Join(stats, "\n"))

	if themes := filterNonEmptyStrings(r.Metrics.TopThemes); len(themes) > 0 {
		sections = append(sections, "🏷 <b>Главные темы</b>\n"+escapeHTML(strings.Join(themes, ", ")))
	}
	if profile := strings.TrimSpace(r.Analysis.Profile); profile != "" {
		sections = append(sections, "🪞 <b>Портрет читателя</b>\n"+escapeHTML(profile))
	}
	if growth := strings.TrimSpace(r.Analysis.Growth); growth != "" {
		sections = append(sections, "🌱 <b>Как менялись интересы</b>\n"+escapeHTML(growth))
	}
	if rec := strings.TrimSpace(r.Analysis.Recommendations); rec != "" {
		sections = append(sections, "🧭 <b>Рекомендации</b>\n"+escapeHTML(rec))
	}

	if books := filterNonEmptyStrings(r.Analysis.BookSuggestions); len(books) > 0 {
		var builder strings.Builder
		builder.WriteString("📖 <b>Что почитать</b>")
		for _, book := range books {
			builder.WriteString("\n• " + escapeHTML(book))
		}
		sections = append(sections, builder.String())
	}

	if offer := formatOffer(r); offer != "" {
		sections = append(sections, offer)
	}

	return strings.TrimSpace(strings.Join(sections, "\n\n"))
}

func formatOffer(r domain.MonthlyReport) string {
	if r.Offer.Discount <= 0 || r.Offer.PromoCode == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("🎁 <b>Спецпредложение</b>\n")
	builder.WriteString(fmt.Sprintf("Скидка %d%% по промокоду <code>%s</code> до %s.",
		r.Offer.Discount, escapeHTML(r.Offer.PromoCode), r.Offer.ValidUntil.Format("02.01.2006")))
	books := filterNonEmptyStrings(r.Analysis.BookSuggestions)
	if len(books) > maxOfferBooks {
		books = books[:maxOfferBooks]
	}
	if len(books) > 0 {
		builder.WriteString("\nПромокод действует на книги: " + escapeHTML(strings.Join(books, ", ")) + ".")
	}
	return builder.String()
}

func filterNonEmptyStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func escapeHTML(s string) string {
	return html.EscapeString(s)
}
