package classifier

import (
	"testing"

	"tg-quotes-bot/internal/domain"
)

func TestParseResponseLadder(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		ok      bool
		insight string
	}{
		{
			name: "прямой JSON",
			raw:  `{"category":"МУДРОСТЬ","themes":["жизнь"],"sentiment":"positive","insight":"наблюдение"}`,
			ok:   true, insight: "наблюдение",
		},
		{
			name: "JSON в markdown-ограждении",
			raw:  "```json\n{\"category\":\"ЛЮБОВЬ\",\"insight\":\"про чувства\"}\n```",
			ok:   true, insight: "про чувства",
		},
		{
			name: "JSON внутри прозы",
			raw:  `Вот результат анализа: {"category":"ФИЛОСОФИЯ","insight":"о времени"} — надеюсь, помог!`,
			ok:   true, insight: "о времени",
		},
		{
			name: "битый JSON со спасаемым insight",
			raw:  `{"category": МУДРОСТЬ, "insight": "спасённый вывод", themes: []`,
			ok:   true, insight: "спасённый вывод",
		},
		{
			name: "совсем не JSON",
			raw:  "Не могу проанализировать эту цитату.",
			ok:   false,
		},
		{
			name: "пустой ответ",
			raw:  "   ",
			ok:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, ok := parseResponse(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ожидали ok=%v, получили %v", tc.ok, ok)
			}
			if tc.ok && parsed.Insight != tc.insight {
				t.Fatalf("ожидали insight %q, получили %q", tc.insight, parsed.Insight)
			}
		})
	}
}

func TestParseResponseCategoryAsObject(t *testing.T) {
	raw := `{"category": {"name": "МОТИВАЦИЯ"}, "themes": ["цель"], "sentiment": "positive", "insight": "вперёд"}`
	parsed, ok := parseResponse(raw)
	if !ok {
		t.Fatalf("ожидали успешный разбор")
	}
	if got := categoryName(parsed.Category); got != "МОТИВАЦИЯ" {
		t.Fatalf("категория-объект должна разворачиваться в имя, получили %q", got)
	}
}

func TestNormalizeThemes(t *testing.T) {
	got := normalizeThemes([]string{" жизнь ", "", "время", "смысл", "лишняя"})
	if len(got) != 3 {
		t.Fatalf("тем должно быть не больше трёх, получили %v", got)
	}
	if got[0] != "жизнь" {
		t.Fatalf("темы должны очищаться от пробелов, получили %q", got[0])
	}
	if fallback := normalizeThemes(nil); len(fallback) != 1 || fallback[0] != defaultTheme {
		t.Fatalf("пустой список заменяется темой по умолчанию, получили %v", fallback)
	}
}

func TestNormalizeSentiment(t *testing.T) {
	cases := map[string]domain.Sentiment{
		"positive":  domain.SentimentPositive,
		" Negative": domain.SentimentNegative,
		"NEUTRAL":   domain.SentimentNeutral,
		"радостный": domain.SentimentNeutral,
		"":          domain.SentimentNeutral,
	}
	for raw, want := range cases {
		if got := normalizeSentiment(raw); got != want {
			t.Fatalf("для %q ожидали %q, получили %q", raw, want, got)
		}
	}
}
