package classifier

import (
	"encoding/json"
	"regexp"
	"strings"

	"tg-quotes-bot/internal/domain"
)

// Запасные значения нормализации.
const (
	defaultTheme   = "размышления"
	defaultInsight = "Эта цитата пополнила вашу коллекцию наблюдений о жизни."
	maxThemes      = 3
)

// parsedClassification сырые поля ответа модели. Категория читается
// как RawMessage: модель иногда возвращает вместо строки целый объект.
type parsedClassification struct {
	Category  json.RawMessage `json:"category"`
	Themes    []string        `json:"themes"`
	Sentiment string          `json:"sentiment"`
	Insight   string          `json:"insight"`
}

var (
	fenceRe   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	insightRe = regexp.MustCompile(`"insight"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// parseResponse разбирает текст модели лестницей попыток: прямой JSON,
// JSON без markdown-ограждений, первый сбалансированный объект в тексте,
// вытаскивание одного поля insight регуляркой. Ответ модели не обязан
// быть валидным, поэтому каждая следующая ступень пробуется только
// после провала предыдущей.
func parseResponse(raw string) (parsedClassification, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return parsedClassification{}, false
	}

	var parsed parsedClassification
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed, true
	}

	if m := fenceRe.FindStringSubmatch(raw); len(m) == 2 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &parsed); err == nil {
			return parsed, true
		}
	}

	if candidate := firstBalancedObject(raw); candidate != "" {
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return parsed, true
		}
	}

	if m := insightRe.FindStringSubmatch(raw); len(m) == 2 {
		var insight string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &insight); err == nil && insight != "" {
			return parsedClassification{Insight: insight}, true
		}
	}

	return parsedClassification{}, false
}

// firstBalancedObject возвращает первую сбалансированную пару фигурных
// скобок с учётом строковых литералов.
func firstBalancedObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

// categoryName извлекает имя категории из строки или объекта,
// которым модель могла отозваться вместо строки.
func categoryName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return strings.TrimSpace(name)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"name", "category", "title"} {
		if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// normalizeThemes ограничивает список тремя непустыми темами.
func normalizeThemes(themes []string) []string {
	out := make([]string, 0, maxThemes)
	for _, t := range themes {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) == maxThemes {
			break
		}
	}
	if len(out) == 0 {
		return []string{defaultTheme}
	}
	return out
}

// normalizeSentiment приводит значение к одному из трёх допустимых.
func normalizeSentiment(raw string) domain.Sentiment {
	switch domain.Sentiment(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.SentimentPositive:
		return domain.SentimentPositive
	case domain.SentimentNegative:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func normalizeInsight(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultInsight
	}
	return raw
}
