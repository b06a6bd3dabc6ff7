package intake

import (
	"regexp"
	"strings"
)

// ParsedQuote результат разбора свободного текста пользователя.
type ParsedQuote struct {
	Text   string
	Author string
	Source string
}

// Шаблоны разбираются по порядку: кавычки с автором в скобках,
// текст с автором в скобках, текст с автором после тире, кавычки
// с автором без скобок. Непопавший текст считается цитатой без автора.
var quotePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[«"„“]([^«»"„“”]+)[»"”]\s*\(([^()]+)\)$`),
	regexp.MustCompile(`^(.+?)\s*\(([^()]+)\)$`),
	regexp.MustCompile(`^(.+\S)\s+[—–-]\s+([^—–]+)$`),
	regexp.MustCompile(`^[«"„“]([^«»"„“”]+)[»"”]\s+(\S[^«»"„“”]*)$`),
}

// maxAuthorWords отсекает ложные срабатывания шаблона с тире:
// имя автора не бывает длиннее нескольких слов.
const maxAuthorWords = 5

// ParseQuote извлекает из свободного текста цитату и автора.
// Источник в текстовом вводе не указывается и остаётся пустым.
func ParseQuote(raw string) ParsedQuote {
	trimmed := strings.TrimSpace(raw)
	for _, re := range quotePatterns {
		m := re.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[1])
		author := cleanAuthor(m[2])
		if text == "" || author == "" || len(strings.Fields(author)) > maxAuthorWords {
			continue
		}
		return ParsedQuote{Text: text, Author: author}
	}
	return ParsedQuote{Text: strings.Trim(trimmed, `«»"„“”`)}
}

// cleanAuthor убирает обрамление и хвостовую пунктуацию имени.
func cleanAuthor(raw string) string {
	author := strings.TrimSpace(raw)
	author = strings.Trim(author, `«»"„“”`)
	author = strings.TrimRight(author, ".,;")
	return strings.TrimSpace(author)
}
