package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
	openai "tg-quotes-bot/internal/infra/openai"
)

type chatCompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// CategoryResolver сопоставляет категорию с живым каталогом.
type CategoryResolver interface {
	Categories(ctx context.Context) []domain.Category
	Resolve(ctx context.Context, name, quoteText string) string
}

// OpenAI классифицирует цитаты через языковую модель. Любая ошибка
// коллаборатора поглощается детерминированным фолбэком: отправка
// цитаты никогда не падает из-за классификации.
type OpenAI struct {
	client   chatCompletionClient
	resolver CategoryResolver
	model    string
	timeout  time.Duration
	log      zerolog.Logger
	fallback *Fallback
}

var _ domain.Classifier = (*OpenAI)(nil)

// NewOpenAI создаёт классификатор на базе Chat Completions.
func NewOpenAI(client chatCompletionClient, resolver CategoryResolver, model string, timeout time.Duration, logger zerolog.Logger) *OpenAI {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAI{
		client:   client,
		resolver: resolver,
		model:    model,
		timeout:  timeout,
		log:      logger,
		fallback: NewFallback(resolver),
	}
}

// Classify запрашивает у модели категорию, темы, тональность и инсайт.
func (c *OpenAI) Classify(ctx context.Context, text, author string) domain.Classification {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	categories := c.resolver.Categories(ctx)
	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		names = append(names, cat.Name)
	}

	authorLine := ""
	if author != "" {
		authorLine = fmt.Sprintf("Автор: %s\n", author)
	}
	userPrompt := fmt.Sprintf(`
Проанализируй цитату и верни строго JSON вида
{"category": "...", "themes": ["..."], "sentiment": "positive|neutral|negative", "insight": "..."}.
1. Выбери category только из списка: %s.
2. Укажи до 3 тем (themes) — короткие существительные на русском.
3. Определи sentiment одним из трёх значений.
4. Сформулируй insight — одно наблюдение о том, что эта цитата говорит о читателе.

%sЦитата: %s`, strings.Join(names, ", "), authorLine, text)

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.3,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.RoleSystem,
				Content: "Ты литературный аналитик. Отвечай только валидным JSON без пояснений.",
			},
			{
				Role:    openai.RoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.log.Warn().Err(err).Msg("классификация: фолбэк после ошибки коллаборатора")
		metrics.ClassificationFallbackTotal.Inc()
		return c.fallback.Classify(ctx, text, author)
	}
	if len(resp.Choices) == 0 {
		metrics.ClassificationFallbackTotal.Inc()
		return c.fallback.Classify(ctx, text, author)
	}

	parsed, ok := parseResponse(resp.Choices[0].Message.Content)
	if !ok {
		c.log.Warn().Msg("классификация: ответ модели не разобран")
		metrics.ClassificationFallbackTotal.Inc()
		return c.fallback.Classify(ctx, text, author)
	}

	return domain.Classification{
		Category:  c.resolver.Resolve(ctx, categoryName(parsed.Category), text),
		Themes:    normalizeThemes(parsed.Themes),
		Sentiment: normalizeSentiment(parsed.Sentiment),
		Insight:   normalizeInsight(parsed.Insight),
	}
}
