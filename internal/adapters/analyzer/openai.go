package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tg-quotes-bot/internal/domain"
	openai "tg-quotes-bot/internal/infra/openai"
)

type chatCompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI строит нарративные части отчётов. В отличие от классификатора
// ошибки здесь возвращаются наружу: фиксированный фолбэк подставляет
// агрегатор отчётов, чтобы запись в любом случае была полной.
type OpenAI struct {
	client  chatCompletionClient
	model   string
	timeout time.Duration
}

var _ domain.Analyzer = (*OpenAI)(nil)

// NewOpenAI создаёт анализатор.
func NewOpenAI(client chatCompletionClient, model string, timeout time.Duration) *OpenAI {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAI{client: client, model: model, timeout: timeout}
}

const systemPrompt = "Ты вдумчивый литературный аналитик. Пиши на русском, опирайся только на переданные данные и отвечай строго валидным JSON."

func (a *OpenAI) complete(ctx context.Context, userPrompt string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.5,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: systemPrompt},
			{Role: openai.RoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ResponseFormatTypeJSONObject,
		},
	}
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("openai completion: пустой ответ")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("распаковка ответа LLM: %w", err)
	}
	return nil
}

type weeklyResponse struct {
	DominantThemes []string `json:"dominant_themes"`
	EmotionalTone  string   `json:"emotional_tone"`
	Insights       string   `json:"insights"`
}

// AnalyzeWeek строит краткий разбор недели по текстам цитат.
func (a *OpenAI) AnalyzeWeek(ctx context.Context, texts []string) (domain.WeeklyAnalysis, error) {
	var b strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(t, 500))
	}
	prompt := fmt.Sprintf(`
Вот цитаты, сохранённые пользователем за неделю:
%s
Верни JSON {"dominant_themes": ["..."], "emotional_tone": "...", "insights": "..."}.
1. dominant_themes — до 3 главных тем недели.
2. emotional_tone — одно слово: меланхоличный, задумчивый, размышляющий, нейтральный, позитивный, вдохновляющий или энергичный.
3. insights — 2-3 предложения о том, что эти цитаты говорят о настроении недели.`, b.String())

	var parsed weeklyResponse
	if err := a.complete(ctx, prompt, &parsed); err != nil {
		return domain.WeeklyAnalysis{}, err
	}
	return domain.WeeklyAnalysis{
		DominantThemes: filterNonEmpty(parsed.DominantThemes),
		EmotionalTone:  strings.TrimSpace(parsed.EmotionalTone),
		Insights:       strings.TrimSpace(parsed.Insights),
	}, nil
}

type monthlyResponse struct {
	MonthlyEvolution     string   `json:"monthly_evolution"`
	DeepPatterns         string   `json:"deep_patterns"`
	PsychologicalInsight string   `json:"psychological_insight"`
	Recommendations      string   `json:"recommendations"`
	BookSuggestions      []string `json:"book_suggestions"`
}

func (m monthlyResponse) toAnalysis() domain.MonthlyAnalysis {
	profile := strings.TrimSpace(m.PsychologicalInsight)
	if patterns := strings.TrimSpace(m.DeepPatterns); patterns != "" {
		if profile != "" {
			profile += "\n\n"
		}
		profile += patterns
	}
	return domain.MonthlyAnalysis{
		Profile:         profile,
		Growth:          strings.TrimSpace(m.MonthlyEvolution),
		Recommendations: strings.TrimSpace(m.Recommendations),
		BookSuggestions: filterNonEmpty(m.BookSuggestions),
	}
}

const monthlyFormat = `Верни JSON {"monthly_evolution": "...", "deep_patterns": "...", "psychological_insight": "...", "recommendations": "...", "book_suggestions": ["..."]}.
1. monthly_evolution — как менялись интересы в течение месяца.
2. deep_patterns — неочевидные паттерны в выборе цитат.
3. psychological_insight — портрет читателя по его коллекции.
4. recommendations — чем продолжить развитие.
5. book_suggestions — до 5 книг, которые стоит прочитать.`

// AnalyzeMonthWeeklies строит месячный разбор из недельных отчётов.
// Промпт собирается из уже готовых недельных выжимок: это намеренно
// дешевле повторного анализа всех цитат месяца.
func (a *OpenAI) AnalyzeMonthWeeklies(ctx context.Context, reports []domain.WeeklyReport) (domain.MonthlyAnalysis, error) {
	var b strings.Builder
	for _, r := range reports {
		fmt.Fprintf(&b, "Неделя %d: темы — %s; тон — %s; вывод — %s\n",
			r.Week, strings.Join(r.Analysis.DominantThemes, ", "), r.Analysis.EmotionalTone, r.Analysis.Insights)
	}
	prompt := fmt.Sprintf("Вот недельные итоги читателя за месяц:\n%s\n%s", b.String(), monthlyFormat)

	var parsed monthlyResponse
	if err := a.complete(ctx, prompt, &parsed); err != nil {
		return domain.MonthlyAnalysis{}, err
	}
	return parsed.toAnalysis(), nil
}

// AnalyzeMonthQuotes строит месячный разбор напрямую из цитат,
// когда недельных отчётов накопилось слишком мало.
func (a *OpenAI) AnalyzeMonthQuotes(ctx context.Context, quotes []domain.Quote) (domain.MonthlyAnalysis, error) {
	var b strings.Builder
	for i, q := range quotes {
		line := truncate(q.Text, 300)
		if q.Author != "" {
			line += " — " + q.Author
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	prompt := fmt.Sprintf("Вот цитаты, сохранённые читателем за месяц:\n%s\n%s", b.String(), monthlyFormat)

	var parsed monthlyResponse
	if err := a.complete(ctx, prompt, &parsed); err != nil {
		return domain.MonthlyAnalysis{}, err
	}
	return parsed.toAnalysis(), nil
}

func filterNonEmpty(values []string) []string {
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

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
