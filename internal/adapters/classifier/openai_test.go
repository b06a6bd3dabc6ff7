package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/domain"
	openai "tg-quotes-bot/internal/infra/openai"
)

type fakeChatClient struct {
	content string
	err     error
}

func (f *fakeChatClient) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatMessage{Content: f.content}},
		},
	}, nil
}

type fakeResolver struct{}

func (fakeResolver) Categories(context.Context) []domain.Category {
	return []domain.Category{
		{Name: "МУДРОСТЬ", Keywords: []string{"мудрость", "истина"}},
		{Name: domain.CategoryOther},
	}
}

func (f fakeResolver) Resolve(_ context.Context, name, quoteText string) string {
	if name == "МУДРОСТЬ" {
		return "МУДРОСТЬ"
	}
	return domain.CategoryOther
}

func newClassifier(client chatCompletionClient) *OpenAI {
	return NewOpenAI(client, fakeResolver{}, "gpt-4o-mini", time.Second, zerolog.Nop())
}

func TestClassifyParsesModelResponse(t *testing.T) {
	client := &fakeChatClient{content: `{"category":"МУДРОСТЬ","themes":["истина"],"sentiment":"positive","insight":"ищете опору"}`}
	got := newClassifier(client).Classify(context.Background(), "Истина дороже", "")

	if got.Category != "МУДРОСТЬ" {
		t.Fatalf("ожидали категорию МУДРОСТЬ, получили %q", got.Category)
	}
	if got.Sentiment != domain.SentimentPositive {
		t.Fatalf("ожидали positive, получили %q", got.Sentiment)
	}
	if got.Insight != "ищете опору" {
		t.Fatalf("ожидали insight модели, получили %q", got.Insight)
	}
}

func TestClassifyFallsBackOnClientError(t *testing.T) {
	client := &fakeChatClient{err: errors.New("таймаут")}
	got := newClassifier(client).Classify(context.Background(), "случайный текст", "")

	if got.Category == "" {
		t.Fatalf("фолбэк обязан вернуть непустую категорию")
	}
	if got.Sentiment != domain.SentimentNeutral {
		t.Fatalf("фолбэк даёт нейтральную тональность, получили %q", got.Sentiment)
	}
	if got.Insight != defaultInsight {
		t.Fatalf("фолбэк даёт общий insight, получили %q", got.Insight)
	}
}

func TestClassifyFallsBackOnUnparsableResponse(t *testing.T) {
	client := &fakeChatClient{content: "не буду отвечать в JSON"}
	got := newClassifier(client).Classify(context.Background(), "текст", "")

	if got.Category != domain.CategoryOther {
		t.Fatalf("несопоставимый текст уходит в категорию-ловушку, получили %q", got.Category)
	}
	if len(got.Themes) == 0 {
		t.Fatalf("темы не должны быть пустыми")
	}
}
