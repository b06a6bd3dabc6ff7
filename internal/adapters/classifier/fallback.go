package classifier

import (
	"context"

	"tg-quotes-bot/internal/domain"
)

// Fallback детерминированно классифицирует цитату без обращения к
// коллаборатору: категория подбирается по ключевым словам каталога,
// остальные поля — обобщённые. Используется и как самостоятельная
// реализация (dev-режим без ключа API), и как запасной путь OpenAI.
type Fallback struct {
	resolver CategoryResolver
}

var _ domain.Classifier = (*Fallback)(nil)

// NewFallback создаёт детерминированный классификатор.
func NewFallback(resolver CategoryResolver) *Fallback {
	return &Fallback{resolver: resolver}
}

// Classify возвращает валидный результат для любого входа.
func (f *Fallback) Classify(ctx context.Context, text, author string) domain.Classification {
	return domain.Classification{
		Category:  f.resolver.Resolve(ctx, "", text),
		Themes:    []string{defaultTheme},
		Sentiment: domain.SentimentNeutral,
		Insight:   defaultInsight,
	}
}
