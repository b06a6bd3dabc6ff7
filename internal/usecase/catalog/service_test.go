package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/domain"
)

type stubCategoryRepo struct {
	categories []domain.Category
	err        error
	calls      int
}

func (s *stubCategoryRepo) ListActive(context.Context) ([]domain.Category, error) {
	s.calls++
	return s.categories, s.err
}

func TestCategoriesFallsBackToBuiltin(t *testing.T) {
	repo := &stubCategoryRepo{err: errors.New("нет соединения")}
	svc := NewService(repo, time.Minute, zerolog.Nop())

	got := svc.Categories(context.Background())
	if len(got) == 0 {
		t.Fatalf("при недоступном каталоге должны вернуться встроенные категории")
	}
	hasOther := false
	for _, c := range got {
		if c.Name == domain.CategoryOther {
			hasOther = true
		}
	}
	if !hasOther {
		t.Fatalf("категория-ловушка должна присутствовать всегда")
	}
}

func TestCategoriesCachesUntilTTL(t *testing.T) {
	repo := &stubCategoryRepo{categories: []domain.Category{{Name: "МУДРОСТЬ"}}}
	svc := NewService(repo, time.Hour, zerolog.Nop())

	svc.Categories(context.Background())
	svc.Categories(context.Background())
	if repo.calls != 1 {
		t.Fatalf("до истечения TTL хранилище опрашивается один раз, вызвано %d", repo.calls)
	}
}

func TestResolveOrder(t *testing.T) {
	repo := &stubCategoryRepo{categories: []domain.Category{
		{Name: "МУДРОСТЬ", Keywords: []string{"истина", "опыт"}},
		{Name: "ЛЮБОВЬ", Keywords: []string{"сердце"}},
	}}
	svc := NewService(repo, time.Hour, zerolog.Nop())
	ctx := context.Background()

	if got := svc.Resolve(ctx, "МУДРОСТЬ", ""); got != "МУДРОСТЬ" {
		t.Fatalf("точное имя: получили %q", got)
	}
	if got := svc.Resolve(ctx, "мудрость", ""); got != "МУДРОСТЬ" {
		t.Fatalf("без регистра: получили %q", got)
	}
	if got := svc.Resolve(ctx, "Мудрость и опыт", ""); got != "МУДРОСТЬ" {
		t.Fatalf("по вхождению: получили %q", got)
	}
	if got := svc.Resolve(ctx, "НЕСУЩЕСТВУЮЩАЯ", "в каждом сердце живёт надежда"); got != "ЛЮБОВЬ" {
		t.Fatalf("по ключевым словам текста: получили %q", got)
	}
	if got := svc.Resolve(ctx, "НЕСУЩЕСТВУЮЩАЯ", "про погоду"); got != domain.CategoryOther {
		t.Fatalf("несопоставимое имя сворачивается в ловушку: получили %q", got)
	}
}
