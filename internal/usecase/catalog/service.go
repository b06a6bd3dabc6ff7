package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tg-quotes-bot/internal/domain"
)

const defaultTTL = 5 * time.Minute

// defaultCategories используются, пока каталог в БД пуст или недоступен.
// Категория-ловушка присутствует всегда.
var defaultCategories = []domain.Category{
	{Name: "МУДРОСТЬ", Keywords: []string{"мудрость", "истина", "познание", "опыт"}},
	{Name: "ЛЮБОВЬ", Keywords: []string{"любовь", "люблю", "сердце", "чувство"}},
	{Name: "МОТИВАЦИЯ", Keywords: []string{"цель", "успех", "мечта", "действие", "сила"}},
	{Name: "ФИЛОСОФИЯ", Keywords: []string{"жизнь", "смысл", "бытие", "время", "смерть"}},
	{Name: "ТВОРЧЕСТВО", Keywords: []string{"искусство", "творчество", "красота", "музыка"}},
	{Name: domain.CategoryOther},
}

// Service держит in-memory индекс каталога категорий и перечитывает
// его из хранилища с интервалом TTL.
type Service struct {
	repo domain.CategoryRepo
	ttl  time.Duration
	log  zerolog.Logger

	mu       sync.RWMutex
	cached   []domain.Category
	loadedAt time.Time
}

// NewService создаёт сервис каталога.
func NewService(repo domain.CategoryRepo, ttl time.Duration, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Service{repo: repo, ttl: ttl, log: logger}
}

// Categories возвращает актуальный каталог.
func (s *Service) Categories(ctx context.Context) []domain.Category {
	s.mu.RLock()
	fresh := s.cached != nil && time.Since(s.loadedAt) < s.ttl
	cached := s.cached
	s.mu.RUnlock()
	if fresh {
		return cached
	}

	categories, err := s.repo.ListActive(ctx)
	if err != nil || len(categories) == 0 {
		if err != nil {
			s.log.Warn().Err(err).Msg("каталог категорий недоступен, используется встроенный")
		}
		categories = defaultCategories
	}
	if !hasOther(categories) {
		categories = append(categories, domain.Category{Name: domain.CategoryOther})
	}

	s.mu.Lock()
	s.cached = categories
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return categories
}

// Resolve сопоставляет имя категории с живым каталогом: точное имя,
// затем без регистра и по вхождению, затем по ключевым словам текста.
// Несопоставимое имя сворачивается в категорию-ловушку, поэтому отчёты
// никогда не ссылаются на несуществующую категорию.
func (s *Service) Resolve(ctx context.Context, name, quoteText string) string {
	categories := s.Categories(ctx)

	name = strings.TrimSpace(name)
	if name != "" {
		for _, c := range categories {
			if c.Name == name {
				return c.Name
			}
		}
		lower := strings.ToLower(name)
		for _, c := range categories {
			if strings.ToLower(c.Name) == lower {
				return c.Name
			}
		}
		for _, c := range categories {
			catLower := strings.ToLower(c.Name)
			if strings.Contains(catLower, lower) || strings.Contains(lower, catLower) {
				return c.Name
			}
		}
	}

	if match := matchByKeywords(categories, quoteText); match != "" {
		return match
	}
	return domain.CategoryOther
}

func matchByKeywords(categories []domain.Category, text string) string {
	lower := strings.ToLower(text)
	if lower == "" {
		return ""
	}
	best := ""
	bestHits := 0
	for _, c := range categories {
		hits := 0
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > bestHits {
			best = c.Name
			bestHits = hits
		}
	}
	return best
}

func hasOther(categories []domain.Category) bool {
	for _, c := range categories {
		if c.Name == domain.CategoryOther {
			return true
		}
	}
	return false
}
