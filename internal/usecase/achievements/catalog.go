package achievements

import "tg-quotes-bot/internal/domain"

// classicAuthors — фиксированный список классиков для достижения
// «Знаток классики». Сопоставление по точному имени автора цитаты.
var classicAuthors = []string{
	"Лев Толстой",
	"Фёдор Достоевский",
	"Антон Чехов",
	"Александр Пушкин",
	"Иван Тургенев",
	"Михаил Булгаков",
	"Уильям Шекспир",
	"Оскар Уайльд",
	"Иоганн Гёте",
	"Эрих Фромм",
	"Марк Аврелий",
	"Сенека",
}

// veteranMinQuotes — минимум цитат для достижения «Ветеран»:
// само по себе время с ботом без активности не считается.
const veteranMinQuotes = 10

// defaultCatalog — статический упорядоченный каталог достижений.
// Порядок определяет очерёдность проверки и вывода пользователю.
var defaultCatalog = []domain.Achievement{
	{
		ID:          "first_quote",
		Name:        "Первая цитата",
		Description: "Сохраните свою первую цитату",
		Type:        domain.AchievementQuotesCount,
		Target:      1,
	},
	{
		ID:          "collector_10",
		Name:        "Коллекционер",
		Description: "Сохраните 10 цитат",
		Type:        domain.AchievementQuotesCount,
		Target:      10,
	},
	{
		ID:          "collector_50",
		Name:        "Библиотекарь",
		Description: "Сохраните 50 цитат",
		Type:        domain.AchievementQuotesCount,
		Target:      50,
	},
	{
		ID:          "collector_100",
		Name:        "Архивариус",
		Description: "Сохраните 100 цитат",
		Type:        domain.AchievementQuotesCount,
		Target:      100,
	},
	{
		ID:          "streak_7",
		Name:        "Неделя с книгой",
		Description: "Добавляйте цитаты 7 дней подряд",
		Type:        domain.AchievementStreakDays,
		Target:      7,
	},
	{
		ID:          "streak_30",
		Name:        "Месяц вдумчивого чтения",
		Description: "Добавляйте цитаты 30 дней подряд",
		Type:        domain.AchievementStreakDays,
		Target:      30,
	},
	{
		ID:          "classics_10",
		Name:        "Знаток классики",
		Description: "Сохраните 10 цитат классиков",
		Type:        domain.AchievementClassicsCount,
		Target:      10,
	},
	{
		ID:          "own_thoughts_5",
		Name:        "Собственные мысли",
		Description: "Запишите 5 мыслей без автора",
		Type:        domain.AchievementOwnThoughts,
		Target:      5,
	},
	{
		ID:          "categories_5",
		Name:        "Широкий кругозор",
		Description: "Соберите цитаты в 5 разных категориях",
		Type:        domain.AchievementCategoryDiversity,
		Target:      5,
	},
	{
		ID:          "veteran_30",
		Name:        "Ветеран",
		Description: "Месяц с ботом и не меньше 10 цитат",
		Type:        domain.AchievementDaysWithBot,
		Target:      30,
	},
}

// Catalog возвращает копию каталога для экранов статуса.
func Catalog() []domain.Achievement {
	out := make([]domain.Achievement, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}
