package reports

import (
	"sort"
	"strings"

	"tg-quotes-bot/internal/domain"
)

// toneScale — фиксированная шкала эмоциональных тонов недели.
// Позиция задаёт направление динамики месяца.
var toneScale = map[string]int{
	"меланхоличный": 0,
	"задумчивый":    1,
	"размышляющий":  2,
	"нейтральный":   3,
	"позитивный":    4,
	"вдохновляющий": 5,
	"энергичный":    6,
}

// classifyTrend сводит последовательность недельных тонов к динамике
// месяца. Тона вне шкалы пропускаются. Совпадающие тона — стабильная;
// строгий рост — растущая; строгое падение — меняющаяся; прочие
// последовательности и выборки короче трёх точек — смешанная.
func classifyTrend(tones []string) domain.Trend {
	positions := make([]int, 0, len(tones))
	for _, tone := range tones {
		if pos, ok := toneScale[strings.ToLower(strings.TrimSpace(tone))]; ok {
			positions = append(positions, pos)
		}
	}
	if len(positions) == 0 {
		return domain.TrendStable
	}

	allEqual := true
	for _, p := range positions[1:] {
		if p != positions[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return domain.TrendStable
	}
	if len(positions) < 3 {
		return domain.TrendMixed
	}

	increasing, decreasing := true, true
	for i := 1; i < len(positions); i++ {
		if positions[i] <= positions[i-1] {
			increasing = false
		}
		if positions[i] >= positions[i-1] {
			decreasing = false
		}
	}
	switch {
	case increasing:
		return domain.TrendGrowing
	case decreasing:
		return domain.TrendShifting
	default:
		return domain.TrendMixed
	}
}

// topThemes возвращает limit самых частых тем, при равенстве частот —
// в порядке первого появления.
func topThemes(themes []string, limit int) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	display := make(map[string]string)
	order := 0
	for _, raw := range themes {
		theme := strings.TrimSpace(raw)
		if theme == "" {
			continue
		}
		key := strings.ToLower(theme)
		if _, ok := counts[key]; !ok {
			firstSeen[key] = order
			display[key] = theme
			order++
		}
		counts[key]++
	}
	if len(counts) == 0 {
		return nil
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return firstSeen[keys[i]] < firstSeen[keys[j]]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, display[key])
	}
	return out
}
