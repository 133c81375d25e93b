package patterns

import "nestor-insights/internal/models"

// Merge объединяет вновь найденные паттерны с уже известными по ID.
// Известные паттерны никогда не удаляются и не заменяются: повторное
// обнаружение увеличивает Occurrences, сдвигает LastDetected и обновляет
// статистику. FirstDetected сохраняется.
func Merge(existing, detected []models.HealthPattern) []models.HealthPattern {
	merged := make([]models.HealthPattern, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, p := range merged {
		index[p.ID] = i
	}

	for _, p := range detected {
		i, ok := index[p.ID]
		if !ok {
			if p.Occurrences == 0 {
				p.Occurrences = 1
			}
			index[p.ID] = len(merged)
			merged = append(merged, p)
			continue
		}

		cur := &merged[i]
		occurrences := p.Occurrences
		if occurrences == 0 {
			occurrences = 1
		}
		cur.Occurrences += occurrences
		if p.LastDetected.After(cur.LastDetected) {
			cur.LastDetected = p.LastDetected
		}
		if cur.FirstDetected.IsZero() || (!p.FirstDetected.IsZero() && p.FirstDetected.Before(cur.FirstDetected)) {
			cur.FirstDetected = p.FirstDetected
		}
		cur.Description = p.Description
		cur.Strength = p.Strength
		cur.Confidence = p.Confidence
		cur.SampleSize = p.SampleSize
	}

	return merged
}
