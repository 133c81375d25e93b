package insights

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"nestor-insights/internal/models"
)

// CategoryWeights веса категорий в общей оценке
type CategoryWeights map[string]float64

// DefaultCategoryWeights фиксированная таблица, сумма весов 1.0
func DefaultCategoryWeights() CategoryWeights {
	return CategoryWeights{
		models.CategorySleep:       0.25,
		models.CategoryActivity:    0.20,
		models.CategoryNutrition:   0.15,
		models.CategoryStress:      0.15,
		models.CategoryHeartHealth: 0.15,
		models.CategoryMetabolism:  0.05,
		models.CategoryImmunity:    0.05,
	}
}

// Validate все веса неотрицательны, известны и не дают нулевую сумму
func (w CategoryWeights) Validate() error {
	total := 0.0
	for name, weight := range w {
		if !isCategory(name) {
			return fmt.Errorf("unknown category %q", name)
		}
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return fmt.Errorf("invalid weight %v for %s", weight, name)
		}
		total += weight
	}
	if total == 0 {
		return errors.New("category weights sum to zero")
	}
	return nil
}

func isCategory(name string) bool {
	for _, c := range models.CategoryNames {
		if c == name {
			return true
		}
	}
	return false
}

// OverallScore round(Σ w_i*s_i / Σ w_i) по категориям из таблицы
func OverallScore(categories models.Categories, weights CategoryWeights) int {
	var weighted, total float64
	for _, name := range models.CategoryNames {
		w, ok := weights[name]
		if !ok {
			continue
		}
		c, _ := categories.Get(name)
		weighted += w * float64(c.Score)
		total += w
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(weighted / total))
}

// Band словесная оценка общего балла
func Band(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 70:
		return "good"
	case score >= 60:
		return "fair"
	}
	return "needs improvement"
}

// Summarize строит текстовое резюме отчета
func Summarize(overall int, categories models.Categories, anomalies []models.AnomalyResult) string {
	bestName, worstName := "", ""
	best, worst := -1, 101
	for _, name := range models.CategoryNames {
		c, _ := categories.Get(name)
		if c.Score > best {
			best, bestName = c.Score, name
		}
		if c.Score < worst {
			worst, worstName = c.Score, name
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Your overall health score is %d (%s).", overall, Band(overall))
	fmt.Fprintf(&sb, " %s is your strongest area at %d", categoryTitles[bestName], best)
	if worstName != bestName {
		fmt.Fprintf(&sb, ", while %s needs the most attention at %d", strings.ToLower(categoryTitles[worstName]), worst)
	}
	sb.WriteString(".")

	high := 0
	for _, a := range anomalies {
		if a.Severity == models.SeverityHigh {
			high++
		}
	}
	switch {
	case high == 1:
		sb.WriteString(" 1 high-severity anomaly needs your attention.")
	case high > 1:
		fmt.Fprintf(&sb, " %d high-severity anomalies need your attention.", high)
	}

	return sb.String()
}
