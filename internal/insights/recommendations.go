package insights

import (
	"fmt"
	"sort"

	"nestor-insights/internal/models"
)

// Имена политик распределения рекомендаций
const (
	PolicyPriority = "priority"
	PolicyStatic   = "static"
)

// ScoredCategory категория вместе с именем
type ScoredCategory struct {
	Name     string
	Category models.InsightCategory
}

// RecommendationPolicy раскладывает рекомендации по горизонтам daily/weekly/longTerm
type RecommendationPolicy interface {
	Bucket(categories []ScoredCategory, risks []models.RiskFactor) models.Recommendations
}

// NewPolicy политика по имени
func NewPolicy(name string) (RecommendationPolicy, error) {
	switch name {
	case "", PolicyPriority:
		return DefaultPriorityPolicy(), nil
	case PolicyStatic:
		return StaticPolicy{DailyCount: 3, WeeklyCount: 3}, nil
	}
	return nil, fmt.Errorf("unknown recommendation policy %q", name)
}

// PriorityPolicy чем ниже оценка категории, тем ближе горизонт ее рекомендаций.
// Вмешательства по факторам риска распределяются по серьезности.
type PriorityPolicy struct {
	DailyBelow  int
	WeeklyBelow int
}

// DefaultPriorityPolicy ежедневно ниже 60, еженедельно ниже 80
func DefaultPriorityPolicy() PriorityPolicy {
	return PriorityPolicy{DailyBelow: 60, WeeklyBelow: 80}
}

func (p PriorityPolicy) Bucket(categories []ScoredCategory, risks []models.RiskFactor) models.Recommendations {
	sorted := make([]ScoredCategory, len(categories))
	copy(sorted, categories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Category.Score < sorted[j].Category.Score
	})

	var b bucketer
	for _, sev := range []models.Severity{models.SeverityHigh, models.SeverityMedium, models.SeverityLow} {
		for _, r := range risks {
			if r.Severity != sev {
				continue
			}
			for _, in := range r.Interventions {
				switch sev {
				case models.SeverityHigh:
					b.add(&b.out.Daily, in)
				case models.SeverityMedium:
					b.add(&b.out.Weekly, in)
				default:
					b.add(&b.out.LongTerm, in)
				}
			}
		}
	}

	for _, c := range sorted {
		for _, rec := range c.Category.Recommendations {
			switch {
			case c.Category.Score < p.DailyBelow:
				b.add(&b.out.Daily, rec)
			case c.Category.Score < p.WeeklyBelow:
				b.add(&b.out.Weekly, rec)
			default:
				b.add(&b.out.LongTerm, rec)
			}
		}
	}

	return b.result()
}

// StaticPolicy фиксированное разбиение по порядку: первые DailyCount в daily,
// следующие WeeklyCount в weekly, остальные в longTerm
type StaticPolicy struct {
	DailyCount  int
	WeeklyCount int
}

func (p StaticPolicy) Bucket(categories []ScoredCategory, risks []models.RiskFactor) models.Recommendations {
	var all []string
	for _, c := range categories {
		all = append(all, c.Category.Recommendations...)
	}
	for _, r := range risks {
		all = append(all, r.Interventions...)
	}

	var b bucketer
	for _, rec := range all {
		switch {
		case len(b.out.Daily) < p.DailyCount:
			b.add(&b.out.Daily, rec)
		case len(b.out.Weekly) < p.WeeklyCount:
			b.add(&b.out.Weekly, rec)
		default:
			b.add(&b.out.LongTerm, rec)
		}
	}
	return b.result()
}

// bucketer отбрасывает повторы между всеми горизонтами
type bucketer struct {
	out  models.Recommendations
	seen map[string]bool
}

func (b *bucketer) add(dst *[]string, rec string) {
	if b.seen == nil {
		b.seen = make(map[string]bool)
	}
	if rec == "" || b.seen[rec] {
		return
	}
	b.seen[rec] = true
	*dst = append(*dst, rec)
}

func (b *bucketer) result() models.Recommendations {
	return models.Recommendations{
		Daily:    nonNil(b.out.Daily),
		Weekly:   nonNil(b.out.Weekly),
		LongTerm: nonNil(b.out.LongTerm),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// EmptyRecommendations пустые списки для отключенных рекомендаций
func EmptyRecommendations() models.Recommendations {
	return models.Recommendations{Daily: []string{}, Weekly: []string{}, LongTerm: []string{}}
}
