package insights

import (
	"fmt"
	"math"

	"nestor-insights/internal/models"
)

// Оценки категорий при отсутствии данных
const (
	DefaultSleepScore       = 65
	DefaultActivityScore    = 60
	DefaultNutritionScore   = 60
	DefaultStressScore      = 65
	DefaultHeartHealthScore = 70
	DefaultMetabolismScore  = 65
	DefaultImmunityScore    = 70

	// DegradedScore оценка категории, расчет которой завершился ошибкой
	DegradedScore = 50
)

// Целевые значения, если профиль их не задает
const (
	defaultSleepGoalHours = 8.0
	defaultStepGoal       = 8000
	activeMinutesGoal     = 30.0
	defaultCalories       = 2000.0
	defaultProteinGrams   = 50.0
	waterLitersGoal       = 2.0
	normalBodyTemperature = 36.8
)

// Input данные одного вызова, общие для всех категорий
type Input struct {
	Features  Features
	Profile   models.UserProfile
	TimeFrame models.TimeFrame
}

// CategoryScorer считает одну категорию отчета
type CategoryScorer func(in *Input) (models.InsightCategory, error)

// DefaultScorers функции категорий по имени
func DefaultScorers() map[string]CategoryScorer {
	return map[string]CategoryScorer{
		models.CategorySleep:       scoreSleep,
		models.CategoryActivity:    scoreActivity,
		models.CategoryNutrition:   scoreNutrition,
		models.CategoryStress:      scoreStress,
		models.CategoryHeartHealth: scoreHeartHealth,
		models.CategoryMetabolism:  scoreMetabolism,
		models.CategoryImmunity:    scoreImmunity,
	}
}

var categoryTitles = map[string]string{
	models.CategorySleep:       "Sleep",
	models.CategoryActivity:    "Activity",
	models.CategoryNutrition:   "Nutrition",
	models.CategoryStress:      "Stress",
	models.CategoryHeartHealth: "Heart Health",
	models.CategoryMetabolism:  "Metabolism",
	models.CategoryImmunity:    "Immunity",
}

func newCategory(name string, score float64, description string, recs ...string) models.InsightCategory {
	if recs == nil {
		recs = []string{}
	}
	return models.InsightCategory{
		Title:           categoryTitles[name],
		Description:     description,
		Score:           clampScore(score),
		Recommendations: recs,
		Trends:          []models.TrendResult{},
		Correlations:    []models.CorrelationResult{},
	}
}

// degradedCategory замена категории после сбоя
func degradedCategory(name string) models.InsightCategory {
	return newCategory(name, DegradedScore,
		fmt.Sprintf("%s insights are temporarily unavailable", categoryTitles[name]),
		fmt.Sprintf("Keep syncing your %s data so we can analyze it next time", categoryTitles[name]),
	)
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return DegradedScore
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func clamp100(v float64) float64 { return math.Max(0, math.Min(100, v)) }

// likertScore ответ 1-5 в шкалу 0-100
func likertScore(v float64) float64 { return clamp100((v - 1) / 4 * 100) }

// blend среднее взвешенное по присутствующим компонентам
type blend struct {
	sum, weight float64
}

func (b *blend) add(score, weight float64) {
	b.sum += clamp100(score) * weight
	b.weight += weight
}

func (b *blend) empty() bool { return b.weight == 0 }

func (b *blend) value() float64 {
	if b.weight == 0 {
		return 0
	}
	return b.sum / b.weight
}

func sleepGoal(p models.UserProfile) float64 {
	if p.SleepGoalHours > 0 {
		return p.SleepGoalHours
	}
	return defaultSleepGoalHours
}

func stepGoal(p models.UserProfile) float64 {
	if p.DailyStepGoal > 0 {
		return float64(p.DailyStepGoal)
	}
	return defaultStepGoal
}

// sleepDurationScore близость средней длительности сна к цели
func sleepDurationScore(avg, goal float64) float64 {
	return clamp100(100 - math.Abs(avg-goal)*20)
}

func scoreSleep(in *Input) (models.InsightCategory, error) {
	sleep := in.Features.Metric(models.MetricSleep)
	quality := in.Features.Assessment(models.QuestionSleepQuality)
	if sleep.Empty() && quality.Empty() {
		return newCategory(models.CategorySleep, DefaultSleepScore,
			"Not enough sleep data yet",
			"Wear your device overnight to unlock sleep insights"), nil
	}

	goal := sleepGoal(in.Profile)
	var b blend
	var recs []string
	description := ""

	if !sleep.Empty() {
		avg := sleep.Mean()
		b.add(sleepDurationScore(avg, goal), 0.5)
		b.add(100-sleep.Summary.Std*25, 0.2)
		description = fmt.Sprintf("You slept %.1f hours on average against a goal of %.1f", avg, goal)

		if avg < goal-0.5 {
			recs = append(recs, fmt.Sprintf("Move your bedtime 30 minutes earlier to get closer to %.1f hours", goal))
		}
		if sleep.Summary.Std > 1 {
			recs = append(recs, "Keep a consistent sleep schedule, including weekends")
		}
	}

	if !quality.Empty() {
		b.add(likertScore(quality.Mean()), 0.3)
		if quality.Mean() < 3 {
			recs = append(recs, "Limit screens and caffeine in the evening to improve sleep quality")
		}
		if description == "" {
			description = fmt.Sprintf("You rated your sleep quality %.1f out of 5", quality.Mean())
		}
	}

	score := b.value()
	if score >= 80 && len(recs) == 0 {
		recs = append(recs, "Maintain your current sleep routine")
	}
	return newCategory(models.CategorySleep, score, description, recs...), nil
}

func scoreActivity(in *Input) (models.InsightCategory, error) {
	steps := in.Features.Metric(models.MetricSteps)
	active := in.Features.Metric(models.MetricActivity)
	if steps.Empty() && active.Empty() {
		return newCategory(models.CategoryActivity, DefaultActivityScore,
			"Not enough activity data yet",
			"Carry your phone or wear your device during the day to track steps"), nil
	}

	goal := stepGoal(in.Profile)
	var b blend
	var recs []string
	description := ""

	if !steps.Empty() {
		avg := steps.Mean()
		b.add(avg/goal*100, 0.6)
		description = fmt.Sprintf("You averaged %.0f steps a day against a goal of %.0f", avg, goal)
		if avg < goal {
			recs = append(recs, fmt.Sprintf("Add a 15-minute walk to close the %.0f step gap", goal-avg))
		}
	}

	if !active.Empty() {
		avg := active.Mean()
		b.add(avg/activeMinutesGoal*100, 0.4)
		if description == "" {
			description = fmt.Sprintf("You averaged %.0f active minutes a day", avg)
		}
		if avg < activeMinutesGoal {
			recs = append(recs, "Include 30 minutes of moderate activity on most days")
		}
	}

	score := b.value()
	if score >= 80 && len(recs) == 0 {
		recs = append(recs, "Add one strength session a week to complement your cardio")
	}
	return newCategory(models.CategoryActivity, score, description, recs...), nil
}

// calorieTarget суточная потребность по Миффлину-Сан Жеору, если профиль заполнен
func calorieTarget(p models.UserProfile) float64 {
	if p.WeightKg <= 0 || p.HeightCm <= 0 || p.Age <= 0 {
		return defaultCalories
	}
	bmr := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	switch p.Sex {
	case "male":
		bmr += 5
	case "female":
		bmr -= 161
	default:
		bmr -= 78
	}

	factor := 1.375
	switch p.ActivityLevel {
	case "sedentary":
		factor = 1.2
	case "active":
		factor = 1.55
	case "very_active":
		factor = 1.725
	}
	return bmr * factor
}

func proteinTarget(p models.UserProfile) float64 {
	if p.WeightKg > 0 {
		return 0.8 * p.WeightKg
	}
	return defaultProteinGrams
}

func scoreNutrition(in *Input) (models.InsightCategory, error) {
	calories := in.Features.Typed(models.MetricNutrition, TypeCalories)
	protein := in.Features.Typed(models.MetricNutrition, TypeProtein)
	water := in.Features.Typed(models.MetricNutrition, TypeWater)
	if calories.Empty() && protein.Empty() && water.Empty() {
		return newCategory(models.CategoryNutrition, DefaultNutritionScore,
			"Not enough nutrition data yet",
			"Log your meals for a few days to get nutrition insights"), nil
	}

	var b blend
	var recs []string
	description := "Based on your logged meals"

	if !calories.Empty() {
		target := calorieTarget(in.Profile)
		deviation := math.Abs(calories.Mean()-target) / target
		b.add(100-deviation*200, 0.4)
		description = fmt.Sprintf("You logged %.0f kcal a day against an estimated need of %.0f", calories.Mean(), target)
		if calories.Mean() < target*0.85 {
			recs = append(recs, "Your intake looks low; add a balanced snack between meals")
		} else if calories.Mean() > target*1.15 {
			recs = append(recs, "Trim portion sizes slightly to match your energy needs")
		}
	}

	if !protein.Empty() {
		target := proteinTarget(in.Profile)
		b.add(protein.Mean()/target*100, 0.35)
		if protein.Mean() < target {
			recs = append(recs, fmt.Sprintf("Aim for at least %.0f g of protein a day", target))
		}
	}

	if !water.Empty() {
		b.add(water.Mean()/waterLitersGoal*100, 0.25)
		if water.Mean() < waterLitersGoal {
			recs = append(recs, "Keep a water bottle nearby and aim for 2 liters a day")
		}
	}

	return newCategory(models.CategoryNutrition, b.value(), description, recs...), nil
}

// hrvScore RMSSD в шкалу 0-100 (20 мс и ниже - 0, 80 мс и выше - 100)
func hrvScore(hrv float64) float64 { return clamp100((hrv - 20) / 60 * 100) }

func scoreStress(in *Input) (models.InsightCategory, error) {
	stress := in.Features.Assessment(models.QuestionStress)
	mood := in.Features.Assessment(models.QuestionMood)
	hrv := in.Features.Metric(models.MetricHRV)
	if stress.Empty() && mood.Empty() && hrv.Empty() {
		return newCategory(models.CategoryStress, DefaultStressScore,
			"Not enough stress data yet",
			"Complete the daily check-in to track how stressed you feel"), nil
	}

	var b blend
	var recs []string
	description := ""

	if !stress.Empty() {
		b.add(100-likertScore(stress.Mean()), 0.5)
		description = fmt.Sprintf("You rated your stress %.1f out of 5 on average", stress.Mean())
		if stress.Mean() >= 3.5 {
			recs = append(recs, "Try 10 minutes of guided breathing or meditation each day")
		}
	}
	if !mood.Empty() {
		b.add(likertScore(mood.Mean()), 0.2)
		if mood.Mean() < 2.5 {
			recs = append(recs, "Schedule time for activities you enjoy and people you trust")
		}
	}
	if !hrv.Empty() {
		b.add(hrvScore(hrv.Mean()), 0.3)
		if description == "" {
			description = fmt.Sprintf("Your heart rate variability averaged %.0f ms", hrv.Mean())
		}
		if hrv.Mean() < 30 {
			recs = append(recs, "Prioritize recovery days when your HRV is below baseline")
		}
	}

	return newCategory(models.CategoryStress, b.value(), description, recs...), nil
}

// restingHRScore 50 уд/мин и ниже - 100, каждый удар сверх - минус 2 балла
func restingHRScore(rhr float64) float64 { return clamp100(100 - (rhr-50)*2) }

func scoreHeartHealth(in *Input) (models.InsightCategory, error) {
	rhr := in.Features.RestingHeartRate()
	hrv := in.Features.Metric(models.MetricHRV)
	if rhr.Empty() && hrv.Empty() {
		return newCategory(models.CategoryHeartHealth, DefaultHeartHealthScore,
			"Not enough heart data yet",
			"Wear your device at rest to measure your resting heart rate"), nil
	}

	var b blend
	var recs []string
	description := ""

	if !rhr.Empty() {
		b.add(restingHRScore(rhr.Mean()), 0.6)
		description = fmt.Sprintf("Your resting heart rate averaged %.0f bpm", rhr.Mean())
		if rhr.Mean() > restingHRRiskThreshold {
			recs = append(recs, "Build aerobic fitness with brisk walks or cycling to lower your resting heart rate")
		}
	}
	if !hrv.Empty() {
		b.add(hrvScore(hrv.Mean()), 0.4)
		if description == "" {
			description = fmt.Sprintf("Your heart rate variability averaged %.0f ms", hrv.Mean())
		}
	}

	score := b.value()
	if score >= 80 && len(recs) == 0 {
		recs = append(recs, "Keep up your cardio routine to maintain heart health")
	}
	return newCategory(models.CategoryHeartHealth, score, description, recs...), nil
}

// bmi индекс массы тела, 0 если профиль неполный
func bmi(p models.UserProfile) float64 {
	if p.WeightKg <= 0 || p.HeightCm <= 0 {
		return 0
	}
	m := p.HeightCm / 100
	return p.WeightKg / (m * m)
}

func scoreMetabolism(in *Input) (models.InsightCategory, error) {
	steps := in.Features.Metric(models.MetricSteps)
	calories := in.Features.Typed(models.MetricNutrition, TypeCalories)
	index := bmi(in.Profile)
	if steps.Empty() && calories.Empty() && index == 0 {
		return newCategory(models.CategoryMetabolism, DefaultMetabolismScore,
			"Not enough metabolic data yet",
			"Add your height and weight to your profile for metabolic insights"), nil
	}

	var b blend
	var recs []string
	description := "Estimated from your activity, intake and body composition"

	if index > 0 {
		b.add(100-math.Abs(index-22)*8, 0.4)
		description = fmt.Sprintf("Your BMI is %.1f", index)
		if index >= 25 {
			recs = append(recs, "Combine daily movement with balanced meals to reach a healthier weight")
		}
	}
	if !steps.Empty() {
		b.add(steps.Mean()/stepGoal(in.Profile)*100, 0.35)
	}
	if !calories.Empty() {
		target := calorieTarget(in.Profile)
		b.add(100-math.Abs(calories.Mean()-target)/target*200, 0.25)
	}

	return newCategory(models.CategoryMetabolism, b.value(), description, recs...), nil
}

// spo2Score 90% и ниже - 0, 98% и выше - 100
func spo2Score(v float64) float64 { return clamp100((v - 90) / 8 * 100) }

func temperatureScore(t float64) float64 {
	return clamp100(100 - math.Abs(t-normalBodyTemperature)*60)
}

func scoreImmunity(in *Input) (models.InsightCategory, error) {
	temp := in.Features.Metric(models.MetricTemperature)
	spo2 := in.Features.Metric(models.MetricSpO2)
	sleep := in.Features.Metric(models.MetricSleep)
	if temp.Empty() && spo2.Empty() && sleep.Empty() {
		return newCategory(models.CategoryImmunity, DefaultImmunityScore,
			"Not enough data to assess recovery and immunity yet",
			"Sleep with your device on to track temperature and blood oxygen"), nil
	}

	var b blend
	var recs []string
	description := "Based on your temperature, blood oxygen and sleep"

	if !temp.Empty() {
		b.add(temperatureScore(temp.Mean()), 0.35)
		if temp.Summary.Max >= 37.5 {
			recs = append(recs, "Your temperature ran high; rest and stay hydrated")
		}
	}
	if !spo2.Empty() {
		b.add(spo2Score(spo2.Mean()), 0.35)
	}
	if !sleep.Empty() {
		b.add(sleepDurationScore(sleep.Mean(), sleepGoal(in.Profile)), 0.3)
		if sleep.Mean() < 7 {
			recs = append(recs, "Consistent 7+ hour nights support a healthy immune response")
		}
	}

	return newCategory(models.CategoryImmunity, b.value(), description, recs...), nil
}
