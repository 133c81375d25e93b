package insights

import (
	"math"

	"nestor-insights/internal/models"
)

// Пороги правил факторов риска
const (
	restingHRRiskThreshold  = 80.0
	restingHRMediumSeverity = 90.0

	sleepRiskHours     = 7.0
	sleepHighRiskHours = 6.0

	spo2RiskPercent     = 95.0
	spo2HighRiskPercent = 92.0

	sedentarySteps       = 5000.0
	veryLowActivitySteps = 3000.0

	stressRiskLikert     = 4.0
	stressHighRiskLikert = 4.5
)

// riskRule независимое пороговое правило. nil - риска нет.
type riskRule func(f Features) *models.RiskFactor

var riskRules = []riskRule{
	restingHeartRateRisk,
	sleepDeprivationRisk,
	lowBloodOxygenRisk,
	sedentaryRisk,
	chronicStressRisk,
}

// AssessRisks применяет все правила факторов риска
func AssessRisks(f Features) []models.RiskFactor {
	risks := []models.RiskFactor{}
	for _, rule := range riskRules {
		if r := rule(f); r != nil {
			risks = append(risks, *r)
		}
	}
	return risks
}

// logistic вероятность по логистической кривой с центром mid, округление до сотых
func logistic(x, mid, k float64) float64 {
	p := 1 / (1 + math.Exp(-k*(x-mid)))
	return math.Round(p*100) / 100
}

func restingHeartRateRisk(f Features) *models.RiskFactor {
	rhr := f.RestingHeartRate()
	if rhr.Empty() || rhr.Mean() <= restingHRRiskThreshold {
		return nil
	}

	severity := models.SeverityLow
	if rhr.Mean() > restingHRMediumSeverity {
		severity = models.SeverityMedium
	}
	return &models.RiskFactor{
		Name:                 "Elevated Resting Heart Rate",
		Category:             models.CategoryHeartHealth,
		Probability:          logistic(rhr.Mean(), 85, 0.15),
		Severity:             severity,
		ImprovementPotential: 0.7,
		Interventions: []string{
			"Add 150 minutes of moderate aerobic exercise per week",
			"Reduce caffeine and alcohol intake",
			"Discuss persistent readings above 90 bpm with your doctor",
		},
	}
}

func sleepDeprivationRisk(f Features) *models.RiskFactor {
	sleep := f.Metric(models.MetricSleep)
	if sleep.Empty() || sleep.Mean() >= sleepRiskHours {
		return nil
	}

	severity := models.SeverityMedium
	if sleep.Mean() < sleepHighRiskHours {
		severity = models.SeverityHigh
	}
	return &models.RiskFactor{
		Name:                 "Sleep Deprivation",
		Category:             models.CategorySleep,
		Probability:          logistic(sleepRiskHours-sleep.Mean(), 0.5, 2),
		Severity:             severity,
		ImprovementPotential: 0.8,
		Interventions: []string{
			"Set a fixed bedtime that allows at least 7 hours of sleep",
			"Avoid screens for an hour before bed",
			"Keep your bedroom cool and dark",
		},
	}
}

func lowBloodOxygenRisk(f Features) *models.RiskFactor {
	spo2 := f.Metric(models.MetricSpO2)
	if spo2.Empty() || spo2.Mean() >= spo2RiskPercent {
		return nil
	}

	severity := models.SeverityMedium
	if spo2.Mean() < spo2HighRiskPercent {
		severity = models.SeverityHigh
	}
	return &models.RiskFactor{
		Name:                 "Low Blood Oxygen",
		Category:             models.CategoryImmunity,
		Probability:          logistic(spo2RiskPercent-spo2.Mean(), 2, 1),
		Severity:             severity,
		ImprovementPotential: 0.4,
		Interventions: []string{
			"Check that the sensor sits snugly on your wrist",
			"Talk to a doctor about possible sleep apnea if low readings persist",
		},
	}
}

func sedentaryRisk(f Features) *models.RiskFactor {
	steps := f.Metric(models.MetricSteps)
	if steps.Empty() || steps.Mean() >= sedentarySteps {
		return nil
	}

	severity := models.SeverityLow
	if steps.Mean() < veryLowActivitySteps {
		severity = models.SeverityMedium
	}
	return &models.RiskFactor{
		Name:                 "Sedentary Lifestyle",
		Category:             models.CategoryActivity,
		Probability:          logistic(sedentarySteps-steps.Mean(), 1000, 0.002),
		Severity:             severity,
		ImprovementPotential: 0.9,
		Interventions: []string{
			"Stand up and move for 5 minutes every hour",
			"Take the stairs and walk short errands",
		},
	}
}

func chronicStressRisk(f Features) *models.RiskFactor {
	stress := f.Assessment(models.QuestionStress)
	if stress.Empty() || stress.Mean() < stressRiskLikert {
		return nil
	}

	severity := models.SeverityMedium
	if stress.Mean() >= stressHighRiskLikert {
		severity = models.SeverityHigh
	}
	return &models.RiskFactor{
		Name:                 "Chronic Stress",
		Category:             models.CategoryStress,
		Probability:          logistic(stress.Mean(), 4, 3),
		Severity:             severity,
		ImprovementPotential: 0.6,
		Interventions: []string{
			"Practice a daily relaxation technique",
			"Protect time for rest and social connection",
			"Consider talking to a mental health professional",
		},
	}
}
