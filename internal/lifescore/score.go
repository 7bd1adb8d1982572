// Package lifescore computes the Move/Fuel/Recharge composite score from
// recent lifestyle logs.
package lifescore

import (
	"fmt"
	"math"

	"github.com/myora/server/internal/model"
)

// window is the trailing number of days of logs the score is computed over
const windowDays = 7

// Score is the result of one computation. All components are integers in [0, 100]
// and Overall is the rounded mean of the other three.
type Score struct {
	Move     int
	Fuel     int
	Recharge int
	Overall  int
	Factors  model.ScoreFactors
}

// Calculate derives the composite score from the last seven days of logs.
// It is deterministic and performs no I/O.
func Calculate(activities, meals, sleepLogs, stressLogs []model.LifestyleLog) Score {
	var score Score

	// Move: average daily activity minutes, with a bonus for any high-intensity work
	activityMinutes := 0
	highIntensity := false
	for _, a := range activities {
		activityMinutes += a.DurationMin
		if a.Intensity == "high" {
			highIntensity = true
		}
	}
	avgActivityPerDay := float64(activityMinutes) / windowDays

	switch {
	case avgActivityPerDay >= 30:
		score.Move = 90
	case avgActivityPerDay >= 20:
		score.Move = 80
	case avgActivityPerDay >= 10:
		score.Move = 70
	case avgActivityPerDay >= 5:
		score.Move = 60
	case avgActivityPerDay > 0:
		score.Move = 50
	default:
		score.Move = 30
	}
	if highIntensity {
		score.Move = clamp(score.Move + 10)
	}

	// Fuel: meal frequency, with a bonus when any meal carries nutrition data
	mealsPerDay := float64(len(meals)) / windowDays
	switch {
	case mealsPerDay >= 3:
		score.Fuel = 85
	case mealsPerDay >= 2:
		score.Fuel = 70
	case mealsPerDay >= 1:
		score.Fuel = 60
	default:
		score.Fuel = 40
	}
	hasNutrition := false
	for _, m := range meals {
		if len(m.Nutrition) > 0 && string(m.Nutrition) != "{}" && string(m.Nutrition) != "null" {
			hasNutrition = true
			break
		}
	}
	if hasNutrition {
		score.Fuel = clamp(score.Fuel + 10)
	}

	// Recharge: sleep duration and quality, adjusted by stress. The base of 50
	// holds when no sleep is logged; stress still adjusts it.
	score.Recharge = 50
	var avgSleep float64
	if len(sleepLogs) > 0 {
		total := 0.0
		goodQuality := 0
		for _, s := range sleepLogs {
			total += s.SleepHours
			if s.SleepQuality == "good" || s.SleepQuality == "excellent" {
				goodQuality++
			}
		}
		avgSleep = total / float64(len(sleepLogs))
		switch {
		case avgSleep >= 7 && avgSleep <= 9:
			score.Recharge = 90
		case avgSleep >= 6 && avgSleep <= 10:
			score.Recharge = 75
		case avgSleep >= 5:
			score.Recharge = 60
		default:
			score.Recharge = 40
		}
		if goodQuality*2 > len(sleepLogs) {
			score.Recharge = clamp(score.Recharge + 10)
		}
	}

	var avgStress float64
	if len(stressLogs) > 0 {
		total := 0.0
		for _, s := range stressLogs {
			level := s.StressLevel
			if level == 0 {
				level = 5
			}
			total += float64(level)
		}
		avgStress = total / float64(len(stressLogs))
		if avgStress <= 3 {
			score.Recharge = clamp(score.Recharge + 10)
		} else if avgStress >= 7 {
			score.Recharge = score.Recharge - 20
			if score.Recharge < 0 {
				score.Recharge = 0
			}
		}
	}

	score.Overall = int(math.Round(float64(score.Move+score.Fuel+score.Recharge) / 3))

	// Factors mirror the same thresholds
	factors := model.ScoreFactors{Move: []string{}, Fuel: []string{}, Recharge: []string{}}
	if avgActivityPerDay >= 30 {
		factors.Move = append(factors.Move, "Excellent activity levels")
	} else if avgActivityPerDay >= 20 {
		factors.Move = append(factors.Move, "Good activity levels")
	} else if avgActivityPerDay < 10 {
		factors.Move = append(factors.Move, "Low activity - aim for 30+ min/day")
	}

	if mealsPerDay >= 3 {
		factors.Fuel = append(factors.Fuel, "Regular meal logging")
	} else {
		factors.Fuel = append(factors.Fuel, "Log more meals for better tracking")
	}

	if len(sleepLogs) > 0 {
		if avgSleep >= 7 && avgSleep <= 9 {
			factors.Recharge = append(factors.Recharge, "Optimal sleep duration")
		} else {
			factors.Recharge = append(factors.Recharge, fmt.Sprintf("Average sleep: %.1f hours", avgSleep))
		}
	} else {
		factors.Recharge = append(factors.Recharge, "Log sleep for better tracking")
	}
	if len(stressLogs) > 0 {
		if avgStress <= 3 {
			factors.Recharge = append(factors.Recharge, "Low stress levels")
		} else if avgStress >= 7 {
			factors.Recharge = append(factors.Recharge, "High stress - consider stress management")
		}
	}
	score.Factors = factors

	return score
}

func clamp(v int) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
