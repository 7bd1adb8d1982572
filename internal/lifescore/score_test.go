package lifescore

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/myora/server/internal/model"
)

func activityLog(minutes int, intensity string) model.LifestyleLog {
	return model.LifestyleLog{Kind: model.LogKindActivity, DurationMin: minutes, Intensity: intensity}
}

func sleepLog(hours float64, quality string) model.LifestyleLog {
	return model.LifestyleLog{Kind: model.LogKindSleep, SleepHours: hours, SleepQuality: quality}
}

func stressLog(level int) model.LifestyleLog {
	return model.LifestyleLog{Kind: model.LogKindStress, StressLevel: level}
}

func mealLog(nutrition string) model.LifestyleLog {
	l := model.LifestyleLog{Kind: model.LogKindMeal}
	if nutrition != "" {
		l.Nutrition = json.RawMessage(nutrition)
	}
	return l
}

func TestCalculate_NoLogs(t *testing.T) {
	s := Calculate(nil, nil, nil, nil)

	assert.Equal(t, 30, s.Move, "no activity must floor Move at 30")
	assert.Equal(t, 40, s.Fuel, "no meals must floor Fuel at 40")
	assert.Equal(t, 50, s.Recharge, "no sleep keeps the Recharge base of 50")
	assert.Equal(t, 40, s.Overall, "overall is the rounded mean of components")

	assert.Contains(t, s.Factors.Move, "Low activity - aim for 30+ min/day")
	assert.Contains(t, s.Factors.Fuel, "Log more meals for better tracking")
	assert.Contains(t, s.Factors.Recharge, "Log sleep for better tracking")
}

func TestCalculate_MoveThresholds(t *testing.T) {
	cases := []struct {
		totalMinutes int
		want         int
	}{
		{0, 30},
		{7, 50},    // 1/day
		{35, 60},   // 5/day
		{70, 70},   // 10/day
		{140, 80},  // 20/day
		{210, 90},  // 30/day
		{1000, 90}, // no reward past the top bracket
	}
	for _, tc := range cases {
		var activities []model.LifestyleLog
		if tc.totalMinutes > 0 {
			activities = []model.LifestyleLog{activityLog(tc.totalMinutes, "moderate")}
		}
		s := Calculate(activities, nil, nil, nil)
		assert.Equal(t, tc.want, s.Move, "total %d min over the window", tc.totalMinutes)
	}
}

func TestCalculate_HighIntensityBonus(t *testing.T) {
	// 25+/day average lands in the 80 bracket; any high-intensity session adds 10
	s := Calculate([]model.LifestyleLog{
		activityLog(100, "moderate"),
		activityLog(75, "high"),
	}, nil, nil, nil)
	assert.Equal(t, 90, s.Move)

	// The bonus may not push past 100
	s = Calculate([]model.LifestyleLog{activityLog(500, "high")}, nil, nil, nil)
	assert.Equal(t, 100, s.Move)
}

func TestCalculate_FuelThresholds(t *testing.T) {
	mkMeals := func(n int) []model.LifestyleLog {
		meals := make([]model.LifestyleLog, n)
		for i := range meals {
			meals[i] = mealLog("")
		}
		return meals
	}

	assert.Equal(t, 40, Calculate(nil, mkMeals(0), nil, nil).Fuel)
	assert.Equal(t, 60, Calculate(nil, mkMeals(7), nil, nil).Fuel)  // 1/day
	assert.Equal(t, 70, Calculate(nil, mkMeals(14), nil, nil).Fuel) // 2/day
	assert.Equal(t, 85, Calculate(nil, mkMeals(21), nil, nil).Fuel) // 3/day
}

func TestCalculate_NutritionBonus(t *testing.T) {
	meals := make([]model.LifestyleLog, 25) // 3.5/day
	for i := range meals {
		meals[i] = mealLog("")
	}
	meals[0] = mealLog(`{"calories":420}`)

	s := Calculate(nil, meals, nil, nil)
	assert.Equal(t, 95, s.Fuel, "3+ meals/day with nutrition data must score 95")
	assert.Contains(t, s.Factors.Fuel, "Regular meal logging")
}

func TestCalculate_EmptyNutritionDoesNotCount(t *testing.T) {
	meals := []model.LifestyleLog{mealLog(`{}`), mealLog(`null`), mealLog("")}
	s := Calculate(nil, meals, nil, nil)
	assert.Equal(t, 40, s.Fuel, "empty nutrition objects must not earn the bonus")
}

func TestCalculate_SleepBrackets(t *testing.T) {
	cases := []struct {
		hours float64
		want  int
	}{
		{8, 90},
		{7, 90},
		{9, 90},
		{6.5, 75},
		{9.5, 75},
		{5, 60},
		{4, 40},
	}
	for _, tc := range cases {
		s := Calculate(nil, nil, []model.LifestyleLog{sleepLog(tc.hours, "fair")}, nil)
		assert.Equal(t, tc.want, s.Recharge, "%.1f hours of sleep", tc.hours)
	}
}

func TestCalculate_SleepQualityMajorityBonus(t *testing.T) {
	// 2 of 3 nights good quality: bonus applies
	logs := []model.LifestyleLog{
		sleepLog(8, "good"),
		sleepLog(8, "excellent"),
		sleepLog(8, "poor"),
	}
	assert.Equal(t, 100, Calculate(nil, nil, logs, nil).Recharge)

	// Exactly half is not a majority
	logs = []model.LifestyleLog{sleepLog(8, "good"), sleepLog(8, "poor")}
	assert.Equal(t, 90, Calculate(nil, nil, logs, nil).Recharge)
}

func TestCalculate_StressAdjustsRechargeWithoutSleep(t *testing.T) {
	// High stress with no sleep logged: base 50 minus 20
	s := Calculate(nil, nil, nil, []model.LifestyleLog{stressLog(8)})
	assert.Equal(t, 30, s.Recharge)
	assert.Contains(t, s.Factors.Recharge, "High stress - consider stress management")

	// Low stress raises the base
	s = Calculate(nil, nil, nil, []model.LifestyleLog{stressLog(2)})
	assert.Equal(t, 60, s.Recharge)
	assert.Contains(t, s.Factors.Recharge, "Low stress levels")
}

func TestCalculate_StressFloorsAtZero(t *testing.T) {
	s := Calculate(nil, nil, []model.LifestyleLog{sleepLog(3, "poor")}, []model.LifestyleLog{stressLog(10)})
	assert.Equal(t, 20, s.Recharge)

	s = Calculate(nil, nil, []model.LifestyleLog{sleepLog(1, "poor")}, []model.LifestyleLog{stressLog(10)})
	assert.GreaterOrEqual(t, s.Recharge, 0)
}

func TestCalculate_UnsetStressLevelDefaultsToFive(t *testing.T) {
	// A zero level is treated as 5, which is neither low nor high
	s := Calculate(nil, nil, nil, []model.LifestyleLog{stressLog(0)})
	assert.Equal(t, 50, s.Recharge)
	assert.Empty(t, s.Factors.Recharge[1:], "mid stress must not add a stress factor")
}

func TestCalculate_OverallIsRoundedMean(t *testing.T) {
	s := Calculate(
		[]model.LifestyleLog{activityLog(210, "moderate")}, // Move 90
		nil, // Fuel 40
		[]model.LifestyleLog{sleepLog(8, "fair")}, // Recharge 90
		nil,
	)
	want := int(math.Round((90 + 40 + 90) / 3.0))
	assert.Equal(t, want, s.Overall)
}

func TestCalculate_ComponentsStayInRange(t *testing.T) {
	extremes := [][4][]model.LifestyleLog{
		{nil, nil, nil, nil},
		{{activityLog(10000, "high")}, {mealLog(`{"calories":1}`)}, {sleepLog(8, "excellent")}, {stressLog(1)}},
		{nil, nil, {sleepLog(1, "poor")}, {stressLog(10)}},
	}
	for i, e := range extremes {
		s := Calculate(e[0], e[1], e[2], e[3])
		for name, v := range map[string]int{"move": s.Move, "fuel": s.Fuel, "recharge": s.Recharge, "overall": s.Overall} {
			assert.True(t, v >= 0 && v <= 100, fmt.Sprintf("case %d: %s out of range: %d", i, name, v))
		}
	}
}
