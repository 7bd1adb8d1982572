// Package prediction derives a health risk assessment from recent logs via the
// reasoning service.
package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myora/server/internal/llm"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/repo"
)

// HistoryLimit caps prediction history responses
const HistoryLimit = 50

// maxSymptomsAnalyzed caps how many recent symptom checks feed the summary
const maxSymptomsAnalyzed = 5

const systemPrompt = "You are a health risk assessment AI. Provide accurate, helpful risk assessments."

// fallback is returned whenever the reasoning service's output cannot be parsed
var fallback = result{
	RiskScore:       50,
	Factors:         []string{"Insufficient data"},
	Recommendations: []string{"Continue logging health data for better predictions"},
}

type result struct {
	RiskScore       int      `json:"riskScore"`
	Factors         []string `json:"factors"`
	Recommendations []string `json:"recommendations"`
}

// Service computes and stores prediction snapshots
type Service struct {
	lifestyleRepo  repo.LifestyleRepo
	symptomRepo    repo.SymptomRepo
	scoreRepo      repo.LifeScoreRepo
	predictionRepo repo.PredictionRepo
	llmClient      llm.Client
	now            func() time.Time
}

// NewService creates a prediction service
func NewService(
	lifestyleRepo repo.LifestyleRepo,
	symptomRepo repo.SymptomRepo,
	scoreRepo repo.LifeScoreRepo,
	predictionRepo repo.PredictionRepo,
	llmClient llm.Client,
) *Service {
	return &Service{
		lifestyleRepo:  lifestyleRepo,
		symptomRepo:    symptomRepo,
		scoreRepo:      scoreRepo,
		predictionRepo: predictionRepo,
		llmClient:      llmClient,
		now:            time.Now,
	}
}

// Compute gathers the last 30 days of data, asks the reasoning service for a
// structured risk assessment, and appends a new snapshot. Unparsable output is
// replaced by the fixed fallback and never surfaces as an error.
func (s *Service) Compute(ctx context.Context, userID uuid.UUID) (model.PredictionSnapshot, error) {
	since := s.now().AddDate(0, 0, -30)

	logs, err := s.lifestyleRepo.ListSince(ctx, userID, since)
	if err != nil {
		return model.PredictionSnapshot{}, fmt.Errorf("load lifestyle logs: %w", err)
	}
	symptoms, err := s.symptomRepo.Recent(ctx, userID, 10)
	if err != nil {
		return model.PredictionSnapshot{}, fmt.Errorf("load symptom logs: %w", err)
	}
	if len(symptoms) > maxSymptomsAnalyzed {
		symptoms = symptoms[:maxSymptomsAnalyzed]
	}

	var overall string
	latest, err := s.scoreRepo.GetLatest(ctx, userID)
	switch {
	case err == nil:
		overall = fmt.Sprintf("%d/100", latest.Overall)
	case errors.Is(err, repo.ErrSnapshotNotFound):
		overall = "Not calculated"
	default:
		return model.PredictionSnapshot{}, fmt.Errorf("load lifescore: %w", err)
	}

	summary := buildSummary(logs, symptoms, overall)
	prompt := fmt.Sprintf(`Based on the following user health data, calculate a health risk score (0-100, where 0 is lowest risk and 100 is highest risk) and provide:
%s

Calculate the risk score considering:
1. Lifestyle factors (activity, nutrition, sleep, stress)
2. Symptom patterns and urgency
3. Overall health trends

Provide:
1. A list of 3-5 key risk factors
2. A list of 3-5 actionable recommendations

Return the response in JSON format with keys: riskScore (number), factors (array of strings), recommendations (array of strings).`, summary)

	raw, err := s.llmClient.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.3,
		MaxTokens:   500,
		ForceJSON:   true,
	})
	if err != nil {
		return model.PredictionSnapshot{}, fmt.Errorf("reasoning service: %w", err)
	}

	parsed := parseResult(raw)

	snapshot := model.PredictionSnapshot{
		UserID:          userID,
		RiskScore:       parsed.RiskScore,
		Factors:         parsed.Factors,
		Recommendations: parsed.Recommendations,
	}
	if err := s.predictionRepo.Insert(ctx, &snapshot); err != nil {
		return model.PredictionSnapshot{}, fmt.Errorf("persist prediction: %w", err)
	}
	return snapshot, nil
}

// parseResult parses the structured payload, substituting the fixed fallback
// when the payload is malformed. It never panics or returns an error.
func parseResult(raw string) result {
	var parsed result
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fallback
	}
	if len(parsed.Factors) == 0 && len(parsed.Recommendations) == 0 && parsed.RiskScore == 0 {
		return fallback
	}
	if parsed.RiskScore < 0 {
		parsed.RiskScore = 0
	}
	if parsed.RiskScore > 100 {
		parsed.RiskScore = 100
	}
	if parsed.Factors == nil {
		parsed.Factors = []string{}
	}
	if parsed.Recommendations == nil {
		parsed.Recommendations = []string{}
	}
	return parsed
}

// buildSummary renders the fixed-format natural-language summary fed to the
// reasoning service.
func buildSummary(logs []model.LifestyleLog, symptoms []model.SymptomLog, overall string) string {
	mealCount := 0
	activityCount := 0
	var sleepHours []float64
	var stressLevels []float64
	for _, entry := range logs {
		switch entry.Kind {
		case model.LogKindMeal:
			mealCount++
		case model.LogKindActivity:
			activityCount++
		case model.LogKindSleep:
			sleepHours = append(sleepHours, entry.SleepHours)
		case model.LogKindStress:
			level := entry.StressLevel
			if level == 0 {
				level = 5
			}
			stressLevels = append(stressLevels, float64(level))
		}
	}

	avgSleep := "Not logged"
	if len(sleepHours) > 0 {
		avgSleep = fmt.Sprintf("%.1f hours", mean(sleepHours))
	}
	avgStress := "Not logged"
	if len(stressLevels) > 0 {
		avgStress = fmt.Sprintf("%.1f/10", mean(stressLevels))
	}

	var recentSymptoms []string
	highUrgency := 0
	for _, s := range symptoms {
		recentSymptoms = append(recentSymptoms, s.Symptoms...)
		if s.Urgency == "high" {
			highUrgency++
		}
	}
	symptomList := "None"
	if len(recentSymptoms) > 0 {
		symptomList = strings.Join(recentSymptoms, ", ")
	}

	return fmt.Sprintf(`
User Health Data Summary (Last 30 days):
- Meals logged: %d
- Activities logged: %d
- Average sleep: %s
- Average stress level: %s
- Recent symptoms: %s
- High urgency symptoms: %d
- Current LifeScore: %s
`, mealCount, activityCount, avgSleep, avgStress, symptomList, highUrgency, overall)
}

func mean(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// Current returns the newest snapshot, computing one when none exists
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (model.PredictionSnapshot, error) {
	snapshot, err := s.predictionRepo.GetLatest(ctx, userID)
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, repo.ErrSnapshotNotFound) {
		return model.PredictionSnapshot{}, fmt.Errorf("load prediction: %w", err)
	}
	return s.Compute(ctx, userID)
}

// History returns up to 50 snapshots, newest first
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]model.PredictionSnapshot, error) {
	return s.predictionRepo.History(ctx, userID, HistoryLimit)
}
