// Package symptom analyzes reported symptoms via the reasoning service.
package symptom

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/myora/server/internal/llm"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/repo"
)

// HistoryLimit caps symptom history responses
const HistoryLimit = 50

const systemPrompt = "You are a medical assistant. Provide helpful but cautious guidance. Always emphasize consulting healthcare professionals."

// Service analyzes and records symptom checks
type Service struct {
	symptomRepo repo.SymptomRepo
	llmClient   llm.Client
}

// NewService creates a symptom service
func NewService(symptomRepo repo.SymptomRepo, llmClient llm.Client) *Service {
	return &Service{symptomRepo: symptomRepo, llmClient: llmClient}
}

// Analyze submits the symptoms for analysis and persists the result
func (s *Service) Analyze(ctx context.Context, userID uuid.UUID, symptoms []string) (model.SymptomLog, error) {
	prompt := fmt.Sprintf(`Analyze the following symptoms and provide:
1. A brief analysis of what these symptoms might indicate
2. A list of 3-5 actionable recommendations
3. An urgency level (low, medium, or high)

Symptoms: %s

Important: Always remind the user to consult a healthcare professional for serious concerns.`,
		strings.Join(symptoms, ", "))

	response, err := s.llmClient.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return model.SymptomLog{}, fmt.Errorf("reasoning service: %w", err)
	}

	entry := model.SymptomLog{
		UserID:          userID,
		Symptoms:        symptoms,
		Analysis:        response,
		Recommendations: ExtractRecommendations(response),
		Urgency:         ClassifyUrgency(response),
	}
	if err := s.symptomRepo.Insert(ctx, &entry); err != nil {
		return model.SymptomLog{}, fmt.Errorf("persist symptom log: %w", err)
	}
	return entry, nil
}

// History returns up to 50 symptom checks, newest first
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]model.SymptomLog, error) {
	return s.symptomRepo.Recent(ctx, userID, HistoryLimit)
}

var listItemPattern = regexp.MustCompile(`^(\d+\.|-)\s*`)

// ExtractRecommendations pulls up to five numbered or dashed list items out of
// free-text analysis.
func ExtractRecommendations(response string) []string {
	var out []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if listItemPattern.MatchString(line) {
			out = append(out, strings.TrimSpace(listItemPattern.ReplaceAllString(line, "")))
			if len(out) == 5 {
				break
			}
		}
	}
	return out
}

// ClassifyUrgency scans the free-text analysis for urgency keywords. This is a
// stand-in until the analysis moves to structured output.
func ClassifyUrgency(response string) string {
	lower := strings.ToLower(response)
	if strings.Contains(lower, "high") || strings.Contains(lower, "urgent") || strings.Contains(lower, "emergency") {
		return "high"
	}
	if strings.Contains(lower, "medium") || strings.Contains(lower, "moderate") {
		return "medium"
	}
	return "low"
}
