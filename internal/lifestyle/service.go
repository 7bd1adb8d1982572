// Package lifestyle records meal, activity, sleep, and stress logs.
package lifestyle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/myora/server/internal/llm"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/objstore"
	"github.com/myora/server/internal/repo"
)

// DefaultLogDays is the trailing window for log listings
const DefaultLogDays = 30

const nutritionPrompt = "Analyze this meal image and provide nutritional information in JSON format: calories, protein (g), carbs (g), fats (g), and any notable vitamins or nutrients. Return only valid JSON."

// Service creates and lists lifestyle logs
type Service struct {
	lifestyleRepo repo.LifestyleRepo
	store         objstore.Store
	llmClient     llm.Client
	now           func() time.Time
}

// NewService creates a lifestyle service
func NewService(lifestyleRepo repo.LifestyleRepo, store objstore.Store, llmClient llm.Client) *Service {
	return &Service{
		lifestyleRepo: lifestyleRepo,
		store:         store,
		llmClient:     llmClient,
		now:           time.Now,
	}
}

// LogMeal uploads the meal image, derives nutrition data from it, and records
// the log. Unparsable nutrition output degrades to an empty object rather than
// failing the log.
func (s *Service) LogMeal(ctx context.Context, userID uuid.UUID, image []byte, contentType, notes string) (model.LifestyleLog, error) {
	key := fmt.Sprintf("meals/%s/%s.jpg", userID, uuid.New())
	imageURL, err := s.store.Put(ctx, key, image, contentType)
	if err != nil {
		return model.LifestyleLog{}, fmt.Errorf("upload meal image: %w", err)
	}

	nutrition := json.RawMessage(`{}`)
	raw, err := s.llmClient.Complete(ctx, llm.Request{
		Messages:  []llm.Message{{Role: "user", Content: nutritionPrompt}},
		MaxTokens: 300,
		Image:     &llm.Image{Data: image, ContentType: contentType},
	})
	if err != nil {
		// Nutrition analysis is best-effort; the meal is still logged
		log.Printf("meal nutrition analysis failed for user %s: %v", userID, err)
	} else if json.Valid([]byte(raw)) {
		nutrition = json.RawMessage(raw)
	}

	entry := model.LifestyleLog{
		UserID:     userID,
		Kind:       model.LogKindMeal,
		ImageURL:   imageURL,
		StorageKey: key,
		Nutrition:  nutrition,
		Notes:      notes,
	}
	if err := s.lifestyleRepo.Insert(ctx, &entry); err != nil {
		return model.LifestyleLog{}, err
	}
	return entry, nil
}

// LogActivity records an activity entry
func (s *Service) LogActivity(ctx context.Context, userID uuid.UUID, activityType string, durationMin int, intensity string) (model.LifestyleLog, error) {
	entry := model.LifestyleLog{
		UserID:       userID,
		Kind:         model.LogKindActivity,
		ActivityType: activityType,
		DurationMin:  durationMin,
		Intensity:    intensity,
	}
	if err := s.lifestyleRepo.Insert(ctx, &entry); err != nil {
		return model.LifestyleLog{}, err
	}
	return entry, nil
}

// LogSleep records a sleep entry
func (s *Service) LogSleep(ctx context.Context, userID uuid.UUID, hours float64, quality string) (model.LifestyleLog, error) {
	entry := model.LifestyleLog{
		UserID:       userID,
		Kind:         model.LogKindSleep,
		SleepHours:   hours,
		SleepQuality: quality,
	}
	if err := s.lifestyleRepo.Insert(ctx, &entry); err != nil {
		return model.LifestyleLog{}, err
	}
	return entry, nil
}

// LogStress records a stress entry
func (s *Service) LogStress(ctx context.Context, userID uuid.UUID, level int, notes string) (model.LifestyleLog, error) {
	entry := model.LifestyleLog{
		UserID:      userID,
		Kind:        model.LogKindStress,
		StressLevel: level,
		Notes:       notes,
	}
	if err := s.lifestyleRepo.Insert(ctx, &entry); err != nil {
		return model.LifestyleLog{}, err
	}
	return entry, nil
}

// Logs returns the user's logs over the trailing window, newest first. An
// empty kind lists all kinds.
func (s *Service) Logs(ctx context.Context, userID uuid.UUID, kind string, days int) ([]model.LifestyleLog, error) {
	if days <= 0 {
		days = DefaultLogDays
	}
	since := s.now().AddDate(0, 0, -days)
	if kind == "" {
		return s.lifestyleRepo.ListSince(ctx, userID, since)
	}
	return s.lifestyleRepo.ListByKindSince(ctx, userID, kind, since)
}
