package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system
type User struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	Name          string
	Phone         string
	EmailVerified bool
	PhoneVerified bool
	CoachName     string
	CoachAvatar   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Log kinds for lifestyle entries
const (
	LogKindMeal     = "meal"
	LogKindActivity = "activity"
	LogKindSleep    = "sleep"
	LogKindStress   = "stress"
)

// LifestyleLog is a single immutable lifestyle entry (meal, activity, sleep, or stress).
// Only the fields for the entry's kind are populated.
type LifestyleLog struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Kind   string

	// meal
	ImageURL   string
	StorageKey string
	Nutrition  json.RawMessage
	Notes      string

	// activity
	ActivityType string
	DurationMin  int
	Intensity    string

	// sleep
	SleepHours   float64
	SleepQuality string

	// stress (1-10)
	StressLevel int

	CreatedAt time.Time
}

// ScoreFactors holds the human-readable explanations for each component score
type ScoreFactors struct {
	Move     []string `json:"move"`
	Fuel     []string `json:"fuel"`
	Recharge []string `json:"recharge"`
}

// LifeScoreSnapshot is the per-(user, calendar day) composite score record
type LifeScoreSnapshot struct {
	UserID    uuid.UUID
	Date      string // yyyy-mm-dd
	Move      int
	Fuel      int
	Recharge  int
	Overall   int
	Factors   ScoreFactors
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PredictionSnapshot is an append-only risk assessment record
type PredictionSnapshot struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	RiskScore       int
	Factors         []string
	Recommendations []string
	CreatedAt       time.Time
}

// SymptomLog records one symptom-check analysis
type SymptomLog struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Symptoms        []string
	Analysis        string
	Recommendations []string
	Urgency         string // low | medium | high
	CreatedAt       time.Time
}

// ChatMessage is one message in an AI chat conversation
type ChatMessage struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	UserID         uuid.UUID
	Role           string // user | assistant
	Content        string
	CreatedAt      time.Time
}

// ConversationSummary describes one conversation in the conversation list
type ConversationSummary struct {
	ConversationID uuid.UUID
	Title          string
	UpdatedAt      time.Time
}

// Notification is an in-app notification for a user
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      string // reminder | alert | info | prediction
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// Contact kinds for verification codes
const (
	ContactKindPhone = "phone"
	ContactKindEmail = "email"
)

// VerificationCode is the pending (or consumed) code for one (user, contact) pair.
// At most one row exists per pair; issuing again overwrites the previous code.
type VerificationCode struct {
	UserID    uuid.UUID
	Contact   string
	Code      string
	Kind      string // phone | email
	ExpiresAt time.Time
	Verified  bool
	CreatedAt time.Time
}

// RefreshSession represents a refresh token session
type RefreshSession struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *uuid.UUID
}
