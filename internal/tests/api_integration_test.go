package tests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/lib/pq"

	"github.com/myora/server/internal/auth"
	"github.com/myora/server/internal/chat"
	"github.com/myora/server/internal/db"
	httpapi "github.com/myora/server/internal/http"
	"github.com/myora/server/internal/http/handlers"
	"github.com/myora/server/internal/lifescore"
	"github.com/myora/server/internal/lifestyle"
	"github.com/myora/server/internal/llm"
	"github.com/myora/server/internal/middleware"
	"github.com/myora/server/internal/notification"
	"github.com/myora/server/internal/notify"
	"github.com/myora/server/internal/objstore"
	"github.com/myora/server/internal/prediction"
	"github.com/myora/server/internal/repo"
	"github.com/myora/server/internal/symptom"
	"github.com/myora/server/internal/verification"
)

func TestMain(m *testing.M) {
	// Do NOT set DATABASE_URL; integration tests skip when it is missing.
	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "test-jwt-secret-at-least-32-characters-long")
	}
	os.Exit(m.Run())
}

// testServer holds the server, DB, and the collaborators tests poke at
type testServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	LLM           *llm.Stub
	Notifications *notification.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, os.Getenv("DATABASE_URL"))
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that the test DB exists")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, RunMigrations(database), "migrations must run successfully")

	userRepo := repo.NewUserRepo(database)
	refreshRepo := repo.NewRefreshRepo(database)
	lifestyleRepo := repo.NewLifestyleRepo(database)
	scoreRepo := repo.NewLifeScoreRepo(database)
	predictionRepo := repo.NewPredictionRepo(database)
	symptomRepo := repo.NewSymptomRepo(database)
	messageRepo := repo.NewMessageRepo(database)
	notificationRepo := repo.NewNotificationRepo(database)
	verificationRepo := repo.NewVerificationRepo(database)

	stub := llm.NewStub()
	store := objstore.NewDirStore(t.TempDir(), "/uploads")
	dispatcher := &notify.Dispatcher{SMS: &notify.ConsoleSender{Channel: "SMS"}, Email: &notify.ConsoleSender{Channel: "EMAIL"}}

	jwtService := auth.NewJWTService(os.Getenv("JWT_SECRET"), time.Hour)
	authService := auth.NewAuthService(jwtService, userRepo, refreshRepo, 24*time.Hour)
	notificationService := notification.NewService(notificationRepo, userRepo)

	identity := &middleware.JWTIdentity{JWT: jwtService, UserRepo: userRepo}
	router := httpapi.NewRouter(httpapi.Handlers{
		Auth:         handlers.NewAuthHandler(authService, userRepo),
		Lifestyle:    handlers.NewLifestyleHandler(lifestyle.NewService(lifestyleRepo, store, stub)),
		LifeScore:    handlers.NewLifeScoreHandler(lifescore.NewService(lifestyleRepo, scoreRepo, userRepo)),
		Prediction:   handlers.NewPredictionHandler(prediction.NewService(lifestyleRepo, symptomRepo, scoreRepo, predictionRepo, stub)),
		Symptom:      handlers.NewSymptomHandler(symptom.NewService(symptomRepo, stub)),
		Chat:         handlers.NewChatHandler(chat.NewService(messageRepo, stub)),
		Verification: handlers.NewVerificationHandler(verification.NewService(verificationRepo, userRepo, dispatcher, true)),
		Notification: handlers.NewNotificationHandler(notificationService),
	}, identity)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{Server: server, DB: database, LLM: stub, Notifications: notificationService}
}

func (s *testServer) Truncate(t *testing.T) {
	t.Helper()
	require.NoError(t, TruncateAll(context.Background(), s.DB))
}

// apiEnvelope matches the uniform response shape
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, apiEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	// Each subtest gets its own client IP so auth rate limits do not couple subtests
	req.Header.Set("X-Forwarded-For", fakeClientIP(t))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env apiEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func fakeClientIP(t *testing.T) string {
	sum := crc32.ChecksumIEEE([]byte(t.Name()))
	return fmt.Sprintf("10.%d.%d.%d", byte(sum>>16), byte(sum>>8), byte(sum))
}

// registerAndLogin creates a fresh user and returns their access token
func (s *testServer) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	status, _ := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "password123", "name": "Test User",
	})
	require.Equal(t, http.StatusCreated, status)

	status, env := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusOK, status)

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	require.NotEmpty(t, tokens.AccessToken)
	return tokens.AccessToken
}

func TestAPIIntegration(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ts := newTestServer(t)

	t.Run("A_Health", func(t *testing.T) {
		resp, err := ts.Server.Client().Get(ts.Server.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("B_RegisterLoginMe", func(t *testing.T) {
		ts.Truncate(t)
		token := ts.registerAndLogin(t, "b@example.com")

		// Duplicate registration is a validation failure
		status, env := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email": "b@example.com", "password": "password456",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.False(t, env.Success)

		// Wrong password and unknown account must be indistinguishable
		status1, env1 := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "b@example.com", "password": "wrong",
		})
		status2, env2 := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "ghost@example.com", "password": "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, status1)
		assert.Equal(t, status1, status2)
		assert.Equal(t, env1.Error, env2.Error)

		status, env = ts.do(t, http.MethodGet, "/me", token, nil)
		require.Equal(t, http.StatusOK, status)
		var me struct {
			Email string `json:"email"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &me))
		assert.Equal(t, "b@example.com", me.Email)

		status, _ = ts.do(t, http.MethodGet, "/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("C_RefreshRotationAndReuse", func(t *testing.T) {
		ts.Truncate(t)
		ts.registerAndLogin(t, "c@example.com")

		status, env := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "c@example.com", "password": "password123",
		})
		require.Equal(t, http.StatusOK, status)
		var tokens struct {
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &tokens))

		status, env = ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken})
		require.Equal(t, http.StatusOK, status)
		var rotated struct {
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &rotated))
		assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

		// Replaying the consumed token trips reuse detection
		status, env = ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "refresh_token_reuse_detected", env.Error)

		// Which revoked the rotated token as well
		status, _ = ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": rotated.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("D_LifestyleAndLifeScore", func(t *testing.T) {
		ts.Truncate(t)
		token := ts.registerAndLogin(t, "d@example.com")

		status, _ := ts.do(t, http.MethodPost, "/lifestyle/activity", token, map[string]interface{}{
			"type": "running", "duration": 210, "intensity": "moderate",
		})
		require.Equal(t, http.StatusCreated, status)

		status, _ = ts.do(t, http.MethodPost, "/lifestyle/sleep", token, map[string]interface{}{
			"hours": 8, "quality": "good",
		})
		require.Equal(t, http.StatusCreated, status)

		status, _ = ts.do(t, http.MethodPost, "/lifestyle/stress", token, map[string]interface{}{
			"level": 2, "notes": "calm week",
		})
		require.Equal(t, http.StatusCreated, status)

		// Out-of-range stress is rejected
		status, _ = ts.do(t, http.MethodPost, "/lifestyle/stress", token, map[string]interface{}{"level": 11})
		assert.Equal(t, http.StatusBadRequest, status)

		image := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF})
		status, env := ts.do(t, http.MethodPost, "/lifestyle/meal", token, map[string]string{
			"image": image, "notes": "lunch",
		})
		require.Equal(t, http.StatusCreated, status)
		var meal struct {
			ImageURL string `json:"imageUrl"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &meal))
		assert.Contains(t, meal.ImageURL, "/uploads/meals/")

		status, env = ts.do(t, http.MethodGet, "/lifestyle/logs?type=activity", token, nil)
		require.Equal(t, http.StatusOK, status)
		var logs struct {
			Logs []json.RawMessage `json:"logs"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &logs))
		assert.Len(t, logs.Logs, 1)

		status, env = ts.do(t, http.MethodPost, "/lifescore/calculate", token, nil)
		require.Equal(t, http.StatusOK, status)
		var score struct {
			Move     int `json:"move"`
			Fuel     int `json:"fuel"`
			Recharge int `json:"recharge"`
			Overall  int `json:"overall"`
		}
		require.NoError(t, json.NewDecoder(bytes.NewReader(env.Data)).Decode(&score))
		assert.Equal(t, 90, score.Move, "210 min over 7 days is the top bracket")
		assert.Equal(t, 40, score.Fuel, "one meal this week is below a meal per day")
		assert.Equal(t, 100, score.Recharge, "8h good sleep with low stress clamps at the ceiling")
		assert.True(t, score.Overall > 0)

		status, env = ts.do(t, http.MethodGet, "/lifescore/current", token, nil)
		require.Equal(t, http.StatusOK, status)

		status, env = ts.do(t, http.MethodGet, "/lifescore/history", token, nil)
		require.Equal(t, http.StatusOK, status)
		var history struct {
			Scores []json.RawMessage `json:"scores"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &history))
		assert.Len(t, history.Scores, 1)
	})

	t.Run("E_Verification", func(t *testing.T) {
		ts.Truncate(t)
		token := ts.registerAndLogin(t, "e@example.com")

		status, env := ts.do(t, http.MethodPost, "/verify/send", token, map[string]string{
			"contact": "+4915112345678", "type": "phone",
		})
		require.Equal(t, http.StatusOK, status)
		var sent struct {
			DevCode string `json:"devCode"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &sent))
		require.Len(t, sent.DevCode, 6, "dev mode must expose the code")

		// Wrong code fails without error
		status, env = ts.do(t, http.MethodPost, "/verify/check", token, map[string]string{
			"contact": "+4915112345678", "code": "000000", "type": "phone",
		})
		require.Equal(t, http.StatusOK, status)
		var checked struct {
			Verified bool `json:"verified"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &checked))
		if sent.DevCode != "000000" {
			assert.False(t, checked.Verified)
		}

		status, env = ts.do(t, http.MethodPost, "/verify/check", token, map[string]string{
			"contact": "+4915112345678", "code": sent.DevCode, "type": "phone",
		})
		require.Equal(t, http.StatusOK, status)
		require.NoError(t, json.Unmarshal(env.Data, &checked))
		assert.True(t, checked.Verified)

		// The verified flag lands on the profile
		status, env = ts.do(t, http.MethodGet, "/me", token, nil)
		require.Equal(t, http.StatusOK, status)
		var me struct {
			PhoneVerified bool `json:"phoneVerified"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &me))
		assert.True(t, me.PhoneVerified)
	})

	t.Run("F_Chat", func(t *testing.T) {
		ts.Truncate(t)
		token := ts.registerAndLogin(t, "f@example.com")
		intruderToken := ts.registerAndLogin(t, "f2@example.com")

		status, env := ts.do(t, http.MethodPost, "/chat/send", token, map[string]string{
			"message": "How much water should I drink?",
		})
		require.Equal(t, http.StatusOK, status)
		var reply struct {
			ConversationID string `json:"conversationId"`
			Role           string `json:"role"`
			Content        string `json:"content"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &reply))
		assert.Equal(t, "assistant", reply.Role)
		assert.NotEmpty(t, reply.Content)

		status, env = ts.do(t, http.MethodGet, "/chat/conversations", token, nil)
		require.Equal(t, http.StatusOK, status)
		var convs struct {
			Conversations []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"conversations"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &convs))
		require.Len(t, convs.Conversations, 1)
		assert.Equal(t, "How much water should I drink?", convs.Conversations[0].Title)

		messagesPath := fmt.Sprintf("/chat/conversations/%s/messages", reply.ConversationID)
		status, env = ts.do(t, http.MethodGet, messagesPath, token, nil)
		require.Equal(t, http.StatusOK, status)
		var msgs struct {
			Messages []json.RawMessage `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &msgs))
		assert.Len(t, msgs.Messages, 2)

		// Another user cannot read or extend the conversation
		status, _ = ts.do(t, http.MethodGet, messagesPath, intruderToken, nil)
		assert.Equal(t, http.StatusNotFound, status)
		status, _ = ts.do(t, http.MethodPost, "/chat/send", intruderToken, map[string]string{
			"message": "hi", "conversationId": reply.ConversationID,
		})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("G_SymptomsAndPredictions", func(t *testing.T) {
		ts.Truncate(t)
		token := ts.registerAndLogin(t, "g@example.com")

		ts.LLM.Text = "This sounds mild.\n1. Rest\n2. Hydrate\nUrgency: low"
		status, env := ts.do(t, http.MethodPost, "/symptoms/check", token, map[string]interface{}{
			"symptoms": []string{"headache"},
		})
		require.Equal(t, http.StatusOK, status)
		var check struct {
			Urgency         string   `json:"urgency"`
			Recommendations []string `json:"recommendations"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &check))
		assert.Equal(t, "low", check.Urgency)
		assert.Equal(t, []string{"Rest", "Hydrate"}, check.Recommendations)

		// The stub returns {} for structured calls, which lands on the fallback
		status, env = ts.do(t, http.MethodPost, "/predictions", token, nil)
		require.Equal(t, http.StatusOK, status)
		var pred struct {
			RiskScore int      `json:"riskScore"`
			Factors   []string `json:"factors"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &pred))
		assert.Equal(t, 50, pred.RiskScore)
		assert.Equal(t, []string{"Insufficient data"}, pred.Factors)

		status, env = ts.do(t, http.MethodGet, "/predictions/history", token, nil)
		require.Equal(t, http.StatusOK, status)
		var history struct {
			Predictions []json.RawMessage `json:"predictions"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &history))
		assert.Len(t, history.Predictions, 1)
	})

	t.Run("H_Notifications", func(t *testing.T) {
		ts.Truncate(t)
		token := ts.registerAndLogin(t, "h@example.com")

		// Seed via the reminder batch
		require.NoError(t, ts.Notifications.SendDailyReminders(context.Background()))

		status, env := ts.do(t, http.MethodGet, "/notifications", token, nil)
		require.Equal(t, http.StatusOK, status)
		var list struct {
			Notifications []struct {
				ID   string `json:"id"`
				Read bool   `json:"read"`
			} `json:"notifications"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &list))
		require.Len(t, list.Notifications, 1)
		assert.False(t, list.Notifications[0].Read)

		status, _ = ts.do(t, http.MethodPost, "/notifications/"+list.Notifications[0].ID+"/read", token, nil)
		require.Equal(t, http.StatusOK, status)

		status, env = ts.do(t, http.MethodPost, "/notifications/read-all", token, nil)
		require.Equal(t, http.StatusOK, status)
		var readAll struct {
			Updated int64 `json:"updated"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &readAll))
		assert.Equal(t, int64(0), readAll.Updated, "everything was already read")
	})

	t.Run("I_ProfileUpdate", func(t *testing.T) {
		ts.Truncate(t)
		token := ts.registerAndLogin(t, "i@example.com")

		status, env := ts.do(t, http.MethodPut, "/me/profile", token, map[string]string{
			"name": "Renamed", "coachName": "Ora",
		})
		require.Equal(t, http.StatusOK, status)
		var profile struct {
			Name      string `json:"name"`
			CoachName string `json:"coachName"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &profile))
		assert.Equal(t, "Renamed", profile.Name)
		assert.Equal(t, "Ora", profile.CoachName)

		// Empty update is rejected
		status, _ = ts.do(t, http.MethodPut, "/me/profile", token, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}
