package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/myora/server/internal/auth"
	"github.com/myora/server/internal/chat"
	"github.com/myora/server/internal/config"
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

func main() {
	// Load .env from CWD so it works from repo root (env vars override)
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Open database connection
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := runMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	userRepo := repo.NewUserRepo(database)
	refreshRepo := repo.NewRefreshRepo(database)
	lifestyleRepo := repo.NewLifestyleRepo(database)
	scoreRepo := repo.NewLifeScoreRepo(database)
	predictionRepo := repo.NewPredictionRepo(database)
	symptomRepo := repo.NewSymptomRepo(database)
	messageRepo := repo.NewMessageRepo(database)
	notificationRepo := repo.NewNotificationRepo(database)
	verificationRepo := repo.NewVerificationRepo(database)

	// Collaborators
	var llmClient llm.Client
	if cfg.DevMode && cfg.OpenAIAPIKey == "" {
		log.Println("DEV_MODE: using stubbed reasoning client")
		llmClient = llm.NewStub()
	} else {
		llmClient = llm.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	store := objstore.NewDirStore(cfg.UploadDir, cfg.UploadBaseURL)
	var smsSender notify.Sender = &notify.ConsoleSender{Channel: "SMS"}
	if cfg.WhatsAppToken != "" && cfg.WhatsAppPhoneNumberID != "" {
		smsSender = notify.NewWhatsAppSender(cfg.WhatsAppToken, cfg.WhatsAppPhoneNumberID)
	}
	dispatcher := &notify.Dispatcher{SMS: smsSender, Email: &notify.ConsoleSender{Channel: "EMAIL"}}

	// Services
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := auth.NewAuthService(jwtService, userRepo, refreshRepo, cfg.RefreshTokenTTL)
	lifestyleService := lifestyle.NewService(lifestyleRepo, store, llmClient)
	lifescoreService := lifescore.NewService(lifestyleRepo, scoreRepo, userRepo)
	predictionService := prediction.NewService(lifestyleRepo, symptomRepo, scoreRepo, predictionRepo, llmClient)
	symptomService := symptom.NewService(symptomRepo, llmClient)
	chatService := chat.NewService(messageRepo, llmClient)
	verificationService := verification.NewService(verificationRepo, userRepo, dispatcher, cfg.DevMode)
	notificationService := notification.NewService(notificationRepo, userRepo)

	// Router
	identity := &middleware.JWTIdentity{JWT: jwtService, UserRepo: userRepo}
	router := httpapi.NewRouter(httpapi.Handlers{
		Auth:         handlers.NewAuthHandler(authService, userRepo),
		Lifestyle:    handlers.NewLifestyleHandler(lifestyleService),
		LifeScore:    handlers.NewLifeScoreHandler(lifescoreService),
		Prediction:   handlers.NewPredictionHandler(predictionService),
		Symptom:      handlers.NewSymptomHandler(symptomService),
		Chat:         handlers.NewChatHandler(chatService),
		Verification: handlers.NewVerificationHandler(verificationService),
		Notification: handlers.NewNotificationHandler(notificationService),
	}, identity)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background schedulers
	schedulerCtx, stopSchedulers := context.WithCancel(ctx)
	defer stopSchedulers()
	if cfg.RecomputeInterval > 0 {
		go runRecomputeLoop(schedulerCtx, lifescoreService, cfg.RecomputeInterval)
	}
	go runReminderLoop(schedulerCtx, notificationService)

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSchedulers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// runRecomputeLoop periodically refreshes every user's daily score snapshot
func runRecomputeLoop(ctx context.Context, service *lifescore.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := service.RecomputeAll(ctx); err != nil {
				log.Printf("Score recompute finished with errors: %v", err)
			}
		}
	}
}

// runReminderLoop sends the daily logging reminder once per day
func runReminderLoop(ctx context.Context, service *notification.Service) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := service.SendDailyReminders(ctx); err != nil {
				log.Printf("Daily reminders finished with errors: %v", err)
			}
		}
	}
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from repo root)")
	}

	absDir, _ := filepath.Abs(migrationDir)
	log.Printf("Running migrations from %s", absDir)

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
