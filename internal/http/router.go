package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/myora/server/internal/http/handlers"
	"github.com/myora/server/internal/middleware"
)

// Handlers bundles the handler set the router wires up
type Handlers struct {
	Auth         *handlers.AuthHandler
	Lifestyle    *handlers.LifestyleHandler
	LifeScore    *handlers.LifeScoreHandler
	Prediction   *handlers.PredictionHandler
	Symptom      *handlers.SymptomHandler
	Chat         *handlers.ChatHandler
	Verification *handlers.VerificationHandler
	Notification *handlers.NotificationHandler
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(h Handlers, identity middleware.Identity) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	// 20 auth attempts per client IP per 10 minutes
	authLimiter := middleware.NewRateLimiter(10*time.Minute, 20)
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(authLimiter, middleware.GetIPKey))
		r.Post("/register", h.Auth.HandleRegister)
		r.Post("/login", h.Auth.HandleLogin)
		r.Post("/refresh", h.Auth.HandleRefresh)
		r.Post("/logout", h.Auth.HandleLogout)
	})

	// Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(identity))

		r.Get("/me", h.Auth.HandleMe)
		r.Get("/me/profile", h.Auth.HandleMe)
		r.Put("/me/profile", h.Auth.HandleUpdateProfile)

		r.Route("/lifestyle", func(r chi.Router) {
			r.Post("/meal", h.Lifestyle.HandleLogMeal)
			r.Post("/activity", h.Lifestyle.HandleLogActivity)
			r.Post("/sleep", h.Lifestyle.HandleLogSleep)
			r.Post("/stress", h.Lifestyle.HandleLogStress)
			r.Get("/logs", h.Lifestyle.HandleLogs)
		})

		r.Route("/lifescore", func(r chi.Router) {
			r.Post("/calculate", h.LifeScore.HandleCalculate)
			r.Get("/current", h.LifeScore.HandleCurrent)
			r.Get("/history", h.LifeScore.HandleHistory)
		})

		r.Route("/predictions", func(r chi.Router) {
			r.Post("/", h.Prediction.HandleCompute)
			r.Get("/current", h.Prediction.HandleCurrent)
			r.Get("/history", h.Prediction.HandleHistory)
		})

		r.Route("/symptoms", func(r chi.Router) {
			r.Post("/check", h.Symptom.HandleCheck)
			r.Get("/history", h.Symptom.HandleHistory)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/send", h.Chat.HandleSend)
			r.Get("/conversations", h.Chat.HandleConversations)
			r.Get("/conversations/{conversationID}/messages", h.Chat.HandleMessages)
		})

		r.Route("/verify", func(r chi.Router) {
			r.Post("/send", h.Verification.HandleSend)
			r.Post("/check", h.Verification.HandleCheck)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.Notification.HandleList)
			r.Post("/{notificationID}/read", h.Notification.HandleMarkRead)
			r.Post("/read-all", h.Notification.HandleMarkAllRead)
		})
	})

	return r
}
