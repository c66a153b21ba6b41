package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"portfolio-server/internal/assignment"
	"portfolio-server/internal/auth"
	"portfolio-server/internal/cart"
	"portfolio-server/internal/course"
	"portfolio-server/internal/db"
	"portfolio-server/internal/maintenance"
	"portfolio-server/internal/observability"
	"portfolio-server/internal/order"
	"portfolio-server/internal/payment"
	"portfolio-server/internal/product"
	"portfolio-server/internal/project"
	"portfolio-server/internal/thought"
	"portfolio-server/internal/web"
	"portfolio-server/internal/work"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Logger  *observability.Logger
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	env := envOrDefault("APP_ENV", "development")
	logger := observability.NewLogger(env)

	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	jwtRefreshSecret, err := mustEnv("JWT_REFRESH_SECRET")
	if err != nil {
		return nil, err
	}
	dbPath := envOrDefault("DB_PATH", "data/portfolio.db")
	frontendURL := envOrDefault("FRONTEND_URL", "http://localhost:5173")

	if err := observability.InitSentry(os.Getenv("SENTRY_DSN"), env); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}

	if options.RunMigrations {
		if err := db.RunMigrations(database); err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	authRepo := auth.NewRepository(database).WithBcryptCost(envIntOrDefault("BCRYPT_COST", 12))
	tokens := auth.NewTokenManager(authRepo, jwtSecret, jwtRefreshSecret).WithTTLs(
		envTTLOrDefault("JWT_EXPIRES_IN", 15*time.Minute),
		envTTLOrDefault("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
	)
	authService := auth.NewService(authRepo, tokens)
	authHandler := auth.NewHandler(authService)

	projectRepo := project.NewRepository(database)
	projectHandler := project.NewHandler(projectRepo)
	thoughtRepo := thought.NewRepository(database)
	thoughtHandler := thought.NewHandler(thoughtRepo)
	workRepo := work.NewRepository(database)
	workHandler := work.NewHandler(workRepo)

	productRepo := product.NewRepository(database)
	productHandler := product.NewHandler(productRepo)
	cartRepo := cart.NewRepository(database)
	cartHandler := cart.NewHandler(cart.NewService(cartRepo, productRepo))
	orderRepo := order.NewRepository(database)
	orderHandler := order.NewHandler(order.NewService(orderRepo, productRepo, cartRepo), orderRepo)

	courseRepo := course.NewRepository(database)
	courseHandler := course.NewHandler(courseRepo)
	assignmentRepo := assignment.NewRepository(database)
	assignmentHandler := assignment.NewHandler(assignmentRepo, courseRepo, authRepo)

	paystack := payment.NewPaystackClient(os.Getenv("PAYSTACK_SECRET_KEY"))
	paymentHandler := payment.NewHandler(paystack, orderRepo, logger, frontendURL)

	cleanupHandler := maintenance.NewCleanupHandler(tokens, logger, os.Getenv("CRON_SECRET"))

	limiter := web.NewRateLimiter(
		envIntOrDefault("RATE_LIMIT_MAX", 100),
		envMinutesOrDefault("RATE_LIMIT_WINDOW_MINUTES", 15),
	)

	requireAuth := auth.Middleware(tokens)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(func(next http.Handler) http.Handler { return observability.Recover(logger, next) })
	r.Use(func(next http.Handler) http.Handler { return observability.RequestLogging(logger, next) })

	r.Get("/health", healthHandler(database))

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout-all", authHandler.LogoutAll)
				r.Get("/me", authHandler.Me)
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.List)
			r.Get("/{id}", projectHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth, auth.RequireAdmin())
				r.Post("/", projectHandler.Create)
				r.Put("/{id}", projectHandler.Update)
				r.Delete("/{id}", projectHandler.Delete)
			})
		})

		r.Route("/thoughts", func(r chi.Router) {
			r.Get("/", thoughtHandler.List)
			r.Get("/{id}", thoughtHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth, auth.RequireAdmin())
				r.Post("/", thoughtHandler.Create)
				r.Put("/{id}", thoughtHandler.Update)
				r.Delete("/{id}", thoughtHandler.Delete)
			})
		})

		r.Route("/work", func(r chi.Router) {
			r.Get("/", workHandler.List)
			r.Get("/{id}", workHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth, auth.RequireAdmin())
				r.Post("/", workHandler.Create)
				r.Put("/{id}", workHandler.Update)
				r.Delete("/{id}", workHandler.Delete)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/{id}", productHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth, auth.RequireAdmin())
				r.Post("/", productHandler.Create)
				r.Put("/{id}", productHandler.Update)
				r.Delete("/{id}", productHandler.Delete)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", cartHandler.Get)
			r.Delete("/", cartHandler.Clear)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{itemId}", cartHandler.UpdateItem)
			r.Delete("/items/{itemId}", cartHandler.RemoveItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", orderHandler.Create)
			r.Get("/", orderHandler.List)
			r.With(auth.RequireAdmin()).Get("/admin/all", orderHandler.ListAll)
			r.Get("/{id}", orderHandler.Get)
			r.With(auth.RequireAdmin()).Put("/{id}/status", orderHandler.UpdateStatus)
		})

		r.Route("/courses", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", courseHandler.List)
			r.With(auth.RequireInstructor()).Post("/", courseHandler.Create)
			r.Put("/lessons/{id}/complete", courseHandler.CompleteLesson)
			r.Get("/{id}", courseHandler.Get)
			r.Post("/{id}/enroll", courseHandler.Enroll)
			r.Get("/{id}/progress", courseHandler.Progress)
			r.With(auth.RequireInstructor()).Put("/{id}", courseHandler.Update)
			r.With(auth.RequireInstructor()).Delete("/{id}", courseHandler.Delete)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Use(requireAuth)
			r.Route("/submissions", func(r chi.Router) {
				r.Get("/my-submissions", assignmentHandler.MySubmissions)
				r.Put("/{id}", assignmentHandler.UpdateSubmission)
				r.Delete("/{id}", assignmentHandler.DeleteSubmission)
				r.Post("/{id}/comments", assignmentHandler.AddComment)
				r.Get("/{id}/comments", assignmentHandler.Comments)
			})
			r.Get("/{id}", assignmentHandler.Get)
			r.Post("/{id}/submit", assignmentHandler.Submit)
			r.Get("/{id}/submissions", assignmentHandler.Submissions)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/webhook", paymentHandler.Webhook)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/initialize", paymentHandler.Initialize)
				r.Post("/verify", paymentHandler.Verify)
				r.Get("/transaction/{reference}", paymentHandler.TransactionStatus)
			})
		})

		r.Get("/internal/maintenance/cleanup", cleanupHandler.Handle)
		r.Post("/internal/maintenance/cleanup", cleanupHandler.Handle)
	})

	return &Runtime{
		Handler: r,
		Logger:  logger,
		Close: func() error {
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
