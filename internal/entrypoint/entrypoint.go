package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akowalski/bibliotek/internal/audit"
	"github.com/akowalski/bibliotek/internal/auth"
	"github.com/akowalski/bibliotek/internal/circulation"
	"github.com/akowalski/bibliotek/internal/config"
	"github.com/akowalski/bibliotek/internal/database"
	"github.com/akowalski/bibliotek/internal/database/books"
	"github.com/akowalski/bibliotek/internal/database/categories"
	"github.com/akowalski/bibliotek/internal/database/loans"
	"github.com/akowalski/bibliotek/internal/database/reservations"
	http_controllers "github.com/akowalski/bibliotek/internal/http"
	"github.com/akowalski/bibliotek/internal/scheduler"
	"github.com/akowalski/bibliotek/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Shutdown callback first (stops task queue and scheduler)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the database, repositories, circulation service, task
// queue, scheduler and router together and serves HTTP.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bibliotek v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	bookRepo := books.NewRepository(db.DB)
	categoryRepo := categories.NewRepository(db.DB)
	loanRepo := loans.NewRepository(db.DB)
	reservationRepo := reservations.NewRepository(db.DB)

	circulationService := circulation.NewService(db.DB, bookRepo, loanRepo, reservationRepo)

	auditor := audit.NewAuditor(cfg.Audit.Dir)
	circulationService.SetRecorder(auditor)

	// Task queue for pickup notices and audit cleanup
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var auditScheduler *scheduler.AuditCleanupScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewReservationReadyQueue(auditor),
			tasks.NewCleanupAuditQueue(auditor),
		)

		circulationService.SetNotifier(tasks.NewNotifier(taskClient))

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		auditScheduler = scheduler.NewAuditCleanupScheduler(
			taskClient, cfg.Audit.CleanupSchedule, cfg.Audit.RetentionDays)
		if err := auditScheduler.Start(taskCtx); err != nil {
			log.Printf("WARNING: audit cleanup scheduler not started: %v", err)
		}
	}

	// Authentication
	var authService *auth.Service
	var authMiddleware *auth.Middleware
	var sessionManager *auth.SessionManager
	var rateLimiter *auth.RateLimiter
	var csrfSecret []byte

	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")

		authService = auth.NewService(db.DB, cfg.Auth)

		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatalf("Failed to get SQL DB for sessions: %v", err)
		}

		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			log.Fatalf("Failed to initialize session manager: %v", err)
		}

		authMiddleware = auth.NewMiddleware(authService, sessionManager, cfg.Auth)

		rateLimiter = auth.NewRateLimiter(auth.RateLimitConfig{
			MaxAttempts:     cfg.Auth.MaxLoginAttempts,
			WindowDuration:  cfg.Auth.RateLimitWindow,
			LockoutDuration: cfg.Auth.LockoutDuration,
		})
		defer rateLimiter.Stop()

		if cfg.Auth.SessionSecret != "" {
			csrfSecret, err = hex.DecodeString(cfg.Auth.SessionSecret)
			if err != nil {
				// Not hex, use as raw bytes
				csrfSecret = []byte(cfg.Auth.SessionSecret)
			}
		} else {
			secret, err := auth.GenerateSessionSecret()
			if err != nil {
				log.Fatalf("Failed to generate CSRF secret: %v", err)
			}
			csrfSecret, _ = hex.DecodeString(secret)
			log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
		}

		if err := authService.EnsureAdmin(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
			log.Fatalf("Failed to ensure admin account: %v", err)
		}
		hasUsers, _ := authService.HasUsers()
		if !hasUsers {
			log.Printf("No users found. Set AUTH_ADMIN_PASSWORD or run the create-user command.")
		}
	} else {
		log.Printf("Authentication mode: none (no authentication required)")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		Circulation:    circulationService,
		Books:          bookRepo,
		Categories:     categoryRepo,
		Loans:          loanRepo,
		Reservations:   reservationRepo,
		AuthService:    authService,
		SessionManager: sessionManager,
		AuthMiddleware: authMiddleware,
		RateLimiter:    rateLimiter,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     csrfSecret,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if auditScheduler != nil {
			auditScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
