package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nufflezone/tournament-registry/config"
	"github.com/nufflezone/tournament-registry/db"
	"github.com/nufflezone/tournament-registry/handlers"
	"github.com/nufflezone/tournament-registry/live"
	"github.com/nufflezone/tournament-registry/middleware"
	"github.com/nufflezone/tournament-registry/repositories"
	api "github.com/nufflezone/tournament-registry/routes"
	"github.com/nufflezone/tournament-registry/scheduler"
	"github.com/nufflezone/tournament-registry/services"
	"github.com/nufflezone/tournament-registry/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("R2 storage not configured, logo uploads disabled")
	}

	hub := live.NewHub(logger)
	go hub.Run()

	txRunner := repositories.NewSQLTxRunner(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)

	var mailer services.ConfirmationMailer
	if cfg.SMTPConfigured() {
		mailer = services.NewEmailService(cfg)
		logger.Info("SMTP mailer initialized", slog.String("host", cfg.SMTPHost))
	} else {
		logger.Info("SMTP not configured, confirmation emails disabled")
	}

	authService := services.NewAuthService(userRepo)
	tournamentService := services.NewTournamentService(tournamentRepo, uploader, logger)
	registrationService := services.NewRegistrationService(
		txRunner,
		tournamentRepo,
		registrationRepo,
		hub,
		mailer,
		logger,
	)

	sched, err := scheduler.New(logger)
	if err != nil {
		logger.Error("failed to create scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := sched.AddIntervalJob("close-expired-registrations", cfg.SweepInterval, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, err := tournamentService.CloseExpiredRegistrations(ctx)
		return err
	}); err != nil {
		logger.Error("failed to register deadline sweep job", slog.Any("error", err))
		os.Exit(1)
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			logger.Error("failed to stop scheduler", slog.Any("error", err))
		}
	}()

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecretKey)

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:         handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Tournament:   handlers.NewTournamentHandler(tournamentService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		WebSocket:    handlers.NewWebSocketHandler(hub, tournamentService),
	}, authMiddleware, cfg.CORSAllowedOrigins)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("application exited")
}
