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

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/unmute/internal/application"
	"github.com/example/unmute/internal/config"
	httptransport "github.com/example/unmute/internal/http"
	"github.com/example/unmute/internal/identity"
	"github.com/example/unmute/internal/payment"
	"github.com/example/unmute/internal/persistence/sqlite"
	"github.com/example/unmute/internal/timer"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	roomRepo := sqlite.NewRoomRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)
	quotaRepo := sqlite.NewQuotaRepository(pool)
	telemetryRepo := sqlite.NewTelemetryRepository(pool)
	profileRepo := sqlite.NewProfileRepository(pool)
	donationRepo := sqlite.NewDonationRepository(pool)

	allocator := application.NewRoomAllocator(roomRepo, idGenerator, now, logger)
	admission := application.NewAdmissionController(roomRepo, now, logger)
	tracker := application.NewSessionTracker(sessionRepo, idGenerator, now, logger)
	limiter := application.NewAnonymousLimiter(quotaRepo, now, logger)
	telemetry := application.NewTelemetryService(telemetryRepo, idGenerator, now, logger)
	terms := application.NewTermsService(profileRepo, now, logger)
	media := application.NewMediaTokenService(application.MediaTokenConfig{
		APIKey:    cfg.LiveKitAPIKey,
		APISecret: cfg.LiveKitAPISecret,
		WSURL:     cfg.LiveKitWSURL,
	}, now, logger)
	reaper := application.NewRoomReaper(roomRepo, cfg.ReaperInterval, now, logger)

	identityProvider := identity.NewProvider(cfg.FingerprintSalt)

	var timerStore timer.StateStore
	if cfg.TimerStateDir != "" {
		fileStore, err := timer.NewFileStore(cfg.TimerStateDir)
		if err != nil {
			logger.Error("failed to open timer state store", "error", err)
			os.Exit(1)
		}
		timerStore = fileStore
	} else {
		timerStore = timer.NewMemoryStore()
	}
	timerBroadcaster := timer.NewBroadcaster()

	hub := httptransport.NewRealtimeHub(logger)
	go hub.Run()

	var donationHandler *httptransport.DonationHandler
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		gateway := payment.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, "")
		donations := application.NewDonationService(gateway, donationRepo, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, idGenerator, now, logger)
		donationHandler = httptransport.NewDonationHandler(donations, logger)
	} else {
		logger.Info("payment gateway not configured, donation endpoints disabled")
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:     httptransport.NewRoomHandler(allocator, admission, hub, logger),
		Sessions:  httptransport.NewSessionHandler(tracker, identityProvider, logger),
		Limits:    httptransport.NewLimitHandler(limiter, identityProvider, logger),
		Media:     httptransport.NewMediaHandler(media, logger),
		Telemetry: httptransport.NewTelemetryHandler(telemetry, hub, logger),
		Terms:     httptransport.NewTermsHandler(terms, logger),
		Donations: donationHandler,
		Timers:    httptransport.NewTimerHandler(timerStore, timerBroadcaster, hub, cfg.SessionDuration, now, logger),
		Realtime:  httptransport.NewRealtimeHandler(hub, cfg.AllowedOrigins, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.CORS(cfg.AllowedOrigins),
			httptransport.Identity(),
		},
	})

	go reaper.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("unmute API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
