package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	api "github.com/avoronov/authkeeper-server/internal/api/http"
	"github.com/avoronov/authkeeper-server/internal/config"
	"github.com/avoronov/authkeeper-server/internal/logger"
	"github.com/avoronov/authkeeper-server/internal/model"
	"github.com/avoronov/authkeeper-server/internal/password"
	"github.com/avoronov/authkeeper-server/internal/repository/memory"
	"github.com/avoronov/authkeeper-server/internal/repository/postgres"
	"github.com/avoronov/authkeeper-server/internal/server"
	"github.com/avoronov/authkeeper-server/internal/service"
	"github.com/avoronov/authkeeper-server/internal/sweeper"
	"github.com/avoronov/authkeeper-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	var (
		userStore       model.UserStore
		revocationStore model.RevocationStore
		sessionStore    model.SessionStore
	)
	if cfg.Database.DSN != "" {
		db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
		if err != nil {
			logger.Fatal("failed to initialize storage", "error", err)
		}
		defer db.Close()

		userStore = postgres.NewUserRepository(db)
		revocationStore = postgres.NewBlacklistRepository(db)
		sessionStore = postgres.NewSessionRepository(db)
	} else {
		logger.Info("no database DSN configured, using in-memory registries")
		userStore = memory.NewUserStore()
		revocationStore = memory.NewBlacklistStore()
		sessionStore = memory.NewSessionStore()
	}

	throttleStore := memory.NewThrottleStore()
	registerThrottleStore := memory.NewThrottleStore()
	alertStore := memory.NewAlertStore()

	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	loginThrottle := service.NewThrottle(throttleStore, model.ThrottlePolicy{
		Window:         cfg.Login.Window,
		MaxAttempts:    cfg.Login.MaxAttempts,
		ResetOnSuccess: cfg.Login.ResetOnSuccess,
	}, logger)
	registerThrottle := service.NewThrottle(registerThrottleStore, model.ThrottlePolicy{
		Window:         cfg.Register.Window,
		MaxAttempts:    cfg.Register.MaxAttempts,
		ResetOnSuccess: cfg.Register.ResetOnSuccess,
	}, logger)
	anomaly := service.NewAnomaly(sessionStore, alertStore, logger)

	authService := service.NewAuth(
		userStore,
		password.NewHasher(),
		tokenManager,
		revocationStore,
		sessionStore,
		loginThrottle,
		registerThrottle,
		anomaly,
		logger,
		cfg.JWT.RefreshTTL,
	)

	sw := sweeper.New(logger)
	sw.Register("blacklist", cfg.Sweep.BlacklistInterval, func(ctx context.Context) (int, error) {
		return revocationStore.Sweep(ctx, time.Now())
	})
	sw.Register("throttle", cfg.Sweep.ThrottleInterval, func(ctx context.Context) (int, error) {
		return throttleStore.Sweep(ctx, time.Now())
	})
	sw.Register("register_throttle", cfg.Sweep.ThrottleInterval, func(ctx context.Context) (int, error) {
		return registerThrottleStore.Sweep(ctx, time.Now())
	})
	sw.Register("sessions", cfg.Sweep.SessionInterval, func(ctx context.Context) (int, error) {
		return sessionStore.SweepExpired(ctx, time.Now())
	})
	sw.Register("alerts", cfg.Sweep.AlertInterval, func(ctx context.Context) (int, error) {
		return anomaly.PruneOlderThan(ctx, cfg.Alerts.Retention)
	})
	sw.Start(ctx)

	limiter := api.NewRateLimiter(cfg.HTTP.RequestsPerSecond, cfg.HTTP.RequestBurst)
	router := api.NewRouter(authService, limiter, logger)
	httpServer := api.NewServer(router, fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(httpServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}
	sw.Stop()

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
