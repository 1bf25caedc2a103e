// Package main is the entry point for the Tokomo storefront bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/bot"
	"github.com/EgoistMa/tokomo-app/internal/config"
	"github.com/EgoistMa/tokomo-app/internal/health"
	"github.com/EgoistMa/tokomo-app/internal/pkg/db"
	"github.com/EgoistMa/tokomo-app/internal/pkg/lock"
	"github.com/EgoistMa/tokomo-app/internal/pkg/logging"
	"github.com/EgoistMa/tokomo-app/internal/repository"
	"github.com/EgoistMa/tokomo-app/internal/service"
	"github.com/EgoistMa/tokomo-app/internal/siteconfig"
	"github.com/EgoistMa/tokomo-app/internal/stash"
)

// sessionSweepInterval is how often expired sessions are purged.
const sessionSweepInterval = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		logging.Setup(config.LogConfig{})
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCloser := logging.Setup(cfg.Log)
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	log.Info().Msg("Database schema up to date")

	sessionRepo := repository.NewSessionRepository(dbPool.Pool)

	// Search result stash
	var results stash.Stash
	switch cfg.Stash.Driver {
	case config.StashDriverRedis:
		rs, err := stash.NewRedis(ctx, cfg.Stash.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rs.Close()
		results = rs
	default:
		results = stash.NewMemory()
	}
	log.Info().Str("driver", cfg.Stash.Driver).Msg("Result stash ready")

	client := api.New(cfg.API)
	userLock := lock.NewUserLock()

	// Initialize services
	sessionService := service.NewSessionService(sessionRepo, client)
	profileService := service.NewProfileService(sessionService, client)
	defer profileService.Stop()

	catalogService := service.NewCatalogService(
		sessionService,
		profileService,
		client,
		results,
		cfg.Stash.TTL,
		userLock,
	)
	redeemService := service.NewRedeemService(sessionService, profileService, client, userLock, cfg.Flows.RefreshDelay)
	depositService := service.NewDepositService(
		sessionService,
		profileService,
		client,
		userLock,
		cfg.Flows.MaxDeposit,
		cfg.Flows.RefreshDelay,
	)
	passwordService := service.NewPasswordService(client)
	adminService := service.NewAdminService(sessionService, profileService, client)

	site := siteconfig.NewProvider(client)
	if err := site.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("Site config unavailable, serving defaults until /admin_site_config reloads it")
	}

	var probes *health.Server
	if cfg.Health.Address != "" {
		probes = health.New(cfg.Health.Address, map[string]health.Check{
			"database":    dbPool.HealthCheck,
			"site_config": health.ReadyFunc("site config", site.Ready),
		})
		go probes.Start()
	}

	// Create bot dependencies
	deps := &bot.Dependencies{
		Config:          cfg,
		SessionService:  sessionService,
		ProfileService:  profileService,
		CatalogService:  catalogService,
		RedeemService:   redeemService,
		DepositService:  depositService,
		PasswordService: passwordService,
		AdminService:    adminService,
		SiteConfig:      site,
	}

	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go sweepSessions(ctx, sessionRepo)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	cancel()

	if probes != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := probes.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Health server shutdown failed")
		}
		shutdownCancel()
	}
	log.Info().Msg("Bot stopped gracefully")
}

// sweepSessions deletes expired sessions until ctx is done.
func sweepSessions(ctx context.Context, repo *repository.SessionRepository) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.DeleteExpired(ctx, now)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to sweep expired sessions")
				continue
			}
			if n > 0 {
				log.Info().Int64("count", n).Msg("Expired sessions removed")
			}
		}
	}
}
