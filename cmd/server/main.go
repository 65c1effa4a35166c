// Command server runs the GreenLoop gamification backend: REST API,
// Prometheus metrics, and the background ranking and reset scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenloop/greenloop-backend/internal/api/gamification"
	"github.com/greenloop/greenloop-backend/internal/cache"
	"github.com/greenloop/greenloop-backend/internal/config"
	"github.com/greenloop/greenloop-backend/internal/notify"
	"github.com/greenloop/greenloop-backend/internal/repository"
	"github.com/greenloop/greenloop-backend/internal/seed"
	"github.com/greenloop/greenloop-backend/internal/service/leaderboard"
	"github.com/greenloop/greenloop-backend/internal/service/progress"
	"github.com/greenloop/greenloop-backend/internal/service/ranking"
	"github.com/greenloop/greenloop-backend/internal/service/rewards"
	"github.com/greenloop/greenloop-backend/internal/service/scheduler"
	"github.com/greenloop/greenloop-backend/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log.Info().Str("environment", cfg.Server.Environment).Msg("Starting GreenLoop backend")

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() { _ = db.Close() }()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redisCache, err := cache.New(cfg.Database.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer func() { _ = redisCache.Close() }()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	actionRepo := repository.NewActionRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	rankingRepo := repository.NewRankingRepository(db)

	if cfg.Seed.Enabled {
		seeder := seed.New(challengeRepo, rewardRepo, log.Component("seed"))
		if err := seeder.Run(cfg.Seed.Path); err != nil {
			log.Fatal().Err(err).Str("path", cfg.Seed.Path).Msg("Failed to seed catalog")
		}
	}

	// Notifications
	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notify.Enabled {
		notifier = notify.NewWebhookNotifier(&cfg.Notify, log.Component("notify"))
	}

	// Services
	rewardService := rewards.NewService(rewardRepo, userRepo, actionRepo, notifier, log.Component("rewards"))
	progressService := progress.NewService(challengeRepo, participationRepo, userRepo, actionRepo, rewardService, notifier, log.Component("progress"))
	rankingService := ranking.NewService(userRepo, rankingRepo, notifier, ranking.Weights{
		Goal:      cfg.Scoring.GoalWeight,
		Action:    cfg.Scoring.ActionWeight,
		Challenge: cfg.Scoring.ChallengeWeight,
	}, log.Component("ranking"))
	leaderboardService := leaderboard.NewService(
		rankingRepo,
		redisCache,
		time.Duration(cfg.Database.Redis.LeaderboardTTL)*time.Second,
		log.Component("leaderboard"),
	)

	schedulerService := scheduler.NewService(cfg.Scheduler, challengeRepo, participationRepo, rankingService, leaderboardService, log.Component("scheduler"))
	if err := schedulerService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer schedulerService.Stop()

	// HTTP server
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := gamification.NewHandler(progressService, rewardService, leaderboardService, challengeRepo, userRepo, participationRepo, log.Component("api"))
	handler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}
