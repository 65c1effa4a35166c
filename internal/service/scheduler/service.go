// Package scheduler runs the periodic ranking sweep and the recurring
// challenge resets on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/greenloop/greenloop-backend/internal/config"
	prommetrics "github.com/greenloop/greenloop-backend/internal/metrics"
	"github.com/greenloop/greenloop-backend/internal/models"
	"github.com/greenloop/greenloop-backend/internal/repository"
	"github.com/greenloop/greenloop-backend/pkg/logger"
)

// Job names used in logs and metrics.
const (
	jobRanking     = "ranking"
	jobDailyReset  = "daily_reset"
	jobWeeklyReset = "weekly_reset"
)

// ChallengeRepository interface for challenge maintenance.
type ChallengeRepository interface {
	ListByRecurrence(recurrence string) ([]models.Challenge, error)
	ListActive(now time.Time) ([]models.Challenge, error)
	Deactivate(id uint) error
}

// ParticipationRepository interface for roster resets.
type ParticipationRepository interface {
	ResetProgress(challengeID uint) (int64, error)
}

// Ranker recomputes the leaderboard rankings.
type Ranker interface {
	RecomputeAll(ctx context.Context) error
}

// Invalidator drops cached leaderboard pages after a sweep.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Service wires the background jobs into a cron scheduler.
type Service struct {
	config            config.SchedulerConfig
	challengeRepo     ChallengeRepository
	participationRepo ParticipationRepository
	ranker            Ranker
	invalidator       Invalidator
	log               *logger.Logger
	cron              *cron.Cron
	now               func() time.Time

	// Per-job overlap guards. A tick that arrives while the previous run of
	// the same job is still going is skipped, not queued. The daily and
	// weekly resets touch disjoint recurrence classes and may fire at the
	// same instant, so each carries its own guard.
	rankingRunning     int32
	dailyResetRunning  int32
	weeklyResetRunning int32
}

// NewService creates a new scheduler service with concrete types.
func NewService(
	cfg config.SchedulerConfig,
	challengeRepo *repository.ChallengeRepository,
	participationRepo *repository.ParticipationRepository,
	ranker Ranker,
	invalidator Invalidator,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(cfg, challengeRepo, participationRepo, ranker, invalidator, log)
}

// NewServiceWithInterfaces creates a new scheduler service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	cfg config.SchedulerConfig,
	challengeRepo ChallengeRepository,
	participationRepo ParticipationRepository,
	ranker Ranker,
	invalidator Invalidator,
	log *logger.Logger,
) *Service {
	return &Service{
		config:            cfg,
		challengeRepo:     challengeRepo,
		participationRepo: participationRepo,
		ranker:            ranker,
		invalidator:       invalidator,
		log:               log,
		now:               time.Now,
	}
}

// Start registers and starts the cron jobs.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	rankingExpr := fmt.Sprintf("@every %dm", s.config.RankingInterval)
	if _, err := s.cron.AddFunc(rankingExpr, func() {
		s.runRanking(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to register ranking job: %w", err)
	}

	dailyExpr, err := buildCronExpression(s.config.DailyResetTime, false)
	if err != nil {
		return fmt.Errorf("failed to build daily reset schedule: %w", err)
	}
	if _, err := s.cron.AddFunc(dailyExpr, func() {
		s.runReset(context.Background(), jobDailyReset, models.RecurrenceDaily)
	}); err != nil {
		return fmt.Errorf("failed to register daily reset job: %w", err)
	}

	weeklyExpr, err := buildCronExpression(s.config.WeeklyResetTime, true)
	if err != nil {
		return fmt.Errorf("failed to build weekly reset schedule: %w", err)
	}
	if _, err := s.cron.AddFunc(weeklyExpr, func() {
		s.runReset(context.Background(), jobWeeklyReset, models.RecurrenceWeekly)
	}); err != nil {
		return fmt.Errorf("failed to register weekly reset job: %w", err)
	}

	s.cron.Start()

	s.log.Info().
		Str("ranking_schedule", rankingExpr).
		Str("daily_reset", dailyExpr).
		Str("weekly_reset", weeklyExpr).
		Str("timezone", s.config.Timezone).
		Msg("Scheduler started successfully")
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression generates a cron expression from a "HH:MM" time.
// Weekly schedules fire on Mondays.
func buildCronExpression(at string, weekly bool) (string, error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", at)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	if weekly {
		return fmt.Sprintf("%d %d * * 1", minute, hour), nil
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// runRanking executes the ranking sweep job.
func (s *Service) runRanking(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.rankingRunning, 0, 1) {
		s.log.Warn().Msg("Ranking job still running, skipping tick")
		prommetrics.RecordSchedulerJobRun(jobRanking, "skipped")
		return
	}
	defer atomic.StoreInt32(&s.rankingRunning, 0)

	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration(jobRanking, time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun(jobRanking)
	}()

	s.log.Info().Msg("Running ranking job")

	if err := s.ranker.RecomputeAll(ctx); err != nil {
		s.log.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Ranking job failed")
		prommetrics.RecordSchedulerJobRun(jobRanking, "error")
		return
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	s.refreshActiveChallengeGauge()

	prommetrics.RecordSchedulerJobRun(jobRanking, "success")
	s.log.Info().
		Dur("duration", time.Since(start)).
		Msg("Ranking job completed successfully")
}

// runReset executes one recurring-challenge reset job. Progress on live
// challenges is zeroed so a new period starts; challenges whose window has
// elapsed are deactivated instead. Rosters and completion stats on the
// challenge record stay untouched by the roster reset itself.
func (s *Service) runReset(_ context.Context, job, recurrence string) {
	guard := &s.dailyResetRunning
	if job == jobWeeklyReset {
		guard = &s.weeklyResetRunning
	}
	if !atomic.CompareAndSwapInt32(guard, 0, 1) {
		s.log.Warn().Str("job", job).Msg("Reset job still running, skipping tick")
		prommetrics.RecordSchedulerJobRun(job, "skipped")
		return
	}
	defer atomic.StoreInt32(guard, 0)

	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration(job, time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun(job)
	}()

	s.log.Info().Str("recurrence", recurrence).Msg("Running challenge reset job")

	challenges, err := s.challengeRepo.ListByRecurrence(recurrence)
	if err != nil {
		s.log.Error().Err(err).Str("job", job).Msg("Failed to list challenges for reset")
		prommetrics.RecordSchedulerJobRun(job, "error")
		return
	}

	now := s.now()
	var resetCount, deactivated, failed int
	for i := range challenges {
		c := &challenges[i]
		if !c.Active {
			continue
		}
		if !c.EndsAt.After(now) {
			if err := s.challengeRepo.Deactivate(c.ID); err != nil {
				failed++
				s.log.Error().Err(err).Uint("challenge_id", c.ID).Msg("Failed to deactivate expired challenge")
				continue
			}
			deactivated++
			continue
		}
		n, err := s.participationRepo.ResetProgress(c.ID)
		if err != nil {
			failed++
			s.log.Error().Err(err).Uint("challenge_id", c.ID).Msg("Failed to reset challenge progress")
			continue
		}
		resetCount += int(n)
	}

	prommetrics.RecordParticipantsReset(recurrence, resetCount)
	status := "success"
	if failed > 0 {
		status = "error"
	}
	prommetrics.RecordSchedulerJobRun(job, status)

	s.log.Info().
		Str("recurrence", recurrence).
		Int("participants_reset", resetCount).
		Int("deactivated", deactivated).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Challenge reset job completed")
}

// refreshActiveChallengeGauge updates the active challenge count after a
// sweep.
func (s *Service) refreshActiveChallengeGauge() {
	challenges, err := s.challengeRepo.ListActive(s.now())
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to count active challenges")
		return
	}
	prommetrics.SetActiveChallenges(len(challenges))
}
