// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the gamification engine.
var (
	// Counters.
	ActionsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actions_processed_total",
			Help: "Total number of logged actions applied to challenge progress",
		},
		[]string{"action_type", "status"},
	)

	ChallengesCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenges_completed_total",
			Help: "Total number of challenge completions",
		},
		[]string{"category", "difficulty"},
	)

	RewardsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_issued_total",
			Help: "Total number of inline rewards issued on challenge completion",
		},
		[]string{"type"},
	)

	RewardsRedeemedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_redeemed_total",
			Help: "Total catalog redemption attempts",
		},
		[]string{"status"},
	)

	LevelUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Total number of user level-ups",
		},
	)

	// Gauges.
	ActiveChallenges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_challenges",
			Help: "Current number of active challenges",
		},
	)

	RankedUsers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ranked_users",
			Help: "Number of users ranked per leaderboard category",
		},
		[]string{"category"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"job", "status"},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute a scheduled batch job",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
		[]string{"job"},
	)

	SchedulerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of the last run per job",
		},
		[]string{"job"},
	)

	ParticipantsResetTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "participants_reset_total",
			Help: "Total participant progress records zeroed by recurrence resets",
		},
		[]string{"recurrence"},
	)
)

// RecordActionProcessed records an action routed through the progress engine.
func RecordActionProcessed(actionType, status string) {
	ActionsProcessedTotal.WithLabelValues(actionType, status).Inc()
}

// RecordChallengeCompleted records a challenge completion.
func RecordChallengeCompleted(category, difficulty string) {
	ChallengesCompletedTotal.WithLabelValues(category, difficulty).Inc()
}

// RecordRewardIssued records an inline reward issuance.
func RecordRewardIssued(rewardType string) {
	RewardsIssuedTotal.WithLabelValues(rewardType).Inc()
}

// RecordRewardRedeemed records a catalog redemption attempt outcome.
func RecordRewardRedeemed(status string) {
	RewardsRedeemedTotal.WithLabelValues(status).Inc()
}

// RecordLevelUp records a user level-up.
func RecordLevelUp() {
	LevelUpsTotal.Inc()
}

// SetActiveChallenges sets the current number of active challenges.
func SetActiveChallenges(count int) {
	ActiveChallenges.Set(float64(count))
}

// SetRankedUsers sets the number of ranked users in a category.
func SetRankedUsers(category string, count int) {
	RankedUsers.WithLabelValues(category).Set(float64(count))
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
}

// ObserveSchedulerJobDuration observes the duration of a scheduled job.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// SetSchedulerLastRun sets the timestamp of the last run of a job.
func SetSchedulerLastRun(job string) {
	SchedulerLastRunTimestamp.WithLabelValues(job).SetToCurrentTime()
}

// RecordParticipantsReset records zeroed participant records.
func RecordParticipantsReset(recurrence string, count int) {
	ParticipantsResetTotal.WithLabelValues(recurrence).Add(float64(count))
}
