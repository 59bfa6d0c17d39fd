// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the periodic batch jobs: leaderboard rank
// recompute and reward expiry. Both are safe to run at any frequency; they
// only touch rows that are out of date.
func StartMaintenanceScheduler(leaderboard *LeaderboardService, rewards *RewardService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 5 minutes: rewrite rank ordinals from the live point totals.
	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			if err := leaderboard.RecomputeRanks(); err != nil {
				log.Printf("[Scheduler] rank recompute failed: %v", err)
			}
		}),
	)

	// Every hour: expire earned grants past their claim window.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			expired, err := rewards.ExpireOverdueGrants()
			if err != nil {
				log.Printf("[Scheduler] reward expiry failed: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("✅ Expired %d overdue reward grant(s)", expired)
			}
		}),
	)
}
