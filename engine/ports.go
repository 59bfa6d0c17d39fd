// engine/ports.go — storage capabilities the processing engine depends on.
// Each port is deliberately narrow: counters move only through atomic
// increment methods, completions only through compare-and-set methods, so
// callers cannot fall back to read-then-write updates.
package engine

import (
	"context"
	"time"

	"merchant-onboarding-system/models"
)

// CatalogStore is the read-only view of the configured games, missions,
// tasks and rewards. The engine never mutates catalog data.
type CatalogStore interface {
	// EventByName resolves a platform event type. Returns (nil, nil) when
	// the name is unknown.
	EventByName(ctx context.Context, name string) (*models.CatalogEvent, error)

	// ActiveTasksByEvent returns active tasks linked to the catalog event,
	// with Mission (and Mission.Game) populated.
	ActiveTasksByEvent(ctx context.Context, eventID string) ([]models.Task, error)

	TaskByID(ctx context.Context, id string) (*models.Task, error)
	TasksForMission(ctx context.Context, missionID string) ([]models.Task, error)
	MissionByID(ctx context.Context, id string) (*models.Mission, error)

	// RewardsForMission returns the active rewards configured for the
	// mission, with RewardType populated.
	RewardsForMission(ctx context.Context, missionID string) ([]models.Reward, error)
}

// PlayerStore resolves players and moves their lifetime counters.
type PlayerStore interface {
	// GetOrCreateByExternalID is the lazy registration step: one row per
	// distinct external id, safe under concurrent first events.
	GetOrCreateByExternalID(ctx context.Context, externalID string) (*models.Player, error)

	// AddCounters atomically increments the player's lifetime aggregates.
	AddCounters(ctx context.Context, playerID string, points, tasks, missions int64) error
}

// ProgressStore owns the per-player task and mission progress rows. All
// mutations are single atomic row operations.
type ProgressStore interface {
	// TaskProgress returns (nil, nil) when the player has no row yet.
	TaskProgress(ctx context.Context, playerID, taskID string) (*models.TaskProgress, error)

	// IncrementTaskProgress bumps the counter by one, creating the row in
	// status in_progress if absent. Rows in a terminal status are returned
	// unchanged.
	IncrementTaskProgress(ctx context.Context, playerID string, task *models.Task) (*models.TaskProgress, error)

	// CompleteTask flips the row to completed iff it is not already
	// terminal. Exactly one concurrent caller observes true.
	CompleteTask(ctx context.Context, playerID, taskID string, at time.Time) (bool, error)

	// MarkTaskSkipped flips the row to skipped iff it is not already
	// terminal, creating it first if absent.
	MarkTaskSkipped(ctx context.Context, playerID string, task *models.Task, at time.Time) (bool, error)

	// CompletedTaskProgress lists the player's completed task rows under
	// the mission.
	CompletedTaskProgress(ctx context.Context, playerID, missionID string) ([]models.TaskProgress, error)

	// EnsureMissionProgress creates the (player, mission, cycle) row in
	// status in_progress if absent; a no-op otherwise.
	EnsureMissionProgress(ctx context.Context, playerID, missionID, cycle string, at time.Time) error

	// MissionProgress returns (nil, nil) when the row is absent.
	MissionProgress(ctx context.Context, playerID, missionID, cycle string) (*models.MissionProgress, error)

	// SetMissionPoints stores the recomputed points aggregate without
	// touching rows that already reached completed.
	SetMissionPoints(ctx context.Context, playerID, missionID, cycle string, points int) error

	// CompleteMission flips the mission row to completed iff it is not
	// already; exactly one concurrent caller observes true.
	CompleteMission(ctx context.Context, playerID, missionID, cycle string, at time.Time) (bool, error)

	// HasCompletedMission reports whether any cycle of the mission is
	// completed for the player. Used for prerequisite gating.
	HasCompletedMission(ctx context.Context, playerID, missionID string) (bool, error)
}

// RewardStore issues reward grants.
type RewardStore interface {
	// InsertPlayerReward inserts the grant guarded by the (player, reward)
	// uniqueness invariant. Returns false when the grant already exists.
	InsertPlayerReward(ctx context.Context, grant *models.PlayerReward) (bool, error)
}

// LeaderboardStore moves the per-(player, game) aggregates.
type LeaderboardStore interface {
	// AddToEntry atomically increments the entry's counters, creating the
	// row if absent. Rank is not touched here.
	AddToEntry(ctx context.Context, playerID, gameID string, points, missions, tasks int64) error
}

// EventLogStore is the append-only event record and idempotency boundary.
type EventLogStore interface {
	// Append inserts the entry unless one with the same (player, event,
	// dedupe key) exists, in which case the existing entry is returned and
	// created is false.
	Append(ctx context.Context, entry *models.EventLog) (existing *models.EventLog, created bool, err error)

	MarkProcessed(ctx context.Context, id string, at time.Time) error
}

// AudienceMatcher decides whether a player belongs to a target audience.
// Criteria evaluation for the filtered mode is a pluggable strategy.
type AudienceMatcher interface {
	Includes(ctx context.Context, player *models.Player, mode models.TargetMode, playerIDs []string, criteria map[string]any) (bool, error)
}
