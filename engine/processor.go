// engine/processor.go — the sole entry point of the progress core: one
// normalized platform event in, the resulting task/mission/reward/
// leaderboard transitions out.
package engine

import (
	"context"
	"fmt"
	"time"

	"merchant-onboarding-system/models"

	"github.com/google/uuid"
)

// Event is one normalized platform activity for one player, already parsed
// by whatever transport delivered it.
type Event struct {
	PlayerExternalID string         `json:"player_external_id"`
	GameID           string         `json:"game_id,omitempty"`
	EventType        string         `json:"event_type"`
	Properties       map[string]any `json:"properties,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
}

// DedupeKey is the idempotency discriminator within (player, event type):
// an explicit dedupe_key property when the producer supplies one, else the
// event timestamp truncated to the second.
func (ev Event) DedupeKey() string {
	if key, ok := ev.Properties["dedupe_key"].(string); ok && key != "" {
		return key
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Result reports what one event changed.
type Result struct {
	Success           bool     `json:"success"`
	TasksCompleted    []string `json:"tasks_completed"`
	MissionsCompleted []string `json:"missions_completed"`
	PointsEarned      int      `json:"points_earned"`
}

// Engine wires the matcher, progress tracker, reward grantor and
// leaderboard updater over injected storage ports. Engines are stateless;
// concurrent ProcessEvent calls for the same player are serialized only at
// the storage rows they touch.
type Engine struct {
	Catalog  CatalogStore
	Players  PlayerStore
	Progress ProgressStore
	Rewards  RewardStore
	Board    LeaderboardStore
	Log      EventLogStore
	Audience AudienceMatcher

	now func() time.Time
}

func New(catalog CatalogStore, players PlayerStore, progress ProgressStore, rewards RewardStore, board LeaderboardStore, log EventLogStore) *Engine {
	return &Engine{
		Catalog:  catalog,
		Players:  players,
		Progress: progress,
		Rewards:  rewards,
		Board:    board,
		Log:      log,
		Audience: DefaultAudience{},
		now:      time.Now,
	}
}

// ProcessEvent applies one event end to end: resolve the player, write the
// event-log entry, match eligible tasks, apply each hit, fan out reward
// grants and leaderboard updates for newly completed missions, then mark
// the entry processed. Every sub-step is independently atomic and
// idempotent; on failure, progress already committed stays committed and
// the whole event is safe to redeliver.
func (e *Engine) ProcessEvent(ctx context.Context, ev Event) (Result, error) {
	if ev.PlayerExternalID == "" {
		return Result{}, fmt.Errorf("%w: missing player external id", ErrInvalidEvent)
	}
	if ev.EventType == "" {
		return Result{}, fmt.Errorf("%w: missing event type", ErrInvalidEvent)
	}

	catEvent, err := e.Catalog.EventByName(ctx, ev.EventType)
	if err != nil {
		return Result{}, fmt.Errorf("%w: resolve event type: %v", ErrStorageUnavailable, err)
	}
	if catEvent == nil || !catEvent.IsActive {
		return Result{}, fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, ev.EventType)
	}

	player, err := e.Players.GetOrCreateByExternalID(ctx, ev.PlayerExternalID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: resolve player: %v", ErrStorageUnavailable, err)
	}

	occurred := ev.Timestamp
	if occurred.IsZero() {
		occurred = e.now()
	}
	entry, created, err := e.Log.Append(ctx, &models.EventLog{
		ID:         uuid.NewString(),
		PlayerID:   player.ID,
		EventID:    catEvent.ID,
		DedupeKey:  ev.DedupeKey(),
		GameID:     ev.GameID,
		Payload:    ev.Properties,
		OccurredAt: occurred,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: append event log: %v", ErrStorageUnavailable, err)
	}
	if !created && entry.Processed {
		// Replay of an already processed delivery: empty completion sets.
		return Result{Success: true, TasksCompleted: []string{}, MissionsCompleted: []string{}}, nil
	}

	tasks, err := e.FindEligibleTasks(ctx, catEvent.ID, player)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Success:           true,
		TasksCompleted:    []string{},
		MissionsCompleted: []string{},
	}
	for i := range tasks {
		task := &tasks[i]
		hit, err := e.ApplyTaskHit(ctx, player, task)
		if err != nil {
			return Result{}, err
		}

		if hit.TaskCompleted {
			result.TasksCompleted = append(result.TasksCompleted, task.ID)
			if err := e.RecordTaskCompletion(ctx, player.ID, hit.Mission.GameID); err != nil {
				return Result{}, err
			}
			if err := e.Players.AddCounters(ctx, player.ID, 0, 1, 0); err != nil {
				return Result{}, fmt.Errorf("%w: player task counter: %v", ErrStorageUnavailable, err)
			}
		}

		if hit.MissionCompleted {
			result.MissionsCompleted = append(result.MissionsCompleted, hit.Mission.ID)
			result.PointsEarned += hit.MissionPoints

			if _, err := e.GrantRewardsForMission(ctx, player, hit.Mission); err != nil {
				return Result{}, err
			}
			if err := e.RecordMissionCompletion(ctx, player.ID, hit.Mission.GameID, hit.MissionPoints); err != nil {
				return Result{}, err
			}
			if err := e.Players.AddCounters(ctx, player.ID, int64(hit.MissionPoints), 0, 1); err != nil {
				return Result{}, fmt.Errorf("%w: player mission counter: %v", ErrStorageUnavailable, err)
			}
		}
	}

	if err := e.Log.MarkProcessed(ctx, entry.ID, e.now()); err != nil {
		return Result{}, fmt.Errorf("%w: mark event processed: %v", ErrStorageUnavailable, err)
	}
	return result, nil
}
