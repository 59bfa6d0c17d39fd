package engine

import (
	"context"
	"fmt"
	"sort"

	"merchant-onboarding-system/models"
)

// FindEligibleTasks returns the tasks a player can currently progress with
// an event of the given catalog type. A task qualifies when it and its
// mission are active, the mission window contains now, the mission's
// audience includes the player, any prerequisite mission is completed, and
// the player's own progress on the task is not terminal. Results are
// ordered by the task ordering index; per-task application is idempotent,
// so the order never changes the final state.
func (e *Engine) FindEligibleTasks(ctx context.Context, eventID string, player *models.Player) ([]models.Task, error) {
	tasks, err := e.Catalog.ActiveTasksByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: load tasks for event: %v", ErrStorageUnavailable, err)
	}

	now := e.now()
	eligible := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		mission := task.Mission
		if mission == nil || !task.IsActive || !mission.IsActive {
			continue
		}
		if !mission.InWindow(now) {
			continue
		}

		ok, err := e.audienceIncludes(ctx, player, mission)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		if mission.PrerequisiteMissionID != nil {
			done, err := e.Progress.HasCompletedMission(ctx, player.ID, *mission.PrerequisiteMissionID)
			if err != nil {
				return nil, fmt.Errorf("%w: prerequisite check: %v", ErrStorageUnavailable, err)
			}
			if !done {
				continue
			}
		}

		tp, err := e.Progress.TaskProgress(ctx, player.ID, task.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: load task progress: %v", ErrStorageUnavailable, err)
		}
		if tp != nil && tp.Status.Terminal() {
			continue
		}

		eligible = append(eligible, task)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].OrderIndex < eligible[j].OrderIndex
	})
	return eligible, nil
}

// audienceIncludes applies the mission targeting, falling back to the
// game's targeting when the mission declares none.
func (e *Engine) audienceIncludes(ctx context.Context, player *models.Player, mission *models.Mission) (bool, error) {
	mode := mission.TargetMode
	playerIDs := mission.TargetPlayerIDs
	var criteria map[string]any

	if mode == "" && mission.Game != nil {
		mode = mission.Game.TargetMode
		playerIDs = mission.Game.TargetPlayerIDs
		criteria = mission.Game.FilterCriteria
	}

	ok, err := e.Audience.Includes(ctx, player, mode, playerIDs, criteria)
	if err != nil {
		return false, fmt.Errorf("audience check for mission %s: %w", mission.ID, err)
	}
	return ok, nil
}
