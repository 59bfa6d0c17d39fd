package engine

import (
	"context"
	"errors"
	"fmt"

	"merchant-onboarding-system/models"
)

// TaskHit is the outcome of applying one matching event to one task.
type TaskHit struct {
	TaskCompleted    bool
	MissionCompleted bool
	MissionPoints    int
	Mission          *models.Mission
	Cycle            string
}

// ApplyTaskHit increments the player's progress on the task by one and, when
// the counter reaches the task's required count, performs the completion
// transition followed by a mission recompute. The increment and both
// transitions are single atomic row operations, so two concurrent hits on
// the same task never both win a transition.
func (e *Engine) ApplyTaskHit(ctx context.Context, player *models.Player, task *models.Task) (TaskHit, error) {
	mission, err := e.missionFor(ctx, task)
	if err != nil {
		return TaskHit{}, err
	}

	now := e.now()
	cycle := mission.CycleKey(now)
	hit := TaskHit{Mission: mission, Cycle: cycle}

	if err := e.Progress.EnsureMissionProgress(ctx, player.ID, mission.ID, cycle, now); err != nil {
		return TaskHit{}, fmt.Errorf("%w: ensure mission progress: %v", ErrStorageUnavailable, err)
	}

	tp, err := e.incrementWithRetry(ctx, player.ID, task)
	if err != nil {
		return TaskHit{}, err
	}
	if tp.Status.Terminal() {
		// Terminal rows never move again; the (N+1)-th hit is a no-op.
		return hit, nil
	}

	if tp.Progress >= requiredCount(task) {
		won, err := e.Progress.CompleteTask(ctx, player.ID, task.ID, now)
		if err != nil {
			return TaskHit{}, fmt.Errorf("%w: complete task: %v", ErrStorageUnavailable, err)
		}
		hit.TaskCompleted = won
	}

	if hit.TaskCompleted {
		points, missionDone, err := e.recomputeMission(ctx, player, mission, cycle)
		if err != nil {
			return TaskHit{}, err
		}
		hit.MissionPoints = points
		hit.MissionCompleted = missionDone
	}
	return hit, nil
}

// SkipTask marks an optional task skipped for the player. Skipped tasks
// contribute zero points permanently; skipping never reopens a completed
// mission. Terminal rows and required tasks fail with their typed error and
// leave no state behind.
func (e *Engine) SkipTask(ctx context.Context, player *models.Player, taskID string) (*models.TaskProgress, error) {
	task, err := e.Catalog.TaskByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("%w: load task: %v", ErrStorageUnavailable, err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if !task.IsOptional {
		return nil, ErrTaskRequired
	}

	tp, err := e.Progress.TaskProgress(ctx, player.ID, taskID)
	if err != nil {
		return nil, fmt.Errorf("%w: load task progress: %v", ErrStorageUnavailable, err)
	}
	if tp != nil {
		switch tp.Status {
		case models.ProgressCompleted:
			return nil, ErrAlreadyCompleted
		case models.ProgressSkipped:
			return nil, ErrAlreadySkipped
		}
	}

	mission, err := e.missionFor(ctx, task)
	if err != nil {
		return nil, err
	}
	now := e.now()
	cycle := mission.CycleKey(now)
	if err := e.Progress.EnsureMissionProgress(ctx, player.ID, mission.ID, cycle, now); err != nil {
		return nil, fmt.Errorf("%w: ensure mission progress: %v", ErrStorageUnavailable, err)
	}

	won, err := e.Progress.MarkTaskSkipped(ctx, player.ID, task, now)
	if err != nil {
		return nil, fmt.Errorf("%w: skip task: %v", ErrStorageUnavailable, err)
	}
	if !won {
		// Lost a race against a concurrent completion or skip; report the
		// state that beat us.
		tp, err = e.Progress.TaskProgress(ctx, player.ID, taskID)
		if err != nil {
			return nil, fmt.Errorf("%w: reload task progress: %v", ErrStorageUnavailable, err)
		}
		if tp != nil && tp.Status == models.ProgressCompleted {
			return nil, ErrAlreadyCompleted
		}
		return nil, ErrAlreadySkipped
	}

	if _, _, err := e.recomputeMission(ctx, player, mission, cycle); err != nil {
		return nil, err
	}

	tp, err = e.Progress.TaskProgress(ctx, player.ID, taskID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload task progress: %v", ErrStorageUnavailable, err)
	}
	return tp, nil
}

// recomputeMission derives points-earned from the completed tasks under the
// mission and performs the one-way completion transition when the threshold
// is met. Missions already completed are left untouched.
func (e *Engine) recomputeMission(ctx context.Context, player *models.Player, mission *models.Mission, cycle string) (int, bool, error) {
	mp, err := e.Progress.MissionProgress(ctx, player.ID, mission.ID, cycle)
	if err != nil {
		return 0, false, fmt.Errorf("%w: load mission progress: %v", ErrStorageUnavailable, err)
	}
	if mp != nil && mp.Status == models.ProgressCompleted {
		return mp.PointsEarned, false, nil
	}

	tasks, err := e.Catalog.TasksForMission(ctx, mission.ID)
	if err != nil {
		return 0, false, fmt.Errorf("%w: load mission tasks: %v", ErrStorageUnavailable, err)
	}
	done, err := e.Progress.CompletedTaskProgress(ctx, player.ID, mission.ID)
	if err != nil {
		return 0, false, fmt.Errorf("%w: load completed tasks: %v", ErrStorageUnavailable, err)
	}

	completed := make(map[string]bool, len(done))
	for _, tp := range done {
		completed[tp.TaskID] = true
	}
	points := 0
	for _, t := range tasks {
		if completed[t.ID] {
			points += t.Points
		}
	}

	if err := e.Progress.SetMissionPoints(ctx, player.ID, mission.ID, cycle, points); err != nil {
		return 0, false, fmt.Errorf("%w: store mission points: %v", ErrStorageUnavailable, err)
	}

	if points >= mission.PointsRequired {
		won, err := e.Progress.CompleteMission(ctx, player.ID, mission.ID, cycle, e.now())
		if err != nil {
			return 0, false, fmt.Errorf("%w: complete mission: %v", ErrStorageUnavailable, err)
		}
		return points, won, nil
	}
	return points, false, nil
}

func (e *Engine) missionFor(ctx context.Context, task *models.Task) (*models.Mission, error) {
	if task.Mission != nil {
		return task.Mission, nil
	}
	mission, err := e.Catalog.MissionByID(ctx, task.MissionID)
	if err != nil {
		return nil, fmt.Errorf("%w: load mission: %v", ErrStorageUnavailable, err)
	}
	if mission == nil {
		return nil, fmt.Errorf("%w: mission %s", ErrTaskNotFound, task.MissionID)
	}
	return mission, nil
}

// incrementWithRetry retries the single increment once when the store
// reports a row conflict; everything else propagates.
func (e *Engine) incrementWithRetry(ctx context.Context, playerID string, task *models.Task) (*models.TaskProgress, error) {
	tp, err := e.Progress.IncrementTaskProgress(ctx, playerID, task)
	if errors.Is(err, ErrConflictRetry) {
		tp, err = e.Progress.IncrementTaskProgress(ctx, playerID, task)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: increment task progress: %v", ErrStorageUnavailable, err)
	}
	return tp, nil
}

func requiredCount(task *models.Task) int {
	if task.RequiredCount < 1 {
		return 1
	}
	return task.RequiredCount
}
