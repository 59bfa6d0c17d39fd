// store/progress.go — task and mission progress rows. Every mutation here
// is a single guarded UPDATE or a unique-constrained INSERT; RowsAffected
// decides which caller won a transition.
package store

import (
	"context"
	"errors"
	"time"

	"merchant-onboarding-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var openStatuses = []models.ProgressStatus{models.ProgressNotStarted, models.ProgressInProgress}
var terminalStatuses = []models.ProgressStatus{models.ProgressCompleted, models.ProgressSkipped}

type Progress struct {
	DB *gorm.DB
}

func NewProgress(db *gorm.DB) *Progress {
	return &Progress{DB: db}
}

func (s *Progress) TaskProgress(ctx context.Context, playerID, taskID string) (*models.TaskProgress, error) {
	var tp models.TaskProgress
	err := s.DB.WithContext(ctx).
		Where("player_id = ? AND task_id = ?", playerID, taskID).
		First(&tp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

// IncrementTaskProgress bumps the counter on an open row, creating the row
// at progress 1 when the player has none. Terminal rows are never touched.
func (s *Progress) IncrementTaskProgress(ctx context.Context, playerID string, task *models.Task) (*models.TaskProgress, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.TaskProgress{}).
		Where("player_id = ? AND task_id = ? AND status IN ?", playerID, task.ID, openStatuses).
		Updates(map[string]interface{}{
			"progress": gorm.Expr("progress + 1"),
			"status":   models.ProgressInProgress,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		// Either no row yet or the row is terminal. Try a first insert;
		// the unique index resolves the race.
		tp := models.TaskProgress{
			ID:        uuid.NewString(),
			PlayerID:  playerID,
			TaskID:    task.ID,
			MissionID: task.MissionID,
			Status:    models.ProgressInProgress,
			Progress:  1,
		}
		ins := s.DB.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "player_id"}, {Name: "task_id"}},
				DoNothing: true,
			}).
			Create(&tp)
		if ins.Error != nil {
			return nil, ins.Error
		}
		if ins.RowsAffected == 1 {
			return &tp, nil
		}

		// Insert lost to a concurrent creator: apply the increment to the
		// row that beat us, unless it is already terminal.
		res = s.DB.WithContext(ctx).
			Model(&models.TaskProgress{}).
			Where("player_id = ? AND task_id = ? AND status IN ?", playerID, task.ID, openStatuses).
			Updates(map[string]interface{}{
				"progress": gorm.Expr("progress + 1"),
				"status":   models.ProgressInProgress,
			})
		if res.Error != nil {
			return nil, res.Error
		}
	}

	return s.TaskProgress(ctx, playerID, task.ID)
}

func (s *Progress) CompleteTask(ctx context.Context, playerID, taskID string, at time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.TaskProgress{}).
		Where("player_id = ? AND task_id = ? AND status NOT IN ?", playerID, taskID, terminalStatuses).
		Updates(map[string]interface{}{
			"status":       models.ProgressCompleted,
			"completed_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Progress) MarkTaskSkipped(ctx context.Context, playerID string, task *models.Task, at time.Time) (bool, error) {
	// First skip can also be the first touch of the task.
	tp := models.TaskProgress{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		TaskID:    task.ID,
		MissionID: task.MissionID,
		Status:    models.ProgressSkipped,
		SkippedAt: &at,
	}
	ins := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}, {Name: "task_id"}},
			DoNothing: true,
		}).
		Create(&tp)
	if ins.Error != nil {
		return false, ins.Error
	}
	if ins.RowsAffected == 1 {
		return true, nil
	}

	res := s.DB.WithContext(ctx).
		Model(&models.TaskProgress{}).
		Where("player_id = ? AND task_id = ? AND status NOT IN ?", playerID, task.ID, terminalStatuses).
		Updates(map[string]interface{}{
			"status":     models.ProgressSkipped,
			"skipped_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Progress) CompletedTaskProgress(ctx context.Context, playerID, missionID string) ([]models.TaskProgress, error) {
	var rows []models.TaskProgress
	err := s.DB.WithContext(ctx).
		Where("player_id = ? AND mission_id = ? AND status = ?", playerID, missionID, models.ProgressCompleted).
		Find(&rows).Error
	return rows, err
}

func (s *Progress) EnsureMissionProgress(ctx context.Context, playerID, missionID, cycle string, at time.Time) error {
	mp := models.MissionProgress{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		MissionID: missionID,
		Cycle:     cycle,
		Status:    models.ProgressInProgress,
		StartedAt: &at,
	}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}, {Name: "mission_id"}, {Name: "cycle"}},
			DoNothing: true,
		}).
		Create(&mp).Error
}

func (s *Progress) MissionProgress(ctx context.Context, playerID, missionID, cycle string) (*models.MissionProgress, error) {
	var mp models.MissionProgress
	err := s.DB.WithContext(ctx).
		Where("player_id = ? AND mission_id = ? AND cycle = ?", playerID, missionID, cycle).
		First(&mp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

// SetMissionPoints writes the recomputed aggregate; completed rows keep the
// points they completed with.
func (s *Progress) SetMissionPoints(ctx context.Context, playerID, missionID, cycle string, points int) error {
	return s.DB.WithContext(ctx).
		Model(&models.MissionProgress{}).
		Where("player_id = ? AND mission_id = ? AND cycle = ? AND status <> ?",
			playerID, missionID, cycle, models.ProgressCompleted).
		Update("points_earned", points).Error
}

func (s *Progress) CompleteMission(ctx context.Context, playerID, missionID, cycle string, at time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.MissionProgress{}).
		Where("player_id = ? AND mission_id = ? AND cycle = ? AND status NOT IN ?",
			playerID, missionID, cycle, terminalStatuses).
		Updates(map[string]interface{}{
			"status":       models.ProgressCompleted,
			"completed_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Progress) HasCompletedMission(ctx context.Context, playerID, missionID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.MissionProgress{}).
		Where("player_id = ? AND mission_id = ? AND status = ?", playerID, missionID, models.ProgressCompleted).
		Count(&count).Error
	return count > 0, err
}
