package models

import (
	"time"
)

// ProgressStatus is shared by task and mission progress rows.
type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressSkipped    ProgressStatus = "skipped"
)

// Terminal reports whether the status allows no further transitions.
func (s ProgressStatus) Terminal() bool {
	return s == ProgressCompleted || s == ProgressSkipped
}

// TaskProgress is unique per (player, task). The counter is only ever moved
// by atomic increments at the storage layer.
type TaskProgress struct {
	ID        string `json:"id" gorm:"primaryKey;type:uuid"`
	PlayerID  string `json:"player_id" gorm:"uniqueIndex:idx_task_progress_owner;not null"`
	TaskID    string `json:"task_id" gorm:"uniqueIndex:idx_task_progress_owner;not null"`
	MissionID string `json:"mission_id" gorm:"index;not null"` // denormalized for mission recompute

	Status   ProgressStatus `json:"status" gorm:"type:varchar(16);default:'in_progress'"`
	Progress int            `json:"progress" gorm:"default:0"` // compared against Task.RequiredCount

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	SkippedAt   *time.Time `json:"skipped_at,omitempty"`

	Timestamps
}

// MissionProgress is unique per (player, mission, cycle). Points are a
// recomputed aggregate of the completed tasks underneath, never mutated
// independently. Completion is a one-way transition.
type MissionProgress struct {
	ID        string `json:"id" gorm:"primaryKey;type:uuid"`
	PlayerID  string `json:"player_id" gorm:"uniqueIndex:idx_mission_progress_owner;not null"`
	MissionID string `json:"mission_id" gorm:"uniqueIndex:idx_mission_progress_owner;not null"`
	Cycle     string `json:"cycle" gorm:"uniqueIndex:idx_mission_progress_owner;default:''"`

	Status       ProgressStatus `json:"status" gorm:"type:varchar(16);default:'in_progress'"`
	PointsEarned int            `json:"points_earned" gorm:"default:0"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
