package models

import (
	"time"

	"gorm.io/gorm"
)

// Player is the local record of a merchant enrolled in the onboarding program.
// One row per distinct platform identity, created lazily on the first event.
// There is no registration step.
type Player struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalID string `gorm:"uniqueIndex;not null" json:"external_id"` // stable id from the commerce platform

	StoreName string `json:"store_name"`
	Email     string `json:"email,omitempty"`

	// Lifetime counters (denormalized for dashboards; atomic increments only)
	TotalPoints       int64 `json:"total_points" gorm:"default:0"`
	TasksCompleted    int64 `json:"tasks_completed" gorm:"default:0"`
	MissionsCompleted int64 `json:"missions_completed" gorm:"default:0"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
