package models

import (
	"fmt"
	"time"
)

// RecurrencePattern for recurring missions.
type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

// Mission is a goal composed of tasks with a points threshold.
type Mission struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	GameID      string `json:"game_id" gorm:"index;not null"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`

	PointsRequired int  `json:"points_required" gorm:"not null"`
	IsActive       bool `json:"is_active" gorm:"default:true"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	IsRecurring       bool              `json:"is_recurring" gorm:"default:false"`
	RecurrencePattern RecurrencePattern `json:"recurrence_pattern,omitempty" gorm:"type:varchar(16)"`

	// Must be completed by the same player before this mission opens.
	PrerequisiteMissionID *string `json:"prerequisite_mission_id,omitempty" gorm:"type:uuid;index"`

	// Empty mode means the mission inherits the game's targeting.
	TargetMode      TargetMode `json:"target_mode,omitempty" gorm:"type:varchar(16)"`
	TargetPlayerIDs []string   `json:"target_player_ids,omitempty" gorm:"serializer:json;type:jsonb"`

	Game  *Game  `json:"game,omitempty" gorm:"foreignKey:GameID"`
	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:MissionID"`

	Timestamps
}

// CycleKey identifies the progress cycle a moment in time belongs to.
// Non-recurring missions live in a single unnamed cycle; recurring missions
// get one MissionProgress row per period, so a new period starts fresh
// without mutating old rows.
func (m *Mission) CycleKey(now time.Time) string {
	if !m.IsRecurring {
		return ""
	}
	switch m.RecurrencePattern {
	case RecurrenceDaily:
		return now.Format("2006-01-02")
	case RecurrenceWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case RecurrenceMonthly:
		return now.Format("2006-01")
	default:
		return ""
	}
}

// InWindow reports whether the mission's time window contains t.
// Unbounded sides always pass.
func (m *Mission) InWindow(t time.Time) bool {
	if m.StartDate != nil && t.Before(*m.StartDate) {
		return false
	}
	if m.EndDate != nil && t.After(*m.EndDate) {
		return false
	}
	return true
}

// Task is an atomic, event-triggered unit of progress within a mission.
type Task struct {
	ID        string `json:"id" gorm:"primaryKey;type:uuid"`
	MissionID string `json:"mission_id" gorm:"index;not null"`
	EventID   string `json:"event_id" gorm:"index;not null"` // linked CatalogEvent

	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`

	Points        int  `json:"points" gorm:"not null"`
	IsOptional    bool `json:"is_optional" gorm:"default:false"`
	OrderIndex    int  `json:"order_index" gorm:"default:0"`
	IsActive      bool `json:"is_active" gorm:"default:true"`
	RequiredCount int  `json:"required_count" gorm:"default:1"` // e.g. "sell 5 products"

	Mission *Mission `json:"mission,omitempty" gorm:"foreignKey:MissionID"`

	Timestamps
}
