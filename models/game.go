// models/game.go
package models

import (
	"time"
)

// TargetMode controls which players a game or mission is offered to.
type TargetMode string

const (
	TargetModeAll      TargetMode = "all"
	TargetModeSpecific TargetMode = "specific" // explicit player list
	TargetModeFiltered TargetMode = "filtered" // criteria-based (pluggable predicate)
)

// Game is a named container grouping related missions. Catalog data is
// created by the admin workflow and read-only to the processing engine.
type Game struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string `json:"name" gorm:"not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`

	IsActive  bool       `json:"is_active" gorm:"default:true"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	TargetMode      TargetMode     `json:"target_mode" gorm:"type:varchar(16);default:'all'"`
	TargetPlayerIDs []string       `json:"target_player_ids,omitempty" gorm:"serializer:json;type:jsonb"`
	FilterCriteria  map[string]any `json:"filter_criteria,omitempty" gorm:"serializer:json;type:jsonb"`

	Missions []Mission `json:"missions,omitempty" gorm:"foreignKey:GameID"`

	Timestamps
}

// CatalogEvent is the registry of platform activity types that tasks can be
// linked to (e.g. "product_created", "first_sale").
type CatalogEvent struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string `json:"name" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`

	Timestamps
}
