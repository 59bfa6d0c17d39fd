package models

import (
	"time"
)

// EventLog is the append-only record of received events and the idempotency
// boundary: an entry that is already processed short-circuits a replay.
// Uniqueness is (player, catalog event, dedupe key).
type EventLog struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	PlayerID  string `gorm:"uniqueIndex:idx_event_log_dedupe;not null" json:"player_id"`
	EventID   string `gorm:"uniqueIndex:idx_event_log_dedupe;not null" json:"event_id"` // matched CatalogEvent
	DedupeKey string `gorm:"uniqueIndex:idx_event_log_dedupe;not null" json:"dedupe_key"`

	GameID  string         `gorm:"index" json:"game_id,omitempty"`
	Payload map[string]any `gorm:"serializer:json;type:jsonb" json:"payload,omitempty"`

	OccurredAt  time.Time  `json:"occurred_at"`
	Processed   bool       `gorm:"default:false;index" json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	Timestamps
}
