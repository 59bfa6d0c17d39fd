package store

import (
	"context"
	"time"

	"merchant-onboarding-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventLog struct {
	DB *gorm.DB
}

func NewEventLog(db *gorm.DB) *EventLog {
	return &EventLog{DB: db}
}

// Append inserts the entry under the (player, event, dedupe key) unique
// index. When a matching entry already exists it is returned instead, so
// the processor can tell a redelivery from a first delivery.
func (s *EventLog) Append(ctx context.Context, entry *models.EventLog) (*models.EventLog, bool, error) {
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}, {Name: "event_id"}, {Name: "dedupe_key"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return entry, true, nil
	}

	var existing models.EventLog
	err := s.DB.WithContext(ctx).
		Where("player_id = ? AND event_id = ? AND dedupe_key = ?", entry.PlayerID, entry.EventID, entry.DedupeKey).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (s *EventLog) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	return s.DB.WithContext(ctx).
		Model(&models.EventLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed":    true,
			"processed_at": at,
		}).Error
}
