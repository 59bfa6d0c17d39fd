package store

import (
	"context"

	"merchant-onboarding-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Players struct {
	DB *gorm.DB
}

func NewPlayers(db *gorm.DB) *Players {
	return &Players{DB: db}
}

// GetOrCreateByExternalID inserts a fresh player row unless one already
// exists for the external id; the unique index makes concurrent first
// events collapse onto a single row.
func (s *Players) GetOrCreateByExternalID(ctx context.Context, externalID string) (*models.Player, error) {
	player := models.Player{
		ID:         uuid.NewString(),
		ExternalID: externalID,
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).
		Create(&player).Error
	if err != nil {
		return nil, err
	}

	// Re-read so the conflict path also returns the canonical row.
	var out models.Player
	if err := s.DB.WithContext(ctx).Where("external_id = ?", externalID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// AddCounters moves the denormalized lifetime aggregates with atomic
// increments, never read-then-write.
func (s *Players) AddCounters(ctx context.Context, playerID string, points, tasks, missions int64) error {
	return s.DB.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		Updates(map[string]interface{}{
			"total_points":       gorm.Expr("total_points + ?", points),
			"tasks_completed":    gorm.Expr("tasks_completed + ?", tasks),
			"missions_completed": gorm.Expr("missions_completed + ?", missions),
		}).Error
}
