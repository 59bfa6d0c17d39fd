package store

import (
	"context"

	"merchant-onboarding-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Rewards struct {
	DB *gorm.DB
}

func NewRewards(db *gorm.DB) *Rewards {
	return &Rewards{DB: db}
}

// InsertPlayerReward creates the grant under the (player, reward) unique
// index. A concurrent or repeated grant attempt inserts nothing and
// reports created = false.
func (s *Rewards) InsertPlayerReward(ctx context.Context, grant *models.PlayerReward) (bool, error) {
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}, {Name: "reward_id"}},
			DoNothing: true,
		}).
		Create(grant)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
