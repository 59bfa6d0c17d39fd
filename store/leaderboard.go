package store

import (
	"context"
	"time"

	"merchant-onboarding-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Leaderboard struct {
	DB *gorm.DB
}

func NewLeaderboard(db *gorm.DB) *Leaderboard {
	return &Leaderboard{DB: db}
}

// AddToEntry upserts the (player, game) row and moves its counters with
// atomic increments in a single statement, keeping the hot write path O(1).
func (s *Leaderboard) AddToEntry(ctx context.Context, playerID, gameID string, points, missions, tasks int64) error {
	entry := models.LeaderboardEntry{
		ID:                uuid.NewString(),
		PlayerID:          playerID,
		GameID:            gameID,
		TotalPoints:       points,
		CompletedMissions: missions,
		CompletedTasks:    tasks,
	}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player_id"}, {Name: "game_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_points":       gorm.Expr("leaderboard_entries.total_points + ?", points),
				"completed_missions": gorm.Expr("leaderboard_entries.completed_missions + ?", missions),
				"completed_tasks":    gorm.Expr("leaderboard_entries.completed_tasks + ?", tasks),
				"updated_at":         time.Now(),
			}),
		}).
		Create(&entry).Error
}
