package models

// LeaderboardEntry holds the running per-(player, game) totals used for
// ranking. Counters move by atomic increments on the hot path; Rank is a
// derived ordinal recomputed in batch, never maintained per write.
type LeaderboardEntry struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	PlayerID string `gorm:"uniqueIndex:idx_leaderboard_owner;not null" json:"player_id"`
	GameID   string `gorm:"uniqueIndex:idx_leaderboard_owner;not null" json:"game_id"`

	TotalPoints       int64 `gorm:"default:0" json:"total_points"`
	CompletedMissions int64 `gorm:"default:0" json:"completed_missions"`
	CompletedTasks    int64 `gorm:"default:0" json:"completed_tasks"`

	Rank int `gorm:"default:0" json:"rank"`

	Player *Player `json:"player,omitempty" gorm:"foreignKey:PlayerID"`

	Timestamps
}
