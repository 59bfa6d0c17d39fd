package services

import (
	"errors"
	"log"
	"strconv"

	"merchant-onboarding-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LeaderboardService serves ranking reads and owns the batch rank
// recompute. The hot path only ever increments counters; rank ordinals are
// derived here, ordered by total points with the earlier achiever winning
// ties.
type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// GetLeaderboard returns the top entries for a game.
func (s *LeaderboardService) GetLeaderboard(c *fiber.Ctx) error {
	gameID := c.Params("id")

	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	var entries []models.LeaderboardEntry
	if err := s.DB.Preload("Player").
		Where("game_id = ?", gameID).
		Order("total_points DESC, updated_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		log.Printf("DB Error fetching leaderboard for game %s: %v", gameID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	// Ordinals from the live ordering, so a read between batch recomputes
	// still shows a consistent ranking.
	type RankedEntry struct {
		Rank              int    `json:"rank"`
		PlayerID          string `json:"player_id"`
		StoreName         string `json:"store_name"`
		TotalPoints       int64  `json:"total_points"`
		CompletedMissions int64  `json:"completed_missions"`
		CompletedTasks    int64  `json:"completed_tasks"`
	}
	res := make([]RankedEntry, len(entries))
	for i, e := range entries {
		storeName := ""
		if e.Player != nil {
			storeName = e.Player.StoreName
		}
		res[i] = RankedEntry{
			Rank:              i + 1,
			PlayerID:          e.PlayerID,
			StoreName:         storeName,
			TotalPoints:       e.TotalPoints,
			CompletedMissions: e.CompletedMissions,
			CompletedTasks:    e.CompletedTasks,
		}
	}
	return c.JSON(res)
}

// GetMyRank returns the authenticated merchant's entry and stored rank for
// a game, with the entries directly around them.
func (s *LeaderboardService) GetMyRank(c *fiber.Ctx) error {
	externalID := c.Locals("user_id").(string)
	gameID := c.Params("id")

	var player models.Player
	if err := s.DB.Where("external_id = ?", externalID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "player not enrolled"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var entry models.LeaderboardEntry
	if err := s.DB.Where("player_id = ? AND game_id = ?", player.ID, gameID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no leaderboard entry for this game yet"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	rank := entry.Rank
	if rank == 0 {
		// Entry written after the last batch recompute. Derive the live
		// ordinal from the same ordering the recompute uses.
		var ahead int64
		if err := s.DB.Model(&models.LeaderboardEntry{}).
			Where("game_id = ? AND (total_points > ? OR (total_points = ? AND updated_at < ?))",
				gameID, entry.TotalPoints, entry.TotalPoints, entry.UpdatedAt).
			Count(&ahead).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		rank = int(ahead) + 1
		entry.Rank = rank
	}

	lower, upper := rankWindow(rank)

	// Window from the live ordering rather than the stored rank column, so
	// the neighborhood is correct even before the first recompute.
	var around []models.LeaderboardEntry
	if err := s.DB.Preload("Player").
		Where("game_id = ?", gameID).
		Order("total_points DESC, updated_at ASC").
		Offset(lower - 1).
		Limit(upper - lower + 1).
		Find(&around).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(fiber.Map{
		"entry":  entry,
		"around": around,
	})
}

// rankWindow is the 11-entry neighborhood around a rank, clamped at the
// top of the board.
func rankWindow(rank int) (lower, upper int) {
	lower = rank - 5
	if lower < 1 {
		lower = 1
	}
	return lower, rank + 5
}

// RecomputeRanks rewrites the stored rank ordinal for every entry of every
// game in one statement. Called from the scheduler, never from the event
// hot path.
func (s *LeaderboardService) RecomputeRanks() error {
	return s.DB.Exec(`
		UPDATE leaderboard_entries le
		SET rank = ranked.new_rank
		FROM (
			SELECT id, ROW_NUMBER() OVER (
				PARTITION BY game_id
				ORDER BY total_points DESC, updated_at ASC
			) AS new_rank
			FROM leaderboard_entries
			WHERE deleted_at IS NULL
		) ranked
		WHERE le.id = ranked.id AND le.rank <> ranked.new_rank
	`).Error
}
