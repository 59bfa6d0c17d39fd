package services

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"merchant-onboarding-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressService serves the merchant-facing dashboard reads: per-game
// mission trees with the player's progress, lifetime summary and event
// history. It never mutates progress; that is the engine's job.
type ProgressService struct {
	DB *gorm.DB
}

func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{DB: db}
}

// playerByExternalID resolves the authenticated merchant, creating the row
// lazily the same way the engine does on the first event.
func (s *ProgressService) playerByExternalID(externalID string) (*models.Player, error) {
	var player models.Player
	err := s.DB.Where("external_id = ?", externalID).First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		player = models.Player{ID: uuid.NewString(), ExternalID: externalID}
		if err := s.DB.Create(&player).Error; err != nil {
			return nil, err
		}
		return &player, nil
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// GetMySummary returns the lifetime counters plus reward totals for the
// authenticated merchant.
func (s *ProgressService) GetMySummary(c *fiber.Ctx) error {
	externalID := c.Locals("user_id").(string)

	player, err := s.playerByExternalID(externalID)
	if err != nil {
		log.Printf("DB Error resolving player %s: %v", externalID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to resolve player"})
	}

	var rewardsEarned, rewardsUnclaimed int64
	s.DB.Model(&models.PlayerReward{}).Where("player_id = ?", player.ID).Count(&rewardsEarned)
	s.DB.Model(&models.PlayerReward{}).
		Where("player_id = ? AND status = ?", player.ID, models.PlayerRewardEarned).
		Count(&rewardsUnclaimed)

	return c.JSON(fiber.Map{
		"id":                 player.ID,
		"external_id":        player.ExternalID,
		"store_name":         player.StoreName,
		"total_points":       player.TotalPoints,
		"tasks_completed":    player.TasksCompleted,
		"missions_completed": player.MissionsCompleted,
		"rewards_earned":     rewardsEarned,
		"rewards_unclaimed":  rewardsUnclaimed,
	})
}

// GetMyGameProgress returns the full mission/task tree of one game with the
// authenticated merchant's progress joined in.
func (s *ProgressService) GetMyGameProgress(c *fiber.Ctx) error {
	externalID := c.Locals("user_id").(string)
	gameID := c.Params("id")

	var game models.Game
	if err := s.DB.Preload("Missions", "is_active = ?", true).
		Preload("Missions.Tasks", "is_active = ?", true).
		First(&game, "id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "game not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	player, err := s.playerByExternalID(externalID)
	if err != nil {
		log.Printf("DB Error resolving player %s: %v", externalID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to resolve player"})
	}

	// One fetch per progress table, stitched in memory.
	var taskRows []models.TaskProgress
	if err := s.DB.Where("player_id = ?", player.ID).Find(&taskRows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	taskProgress := make(map[string]*models.TaskProgress, len(taskRows))
	for i := range taskRows {
		taskProgress[taskRows[i].TaskID] = &taskRows[i]
	}

	var missionRows []models.MissionProgress
	if err := s.DB.Where("player_id = ?", player.ID).Find(&missionRows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	now := time.Now()

	missions := make([]fiber.Map, 0, len(game.Missions))
	for i := range game.Missions {
		m := &game.Missions[i]
		cycle := m.CycleKey(now)

		var mp *models.MissionProgress
		for j := range missionRows {
			if missionRows[j].MissionID == m.ID && missionRows[j].Cycle == cycle {
				mp = &missionRows[j]
				break
			}
		}

		status := models.ProgressNotStarted
		points := 0
		if mp != nil {
			status = mp.Status
			points = mp.PointsEarned
		}

		tasks := make([]fiber.Map, 0, len(m.Tasks))
		for k := range m.Tasks {
			t := &m.Tasks[k]
			tStatus := models.ProgressNotStarted
			tCount := 0
			if tp := taskProgress[t.ID]; tp != nil {
				tStatus = tp.Status
				tCount = tp.Progress
			}
			tasks = append(tasks, fiber.Map{
				"id":             t.ID,
				"name":           t.Name,
				"description":    t.Description,
				"points":         t.Points,
				"is_optional":    t.IsOptional,
				"order_index":    t.OrderIndex,
				"required_count": t.RequiredCount,
				"status":         tStatus,
				"progress":       tCount,
			})
		}

		missions = append(missions, fiber.Map{
			"id":              m.ID,
			"name":            m.Name,
			"description":     m.Description,
			"points_required": m.PointsRequired,
			"is_recurring":    m.IsRecurring,
			"cycle":           cycle,
			"status":          status,
			"points_earned":   points,
			"tasks":           tasks,
		})
	}

	return c.JSON(fiber.Map{
		"game_id":   game.ID,
		"game_name": game.Name,
		"missions":  missions,
	})
}

// GetMyEventHistory returns the merchant's paginated event log.
func (s *ProgressService) GetMyEventHistory(c *fiber.Ctx) error {
	externalID := c.Locals("user_id").(string)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("size", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	player, err := s.playerByExternalID(externalID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to resolve player"})
	}

	var total int64
	s.DB.Model(&models.EventLog{}).Where("player_id = ?", player.ID).Count(&total)

	var entries []models.EventLog
	if err := s.DB.Where("player_id = ?", player.ID).
		Order("occurred_at DESC").
		Limit(size).Offset(offset).
		Find(&entries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch event history"})
	}

	return c.JSON(fiber.Map{
		"events":      entries,
		"page":        page,
		"size":        size,
		"total_items": total,
		"total_pages": (total + int64(size) - 1) / int64(size),
	})
}

// SearchPlayers searches enrolled merchants by store name or email
// (admin dashboards).
func (s *ProgressService) SearchPlayers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.Model(&models.Player{}).Limit(limit)
	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where(
			"LOWER(store_name) LIKE ? OR LOWER(email) LIKE ? OR external_id = ?",
			searchTerm, searchTerm, strings.TrimSpace(query),
		)
	}

	var players []models.Player
	if err := db.Find(&players).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "search failed"})
	}

	type PlayerSummary struct {
		ID                string `json:"id"`
		ExternalID        string `json:"external_id"`
		StoreName         string `json:"store_name"`
		Email             string `json:"email"`
		TotalPoints       int64  `json:"total_points"`
		MissionsCompleted int64  `json:"missions_completed"`
	}
	res := make([]PlayerSummary, len(players))
	for i, p := range players {
		res[i] = PlayerSummary{
			ID:                p.ID,
			ExternalID:        p.ExternalID,
			StoreName:         p.StoreName,
			Email:             p.Email,
			TotalPoints:       p.TotalPoints,
			MissionsCompleted: p.MissionsCompleted,
		}
	}
	return c.JSON(res)
}
