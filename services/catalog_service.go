package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"merchant-onboarding-system/models"
	"merchant-onboarding-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// CatalogService owns the admin workflow: games, missions, tasks, reward
// catalog and the event-type registry. The processing engine only ever
// reads what this service writes.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// ===== Games =====

// CreateGame creates a new game container. Accepts multipart form so the
// cover image can be uploaded in the same request.
func (s *CatalogService) CreateGame(c *fiber.Ctx) error {
	name := c.FormValue("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	game := &models.Game{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        slug.Make(name),
		Description: c.FormValue("description"),
		IsActive:    c.FormValue("is_active", "true") == "true",
		TargetMode:  models.TargetMode(c.FormValue("target_mode", string(models.TargetModeAll))),
	}

	switch game.TargetMode {
	case models.TargetModeAll, models.TargetModeSpecific, models.TargetModeFiltered:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid target_mode (use: all, specific, filtered)"})
	}

	if start := c.FormValue("start_date"); start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid start_date, use RFC3339"})
		}
		game.StartDate = &t
	}
	if end := c.FormValue("end_date"); end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid end_date, use RFC3339"})
		}
		game.EndDate = &t
	}

	// Cover image → R2 (small, public asset)
	if imgFile, err := c.FormFile("image"); err == nil && imgFile.Size > 0 {
		ext := filepath.Ext(imgFile.Filename)
		if ext == "" {
			ext = ".png"
		}
		key := "games/" + uuid.NewString() + ext
		url, err := utils.UploadFileToR2(imgFile, key)
		if err != nil {
			log.Printf("R2 upload failed for game image: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload game image"})
		}
		game.ImageURL = url
	}

	if err := s.DB.Create(game).Error; err != nil {
		log.Printf("DB Error creating game: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create game"})
	}

	return c.Status(fiber.StatusCreated).JSON(game)
}

// GetAllGames returns all games with their missions and tasks.
func (s *CatalogService) GetAllGames(c *fiber.Ctx) error {
	var games []models.Game
	if err := s.DB.Preload("Missions").Preload("Missions.Tasks").Find(&games).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch games"})
	}
	return c.JSON(games)
}

// GetGameByID returns one game with its full mission/task tree.
func (s *CatalogService) GetGameByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var game models.Game
	if err := s.DB.Preload("Missions").Preload("Missions.Tasks").First(&game, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "game not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(game)
}

// UpdateGame applies partial updates to a game.
func (s *CatalogService) UpdateGame(c *fiber.Ctx) error {
	id := c.Params("id")

	var game models.Game
	if err := s.DB.First(&game, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "game not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name            *string            `json:"name"`
		Description     *string            `json:"description"`
		IsActive        *bool              `json:"is_active"`
		StartDate       *time.Time         `json:"start_date"`
		EndDate         *time.Time         `json:"end_date"`
		TargetMode      *models.TargetMode `json:"target_mode"`
		TargetPlayerIDs []string           `json:"target_player_ids"`
		FilterCriteria  map[string]any     `json:"filter_criteria"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		game.Name = *req.Name
		game.Slug = slug.Make(*req.Name)
	}
	if req.Description != nil {
		game.Description = *req.Description
	}
	if req.IsActive != nil {
		game.IsActive = *req.IsActive
	}
	if req.StartDate != nil {
		game.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		game.EndDate = req.EndDate
	}
	if req.TargetMode != nil {
		game.TargetMode = *req.TargetMode
	}
	if req.TargetPlayerIDs != nil {
		game.TargetPlayerIDs = req.TargetPlayerIDs
	}
	if req.FilterCriteria != nil {
		game.FilterCriteria = req.FilterCriteria
	}

	if err := s.DB.Save(&game).Error; err != nil {
		log.Printf("DB Error updating game: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update game"})
	}
	return c.JSON(game)
}

// DeleteGame soft-deletes a game. Missions and progress rows are kept so
// historical dashboards stay intact.
func (s *CatalogService) DeleteGame(c *fiber.Ctx) error {
	id := c.Params("id")

	var game models.Game
	if err := s.DB.First(&game, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "game not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&game).Error; err != nil {
		log.Printf("DB Error deleting game: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete game"})
	}
	return c.JSON(fiber.Map{"message": "game deleted", "id": id})
}

// ===== Catalog events =====

// CreateCatalogEvent registers a platform activity type tasks can link to.
func (s *CatalogService) CreateCatalogEvent(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	ev := &models.CatalogEvent{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.DB.Create(ev).Error; err != nil {
		log.Printf("DB Error creating catalog event: %v", err)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Failed to create event type (duplicate name?)"})
	}
	return c.Status(fiber.StatusCreated).JSON(ev)
}

// GetCatalogEvents lists the event-type registry.
func (s *CatalogService) GetCatalogEvents(c *fiber.Ctx) error {
	var events []models.CatalogEvent
	if err := s.DB.Order("name ASC").Find(&events).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch event types"})
	}
	return c.JSON(events)
}

// SetCatalogEventActive toggles whether events of this type are processed.
func (s *CatalogService) SetCatalogEventActive(c *fiber.Ctx) error {
	id := c.Params("id")

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	res := s.DB.Model(&models.CatalogEvent{}).Where("id = ?", id).Update("is_active", req.IsActive)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "event type not found"})
	}
	return c.JSON(fiber.Map{"message": "event type updated", "id": id, "is_active": req.IsActive})
}

// ===== Missions =====

// CreateMission creates a mission under a game, optionally with its tasks
// in one transaction.
func (s *CatalogService) CreateMission(c *fiber.Ctx) error {
	gameID := c.Params("id")

	var game models.Game
	if err := s.DB.First(&game, "id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "game not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name                  string                   `json:"name" validate:"required"`
		Description           string                   `json:"description"`
		PointsRequired        int                      `json:"points_required" validate:"required,min=1"`
		StartDate             *time.Time               `json:"start_date"`
		EndDate               *time.Time               `json:"end_date"`
		IsRecurring           bool                     `json:"is_recurring"`
		RecurrencePattern     models.RecurrencePattern `json:"recurrence_pattern"`
		PrerequisiteMissionID *string                  `json:"prerequisite_mission_id"`
		TargetMode            models.TargetMode        `json:"target_mode"`
		TargetPlayerIDs       []string                 `json:"target_player_ids"`
		Tasks                 []struct {
			EventID       string `json:"event_id" validate:"required,uuid"`
			Name          string `json:"name" validate:"required"`
			Description   string `json:"description"`
			Points        int    `json:"points" validate:"required,min=1"`
			IsOptional    bool   `json:"is_optional"`
			OrderIndex    int    `json:"order_index"`
			RequiredCount int    `json:"required_count"`
		} `json:"tasks"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.PointsRequired < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and a positive points_required are required"})
	}
	if req.IsRecurring {
		switch req.RecurrencePattern {
		case models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly:
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "recurrence_pattern must be daily, weekly or monthly"})
		}
	}
	if req.PrerequisiteMissionID != nil {
		var count int64
		s.DB.Model(&models.Mission{}).Where("id = ?", *req.PrerequisiteMissionID).Count(&count)
		if count == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "prerequisite mission not found"})
		}
	}

	mission := &models.Mission{
		ID:                    uuid.NewString(),
		GameID:                game.ID,
		Name:                  req.Name,
		Description:           req.Description,
		PointsRequired:        req.PointsRequired,
		IsActive:              true,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		IsRecurring:           req.IsRecurring,
		RecurrencePattern:     req.RecurrencePattern,
		PrerequisiteMissionID: req.PrerequisiteMissionID,
		TargetMode:            req.TargetMode,
		TargetPlayerIDs:       req.TargetPlayerIDs,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(mission).Error; err != nil {
			return err
		}

		for i, t := range req.Tasks {
			var evCount int64
			tx.Model(&models.CatalogEvent{}).Where("id = ?", t.EventID).Count(&evCount)
			if evCount == 0 {
				return fmt.Errorf("task %d links unknown event type %s", i, t.EventID)
			}

			required := t.RequiredCount
			if required < 1 {
				required = 1
			}
			task := models.Task{
				ID:            uuid.NewString(),
				MissionID:     mission.ID,
				EventID:       t.EventID,
				Name:          t.Name,
				Description:   t.Description,
				Points:        t.Points,
				IsOptional:    t.IsOptional,
				OrderIndex:    t.OrderIndex,
				IsActive:      true,
				RequiredCount: required,
			}
			if err := tx.Create(&task).Error; err != nil {
				return err
			}
		}

		return tx.Preload("Tasks").First(mission, "id = ?", mission.ID).Error
	})
	if err != nil {
		log.Printf("DB Error creating mission: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(mission)
}

// GetMissionByID returns one mission with tasks and rewards.
func (s *CatalogService) GetMissionByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var mission models.Mission
	if err := s.DB.Preload("Tasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).First(&mission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var rewards []models.Reward
	if err := s.DB.Preload("RewardType").Where("mission_id = ?", id).Find(&rewards).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(fiber.Map{"mission": mission, "rewards": rewards})
}

// UpdateMission applies partial updates to a mission.
func (s *CatalogService) UpdateMission(c *fiber.Ctx) error {
	id := c.Params("id")

	var mission models.Mission
	if err := s.DB.First(&mission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name                  *string                   `json:"name"`
		Description           *string                   `json:"description"`
		PointsRequired        *int                      `json:"points_required"`
		IsActive              *bool                     `json:"is_active"`
		StartDate             *time.Time                `json:"start_date"`
		EndDate               *time.Time                `json:"end_date"`
		IsRecurring           *bool                     `json:"is_recurring"`
		RecurrencePattern     *models.RecurrencePattern `json:"recurrence_pattern"`
		PrerequisiteMissionID *string                   `json:"prerequisite_mission_id"`
		TargetMode            *models.TargetMode        `json:"target_mode"`
		TargetPlayerIDs       []string                  `json:"target_player_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		mission.Name = *req.Name
	}
	if req.Description != nil {
		mission.Description = *req.Description
	}
	if req.PointsRequired != nil {
		if *req.PointsRequired < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points_required must be positive"})
		}
		mission.PointsRequired = *req.PointsRequired
	}
	if req.IsActive != nil {
		mission.IsActive = *req.IsActive
	}
	if req.StartDate != nil {
		mission.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		mission.EndDate = req.EndDate
	}
	if req.IsRecurring != nil {
		mission.IsRecurring = *req.IsRecurring
	}
	if req.RecurrencePattern != nil {
		mission.RecurrencePattern = *req.RecurrencePattern
	}
	if req.PrerequisiteMissionID != nil {
		if *req.PrerequisiteMissionID == id {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mission cannot be its own prerequisite"})
		}
		mission.PrerequisiteMissionID = req.PrerequisiteMissionID
	}
	if req.TargetMode != nil {
		mission.TargetMode = *req.TargetMode
	}
	if req.TargetPlayerIDs != nil {
		mission.TargetPlayerIDs = req.TargetPlayerIDs
	}

	if err := s.DB.Save(&mission).Error; err != nil {
		log.Printf("DB Error updating mission: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update mission"})
	}
	return c.JSON(mission)
}

// DeleteMission soft-deletes a mission and deactivates its tasks.
func (s *CatalogService) DeleteMission(c *fiber.Ctx) error {
	id := c.Params("id")

	var mission models.Mission
	if err := s.DB.First(&mission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	// Block deletion while another mission gates on this one.
	var dependents int64
	s.DB.Model(&models.Mission{}).Where("prerequisite_mission_id = ?", id).Count(&dependents)
	if dependents > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":           "cannot delete mission: still a prerequisite of other missions",
			"dependent_count": dependents,
		})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("mission_id = ?", id).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Delete(&mission).Error
	})
	if err != nil {
		log.Printf("DB Error deleting mission: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete mission"})
	}
	return c.JSON(fiber.Map{"message": "mission deleted", "id": id})
}

// ===== Tasks =====

// CreateTask adds one task to an existing mission.
func (s *CatalogService) CreateTask(c *fiber.Ctx) error {
	missionID := c.Params("id")

	var mission models.Mission
	if err := s.DB.First(&mission, "id = ?", missionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		EventID       string `json:"event_id" validate:"required,uuid"`
		Name          string `json:"name" validate:"required"`
		Description   string `json:"description"`
		Points        int    `json:"points" validate:"required,min=1"`
		IsOptional    bool   `json:"is_optional"`
		OrderIndex    int    `json:"order_index"`
		RequiredCount int    `json:"required_count"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.Points < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and positive points are required"})
	}

	var evCount int64
	s.DB.Model(&models.CatalogEvent{}).Where("id = ?", req.EventID).Count(&evCount)
	if evCount == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "event_id does not reference a known event type"})
	}

	if req.RequiredCount < 1 {
		req.RequiredCount = 1
	}
	task := &models.Task{
		ID:            uuid.NewString(),
		MissionID:     mission.ID,
		EventID:       req.EventID,
		Name:          req.Name,
		Description:   req.Description,
		Points:        req.Points,
		IsOptional:    req.IsOptional,
		OrderIndex:    req.OrderIndex,
		IsActive:      true,
		RequiredCount: req.RequiredCount,
	}
	if err := s.DB.Create(task).Error; err != nil {
		log.Printf("DB Error creating task: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create task"})
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// UpdateTask applies partial updates to a task.
func (s *CatalogService) UpdateTask(c *fiber.Ctx) error {
	id := c.Params("task_id")

	var task models.Task
	if err := s.DB.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name          *string `json:"name"`
		Description   *string `json:"description"`
		Points        *int    `json:"points"`
		IsOptional    *bool   `json:"is_optional"`
		OrderIndex    *int    `json:"order_index"`
		IsActive      *bool   `json:"is_active"`
		RequiredCount *int    `json:"required_count"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		task.Name = *req.Name
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Points != nil {
		if *req.Points < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points must be positive"})
		}
		task.Points = *req.Points
	}
	if req.IsOptional != nil {
		task.IsOptional = *req.IsOptional
	}
	if req.OrderIndex != nil {
		task.OrderIndex = *req.OrderIndex
	}
	if req.IsActive != nil {
		task.IsActive = *req.IsActive
	}
	if req.RequiredCount != nil {
		if *req.RequiredCount < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "required_count must be positive"})
		}
		task.RequiredCount = *req.RequiredCount
	}

	if err := s.DB.Save(&task).Error; err != nil {
		log.Printf("DB Error updating task: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update task"})
	}
	return c.JSON(task)
}

// DeleteTask deactivates a task; progress rows already earned stay as-is.
func (s *CatalogService) DeleteTask(c *fiber.Ctx) error {
	id := c.Params("task_id")

	res := s.DB.Model(&models.Task{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		log.Printf("DB Error deactivating task: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to deactivate task"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
	}
	return c.JSON(fiber.Map{"message": "task deactivated", "id": id})
}

// ===== Reward types and rewards =====

// CreateRewardType registers a reward kind with icon and default expiry.
// Multipart so the icon image can ride along.
func (s *CatalogService) CreateRewardType(c *fiber.Ctx) error {
	kind := models.RewardKind(c.FormValue("kind"))
	switch kind {
	case models.RewardKindBadge, models.RewardKindCoupon, models.RewardKindSubscription, models.RewardKindCredit:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid kind (use: badge, coupon, subscription, leaderboard_credit)"})
	}
	name := c.FormValue("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	rt := &models.RewardType{
		ID:          uuid.NewString(),
		Kind:        kind,
		Name:        name,
		Description: c.FormValue("description"),
	}

	if daysStr := c.FormValue("expires_after_days"); daysStr != "" {
		var days int
		if _, err := fmt.Sscanf(daysStr, "%d", &days); err != nil || days < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "expires_after_days must be a positive integer"})
		}
		rt.ExpiresAfterDays = &days
	}

	if iconFile, err := c.FormFile("icon"); err == nil && iconFile.Size > 0 {
		ext := filepath.Ext(iconFile.Filename)
		if ext == "" {
			ext = ".png"
		}
		key := "reward-icons/" + uuid.NewString() + ext
		url, err := utils.UploadFileToR2(iconFile, key)
		if err != nil {
			log.Printf("R2 upload failed for reward icon: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload reward icon"})
		}
		rt.IconURL = url
	}

	if err := s.DB.Create(rt).Error; err != nil {
		log.Printf("DB Error creating reward type: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create reward type"})
	}
	return c.Status(fiber.StatusCreated).JSON(rt)
}

// GetRewardTypes lists the reward-kind catalog.
func (s *CatalogService) GetRewardTypes(c *fiber.Ctx) error {
	var types []models.RewardType
	if err := s.DB.Order("name ASC").Find(&types).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch reward types"})
	}
	return c.JSON(types)
}

// CreateReward attaches a reward payout to a mission.
func (s *CatalogService) CreateReward(c *fiber.Ctx) error {
	missionID := c.Params("id")

	var mission models.Mission
	if err := s.DB.First(&mission, "id = ?", missionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		RewardTypeID string  `json:"reward_type_id" validate:"required,uuid"`
		Name         string  `json:"name" validate:"required"`
		Description  string  `json:"description"`
		ImageURL     string  `json:"image_url"`
		Amount       float64 `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	var rt models.RewardType
	if err := s.DB.First(&rt, "id = ?", req.RewardTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reward type not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if rt.Kind != models.RewardKindBadge && req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount is required for non-badge rewards"})
	}

	reward := &models.Reward{
		ID:           uuid.NewString(),
		MissionID:    mission.ID,
		RewardTypeID: rt.ID,
		Name:         req.Name,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		Amount:       req.Amount,
		IsActive:     true,
	}
	if err := s.DB.Create(reward).Error; err != nil {
		log.Printf("DB Error creating reward: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create reward"})
	}
	return c.Status(fiber.StatusCreated).JSON(reward)
}

// DeleteReward deactivates a reward so future mission completions stop
// paying it; existing grants are untouched.
func (s *CatalogService) DeleteReward(c *fiber.Ctx) error {
	id := c.Params("reward_id")

	res := s.DB.Model(&models.Reward{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		log.Printf("DB Error deactivating reward: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to deactivate reward"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "reward not found"})
	}
	return c.JSON(fiber.Map{"message": "reward deactivated", "id": id})
}
