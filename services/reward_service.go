// services/reward_service.go
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

// RewardService manages the lifecycle of grants after the engine has
// created them: listing, claiming, viewed flags and the expiry sweep.
type RewardService struct {
	DB *gorm.DB
}

func NewRewardService(db *gorm.DB) *RewardService {
	return &RewardService{DB: db}
}

func (s *RewardService) playerID(externalID string) (string, error) {
	var player models.Player
	if err := s.DB.Select("id").Where("external_id = ?", externalID).First(&player).Error; err != nil {
		return "", err
	}
	return player.ID, nil
}

// GetMyRewards fetches grants for the authenticated merchant with optional
// status and limit filters.
func (s *RewardService) GetMyRewards(c *fiber.Ctx) error {
	externalID := c.Locals("user_id").(string)

	playerID, err := s.playerID(externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON([]models.PlayerReward{})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	query := s.DB.Preload("Reward").Preload("Reward.RewardType").
		Where("player_id = ?", playerID)

	switch status := strings.ToLower(c.Query("status")); status {
	case "":
		// no filter
	case "earned", "claimed", "expired":
		query = query.Where("status = ?", models.PlayerRewardStatus(status))
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status filter"})
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit parameter"})
		}
		query = query.Limit(limit)
	}

	var grants []models.PlayerReward
	if err := query.Order("earned_at DESC").Find(&grants).Error; err != nil {
		log.Printf("DB Error fetching player rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rewards"})
	}
	return c.JSON(grants)
}

// GetMyRewardCounts returns total / unviewed / unclaimed counts for the
// authenticated merchant. Cheap enough to poll.
func (s *RewardService) GetMyRewardCounts(c *fiber.Ctx) error {
	externalID := c.Locals("user_id").(string)

	playerID, err := s.playerID(externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"total_count": 0, "unviewed_count": 0, "unclaimed_count": 0})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	now := time.Now()
	baseQuery := s.DB.Model(&models.PlayerReward{}).
		Where("player_id = ?", playerID).
		Where("status <> ?", models.PlayerRewardExpired).
		Where("(expires_at IS NULL OR expires_at >= ?)", now)

	var totalCount int64
	if err := baseQuery.Count(&totalCount).Error; err != nil {
		log.Printf("DB Error counting rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error counting rewards"})
	}

	var unviewedCount int64
	if err := baseQuery.Where("viewed = ?", false).Count(&unviewedCount).Error; err != nil {
		log.Printf("DB Error counting unviewed rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error counting unviewed rewards"})
	}

	var unclaimedCount int64
	if err := baseQuery.Where("status = ?", models.PlayerRewardEarned).Count(&unclaimedCount).Error; err != nil {
		log.Printf("DB Error counting unclaimed rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error counting unclaimed rewards"})
	}

	return c.JSON(fiber.Map{
		"total_count":     totalCount,
		"unviewed_count":  unviewedCount,
		"unclaimed_count": unclaimedCount,
	})
}

// ClaimReward flips a grant from earned to claimed. The guarded update
// makes a concurrent double claim lose cleanly.
func (s *RewardService) ClaimReward(c *fiber.Ctx) error {
	externalID := c.Locals("user_id").(string)
	grantID := c.Params("id")

	if _, err := uuid.Parse(grantID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward ID"})
	}

	playerID, err := s.playerID(externalID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "player not enrolled"})
	}

	var grant models.PlayerReward
	if err := s.DB.Where("id = ? AND player_id = ?", grantID, playerID).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward not found or not owned"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if grant.Status == models.PlayerRewardClaimed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Reward already claimed"})
	}
	if grant.Status == models.PlayerRewardExpired ||
		(grant.ExpiresAt != nil && grant.ExpiresAt.Before(time.Now())) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Reward has expired"})
	}

	now := time.Now()
	res := s.DB.Model(&models.PlayerReward{}).
		Where("id = ? AND status = ?", grant.ID, models.PlayerRewardEarned).
		Updates(map[string]any{
			"status":     models.PlayerRewardClaimed,
			"claimed_at": now,
		})
	if res.Error != nil {
		log.Printf("DB Error claiming reward: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to claim reward"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Reward already claimed"})
	}

	grant.Status = models.PlayerRewardClaimed
	grant.ClaimedAt = &now
	return c.JSON(fiber.Map{"message": "Reward claimed successfully", "reward": grant})
}

// MarkRewardAsViewed marks a single grant as viewed (idempotent).
func (s *RewardService) MarkRewardAsViewed(c *fiber.Ctx) error {
	externalID := c.Locals("user_id").(string)
	grantID := c.Params("id")

	if _, err := uuid.Parse(grantID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward ID"})
	}

	playerID, err := s.playerID(externalID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "player not enrolled"})
	}

	res := s.DB.Model(&models.PlayerReward{}).
		Where("id = ? AND player_id = ?", grantID, playerID).
		Update("viewed", true)
	if res.Error != nil {
		log.Printf("Failed to update viewed status: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark as viewed"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward not found or not owned"})
	}

	return c.JSON(fiber.Map{"message": "OK", "reward_id": grantID, "viewed": true})
}

// MarkAllRewardsAsViewed marks every unviewed grant of the merchant.
func (s *RewardService) MarkAllRewardsAsViewed(c *fiber.Ctx) error {
	externalID := c.Locals("user_id").(string)

	playerID, err := s.playerID(externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"message": "OK", "marked_count": 0})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	result := s.DB.Model(&models.PlayerReward{}).
		Where("player_id = ? AND viewed = ?", playerID, false).
		Update("viewed", true)
	if result.Error != nil {
		log.Printf("Bulk mark viewed failed: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update rewards"})
	}

	return c.JSON(fiber.Map{"message": "OK", "marked_count": result.RowsAffected})
}

// ExpireOverdueGrants flips earned grants past their expiry to expired.
// Runs from the scheduler.
func (s *RewardService) ExpireOverdueGrants() (int64, error) {
	result := s.DB.Model(&models.PlayerReward{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.PlayerRewardEarned, time.Now()).
		Update("status", models.PlayerRewardExpired)
	return result.RowsAffected, result.Error
}
