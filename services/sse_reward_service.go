package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"merchant-onboarding-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamMyRewardsSSE streams newly earned grants to the authenticated
// merchant in real time, so the storefront can toast mission payouts.
func (s *RewardService) StreamMyRewardsSSE(c *fiber.Ctx) error {
	externalID := c.Locals("user_id").(string)

	playerID, err := s.playerID(externalID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxEarnedAt time.Time

		// Initialize cursor at the newest existing grant so only grants
		// earned after connect are streamed.
		if playerID != "" {
			var latest models.PlayerReward
			if err := s.DB.
				Where("player_id = ?", playerID).
				Order("earned_at DESC").
				First(&latest).Error; err == nil {
				lastMaxEarnedAt = latest.EarnedAt
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("SSE init error for player %s: %v", externalID, err)
			}
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				if playerID == "" {
					// Player row appears with the first processed event.
					id, err := s.playerID(externalID)
					if err != nil {
						continue
					}
					playerID = id
				}

				var fresh []models.PlayerReward
				err := s.DB.Preload("Reward").Preload("Reward.RewardType").
					Where("player_id = ? AND earned_at > ?", playerID, lastMaxEarnedAt).
					Order("earned_at ASC").
					Find(&fresh).Error
				if err != nil {
					log.Printf("SSE query error for player %s: %v", externalID, err)
					continue
				}
				if len(fresh) == 0 {
					continue
				}

				lastMaxEarnedAt = fresh[len(fresh)-1].EarnedAt

				for _, grant := range fresh {
					payload, _ := json.Marshal(grant)
					fmt.Fprintf(w, "event: reward\ndata: %s\n\n", payload)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
