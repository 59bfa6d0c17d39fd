package engine

import (
	"context"
	"fmt"

	"merchant-onboarding-system/models"

	"github.com/google/uuid"
)

// GrantRewardsForMission issues every reward configured for the mission to
// the player, each exactly once. A duplicate grant attempt is a no-op, not
// an error, so the mission-completion path is safe to retry or enter
// concurrently. Expiry comes from the reward type configuration; the
// grantor just copies it onto the grant.
func (e *Engine) GrantRewardsForMission(ctx context.Context, player *models.Player, mission *models.Mission) ([]models.PlayerReward, error) {
	rewards, err := e.Catalog.RewardsForMission(ctx, mission.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: load mission rewards: %v", ErrStorageUnavailable, err)
	}

	now := e.now()
	granted := make([]models.PlayerReward, 0, len(rewards))
	for _, reward := range rewards {
		grant := models.PlayerReward{
			ID:       uuid.NewString(),
			PlayerID: player.ID,
			RewardID: reward.ID,
			Status:   models.PlayerRewardEarned,
			EarnedAt: now,
		}
		if rt := reward.RewardType; rt != nil && rt.ExpiresAfterDays != nil {
			expires := now.AddDate(0, 0, *rt.ExpiresAfterDays)
			grant.ExpiresAt = &expires
		}

		created, err := e.Rewards.InsertPlayerReward(ctx, &grant)
		if err != nil {
			return granted, fmt.Errorf("%w: grant reward %s: %v", ErrStorageUnavailable, reward.ID, err)
		}
		if created {
			granted = append(granted, grant)
		}
	}
	return granted, nil
}
