package engine

import (
	"context"

	"merchant-onboarding-system/models"
)

// DefaultAudience is the built-in audience strategy: "all" matches
// everyone, "specific" checks the configured player list against both the
// local and the platform id, and "filtered" is treated as always eligible
// until a criteria predicate is plugged in.
type DefaultAudience struct{}

func (DefaultAudience) Includes(_ context.Context, player *models.Player, mode models.TargetMode, playerIDs []string, _ map[string]any) (bool, error) {
	switch mode {
	case models.TargetModeSpecific:
		for _, id := range playerIDs {
			if id == player.ID || id == player.ExternalID {
				return true, nil
			}
		}
		return false, nil
	case models.TargetModeFiltered:
		// TODO(criteria): evaluate FilterCriteria once the segmentation
		// predicate lands; until then filtered audiences admit everyone.
		return true, nil
	default: // "all" and unset
		return true, nil
	}
}
