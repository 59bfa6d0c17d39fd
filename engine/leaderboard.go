package engine

import (
	"context"
	"fmt"
)

// RecordTaskCompletion bumps the completed-task counter on the player's
// leaderboard entry for the game, creating the entry on first use.
func (e *Engine) RecordTaskCompletion(ctx context.Context, playerID, gameID string) error {
	if err := e.Board.AddToEntry(ctx, playerID, gameID, 0, 0, 1); err != nil {
		return fmt.Errorf("%w: leaderboard task increment: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// RecordMissionCompletion adds the mission's earned points and bumps the
// completed-mission counter. Rank is not recomputed here; ordinals are
// derived at read or batch time by sorting on total points.
func (e *Engine) RecordMissionCompletion(ctx context.Context, playerID, gameID string, pointsEarned int) error {
	if err := e.Board.AddToEntry(ctx, playerID, gameID, int64(pointsEarned), 1, 0); err != nil {
		return fmt.Errorf("%w: leaderboard mission increment: %v", ErrStorageUnavailable, err)
	}
	return nil
}
