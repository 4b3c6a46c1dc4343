package economy

import (
	"context"

	"towerkeep/server/logging"
)

const (
	// EventRewardsApplied is emitted after a verified segment's rewards
	// commit to the player record.
	EventRewardsApplied logging.EventType = "economy.rewards_applied"
	// EventRewardsFailed is emitted when the storage transaction fails;
	// the segment stays uncredited.
	EventRewardsFailed logging.EventType = "economy.rewards_failed"
	// EventLevelUp is emitted once per level crossed by a reward grant.
	EventLevelUp logging.EventType = "economy.level_up"
)

// RewardsPayload describes the applied deltas.
type RewardsPayload struct {
	Gold         int `json:"gold"`
	Dust         int `json:"dust"`
	XP           int `json:"xp"`
	LevelsGained int `json:"levelsGained,omitempty"`
	NewLevel     int `json:"newLevel"`
}

// FailedPayload carries the storage error text.
type FailedPayload struct {
	Reason string `json:"reason"`
}

func RewardsApplied(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RewardsPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRewardsApplied,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryEconomy,
		Payload:  payload,
	})
}

func RewardsFailed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload FailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRewardsFailed,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategoryEconomy,
		Payload:  payload,
	})
}

func LevelUp(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, newLevel int) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLevelUp,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryEconomy,
		Payload:  map[string]int{"level": newLevel},
	})
}
