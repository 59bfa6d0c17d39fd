package models

import (
	"time"
)

// RewardKind indicates what kind of benefit is granted
type RewardKind string

const (
	RewardKindBadge        RewardKind = "badge"
	RewardKindCoupon       RewardKind = "coupon"
	RewardKindSubscription RewardKind = "subscription"
	RewardKindCredit       RewardKind = "leaderboard_credit"
)

// RewardType is catalog configuration shared by rewards of the same kind
// (icon, claim instructions, default expiry).
type RewardType struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	Kind        RewardKind `gorm:"type:varchar(32);not null" json:"kind"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	IconURL     string     `gorm:"type:text" json:"icon_url"`

	// Days an earned grant stays claimable; nil means it never expires.
	ExpiresAfterDays *int `json:"expires_after_days,omitempty"`

	Timestamps
}

// Reward is a catalog entry describing what a mission pays out.
type Reward struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	MissionID    string `gorm:"index;not null" json:"mission_id"`
	RewardTypeID string `gorm:"index;not null" json:"reward_type_id"`

	Name        string  `gorm:"not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	ImageURL    string  `gorm:"type:text" json:"image_url"`
	Amount      float64 `json:"amount"` // coupon value / credit amount; 0 for badges
	IsActive    bool    `gorm:"default:true" json:"is_active"`

	RewardType *RewardType `json:"reward_type,omitempty" gorm:"foreignKey:RewardTypeID"`

	Timestamps
}

// PlayerRewardStatus tracks the grant lifecycle
type PlayerRewardStatus string

const (
	PlayerRewardEarned  PlayerRewardStatus = "earned"
	PlayerRewardClaimed PlayerRewardStatus = "claimed"
	PlayerRewardExpired PlayerRewardStatus = "expired"
)

// PlayerReward is created exactly once per (player, reward) when the owning
// mission completes. Claim and expiry transitions happen through the reward
// API, not the processing engine.
type PlayerReward struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	PlayerID string `gorm:"uniqueIndex:idx_player_reward_owner;not null" json:"player_id"`
	RewardID string `gorm:"uniqueIndex:idx_player_reward_owner;not null" json:"reward_id"`

	Status PlayerRewardStatus `gorm:"type:varchar(16);default:'earned'" json:"status"`
	Viewed bool               `gorm:"default:false;index" json:"viewed"`

	EarnedAt  time.Time  `json:"earned_at"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	Reward *Reward `json:"reward,omitempty" gorm:"foreignKey:RewardID"`

	Timestamps
}
