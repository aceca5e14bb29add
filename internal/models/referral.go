package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferralStatus is the state of a referral instance. It only moves
// pendente -> completo, never back.
type ReferralStatus string

const (
	ReferralStatusPendente ReferralStatus = "pendente"
	ReferralStatusCompleto ReferralStatus = "completo"
)

// MilestoneType classifies a referral milestone reward. The two friend-count
// bonuses are unique per referral code; bilhetes_extras accumulates one row per
// completion event.
type MilestoneType string

const (
	MilestoneBonus3Amigos  MilestoneType = "bonus_3_amigos"
	MilestoneBonus5Amigos  MilestoneType = "bonus_5_amigos"
	MilestoneBilhetesExtras MilestoneType = "bilhetes_extras"
)

// ReferralCode is a participant's unique referral code (referencia). One
// active code per owner, created lazily on first need.
type ReferralCode struct {
	Base
	OwnerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"owner_id"`
	Owner   Profile   `gorm:"foreignKey:OwnerID" json:"-"`
	Code    string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
}

// Referral is one referral instance (indicacao) linking a code to a referred
// signup. The unique index on ReferredUserID guarantees at most one referral
// credit per referred user for life.
type Referral struct {
	Base
	ReferralCodeID uuid.UUID      `gorm:"type:uuid;not null;index" json:"referral_code_id"`
	ReferralCode   ReferralCode   `gorm:"foreignKey:ReferralCodeID" json:"-"`
	ReferredUserID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"referred_user_id"`
	Status         ReferralStatus `gorm:"type:varchar(20);not null;default:'pendente';index" json:"status"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// ReferralMilestoneReward records a milestone grant (recompensa de indicacao).
// Uniqueness of (referral_code_id, tipo) for the friend-count bonuses is
// enforced by a partial unique index in the migrations.
type ReferralMilestoneReward struct {
	Base
	ReferralCodeID uuid.UUID     `gorm:"type:uuid;not null;index" json:"referral_code_id"`
	Tipo           MilestoneType `gorm:"type:varchar(30);not null" json:"tipo"`
	Rifas          int           `gorm:"not null" json:"rifas"`
}
