package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a rifas ledger entry
type TransactionType string

const (
	TransactionTypeMissionReward TransactionType = "mission_reward"
	TransactionTypeBonus         TransactionType = "bonus"
	TransactionTypeRedemption    TransactionType = "redemption"
	TransactionTypeAdjustment    TransactionType = "adjustment"
)

// MissionReward records that a submission was paid out. The unique index on
// SubmissionID is the guard that makes reward issuance idempotent under
// concurrent or retried finalize calls.
type MissionReward struct {
	Base
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	MissionID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"mission_id"`
	SubmissionID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"submission_id"`
	RifasEarned    int             `gorm:"not null" json:"rifas_earned"`
	CashbackEarned decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"cashback_earned"`
	RewardedAt     time.Time       `gorm:"not null" json:"rewarded_at"`
}

// RifasTransaction is an append-only balance change record. Entries are never
// mutated or deleted; the sum of entries for a user must reconcile with the
// cached balances on the profile.
type RifasTransaction struct {
	Base
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	MissionID     *uuid.UUID      `gorm:"type:uuid" json:"mission_id,omitempty"`
	SubmissionID  *uuid.UUID      `gorm:"type:uuid" json:"submission_id,omitempty"`
	Type          TransactionType `gorm:"type:varchar(30);not null" json:"transaction_type"`
	Rifas         int             `gorm:"not null;default:0" json:"rifas"`
	Cashback      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"cashback"`
	RifasBefore   int             `gorm:"not null;default:0" json:"rifas_before"`
	RifasAfter    int             `gorm:"not null;default:0" json:"rifas_after"`
	Reference     string          `gorm:"type:varchar(120);uniqueIndex;not null" json:"reference"`
	Description   string          `gorm:"type:varchar(255)" json:"description"`
}

// Notification is a user-facing inbox entry written by the notification worker.
// Delivery is fire-and-forget; core operations never depend on it.
type Notification struct {
	Base
	UserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Type    string    `gorm:"type:varchar(50);not null" json:"type"`
	Title   string    `gorm:"type:varchar(150);not null" json:"title"`
	Message string    `gorm:"type:text" json:"message"`
	Read    bool      `gorm:"default:false" json:"read"`
}
