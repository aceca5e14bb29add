package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mission represents an advertiser-defined task participants can complete for
// rewards. Reward fields are immutable once submissions exist; only status and
// metadata fields may change after that.
type Mission struct {
	Base
	CreatedBy       uuid.UUID       `gorm:"type:uuid;not null;index" json:"created_by"`
	Advertiser      Profile         `gorm:"foreignKey:CreatedBy" json:"-"`
	Title           string          `gorm:"type:varchar(200);not null" json:"title"`
	Slug            string          `gorm:"type:varchar(220);uniqueIndex;not null" json:"slug"`
	Description     string          `gorm:"type:text" json:"description"`
	Requirements    JSON            `gorm:"type:jsonb" json:"requirements"`
	SubmissionKind  SubmissionKind  `gorm:"type:varchar(20);not null;default:'text'" json:"submission_kind"`
	RifasPerMission int             `gorm:"not null;default:0" json:"rifas_per_mission"`
	CashbackReward  decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"cashback_reward"`
	IsActive        bool            `gorm:"default:true;index" json:"is_active"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
}

// OpenAt reports whether the mission accepts submissions at the given time
func (m *Mission) OpenAt(t time.Time) bool {
	if !m.IsActive {
		return false
	}
	if m.StartDate != nil && t.Before(*m.StartDate) {
		return false
	}
	if m.EndDate != nil && t.After(*m.EndDate) {
		return false
	}
	return true
}
