package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserType identifies the role a profile plays on the platform
type UserType string

const (
	UserTypeParticipante UserType = "participante"
	UserTypeAnunciante   UserType = "anunciante"
	UserTypeAdmin        UserType = "admin"
	UserTypeModerator    UserType = "moderator"
)

// Profile represents an account on the platform. Rifas and CashbackBalance are
// cached projections of the rifas_transactions ledger; every mutation of either
// must be paired with a ledger entry, and the reconciliation job repairs drift.
type Profile struct {
	Base
	Email           string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName        string          `gorm:"type:varchar(150)" json:"full_name"`
	PasswordHash    string          `gorm:"type:varchar(255);not null" json:"-"`
	UserType        UserType        `gorm:"type:varchar(20);not null;default:'participante'" json:"user_type"`
	Rifas           int             `gorm:"not null;default:0" json:"rifas"`
	CashbackBalance decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"cashback_balance"`
	IsActive        bool            `gorm:"default:true" json:"is_active"`
	LastLoginAt     *time.Time      `json:"last_login_at,omitempty"`
}

// IsModerator reports whether the profile may review second-instance submissions
func (p *Profile) IsModerator() bool {
	return p.UserType == UserTypeAdmin || p.UserType == UserTypeModerator
}
