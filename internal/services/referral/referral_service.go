package referral

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/premiads/backend/internal/config"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/services/rifas"
	"github.com/premiads/backend/internal/utils"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCode is returned when a referral code does not exist or its owner is inactive
	ErrInvalidCode = errors.New("invalid referral code")

	// ErrSelfReferral is returned when a user applies their own referral code
	ErrSelfReferral = errors.New("cannot use your own referral code")
)

// Service manages referral codes, indicações and referral bonuses
type Service struct {
	db      *gorm.DB
	ledger  *rifas.Service
	rewards config.RewardsConfig
}

// NewService creates a new referral service
func NewService(db *gorm.DB, ledger *rifas.Service, rewards config.RewardsConfig) *Service {
	return &Service{db: db, ledger: ledger, rewards: rewards}
}

// Stats summarizes a referrer's indicações
type Stats struct {
	Code               string `json:"code"`
	TotalReferrals     int64  `json:"total_referrals"`
	PendingReferrals   int64  `json:"pending_referrals"`
	CompletedReferrals int64  `json:"completed_referrals"`
	MilestoneRifas     int    `json:"milestone_rifas"`
}

// GetOrCreateCode returns the user's referral code, creating one on first use
func (s *Service) GetOrCreateCode(ownerID uuid.UUID) (*models.ReferralCode, error) {
	var code models.ReferralCode
	err := s.db.Where("owner_id = ?", ownerID).First(&code).Error
	if err == nil {
		return &code, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error finding referral code: %w", err)
	}

	// retry on the rare code collision
	for attempt := 0; attempt < 5; attempt++ {
		code = models.ReferralCode{OwnerID: ownerID, Code: utils.GenerateReferralCode(8)}
		if err := s.db.Create(&code).Error; err == nil {
			return &code, nil
		}
		// the owner may have raced us
		if err := s.db.Where("owner_id = ?", ownerID).First(&code).Error; err == nil {
			return &code, nil
		}
	}
	return nil, errors.New("could not allocate a unique referral code")
}

// ValidateCode resolves a referral code to its record. Unknown codes and
// codes owned by inactive profiles are both invalid.
func (s *Service) ValidateCode(raw string) (*models.ReferralCode, error) {
	normalized := utils.NormalizeReferralCode(raw)
	if normalized == "" {
		return nil, ErrInvalidCode
	}

	var code models.ReferralCode
	if err := s.db.Where("code = ?", normalized).First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("error finding referral code: %w", err)
	}

	var owner models.Profile
	if err := s.db.First(&owner, "id = ?", code.OwnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("error finding code owner: %w", err)
	}
	if !owner.IsActive {
		return nil, ErrInvalidCode
	}

	return &code, nil
}

// ProcessSignup records an indicação for a newly signed-up user and grants
// the signup bonus. A user can be referred at most once for life: if an
// indicação already exists for them this is a success no-op, whatever code
// was supplied.
func (s *Service) ProcessSignup(userID uuid.UUID, rawCode string) (*models.Referral, error) {
	code, err := s.ValidateCode(rawCode)
	if err != nil {
		return nil, err
	}
	if code.OwnerID == userID {
		return nil, ErrSelfReferral
	}

	existing, err := s.referralForUser(s.db, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	referral := &models.Referral{
		ReferralCodeID: code.ID,
		ReferredUserID: userID,
		Status:         models.ReferralStatusPendente,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(referral).Error; err != nil {
			return err
		}
		_, err := s.ledger.CreditInTx(tx, rifas.CreditInput{
			UserID:      userID,
			Rifas:       s.rewards.SignupBonus,
			Type:        models.TransactionTypeBonus,
			Reference:   fmt.Sprintf("referral_signup:%s", referral.ID),
			Description: "Bônus de cadastro por indicação",
		})
		return err
	})
	if err != nil {
		// a concurrent signup may have won the unique referred_user_id race
		if existing, findErr := s.referralForUser(s.db, userID); findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("error recording referral: %w", err)
	}

	return referral, nil
}

// ProcessMissionCompletion promotes the user's pending indicação to completo
// and pays the referrer. Invoked by moderation after an approval; it only
// acts when this is the user's first approved submission ever, so repeated
// approvals never pay twice.
func (s *Service) ProcessMissionCompletion(userID uuid.UUID) error {
	var approvedCount int64
	if err := s.db.Model(&models.MissionSubmission{}).
		Where("user_id = ? AND status = ?", userID, models.SubmissionStatusApproved).
		Count(&approvedCount).Error; err != nil {
		return fmt.Errorf("error counting approved submissions: %w", err)
	}
	if approvedCount != 1 {
		return nil
	}

	referral, err := s.referralForUser(s.db, userID)
	if err != nil {
		return err
	}
	if referral == nil || referral.Status != models.ReferralStatusPendente {
		return nil
	}

	var code models.ReferralCode
	if err := s.db.First(&code, "id = ?", referral.ReferralCodeID).Error; err != nil {
		return fmt.Errorf("error finding referral code: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.Referral{}).
			Where("id = ? AND status = ?", referral.ID, models.ReferralStatusPendente).
			Updates(map[string]interface{}{
				"status":       models.ReferralStatusCompleto,
				"completed_at": now,
				"updated_at":   now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// already completed by a concurrent invocation
			return nil
		}
		_, err := s.ledger.CreditInTx(tx, rifas.CreditInput{
			UserID:      code.OwnerID,
			Rifas:       s.rewards.CompletionBonus,
			Type:        models.TransactionTypeBonus,
			Reference:   fmt.Sprintf("referral_completion:%s", referral.ID),
			Description: "Bônus por indicação completa",
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("error completing referral: %w", err)
	}

	s.grantMilestones(&code, referral.ID)
	return nil
}

// GetStats returns the referral summary for a user, creating their code if needed
func (s *Service) GetStats(userID uuid.UUID) (*Stats, error) {
	code, err := s.GetOrCreateCode(userID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Code: code.Code}
	if err := s.db.Model(&models.Referral{}).
		Where("referral_code_id = ?", code.ID).Count(&stats.TotalReferrals).Error; err != nil {
		return nil, fmt.Errorf("error counting referrals: %w", err)
	}
	if err := s.db.Model(&models.Referral{}).
		Where("referral_code_id = ? AND status = ?", code.ID, models.ReferralStatusCompleto).
		Count(&stats.CompletedReferrals).Error; err != nil {
		return nil, fmt.Errorf("error counting completed referrals: %w", err)
	}
	stats.PendingReferrals = stats.TotalReferrals - stats.CompletedReferrals

	type sumRow struct{ Total int }
	var sum sumRow
	if err := s.db.Model(&models.ReferralMilestoneReward{}).
		Select("COALESCE(SUM(rifas), 0) AS total").
		Where("referral_code_id = ?", code.ID).
		Scan(&sum).Error; err != nil {
		return nil, fmt.Errorf("error summing milestone rewards: %w", err)
	}
	stats.MilestoneRifas = sum.Total

	return stats, nil
}

// grantMilestones pays the referrer's milestone bonuses after a completion.
// Grants are best-effort: a failed write is logged and retried naturally on
// the next completion (tiered bonuses) or lost (bilhetes), never rolling
// back the referral itself.
func (s *Service) grantMilestones(code *models.ReferralCode, completedReferralID uuid.UUID) {
	var completed int64
	if err := s.db.Model(&models.Referral{}).
		Where("referral_code_id = ? AND status = ?", code.ID, models.ReferralStatusCompleto).
		Count(&completed).Error; err != nil {
		log.Printf("LedgerWriteFailure: counting completions for code %s: %v", code.ID, err)
		return
	}

	// every completion adds bilhetes extras
	if err := s.grantMilestone(code, models.MilestoneBilhetesExtras, s.rewards.BilhetesExtras,
		fmt.Sprintf("referral_bilhetes:%s", completedReferralID),
		"Bilhetes extras por indicação completa"); err != nil {
		log.Printf("LedgerWriteFailure: bilhetes_extras for code %s: %v", code.ID, err)
	}

	if completed >= 3 {
		if err := s.grantUniqueMilestone(code, models.MilestoneBonus3Amigos, s.rewards.Bonus3Amigos,
			"Bônus 3 amigos"); err != nil {
			log.Printf("LedgerWriteFailure: bonus_3_amigos for code %s: %v", code.ID, err)
		}
	}
	if completed >= 5 {
		if err := s.grantUniqueMilestone(code, models.MilestoneBonus5Amigos, s.rewards.Bonus5Amigos,
			"Bônus 5 amigos"); err != nil {
			log.Printf("LedgerWriteFailure: bonus_5_amigos for code %s: %v", code.ID, err)
		}
	}
}

func (s *Service) grantUniqueMilestone(code *models.ReferralCode, tipo models.MilestoneType, amount int, description string) error {
	var count int64
	if err := s.db.Model(&models.ReferralMilestoneReward{}).
		Where("referral_code_id = ? AND tipo = ?", code.ID, tipo).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.grantMilestone(code, tipo, amount,
		fmt.Sprintf("referral_milestone:%s:%s", tipo, code.ID), description)
}

func (s *Service) grantMilestone(code *models.ReferralCode, tipo models.MilestoneType, amount int, reference, description string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		reward := &models.ReferralMilestoneReward{
			ReferralCodeID: code.ID,
			Tipo:           tipo,
			Rifas:          amount,
		}
		if err := tx.Create(reward).Error; err != nil {
			return err
		}
		_, err := s.ledger.CreditInTx(tx, rifas.CreditInput{
			UserID:      code.OwnerID,
			Rifas:       amount,
			Type:        models.TransactionTypeBonus,
			Reference:   reference,
			Description: description,
		})
		return err
	})
}

func (s *Service) referralForUser(db *gorm.DB, userID uuid.UUID) (*models.Referral, error) {
	var referral models.Referral
	err := db.Where("referred_user_id = ?", userID).First(&referral).Error
	if err == nil {
		return &referral, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("error finding referral: %w", err)
}
