package rifas

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/premiads/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrProfileNotFound is returned when the profile does not exist
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidAmount is returned for zero or negative amounts
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance is returned when a debit exceeds the balance
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrMissingReference is returned when a ledger entry has no reference
	ErrMissingReference = errors.New("ledger reference is required")
)

// Service maintains the rifas/cashback ledger. The ledger is the source of
// truth; the cached balances on the profile are updated in the same
// transaction as every entry and repaired by Reconcile if they drift.
type Service struct {
	db *gorm.DB
}

// NewService creates a new rifas ledger service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreditInput describes a balance increase
type CreditInput struct {
	UserID       uuid.UUID
	Rifas        int
	Cashback     decimal.Decimal
	Type         models.TransactionType
	Reference    string
	Description  string
	MissionID    *uuid.UUID
	SubmissionID *uuid.UUID
}

// DebitInput describes a balance decrease (redemptions)
type DebitInput struct {
	UserID      uuid.UUID
	Rifas       int
	Cashback    decimal.Decimal
	Reference   string
	Description string
}

// Credit applies a credit in its own transaction
func (s *Service) Credit(input CreditInput) (*models.RifasTransaction, error) {
	var txn *models.RifasTransaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		txn, txErr = s.CreditInTx(tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// CreditInTx applies a credit inside an existing transaction. Credits are
// idempotent per reference: if an entry with the same reference already
// exists it is returned unchanged and no balance is touched.
func (s *Service) CreditInTx(tx *gorm.DB, input CreditInput) (*models.RifasTransaction, error) {
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, ErrMissingReference
	}
	if input.Rifas < 0 || input.Cashback.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if input.Rifas == 0 && input.Cashback.IsZero() {
		return nil, ErrInvalidAmount
	}

	existing, err := s.getByReference(tx, reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	profile, err := lockProfile(tx, input.UserID)
	if err != nil {
		return nil, err
	}

	before := profile.Rifas
	after := before + input.Rifas
	newCashback := profile.CashbackBalance.Add(input.Cashback)

	if err := tx.Model(&models.Profile{}).Where("id = ?", profile.ID).Updates(map[string]interface{}{
		"rifas":            after,
		"cashback_balance": newCashback,
		"updated_at":       time.Now(),
	}).Error; err != nil {
		return nil, fmt.Errorf("error updating profile balance: %w", err)
	}

	txn := &models.RifasTransaction{
		UserID:       input.UserID,
		MissionID:    input.MissionID,
		SubmissionID: input.SubmissionID,
		Type:         input.Type,
		Rifas:        input.Rifas,
		Cashback:     input.Cashback,
		RifasBefore:  before,
		RifasAfter:   after,
		Reference:    reference,
		Description:  input.Description,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("error creating ledger entry: %w", err)
	}

	return txn, nil
}

// Debit removes rifas and/or cashback from a profile, recording a redemption
// entry. Amounts are given positive and stored negative in the ledger.
func (s *Service) Debit(input DebitInput) (*models.RifasTransaction, error) {
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, ErrMissingReference
	}
	if input.Rifas < 0 || input.Cashback.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if input.Rifas == 0 && input.Cashback.IsZero() {
		return nil, ErrInvalidAmount
	}

	var txn *models.RifasTransaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.getByReference(tx, reference)
		if err != nil {
			return err
		}
		if existing != nil {
			txn = existing
			return nil
		}

		profile, err := lockProfile(tx, input.UserID)
		if err != nil {
			return err
		}

		if profile.Rifas < input.Rifas {
			return ErrInsufficientBalance
		}
		if profile.CashbackBalance.LessThan(input.Cashback) {
			return ErrInsufficientBalance
		}

		before := profile.Rifas
		after := before - input.Rifas
		newCashback := profile.CashbackBalance.Sub(input.Cashback)

		if err := tx.Model(&models.Profile{}).Where("id = ?", profile.ID).Updates(map[string]interface{}{
			"rifas":            after,
			"cashback_balance": newCashback,
			"updated_at":       time.Now(),
		}).Error; err != nil {
			return fmt.Errorf("error updating profile balance: %w", err)
		}

		txn = &models.RifasTransaction{
			UserID:      input.UserID,
			Type:        models.TransactionTypeRedemption,
			Rifas:       -input.Rifas,
			Cashback:    input.Cashback.Neg(),
			RifasBefore: before,
			RifasAfter:  after,
			Reference:   reference,
			Description: input.Description,
		}
		if err := tx.Create(txn).Error; err != nil {
			return fmt.Errorf("error creating ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransactionHistory returns paginated ledger entries for a user
func (s *Service) GetTransactionHistory(userID uuid.UUID, page, pageSize int) ([]models.RifasTransaction, int64, error) {
	var transactions []models.RifasTransaction
	var total int64

	if err := s.db.Model(&models.RifasTransaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting transactions: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").
		Offset(offset).Limit(pageSize).Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding transactions: %w", err)
	}

	return transactions, total, nil
}

// Reconcile recomputes every profile's cached balances from the ledger and
// repairs any drift. Returns the number of profiles corrected.
func (s *Service) Reconcile() (int, error) {
	var profiles []models.Profile
	if err := s.db.Find(&profiles).Error; err != nil {
		return 0, fmt.Errorf("error listing profiles: %w", err)
	}

	corrected := 0
	for _, profile := range profiles {
		type ledgerSum struct {
			Rifas    int
			Cashback decimal.Decimal
		}
		var sum ledgerSum
		if err := s.db.Model(&models.RifasTransaction{}).
			Select("COALESCE(SUM(rifas), 0) AS rifas, COALESCE(SUM(cashback), 0) AS cashback").
			Where("user_id = ?", profile.ID).
			Scan(&sum).Error; err != nil {
			return corrected, fmt.Errorf("error summing ledger for %s: %w", profile.ID, err)
		}

		if profile.Rifas == sum.Rifas && profile.CashbackBalance.Equal(sum.Cashback) {
			continue
		}

		log.Printf("Reconcile: profile %s cached rifas=%d cashback=%s, ledger rifas=%d cashback=%s",
			profile.ID, profile.Rifas, profile.CashbackBalance, sum.Rifas, sum.Cashback)

		if err := s.db.Model(&models.Profile{}).Where("id = ?", profile.ID).Updates(map[string]interface{}{
			"rifas":            sum.Rifas,
			"cashback_balance": sum.Cashback,
			"updated_at":       time.Now(),
		}).Error; err != nil {
			return corrected, fmt.Errorf("error repairing balance for %s: %w", profile.ID, err)
		}
		corrected++
	}

	return corrected, nil
}

func (s *Service) getByReference(tx *gorm.DB, reference string) (*models.RifasTransaction, error) {
	var txn models.RifasTransaction
	err := tx.Where("reference = ?", reference).First(&txn).Error
	if err == nil {
		return &txn, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("error checking ledger reference: %w", err)
}

func lockProfile(tx *gorm.DB, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&profile, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("error locking profile: %w", err)
	}
	return &profile, nil
}
