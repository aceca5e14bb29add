package rifas

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/premiads/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:rifas_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Profile{}, &models.RifasTransaction{}))
	return db
}

func createTestProfile(t *testing.T, db *gorm.DB) *models.Profile {
	t.Helper()
	profile := &models.Profile{
		Email:    fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		FullName: "Test User",
		UserType: models.UserTypeParticipante,
		IsActive: true,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func TestCreditUpdatesBalanceAndLedger(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	profile := createTestProfile(t, db)

	txn, err := service.Credit(CreditInput{
		UserID:      profile.ID,
		Rifas:       200,
		Cashback:    decimal.NewFromInt(5),
		Type:        models.TransactionTypeBonus,
		Reference:   "referral_completion:abc",
		Description: "Bônus de indicação completa",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, txn.RifasBefore)
	assert.Equal(t, 200, txn.RifasAfter)
	assert.Equal(t, 200, txn.Rifas)

	var updated models.Profile
	require.NoError(t, db.First(&updated, "id = ?", profile.ID).Error)
	assert.Equal(t, 200, updated.Rifas)
	assert.True(t, updated.CashbackBalance.Equal(decimal.NewFromInt(5)))
}

func TestCreditIsIdempotentPerReference(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	profile := createTestProfile(t, db)

	input := CreditInput{
		UserID:    profile.ID,
		Rifas:     50,
		Type:      models.TransactionTypeBonus,
		Reference: "referral_signup:xyz",
	}

	first, err := service.Credit(input)
	require.NoError(t, err)

	second, err := service.Credit(input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var updated models.Profile
	require.NoError(t, db.First(&updated, "id = ?", profile.ID).Error)
	assert.Equal(t, 50, updated.Rifas)

	var count int64
	require.NoError(t, db.Model(&models.RifasTransaction{}).Where("user_id = ?", profile.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreditValidation(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	profile := createTestProfile(t, db)

	_, err := service.Credit(CreditInput{UserID: profile.ID, Rifas: 10, Type: models.TransactionTypeBonus})
	assert.ErrorIs(t, err, ErrMissingReference)

	_, err = service.Credit(CreditInput{UserID: profile.ID, Rifas: 0, Type: models.TransactionTypeBonus, Reference: "r1"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = service.Credit(CreditInput{UserID: profile.ID, Rifas: -5, Type: models.TransactionTypeBonus, Reference: "r2"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = service.Credit(CreditInput{UserID: uuid.New(), Rifas: 10, Type: models.TransactionTypeBonus, Reference: "r3"})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestDebit(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	profile := createTestProfile(t, db)

	_, err := service.Credit(CreditInput{
		UserID:    profile.ID,
		Rifas:     100,
		Type:      models.TransactionTypeBonus,
		Reference: "seed",
	})
	require.NoError(t, err)

	txn, err := service.Debit(DebitInput{
		UserID:      profile.ID,
		Rifas:       40,
		Reference:   "redeem:1",
		Description: "Resgate de prêmio",
	})
	require.NoError(t, err)
	assert.Equal(t, -40, txn.Rifas)
	assert.Equal(t, 100, txn.RifasBefore)
	assert.Equal(t, 60, txn.RifasAfter)

	_, err = service.Debit(DebitInput{UserID: profile.ID, Rifas: 1000, Reference: "redeem:2"})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	var updated models.Profile
	require.NoError(t, db.First(&updated, "id = ?", profile.ID).Error)
	assert.Equal(t, 60, updated.Rifas)
}

func TestReconcileRepairsDriftedBalances(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	profile := createTestProfile(t, db)

	_, err := service.Credit(CreditInput{
		UserID:    profile.ID,
		Rifas:     75,
		Type:      models.TransactionTypeMissionReward,
		Reference: "mission:1",
	})
	require.NoError(t, err)

	// simulate a drifted cache
	require.NoError(t, db.Model(&models.Profile{}).Where("id = ?", profile.ID).Update("rifas", 9999).Error)

	corrected, err := service.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 1, corrected)

	var updated models.Profile
	require.NoError(t, db.First(&updated, "id = ?", profile.ID).Error)
	assert.Equal(t, 75, updated.Rifas)

	corrected, err = service.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 0, corrected)
}

func TestGetTransactionHistory(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	profile := createTestProfile(t, db)

	for i := 0; i < 3; i++ {
		_, err := service.Credit(CreditInput{
			UserID:    profile.ID,
			Rifas:     10,
			Type:      models.TransactionTypeBonus,
			Reference: fmt.Sprintf("bonus:%d", i),
		})
		require.NoError(t, err)
	}

	transactions, total, err := service.GetTransactionHistory(profile.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, transactions, 2)
}
