package referral

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/premiads/backend/internal/config"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/services/rifas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testRewards() config.RewardsConfig {
	return config.RewardsConfig{
		SignupBonus:     50,
		CompletionBonus: 200,
		Bonus3Amigos:    500,
		Bonus5Amigos:    1000,
		BilhetesExtras:  3,
	}
}

func setupReferralTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:referral_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.Mission{},
		&models.MissionSubmission{},
		&models.RifasTransaction{},
		&models.ReferralCode{},
		&models.Referral{},
		&models.ReferralMilestoneReward{},
	))
	ledger := rifas.NewService(db)
	return NewService(db, ledger, testRewards()), db
}

func createProfile(t *testing.T, db *gorm.DB, userType models.UserType) *models.Profile {
	t.Helper()
	profile := &models.Profile{
		Email:    fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		FullName: "Test User",
		UserType: userType,
		IsActive: true,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func createCode(t *testing.T, db *gorm.DB, owner *models.Profile, code string) *models.ReferralCode {
	t.Helper()
	rc := &models.ReferralCode{OwnerID: owner.ID, Code: code}
	require.NoError(t, db.Create(rc).Error)
	return rc
}

func profileRifas(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var profile models.Profile
	require.NoError(t, db.First(&profile, "id = ?", id).Error)
	return profile.Rifas
}

func createApprovedSubmission(t *testing.T, db *gorm.DB, userID uuid.UUID) {
	t.Helper()
	sub := &models.MissionSubmission{
		MissionID:   uuid.New(),
		UserID:      userID,
		Status:      models.SubmissionStatusApproved,
		ReviewStage: models.ReviewStageAdvertiser,
		SubmissionData: models.SubmissionData{
			Kind: models.SubmissionKindText,
			Text: "feito",
		},
		SubmittedAt: time.Now(),
	}
	require.NoError(t, db.Create(sub).Error)
}

func TestValidateCode(t *testing.T) {
	service, db := setupReferralTest(t)
	owner := createProfile(t, db, models.UserTypeParticipante)
	createCode(t, db, owner, "ALICE2025")

	code, err := service.ValidateCode("alice2025")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, code.OwnerID)

	_, err = service.ValidateCode("NOPE")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = service.ValidateCode("  ")
	assert.ErrorIs(t, err, ErrInvalidCode)

	require.NoError(t, db.Model(&models.Profile{}).Where("id = ?", owner.ID).Update("is_active", false).Error)
	_, err = service.ValidateCode("ALICE2025")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestProcessSignup(t *testing.T) {
	service, db := setupReferralTest(t)
	owner := createProfile(t, db, models.UserTypeParticipante)
	createCode(t, db, owner, "ALICE2025")
	newUser := createProfile(t, db, models.UserTypeParticipante)

	referral, err := service.ProcessSignup(newUser.ID, "ALICE2025")
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusPendente, referral.Status)
	assert.Equal(t, 50, profileRifas(t, db, newUser.ID))

	// applying any code again is a success no-op
	other := createProfile(t, db, models.UserTypeParticipante)
	createCode(t, db, other, "BOB2025")
	again, err := service.ProcessSignup(newUser.ID, "BOB2025")
	require.NoError(t, err)
	assert.Equal(t, referral.ID, again.ID)
	assert.Equal(t, 50, profileRifas(t, db, newUser.ID))

	var count int64
	require.NoError(t, db.Model(&models.Referral{}).Where("referred_user_id = ?", newUser.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProcessSignupSelfReferral(t *testing.T) {
	service, db := setupReferralTest(t)
	owner := createProfile(t, db, models.UserTypeParticipante)
	createCode(t, db, owner, "ALICE2025")

	_, err := service.ProcessSignup(owner.ID, "ALICE2025")
	assert.ErrorIs(t, err, ErrSelfReferral)
	assert.Equal(t, 0, profileRifas(t, db, owner.ID))

	var count int64
	require.NoError(t, db.Model(&models.Referral{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestProcessMissionCompletion(t *testing.T) {
	service, db := setupReferralTest(t)
	owner := createProfile(t, db, models.UserTypeParticipante)
	createCode(t, db, owner, "ALICE2025")
	referred := createProfile(t, db, models.UserTypeParticipante)

	_, err := service.ProcessSignup(referred.ID, "ALICE2025")
	require.NoError(t, err)

	createApprovedSubmission(t, db, referred.ID)
	require.NoError(t, service.ProcessMissionCompletion(referred.ID))

	var referral models.Referral
	require.NoError(t, db.First(&referral, "referred_user_id = ?", referred.ID).Error)
	assert.Equal(t, models.ReferralStatusCompleto, referral.Status)
	require.NotNil(t, referral.CompletedAt)

	// referrer earns the completion bonus plus bilhetes extras
	assert.Equal(t, 203, profileRifas(t, db, owner.ID))

	// a repeated invocation changes nothing
	require.NoError(t, service.ProcessMissionCompletion(referred.ID))
	assert.Equal(t, 203, profileRifas(t, db, owner.ID))
}

func TestProcessMissionCompletionRequiresFirstApproval(t *testing.T) {
	service, db := setupReferralTest(t)
	owner := createProfile(t, db, models.UserTypeParticipante)
	createCode(t, db, owner, "ALICE2025")
	referred := createProfile(t, db, models.UserTypeParticipante)

	_, err := service.ProcessSignup(referred.ID, "ALICE2025")
	require.NoError(t, err)

	// no approvals yet: no-op
	require.NoError(t, service.ProcessMissionCompletion(referred.ID))
	assert.Equal(t, 0, profileRifas(t, db, owner.ID))

	// two approvals: past the first, still a no-op
	createApprovedSubmission(t, db, referred.ID)
	createApprovedSubmission(t, db, referred.ID)
	require.NoError(t, service.ProcessMissionCompletion(referred.ID))
	assert.Equal(t, 0, profileRifas(t, db, owner.ID))

	var referral models.Referral
	require.NoError(t, db.First(&referral, "referred_user_id = ?", referred.ID).Error)
	assert.Equal(t, models.ReferralStatusPendente, referral.Status)
}

func TestMilestoneBonuses(t *testing.T) {
	service, db := setupReferralTest(t)
	owner := createProfile(t, db, models.UserTypeParticipante)
	code := createCode(t, db, owner, "ALICE2025")

	completeReferral := func(n int) {
		referred := createProfile(t, db, models.UserTypeParticipante)
		_, err := service.ProcessSignup(referred.ID, "ALICE2025")
		require.NoError(t, err, "signup %d", n)
		createApprovedSubmission(t, db, referred.ID)
		require.NoError(t, service.ProcessMissionCompletion(referred.ID), "completion %d", n)
	}

	for i := 1; i <= 2; i++ {
		completeReferral(i)
	}
	var count int64
	require.NoError(t, db.Model(&models.ReferralMilestoneReward{}).
		Where("referral_code_id = ? AND tipo = ?", code.ID, models.MilestoneBonus3Amigos).
		Count(&count).Error)
	assert.Equal(t, int64(0), count)

	completeReferral(3)
	require.NoError(t, db.Model(&models.ReferralMilestoneReward{}).
		Where("referral_code_id = ? AND tipo = ?", code.ID, models.MilestoneBonus3Amigos).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// a 4th completion never re-grants the 3-friend bonus
	completeReferral(4)
	require.NoError(t, db.Model(&models.ReferralMilestoneReward{}).
		Where("referral_code_id = ? AND tipo = ?", code.ID, models.MilestoneBonus3Amigos).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	completeReferral(5)
	require.NoError(t, db.Model(&models.ReferralMilestoneReward{}).
		Where("referral_code_id = ? AND tipo = ?", code.ID, models.MilestoneBonus5Amigos).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// bilhetes extras accumulate one row per completion
	require.NoError(t, db.Model(&models.ReferralMilestoneReward{}).
		Where("referral_code_id = ? AND tipo = ?", code.ID, models.MilestoneBilhetesExtras).
		Count(&count).Error)
	assert.Equal(t, int64(5), count)

	// 5 completions * 200 + 5 * 3 bilhetes + 500 + 1000
	assert.Equal(t, 5*200+5*3+500+1000, profileRifas(t, db, owner.ID))
}

func TestGetStats(t *testing.T) {
	service, db := setupReferralTest(t)
	owner := createProfile(t, db, models.UserTypeParticipante)
	createCode(t, db, owner, "ALICE2025")

	referred := createProfile(t, db, models.UserTypeParticipante)
	_, err := service.ProcessSignup(referred.ID, "ALICE2025")
	require.NoError(t, err)

	stats, err := service.GetStats(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "ALICE2025", stats.Code)
	assert.Equal(t, int64(1), stats.TotalReferrals)
	assert.Equal(t, int64(1), stats.PendingReferrals)
	assert.Equal(t, int64(0), stats.CompletedReferrals)
}

func TestGetOrCreateCode(t *testing.T) {
	service, db := setupReferralTest(t)
	owner := createProfile(t, db, models.UserTypeParticipante)

	code, err := service.GetOrCreateCode(owner.ID)
	require.NoError(t, err)
	assert.Len(t, code.Code, 8)

	same, err := service.GetOrCreateCode(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, code.ID, same.ID)
}
