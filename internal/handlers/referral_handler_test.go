package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/premiads/backend/internal/config"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/services/referral"
	"github.com/premiads/backend/internal/services/rifas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupReferralHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:referral_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	referrals := referral.NewService(db, rifas.NewService(db), config.RewardsConfig{
		SignupBonus: 50, CompletionBonus: 200, Bonus3Amigos: 500, Bonus5Amigos: 1000, BilhetesExtras: 3,
	})
	handler := NewReferralHandler(db, referrals)

	router := gin.New()
	router.POST("/api/referrals/actions", handler.Actions)
	return router, db
}

func seedProfile(t *testing.T, db *gorm.DB) *models.Profile {
	t.Helper()
	profile := &models.Profile{
		Email:    fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		FullName: "Alice Souza",
		UserType: models.UserTypeParticipante,
		IsActive: true,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func postAction(t *testing.T, router *gin.Engine, body map[string]interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/referrals/actions", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	return recorder, response
}

func TestActionsValidateCode(t *testing.T) {
	router, db := setupReferralHandlerTest(t)
	owner := seedProfile(t, db)
	require.NoError(t, db.Create(&models.ReferralCode{OwnerID: owner.ID, Code: "ALICE2025"}).Error)

	recorder, response := postAction(t, router, map[string]interface{}{
		"action":       "validate_code",
		"referralCode": "alice2025",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, response["success"])

	data := response["data"].(map[string]interface{})
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "Alice Souza", data["owner_name"])

	_, response = postAction(t, router, map[string]interface{}{
		"action":       "validate_code",
		"referralCode": "UNKNOWN",
	})
	assert.Equal(t, false, response["success"])
	assert.Equal(t, "InvalidCode", response["error"])
}

func TestActionsProcessSignup(t *testing.T) {
	router, db := setupReferralHandlerTest(t)
	owner := seedProfile(t, db)
	require.NoError(t, db.Create(&models.ReferralCode{OwnerID: owner.ID, Code: "ALICE2025"}).Error)
	newUser := seedProfile(t, db)

	_, response := postAction(t, router, map[string]interface{}{
		"action":       "process_signup",
		"userId":       newUser.ID,
		"referralCode": "ALICE2025",
	})
	assert.Equal(t, true, response["success"])

	var stored models.Profile
	require.NoError(t, db.First(&stored, "id = ?", newUser.ID).Error)
	assert.Equal(t, 50, stored.Rifas)

	// self referral surfaces the taxonomy name
	_, response = postAction(t, router, map[string]interface{}{
		"action":       "process_signup",
		"userId":       owner.ID,
		"referralCode": "ALICE2025",
	})
	assert.Equal(t, false, response["success"])
	assert.Equal(t, "SelfReferral", response["error"])
}

func TestActionsGetStats(t *testing.T) {
	router, db := setupReferralHandlerTest(t)
	owner := seedProfile(t, db)
	require.NoError(t, db.Create(&models.ReferralCode{OwnerID: owner.ID, Code: "ALICE2025"}).Error)

	_, response := postAction(t, router, map[string]interface{}{
		"action": "get_stats",
		"userId": owner.ID,
	})
	assert.Equal(t, true, response["success"])
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "ALICE2025", data["code"])

	recorder, response := postAction(t, router, map[string]interface{}{
		"action": "get_stats",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, false, response["success"])
}

func TestActionsUnknownAction(t *testing.T) {
	router, _ := setupReferralHandlerTest(t)
	recorder, response := postAction(t, router, map[string]interface{}{
		"action": "explode",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, false, response["success"])
}
