package mission

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

func setupMissionTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:mission_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.Mission{},
		&models.MissionSubmission{},
	))
	return NewService(db), db
}

func TestCreateMission(t *testing.T) {
	service, _ := setupMissionTest(t)
	advertiserID := uuid.New()

	mission, err := service.Create(CreateInput{
		CreatedBy:       advertiserID,
		Title:           "Poste uma foto no Instagram",
		Description:     "Use a hashtag da campanha",
		SubmissionKind:  models.SubmissionKindCreative,
		RifasPerMission: 30,
		CashbackReward:  decimal.NewFromInt(2),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, mission.Slug)
	assert.True(t, mission.IsActive)

	_, err = service.Create(CreateInput{CreatedBy: advertiserID, Title: "  "})
	assert.Error(t, err)

	_, err = service.Create(CreateInput{CreatedBy: advertiserID, Title: "X", RifasPerMission: -1})
	assert.Error(t, err)
}

func TestRewardFieldsLockAfterFirstSubmission(t *testing.T) {
	service, _ := setupMissionTest(t)
	advertiserID := uuid.New()

	mission, err := service.Create(CreateInput{
		CreatedBy:       advertiserID,
		Title:           "Missão",
		SubmissionKind:  models.SubmissionKindText,
		RifasPerMission: 30,
	})
	require.NoError(t, err)

	newReward := 99
	_, err = service.Update(mission.ID, advertiserID, UpdateInput{RifasPerMission: &newReward})
	require.NoError(t, err)

	_, err = service.Submit(SubmitInput{
		MissionID: mission.ID,
		UserID:    uuid.New(),
		Data:      models.SubmissionData{Kind: models.SubmissionKindText, Text: "feito"},
	})
	require.NoError(t, err)

	_, err = service.Update(mission.ID, advertiserID, UpdateInput{RifasPerMission: &newReward})
	require.NoError(t, err, "unchanged reward value is not a reward edit")

	other := 120
	_, err = service.Update(mission.ID, advertiserID, UpdateInput{RifasPerMission: &other})
	assert.ErrorIs(t, err, ErrRewardLocked)

	// metadata stays editable
	title := "Missão atualizada"
	updated, err := service.Update(mission.ID, advertiserID, UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Missão atualizada", updated.Title)
}

func TestUpdateRequiresOwnership(t *testing.T) {
	service, _ := setupMissionTest(t)
	mission, err := service.Create(CreateInput{
		CreatedBy: uuid.New(), Title: "Missão", SubmissionKind: models.SubmissionKindText,
	})
	require.NoError(t, err)

	title := "Outro título"
	_, err = service.Update(mission.ID, uuid.New(), UpdateInput{Title: &title})
	assert.ErrorIs(t, err, ErrNotMissionOwner)
}

func TestSubmitValidation(t *testing.T) {
	service, _ := setupMissionTest(t)
	mission, err := service.Create(CreateInput{
		CreatedBy: uuid.New(), Title: "Missão de vídeo",
		SubmissionKind: models.SubmissionKindVideo, RifasPerMission: 30,
	})
	require.NoError(t, err)
	userID := uuid.New()

	// wrong payload kind
	_, err = service.Submit(SubmitInput{
		MissionID: mission.ID, UserID: userID,
		Data: models.SubmissionData{Kind: models.SubmissionKindText, Text: "oi"},
	})
	assert.Error(t, err)

	// right kind, missing content
	_, err = service.Submit(SubmitInput{
		MissionID: mission.ID, UserID: userID,
		Data: models.SubmissionData{Kind: models.SubmissionKindVideo},
	})
	assert.Error(t, err)

	sub, err := service.Submit(SubmitInput{
		MissionID: mission.ID, UserID: userID,
		Data: models.SubmissionData{Kind: models.SubmissionKindVideo, VideoURL: "https://example.com/v.mp4"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPendingApproval, sub.Status)
	assert.Equal(t, models.ReviewStageFirstReview, sub.ReviewStage)

	// one attempt in flight
	_, err = service.Submit(SubmitInput{
		MissionID: mission.ID, UserID: userID,
		Data: models.SubmissionData{Kind: models.SubmissionKindVideo, VideoURL: "https://example.com/v2.mp4"},
	})
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestSubmitClosedMission(t *testing.T) {
	service, _ := setupMissionTest(t)
	past := time.Now().Add(-48 * time.Hour)
	closed := time.Now().Add(-24 * time.Hour)
	mission, err := service.Create(CreateInput{
		CreatedBy: uuid.New(), Title: "Expirada",
		SubmissionKind: models.SubmissionKindText,
		StartDate:      &past, EndDate: &closed,
	})
	require.NoError(t, err)

	_, err = service.Submit(SubmitInput{
		MissionID: mission.ID, UserID: uuid.New(),
		Data: models.SubmissionData{Kind: models.SubmissionKindText, Text: "tarde demais"},
	})
	assert.ErrorIs(t, err, ErrMissionClosed)

	_, err = service.Submit(SubmitInput{
		MissionID: uuid.New(), UserID: uuid.New(),
		Data: models.SubmissionData{Kind: models.SubmissionKindText, Text: "oi"},
	})
	assert.ErrorIs(t, err, ErrMissionNotFound)
}

func TestListActive(t *testing.T) {
	service, _ := setupMissionTest(t)
	advertiserID := uuid.New()

	open, err := service.Create(CreateInput{
		CreatedBy: advertiserID, Title: "Aberta", SubmissionKind: models.SubmissionKindText,
	})
	require.NoError(t, err)

	paused, err := service.Create(CreateInput{
		CreatedBy: advertiserID, Title: "Pausada", SubmissionKind: models.SubmissionKindText,
	})
	require.NoError(t, err)
	_, err = service.SetActive(paused.ID, advertiserID, false)
	require.NoError(t, err)

	active, err := service.ListActive(time.Now())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, open.ID, active[0].ID)

	all, err := service.ListByAdvertiser(advertiserID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
