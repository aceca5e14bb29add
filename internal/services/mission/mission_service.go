package mission

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrMissionNotFound is returned when the mission does not exist
	ErrMissionNotFound = errors.New("mission not found")

	// ErrMissionClosed is returned when the mission is inactive or outside
	// its submission window
	ErrMissionClosed = errors.New("mission is not accepting submissions")

	// ErrNotMissionOwner is returned when an advertiser touches a mission
	// they do not own
	ErrNotMissionOwner = errors.New("mission belongs to another advertiser")

	// ErrRewardLocked is returned when reward fields are changed after
	// submissions exist
	ErrRewardLocked = errors.New("reward fields are locked once submissions exist")

	// ErrDuplicateSubmission is returned when the participant already has an
	// open or approved submission for the mission
	ErrDuplicateSubmission = errors.New("an active submission for this mission already exists")
)

// Service manages advertiser missions and participant submissions
type Service struct {
	db *gorm.DB
}

// NewService creates a new mission service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInput carries a new mission
type CreateInput struct {
	CreatedBy       uuid.UUID
	Title           string
	Description     string
	Requirements    models.JSON
	SubmissionKind  models.SubmissionKind
	RifasPerMission int
	CashbackReward  decimal.Decimal
	StartDate       *time.Time
	EndDate         *time.Time
}

// UpdateInput carries mission changes. Nil fields are left untouched.
type UpdateInput struct {
	Title           *string
	Description     *string
	Requirements    models.JSON
	RifasPerMission *int
	CashbackReward  *decimal.Decimal
	IsActive        *bool
	StartDate       *time.Time
	EndDate         *time.Time
}

// Create registers a new mission for an advertiser
func (s *Service) Create(input CreateInput) (*models.Mission, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.New("mission title is required")
	}
	if input.RifasPerMission < 0 || input.CashbackReward.IsNegative() {
		return nil, errors.New("mission rewards cannot be negative")
	}
	kind := input.SubmissionKind
	if kind == "" {
		kind = models.SubmissionKindText
	}
	switch kind {
	case models.SubmissionKindText, models.SubmissionKindFile, models.SubmissionKindCreative, models.SubmissionKindVideo:
	default:
		return nil, fmt.Errorf("unknown submission kind: %q", kind)
	}

	mission := &models.Mission{
		CreatedBy:       input.CreatedBy,
		Title:           title,
		Slug:            utils.MissionSlug(title),
		Description:     strings.TrimSpace(input.Description),
		Requirements:    input.Requirements,
		SubmissionKind:  kind,
		RifasPerMission: input.RifasPerMission,
		CashbackReward:  input.CashbackReward,
		IsActive:        true,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
	}
	if err := s.db.Create(mission).Error; err != nil {
		return nil, fmt.Errorf("error creating mission: %w", err)
	}
	return mission, nil
}

// Update edits a mission. Reward fields lock as soon as the first submission
// arrives; everything else stays editable.
func (s *Service) Update(missionID, advertiserID uuid.UUID, input UpdateInput) (*models.Mission, error) {
	mission, err := s.ownedMission(missionID, advertiserID)
	if err != nil {
		return nil, err
	}

	changesReward := (input.RifasPerMission != nil && *input.RifasPerMission != mission.RifasPerMission) ||
		(input.CashbackReward != nil && !input.CashbackReward.Equal(mission.CashbackReward))
	if changesReward {
		var count int64
		if err := s.db.Model(&models.MissionSubmission{}).
			Where("mission_id = ?", mission.ID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("error counting submissions: %w", err)
		}
		if count > 0 {
			return nil, ErrRewardLocked
		}
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errors.New("mission title is required")
		}
		mission.Title = title
	}
	if input.Description != nil {
		mission.Description = strings.TrimSpace(*input.Description)
	}
	if input.Requirements != nil {
		mission.Requirements = input.Requirements
	}
	if input.RifasPerMission != nil {
		if *input.RifasPerMission < 0 {
			return nil, errors.New("mission rewards cannot be negative")
		}
		mission.RifasPerMission = *input.RifasPerMission
	}
	if input.CashbackReward != nil {
		if input.CashbackReward.IsNegative() {
			return nil, errors.New("mission rewards cannot be negative")
		}
		mission.CashbackReward = *input.CashbackReward
	}
	if input.IsActive != nil {
		mission.IsActive = *input.IsActive
	}
	if input.StartDate != nil {
		mission.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		mission.EndDate = input.EndDate
	}

	if err := s.db.Save(mission).Error; err != nil {
		return nil, fmt.Errorf("error updating mission: %w", err)
	}
	return mission, nil
}

// SetActive toggles whether the mission accepts submissions
func (s *Service) SetActive(missionID, advertiserID uuid.UUID, active bool) (*models.Mission, error) {
	mission, err := s.ownedMission(missionID, advertiserID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(mission).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("error updating mission: %w", err)
	}
	mission.IsActive = active
	return mission, nil
}

// GetByID fetches one mission
func (s *Service) GetByID(missionID uuid.UUID) (*models.Mission, error) {
	var mission models.Mission
	if err := s.db.First(&mission, "id = ?", missionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissionNotFound
		}
		return nil, fmt.Errorf("error finding mission: %w", err)
	}
	return &mission, nil
}

// ListActive returns missions currently open to participants
func (s *Service) ListActive(now time.Time) ([]models.Mission, error) {
	var missions []models.Mission
	err := s.db.
		Where("is_active = ?", true).
		Where("start_date IS NULL OR start_date <= ?", now).
		Where("end_date IS NULL OR end_date >= ?", now).
		Order("created_at DESC").
		Find(&missions).Error
	if err != nil {
		return nil, fmt.Errorf("error listing missions: %w", err)
	}
	return missions, nil
}

// ListByAdvertiser returns all of an advertiser's missions
func (s *Service) ListByAdvertiser(advertiserID uuid.UUID) ([]models.Mission, error) {
	var missions []models.Mission
	if err := s.db.Where("created_by = ?", advertiserID).
		Order("created_at DESC").Find(&missions).Error; err != nil {
		return nil, fmt.Errorf("error listing missions: %w", err)
	}
	return missions, nil
}

// SubmitInput carries a participant's proof for a mission
type SubmitInput struct {
	MissionID uuid.UUID
	UserID    uuid.UUID
	Data      models.SubmissionData
}

// Submit creates a pending submission after validating the typed payload
// against the mission's expected kind.
func (s *Service) Submit(input SubmitInput) (*models.MissionSubmission, error) {
	mission, err := s.GetByID(input.MissionID)
	if err != nil {
		return nil, err
	}
	if !mission.OpenAt(time.Now()) {
		return nil, ErrMissionClosed
	}

	if input.Data.Kind != mission.SubmissionKind {
		return nil, fmt.Errorf("mission expects a %s submission", mission.SubmissionKind)
	}
	if err := input.Data.Validate(); err != nil {
		return nil, err
	}

	// one attempt in flight per participant; a rejected one may be retried
	var count int64
	if err := s.db.Model(&models.MissionSubmission{}).
		Where("mission_id = ? AND user_id = ? AND status != ?",
			mission.ID, input.UserID, models.SubmissionStatusRejected).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("error checking existing submissions: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateSubmission
	}

	submission := &models.MissionSubmission{
		MissionID:      mission.ID,
		UserID:         input.UserID,
		Status:         models.SubmissionStatusPendingApproval,
		ReviewStage:    models.ReviewStageFirstReview,
		SubmissionData: input.Data,
		SubmittedAt:    time.Now(),
	}
	if err := s.db.Create(submission).Error; err != nil {
		return nil, fmt.Errorf("error creating submission: %w", err)
	}
	return submission, nil
}

// ListSubmissionsByUser returns a participant's submissions, newest first
func (s *Service) ListSubmissionsByUser(userID uuid.UUID) ([]models.MissionSubmission, error) {
	var submissions []models.MissionSubmission
	if err := s.db.Where("user_id = ?", userID).
		Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("error listing submissions: %w", err)
	}
	return submissions, nil
}

func (s *Service) ownedMission(missionID, advertiserID uuid.UUID) (*models.Mission, error) {
	mission, err := s.GetByID(missionID)
	if err != nil {
		return nil, err
	}
	if mission.CreatedBy != advertiserID {
		return nil, ErrNotMissionOwner
	}
	return mission, nil
}
