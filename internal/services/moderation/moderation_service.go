package moderation

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/premiads/backend/internal/config"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/services/rifas"
	"gorm.io/gorm"
)

// Decision is a moderator's ruling on a submission
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Stage identifies which review tier is issuing the decision
type Stage string

const (
	StageAdvertiserFirst Stage = "advertiser_first"
	StageAdmin           Stage = "admin"
	StageAdvertiserFinal Stage = "advertiser_final"
)

var (
	// ErrSubmissionNotFound is returned when the submission does not exist
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrInvalidTransition is returned when the decision is not legal for the
	// submission's current status and stage
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorizedStage is returned when the moderator lacks permission
	// for the requested stage
	ErrUnauthorizedStage = errors.New("moderator not authorized for this stage")

	// ErrAlreadyFinalized is returned when deciding on a terminal submission
	ErrAlreadyFinalized = errors.New("submission already finalized")

	// ErrMissingReason is returned when a rejection carries no reason
	ErrMissingReason = errors.New("rejection requires a reason")
)

// ReferralCompleter is notified after a submission approval so the referral
// ledger can promote the user's pending indicação.
type ReferralCompleter interface {
	ProcessMissionCompletion(userID uuid.UUID) error
}

// Notifier delivers fire-and-forget user notifications
type Notifier interface {
	Notify(userID uuid.UUID, notificationType, title, message string)
}

type transitionKey struct {
	status   models.SubmissionStatus
	stage    Stage
	decision Decision
}

type transitionOutcome struct {
	status         models.SubmissionStatus
	secondInstance *models.SecondInstanceStatus
	reviewStage    models.ReviewStage
	grantsReward   bool
	// advertiser first-review rejections are policy routed: terminal
	// rejection or escalation to the second instance
	policyRouted bool
}

func secondInstancePtr(s models.SecondInstanceStatus) *models.SecondInstanceStatus {
	return &s
}

// transitions is the closed legal edge set. Any (status, stage, decision)
// triple not listed here is rejected outright.
var transitions = map[transitionKey]transitionOutcome{
	{models.SubmissionStatusPendingApproval, StageAdvertiserFirst, DecisionApprove}: {
		status:       models.SubmissionStatusApproved,
		reviewStage:  models.ReviewStageFirstReview,
		grantsReward: true,
	},
	{models.SubmissionStatusPendingApproval, StageAdvertiserFirst, DecisionReject}: {
		policyRouted: true,
	},
	{models.SubmissionStatusSecondInstance, StageAdmin, DecisionApprove}: {
		status:         models.SubmissionStatusReturnedToAdvertiser,
		secondInstance: secondInstancePtr(models.SecondInstanceApproved),
		reviewStage:    models.ReviewStageAdvertiser,
	},
	{models.SubmissionStatusSecondInstance, StageAdmin, DecisionReject}: {
		status:         models.SubmissionStatusRejected,
		secondInstance: secondInstancePtr(models.SecondInstanceRejected),
		reviewStage:    models.ReviewStageSecondInstance,
	},
	{models.SubmissionStatusReturnedToAdvertiser, StageAdvertiserFinal, DecisionApprove}: {
		status:       models.SubmissionStatusApproved,
		reviewStage:  models.ReviewStageAdvertiser,
		grantsReward: true,
	},
	{models.SubmissionStatusReturnedToAdvertiser, StageAdvertiserFinal, DecisionReject}: {
		status:      models.SubmissionStatusRejected,
		reviewStage: models.ReviewStageAdvertiser,
	},
}

// Service enforces the submission moderation state machine and issues mission
// rewards exactly once per approved submission.
type Service struct {
	db        *gorm.DB
	ledger    *rifas.Service
	referrals ReferralCompleter
	notifier  Notifier
	policy    config.ModerationConfig
}

// NewService creates a new moderation service. referrals and notifier may be
// nil; the corresponding side effects are then skipped.
func NewService(db *gorm.DB, ledger *rifas.Service, referrals ReferralCompleter, notifier Notifier, policy config.ModerationConfig) *Service {
	return &Service{db: db, ledger: ledger, referrals: referrals, notifier: notifier, policy: policy}
}

// FinalizeInput carries one moderation decision
type FinalizeInput struct {
	SubmissionID uuid.UUID
	ModeratorID  uuid.UUID
	Decision     Decision
	Stage        Stage
	Reason       string
}

// FinalizeSubmission applies a moderation decision. The status update is
// guarded by the current status, so concurrent decisions on the same
// submission resolve to exactly one winner; reward issuance is additionally
// guarded by the one-reward-per-submission ledger constraint.
func (s *Service) FinalizeSubmission(input FinalizeInput) (*models.MissionSubmission, error) {
	if input.Decision != DecisionApprove && input.Decision != DecisionReject {
		return nil, ErrInvalidTransition
	}

	var submission models.MissionSubmission
	if err := s.db.First(&submission, "id = ?", input.SubmissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("error finding submission: %w", err)
	}

	if submission.IsTerminal() {
		return nil, ErrAlreadyFinalized
	}

	outcome, ok := transitions[transitionKey{submission.Status, input.Stage, input.Decision}]
	if !ok {
		return nil, ErrInvalidTransition
	}
	if outcome.policyRouted {
		outcome = s.routeFirstRejection()
	}

	var mission models.Mission
	if err := s.db.First(&mission, "id = ?", submission.MissionID).Error; err != nil {
		return nil, fmt.Errorf("error finding mission: %w", err)
	}

	if err := s.authorize(input.ModeratorID, input.Stage, &mission); err != nil {
		return nil, err
	}

	if input.Decision == DecisionReject && strings.TrimSpace(input.Reason) == "" {
		return nil, ErrMissingReason
	}

	data := submission.SubmissionData
	switch input.Stage {
	case StageAdvertiserFirst, StageAdvertiserFinal:
		if input.Decision == DecisionReject {
			data.AdvertiserRejectionReason = strings.TrimSpace(input.Reason)
		}
	case StageAdmin:
		if input.Decision == DecisionReject {
			data.AdminRejectionReason = strings.TrimSpace(input.Reason)
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := map[string]interface{}{
			"status":          outcome.status,
			"review_stage":    outcome.reviewStage,
			"submission_data": data,
			"validated_by":    input.ModeratorID,
			"updated_at":      now,
		}
		if outcome.secondInstance != nil {
			updates["second_instance_status"] = *outcome.secondInstance
		}

		result := tx.Model(&models.MissionSubmission{}).
			Where("id = ? AND status = ?", submission.ID, submission.Status).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("error updating submission: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyFinalized
		}

		if outcome.grantsReward {
			if err := s.issueRewardInTx(tx, &submission, &mission); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	submission.Status = outcome.status
	submission.ReviewStage = outcome.reviewStage
	submission.SubmissionData = data
	submission.ValidatedBy = &input.ModeratorID
	if outcome.secondInstance != nil {
		submission.SecondInstanceStatus = outcome.secondInstance
	}

	s.afterFinalize(&submission, &mission)
	return &submission, nil
}

// routeFirstRejection resolves the policy-configured destination of an
// advertiser first-review rejection.
func (s *Service) routeFirstRejection() transitionOutcome {
	if s.policy.RejectEscalates {
		return transitionOutcome{
			status:         models.SubmissionStatusSecondInstance,
			secondInstance: secondInstancePtr(models.SecondInstancePendingAdminReview),
			reviewStage:    models.ReviewStageSecondInstance,
		}
	}
	return transitionOutcome{
		status:      models.SubmissionStatusRejected,
		reviewStage: models.ReviewStageFirstReview,
	}
}

func (s *Service) authorize(moderatorID uuid.UUID, stage Stage, mission *models.Mission) error {
	var moderator models.Profile
	if err := s.db.First(&moderator, "id = ?", moderatorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnauthorizedStage
		}
		return fmt.Errorf("error finding moderator: %w", err)
	}

	switch stage {
	case StageAdmin:
		if !moderator.IsModerator() {
			return ErrUnauthorizedStage
		}
	case StageAdvertiserFirst, StageAdvertiserFinal:
		if mission.CreatedBy != moderator.ID && !moderator.IsModerator() {
			return ErrUnauthorizedStage
		}
	default:
		return ErrInvalidTransition
	}
	return nil
}

// issueRewardInTx appends the mission_rewards row and credits the
// participant. The unique submission_id constraint and the ledger reference
// guard both make retries pay nothing twice.
func (s *Service) issueRewardInTx(tx *gorm.DB, submission *models.MissionSubmission, mission *models.Mission) error {
	var count int64
	if err := tx.Model(&models.MissionReward{}).
		Where("submission_id = ?", submission.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("error checking existing reward: %w", err)
	}
	if count > 0 {
		return nil
	}

	reward := &models.MissionReward{
		SubmissionID:   submission.ID,
		UserID:         submission.UserID,
		MissionID:      mission.ID,
		RifasEarned:    mission.RifasPerMission,
		CashbackEarned: mission.CashbackReward,
		RewardedAt:     time.Now(),
	}
	if err := tx.Create(reward).Error; err != nil {
		return fmt.Errorf("error creating mission reward: %w", err)
	}

	if mission.RifasPerMission == 0 && mission.CashbackReward.IsZero() {
		return nil
	}

	_, err := s.ledger.CreditInTx(tx, rifas.CreditInput{
		UserID:       submission.UserID,
		Rifas:        mission.RifasPerMission,
		Cashback:     mission.CashbackReward,
		Type:         models.TransactionTypeMissionReward,
		Reference:    fmt.Sprintf("mission_reward:%s", submission.ID),
		Description:  fmt.Sprintf("Recompensa da missão %s", mission.Title),
		MissionID:    &mission.ID,
		SubmissionID: &submission.ID,
	})
	return err
}

// afterFinalize runs the best-effort side effects of a committed decision
func (s *Service) afterFinalize(submission *models.MissionSubmission, mission *models.Mission) {
	if submission.Status == models.SubmissionStatusApproved && s.referrals != nil {
		if err := s.referrals.ProcessMissionCompletion(submission.UserID); err != nil {
			log.Printf("LedgerWriteFailure: referral completion for user %s: %v", submission.UserID, err)
		}
	}

	if s.notifier == nil {
		return
	}
	switch submission.Status {
	case models.SubmissionStatusApproved:
		s.notifier.Notify(submission.UserID, "submission_approved",
			"Submissão aprovada",
			fmt.Sprintf("Sua submissão para a missão %q foi aprovada. Você ganhou %d rifas!", mission.Title, mission.RifasPerMission))
	case models.SubmissionStatusRejected:
		s.notifier.Notify(submission.UserID, "submission_rejected",
			"Submissão rejeitada",
			fmt.Sprintf("Sua submissão para a missão %q foi rejeitada.", mission.Title))
	case models.SubmissionStatusSecondInstance:
		s.notifier.Notify(submission.UserID, "submission_second_instance",
			"Submissão em segunda instância",
			fmt.Sprintf("Sua submissão para a missão %q foi encaminhada para análise administrativa.", mission.Title))
	case models.SubmissionStatusReturnedToAdvertiser:
		s.notifier.Notify(submission.UserID, "submission_returned",
			"Submissão devolvida ao anunciante",
			fmt.Sprintf("Sua submissão para a missão %q voltou para a decisão final do anunciante.", mission.Title))
	}
}

// ListPendingForAdvertiser returns submissions awaiting a decision from the
// advertiser: first-review queue plus those returned from the second instance.
func (s *Service) ListPendingForAdvertiser(advertiserID uuid.UUID) ([]models.MissionSubmission, error) {
	var submissions []models.MissionSubmission
	err := s.db.
		Joins("JOIN missions ON missions.id = mission_submissions.mission_id").
		Where("missions.created_by = ?", advertiserID).
		Where("mission_submissions.status IN ?", []models.SubmissionStatus{
			models.SubmissionStatusPendingApproval,
			models.SubmissionStatusReturnedToAdvertiser,
		}).
		Order("mission_submissions.submitted_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("error listing pending submissions: %w", err)
	}
	return submissions, nil
}

// ListSecondInstanceQueue returns submissions awaiting an admin ruling
func (s *Service) ListSecondInstanceQueue() ([]models.MissionSubmission, error) {
	var submissions []models.MissionSubmission
	err := s.db.
		Where("status = ? AND second_instance_status = ?",
			models.SubmissionStatusSecondInstance, models.SecondInstancePendingAdminReview).
		Order("submitted_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("error listing second instance queue: %w", err)
	}
	return submissions, nil
}
