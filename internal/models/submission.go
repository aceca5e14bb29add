package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the moderation state of a submission
type SubmissionStatus string

const (
	SubmissionStatusPendingApproval      SubmissionStatus = "pending_approval"
	SubmissionStatusApproved             SubmissionStatus = "approved"
	SubmissionStatusRejected             SubmissionStatus = "rejected"
	SubmissionStatusSecondInstance       SubmissionStatus = "second_instance"
	SubmissionStatusReturnedToAdvertiser SubmissionStatus = "returned_to_advertiser"
)

// SecondInstanceStatus tracks the admin decision while a submission sits in the
// escalation tier. Set only while status is second_instance or after the admin
// has ruled on it.
type SecondInstanceStatus string

const (
	SecondInstancePendingAdminReview SecondInstanceStatus = "pending_admin_review"
	SecondInstanceApproved           SecondInstanceStatus = "approved"
	SecondInstanceRejected           SecondInstanceStatus = "rejected"
)

// ReviewStage records which tier currently owns the submission
type ReviewStage string

const (
	ReviewStageFirstReview    ReviewStage = "first_review"
	ReviewStageSecondInstance ReviewStage = "second_instance"
	ReviewStageAdvertiser     ReviewStage = "advertiser"
)

// SubmissionKind discriminates the typed submission payload
type SubmissionKind string

const (
	SubmissionKindText     SubmissionKind = "text"
	SubmissionKindFile     SubmissionKind = "file"
	SubmissionKindCreative SubmissionKind = "creative"
	SubmissionKindVideo    SubmissionKind = "video"
)

// SubmissionData is the structured proof payload. Exactly the fields for its
// Kind are expected to be set; Validate enforces that at the boundary.
type SubmissionData struct {
	Kind                      SubmissionKind `json:"kind"`
	Text                      string         `json:"text,omitempty"`
	FileURL                   string         `json:"file_url,omitempty"`
	CreativeURL               string         `json:"creative_url,omitempty"`
	Caption                   string         `json:"caption,omitempty"`
	VideoURL                  string         `json:"video_url,omitempty"`
	AdvertiserRejectionReason string         `json:"advertiser_rejection_reason,omitempty"`
	AdminRejectionReason      string         `json:"admin_rejection_reason,omitempty"`
}

// Validate checks that the payload carries the content its kind requires
func (d *SubmissionData) Validate() error {
	switch d.Kind {
	case SubmissionKindText:
		if strings.TrimSpace(d.Text) == "" {
			return errors.New("text submission requires text content")
		}
	case SubmissionKindFile:
		if strings.TrimSpace(d.FileURL) == "" {
			return errors.New("file submission requires a file reference")
		}
	case SubmissionKindCreative:
		if strings.TrimSpace(d.CreativeURL) == "" {
			return errors.New("creative submission requires a creative reference")
		}
	case SubmissionKindVideo:
		if strings.TrimSpace(d.VideoURL) == "" {
			return errors.New("video submission requires a video reference")
		}
	default:
		return fmt.Errorf("unknown submission kind: %q", d.Kind)
	}
	return nil
}

// Value implements the driver.Valuer interface for SubmissionData
func (d SubmissionData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface for SubmissionData
func (d *SubmissionData) Scan(value interface{}) error {
	if value == nil {
		*d = SubmissionData{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported submission data type %T", value)
	}
}

// MissionSubmission represents one participant's attempt at a mission.
// Submissions are never deleted; approved and rejected are permanent.
type MissionSubmission struct {
	Base
	MissionID            uuid.UUID             `gorm:"type:uuid;not null;index" json:"mission_id"`
	Mission              Mission               `gorm:"foreignKey:MissionID" json:"-"`
	UserID               uuid.UUID             `gorm:"type:uuid;not null;index" json:"user_id"`
	Status               SubmissionStatus      `gorm:"type:varchar(30);not null;default:'pending_approval';index" json:"status"`
	SecondInstanceStatus *SecondInstanceStatus `gorm:"type:varchar(30)" json:"second_instance_status,omitempty"`
	ReviewStage          ReviewStage           `gorm:"type:varchar(20);not null;default:'first_review'" json:"review_stage"`
	SubmissionData       SubmissionData        `gorm:"type:jsonb" json:"submission_data"`
	SubmittedAt          time.Time             `gorm:"not null" json:"submitted_at"`
	ValidatedBy          *uuid.UUID            `gorm:"type:uuid" json:"validated_by,omitempty"`
}

// IsTerminal reports whether the submission has reached a permanent state
func (s *MissionSubmission) IsTerminal() bool {
	return s.Status == SubmissionStatusApproved || s.Status == SubmissionStatusRejected
}
