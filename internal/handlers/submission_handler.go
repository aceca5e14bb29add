package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/premiads/backend/internal/middleware"
	"github.com/premiads/backend/internal/services/moderation"
)

// SubmissionHandler exposes the moderation workflow
type SubmissionHandler struct {
	moderation *moderation.Service
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(m *moderation.Service) *SubmissionHandler {
	return &SubmissionHandler{moderation: m}
}

// DecisionRequest represents one moderation decision
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Stage    string `json:"stage" binding:"required"`
	Reason   string `json:"reason"`
}

// Decide applies a moderation decision to a submission
func (h *SubmissionHandler) Decide(c *gin.Context) {
	moderatorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	submissionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.moderation.FinalizeSubmission(moderation.FinalizeInput{
		SubmissionID: submissionID,
		ModeratorID:  moderatorID,
		Decision:     moderation.Decision(req.Decision),
		Stage:        moderation.Stage(req.Stage),
		Reason:       req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, moderation.ErrSubmissionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, moderation.ErrUnauthorizedStage):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, moderation.ErrAlreadyFinalized):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, moderation.ErrInvalidTransition), errors.Is(err, moderation.ErrMissingReason):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize submission"})
		}
		return
	}

	c.JSON(http.StatusOK, submission)
}

// PendingQueue lists submissions awaiting the advertiser's decision
func (h *SubmissionHandler) PendingQueue(c *gin.Context) {
	advertiserID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	submissions, err := h.moderation.ListPendingForAdvertiser(advertiserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list submissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}

// SecondInstanceQueue lists submissions awaiting an admin ruling
func (h *SubmissionHandler) SecondInstanceQueue(c *gin.Context) {
	submissions, err := h.moderation.ListSecondInstanceQueue()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list submissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}
