package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/premiads/backend/internal/middleware"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/services/referral"
	"gorm.io/gorm"
)

// ReferralHandler exposes the referral ledger over REST plus the JSON action
// endpoint used by function-style invocations.
type ReferralHandler struct {
	db        *gorm.DB
	referrals *referral.Service
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(db *gorm.DB, referrals *referral.Service) *ReferralHandler {
	return &ReferralHandler{db: db, referrals: referrals}
}

// MyStats returns the authenticated user's referral code and summary
func (h *ReferralHandler) MyStats(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	stats, err := h.referrals.GetStats(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load referral stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ValidateCode checks a referral code and returns its owner
func (h *ReferralHandler) ValidateCode(c *gin.Context) {
	var req struct {
		ReferralCode string `json:"referral_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := h.referrals.ValidateCode(req.ReferralCode)
	if err != nil {
		if errors.Is(err, referral.ErrInvalidCode) {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "InvalidCode"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate code"})
		return
	}

	var owner models.Profile
	if err := h.db.First(&owner, "id = ?", code.OwnerID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"owner_id":   code.OwnerID,
		"owner_name": owner.FullName,
	})
}

// ActionRequest is the function-invocation shaped request body
type ActionRequest struct {
	Action       string     `json:"action" binding:"required"`
	UserID       *uuid.UUID `json:"userId"`
	ReferralCode string     `json:"referralCode"`
}

// Actions dispatches the JSON action surface:
// validate_code, process_signup, process_mission_completion, get_stats.
// Responses are always {success, data?, error?}.
func (h *ReferralHandler) Actions(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	switch req.Action {
	case "validate_code":
		code, err := h.referrals.ValidateCode(req.ReferralCode)
		if err != nil {
			h.actionError(c, err)
			return
		}
		var owner models.Profile
		if err := h.db.First(&owner, "id = ?", code.OwnerID).Error; err != nil {
			h.actionError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
			"valid":      true,
			"owner_id":   code.OwnerID,
			"owner_name": owner.FullName,
		}})

	case "process_signup":
		if req.UserID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId is required"})
			return
		}
		result, err := h.referrals.ProcessSignup(*req.UserID, req.ReferralCode)
		if err != nil {
			h.actionError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": result})

	case "process_mission_completion":
		if req.UserID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId is required"})
			return
		}
		if err := h.referrals.ProcessMissionCompletion(*req.UserID); err != nil {
			h.actionError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})

	case "get_stats":
		if req.UserID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId is required"})
			return
		}
		stats, err := h.referrals.GetStats(*req.UserID)
		if err != nil {
			h.actionError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown action"})
	}
}

func (h *ReferralHandler) actionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, referral.ErrInvalidCode):
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "InvalidCode"})
	case errors.Is(err, referral.ErrSelfReferral):
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "SelfReferral"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	}
}
