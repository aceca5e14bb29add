package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/premiads/backend/internal/middleware"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/services/mission"
	"github.com/shopspring/decimal"
)

// MissionHandler handles mission CRUD and participant submissions
type MissionHandler struct {
	missions *mission.Service
}

// NewMissionHandler creates a new mission handler
func NewMissionHandler(missions *mission.Service) *MissionHandler {
	return &MissionHandler{missions: missions}
}

// CreateMissionRequest represents the request body for mission creation
type CreateMissionRequest struct {
	Title           string      `json:"title" binding:"required"`
	Description     string      `json:"description"`
	Requirements    models.JSON `json:"requirements"`
	SubmissionKind  string      `json:"submission_kind"`
	RifasPerMission int         `json:"rifas_per_mission"`
	CashbackReward  string      `json:"cashback_reward"`
	StartDate       *time.Time  `json:"start_date"`
	EndDate         *time.Time  `json:"end_date"`
}

// Create registers a new mission for the authenticated advertiser
func (h *MissionHandler) Create(c *gin.Context) {
	advertiserID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req CreateMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cashback := decimal.Zero
	if req.CashbackReward != "" {
		parsed, err := decimal.NewFromString(req.CashbackReward)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cashback amount"})
			return
		}
		cashback = parsed
	}

	created, err := h.missions.Create(mission.CreateInput{
		CreatedBy:       advertiserID,
		Title:           req.Title,
		Description:     req.Description,
		Requirements:    req.Requirements,
		SubmissionKind:  models.SubmissionKind(req.SubmissionKind),
		RifasPerMission: req.RifasPerMission,
		CashbackReward:  cashback,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateMissionRequest represents the request body for mission updates
type UpdateMissionRequest struct {
	Title           *string     `json:"title"`
	Description     *string     `json:"description"`
	Requirements    models.JSON `json:"requirements"`
	RifasPerMission *int        `json:"rifas_per_mission"`
	CashbackReward  *string     `json:"cashback_reward"`
	IsActive        *bool       `json:"is_active"`
	StartDate       *time.Time  `json:"start_date"`
	EndDate         *time.Time  `json:"end_date"`
}

// Update edits an advertiser's mission
func (h *MissionHandler) Update(c *gin.Context) {
	advertiserID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	missionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mission id"})
		return
	}

	var req UpdateMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := mission.UpdateInput{
		Title:           req.Title,
		Description:     req.Description,
		Requirements:    req.Requirements,
		RifasPerMission: req.RifasPerMission,
		IsActive:        req.IsActive,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	}
	if req.CashbackReward != nil {
		parsed, err := decimal.NewFromString(*req.CashbackReward)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cashback amount"})
			return
		}
		input.CashbackReward = &parsed
	}

	updated, err := h.missions.Update(missionID, advertiserID, input)
	if err != nil {
		switch {
		case errors.Is(err, mission.ErrMissionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, mission.ErrNotMissionOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, mission.ErrRewardLocked):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ListActive returns missions currently open for participation
func (h *MissionHandler) ListActive(c *gin.Context) {
	missions, err := h.missions.ListActive(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list missions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"missions": missions})
}

// ListMine returns the authenticated advertiser's missions
func (h *MissionHandler) ListMine(c *gin.Context) {
	advertiserID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	missions, err := h.missions.ListByAdvertiser(advertiserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list missions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"missions": missions})
}

// Get fetches one mission
func (h *MissionHandler) Get(c *gin.Context) {
	missionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mission id"})
		return
	}

	found, err := h.missions.GetByID(missionID)
	if err != nil {
		if errors.Is(err, mission.ErrMissionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch mission"})
		return
	}
	c.JSON(http.StatusOK, found)
}

// SubmitRequest represents a participant's submission payload
type SubmitRequest struct {
	Kind        string `json:"kind" binding:"required"`
	Text        string `json:"text"`
	FileURL     string `json:"file_url"`
	CreativeURL string `json:"creative_url"`
	Caption     string `json:"caption"`
	VideoURL    string `json:"video_url"`
}

// Submit creates a pending submission for a mission
func (h *MissionHandler) Submit(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	missionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mission id"})
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.missions.Submit(mission.SubmitInput{
		MissionID: missionID,
		UserID:    userID,
		Data: models.SubmissionData{
			Kind:        models.SubmissionKind(req.Kind),
			Text:        req.Text,
			FileURL:     req.FileURL,
			CreativeURL: req.CreativeURL,
			Caption:     req.Caption,
			VideoURL:    req.VideoURL,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, mission.ErrMissionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, mission.ErrMissionClosed), errors.Is(err, mission.ErrDuplicateSubmission):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, submission)
}

// MySubmissions lists the authenticated participant's submissions
func (h *MissionHandler) MySubmissions(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	submissions, err := h.missions.ListSubmissionsByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list submissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}
