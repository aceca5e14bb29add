package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/premiads/backend/internal/middleware"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/services/rifas"
	"github.com/premiads/backend/internal/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProfileHandler exposes the authenticated user's profile and ledger
type ProfileHandler struct {
	db     *gorm.DB
	ledger *rifas.Service
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(db *gorm.DB, ledger *rifas.Service) *ProfileHandler {
	return &ProfileHandler{db: db, ledger: ledger}
}

// Me returns the authenticated user's profile
func (h *ProfileHandler) Me(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var profile models.Profile
	if err := h.db.First(&profile, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Transactions returns the user's rifas ledger, paginated
func (h *ProfileHandler) Transactions(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	transactions, total, err := h.ledger.GetTransactionHistory(userID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
	})
}

// RedeemRequest represents a balance redemption
type RedeemRequest struct {
	Rifas       int    `json:"rifas"`
	Cashback    string `json:"cashback"`
	Description string `json:"description"`
}

// Redeem debits rifas and/or cashback from the user's balance
func (h *ProfileHandler) Redeem(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cashback := decimal.Zero
	if req.Cashback != "" {
		parsed, err := decimal.NewFromString(req.Cashback)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cashback amount"})
			return
		}
		cashback = parsed
	}

	txn, err := h.ledger.Debit(rifas.DebitInput{
		UserID:      userID,
		Rifas:       req.Rifas,
		Cashback:    cashback,
		Reference:   utils.GenerateLedgerReference("redeem"),
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, rifas.ErrInsufficientBalance):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Insufficient balance"})
		case errors.Is(err, rifas.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid redemption amount"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to redeem"})
		}
		return
	}

	c.JSON(http.StatusOK, txn)
}
