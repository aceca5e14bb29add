package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/services/referral"
	"github.com/premiads/backend/internal/utils"
	"gorm.io/gorm"
)

// AuthHandler handles authentication related requests
type AuthHandler struct {
	db        *gorm.DB
	referrals *referral.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, referrals *referral.Service) *AuthHandler {
	return &AuthHandler{db: db, referrals: referrals}
}

// SignupRequest represents the request body for signup
type SignupRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	FullName     string `json:"full_name" binding:"required"`
	UserType     string `json:"user_type"`
	ReferralCode string `json:"referral_code"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents the response for token requests
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Signup handles user registration. An invalid referral code rejects the
// signup outright so the caller can correct it.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userType := models.UserTypeParticipante
	if req.UserType == string(models.UserTypeAnunciante) {
		userType = models.UserTypeAnunciante
	}

	var existing models.Profile
	if result := h.db.Where("email = ?", req.Email).First(&existing); result.RowsAffected > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		return
	}

	if req.ReferralCode != "" {
		if _, err := h.referrals.ValidateCode(req.ReferralCode); err != nil {
			if errors.Is(err, referral.ErrInvalidCode) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid referral code"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate referral code"})
			return
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	profile := models.Profile{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		UserType:     userType,
		IsActive:     true,
	}
	if err := h.db.Create(&profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	if req.ReferralCode != "" {
		if _, err := h.referrals.ProcessSignup(profile.ID, req.ReferralCode); err != nil {
			if errors.Is(err, referral.ErrSelfReferral) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot use your own referral code"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply referral code"})
			return
		}
	}

	tokens, err := utils.GenerateTokenPair(profile.ID, profile.Email, profile.UserType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": profile,
		"tokens": TokenResponse{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresIn:    tokens.ExpiresIn,
			TokenType:    "Bearer",
		},
	})
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var profile models.Profile
	if err := h.db.Where("email = ?", req.Email).First(&profile).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if !profile.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is deactivated"})
		return
	}
	if !utils.CheckPasswordHash(req.Password, profile.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	now := time.Now()
	h.db.Model(&profile).Update("last_login_at", now)

	tokens, err := utils.GenerateTokenPair(profile.ID, profile.Email, profile.UserType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": profile,
		"tokens": TokenResponse{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresIn:    tokens.ExpiresIn,
			TokenType:    "Bearer",
		},
	})
}

// RefreshToken exchanges a valid refresh token for a new token pair
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := utils.ValidateToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	var profile models.Profile
	if err := h.db.First(&profile, "id = ?", claims.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
		return
	}
	if !profile.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is deactivated"})
		return
	}

	tokens, err := utils.GenerateTokenPair(profile.ID, profile.Email, profile.UserType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    "Bearer",
	})
}
