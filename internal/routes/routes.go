package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/premiads/backend/internal/handlers"
	"github.com/premiads/backend/internal/middleware"
)

// Handlers bundles everything route registration needs
type Handlers struct {
	Auth          *handlers.AuthHandler
	Missions      *handlers.MissionHandler
	Submissions   *handlers.SubmissionHandler
	Referrals     *handlers.ReferralHandler
	Profiles      *handlers.ProfileHandler
	Notifications *handlers.NotificationHandler
}

// RegisterRoutes wires all API routes onto the router
func RegisterRoutes(router *gin.Engine, h Handlers, rateLimiter *middleware.RateLimiter) {
	router.Use(middleware.SecureHeaders())
	router.Use(rateLimiter.IPRateLimiterMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := router.Group("/api/auth")
	authGroup.Use(rateLimiter.AuthRateLimiterMiddleware())
	{
		authGroup.POST("/signup", h.Auth.Signup)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.RefreshToken)
	}

	missionGroup := router.Group("/api/missions")
	missionGroup.Use(middleware.AuthMiddleware())
	{
		missionGroup.GET("", h.Missions.ListActive)
		missionGroup.GET("/:id", h.Missions.Get)
		missionGroup.POST("/:id/submissions", h.Missions.Submit)

		missionGroup.POST("", middleware.RequireAdvertiser(), h.Missions.Create)
		missionGroup.PUT("/:id", middleware.RequireAdvertiser(), h.Missions.Update)
		missionGroup.GET("/mine", middleware.RequireAdvertiser(), h.Missions.ListMine)
	}

	submissionGroup := router.Group("/api/submissions")
	submissionGroup.Use(middleware.AuthMiddleware())
	{
		submissionGroup.GET("/mine", h.Missions.MySubmissions)
		submissionGroup.POST("/:id/decision", h.Submissions.Decide)
		submissionGroup.GET("/pending", h.Submissions.PendingQueue)
		submissionGroup.GET("/second-instance", middleware.RequireStaff(), h.Submissions.SecondInstanceQueue)
	}

	referralGroup := router.Group("/api/referrals")
	referralGroup.Use(middleware.AuthMiddleware())
	{
		referralGroup.GET("/me", h.Referrals.MyStats)
		referralGroup.POST("/validate", h.Referrals.ValidateCode)
		referralGroup.POST("/actions", h.Referrals.Actions)
	}

	profileGroup := router.Group("/api/profile")
	profileGroup.Use(middleware.AuthMiddleware())
	{
		profileGroup.GET("", h.Profiles.Me)
		profileGroup.GET("/transactions", h.Profiles.Transactions)
		profileGroup.POST("/redeem", h.Profiles.Redeem)
	}

	notificationGroup := router.Group("/api/notifications")
	notificationGroup.Use(middleware.AuthMiddleware())
	{
		notificationGroup.GET("", h.Notifications.List)
		notificationGroup.PUT("/:id/read", h.Notifications.MarkRead)
	}
}
