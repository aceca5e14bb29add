package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/premiads/backend/internal/config"
	"github.com/premiads/backend/internal/database"
	"github.com/premiads/backend/internal/database/migrations"
	"github.com/premiads/backend/internal/handlers"
	"github.com/premiads/backend/internal/jobs"
	"github.com/premiads/backend/internal/middleware"
	"github.com/premiads/backend/internal/queue"
	"github.com/premiads/backend/internal/routes"
	"github.com/premiads/backend/internal/services/mission"
	"github.com/premiads/backend/internal/services/moderation"
	"github.com/premiads/backend/internal/services/notification"
	"github.com/premiads/backend/internal/services/referral"
	"github.com/premiads/backend/internal/services/rifas"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	redisQueue := queue.NewRedisQueue(redisClient, db)

	// Services
	ledger := rifas.NewService(db)
	referralService := referral.NewService(db, ledger, cfg.Rewards)
	notificationService := notification.NewService(db, redisQueue)
	moderationService := moderation.NewService(db, ledger, referralService, notificationService, cfg.Moderation)
	missionService := mission.NewService(db)

	// Jobs
	reconcileJob := jobs.NewReconcileJob(ledger, redisQueue)
	jobs.RegisterAllJobHandlers(redisQueue, notificationService, reconcileJob)

	jobProcessor := queue.NewJobProcessor(redisQueue, 10)
	go jobProcessor.Start()

	scheduler := gocron.NewScheduler(time.UTC)
	reconcileInterval := time.Duration(cfg.Reconcile.IntervalMinutes) * time.Minute
	if err := jobs.ScheduleRecurringJobs(scheduler, reconcileJob, reconcileInterval); err != nil {
		log.Fatalf("Failed to schedule recurring jobs: %v", err)
	}
	scheduler.StartAsync()

	// HTTP surface
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	rateLimiter := middleware.NewRateLimiter(20, 10, 40, 5)
	defer rateLimiter.Stop()

	routes.RegisterRoutes(router, routes.Handlers{
		Auth:          handlers.NewAuthHandler(db, referralService),
		Missions:      handlers.NewMissionHandler(missionService),
		Submissions:   handlers.NewSubmissionHandler(moderationService),
		Referrals:     handlers.NewReferralHandler(db, referralService),
		Profiles:      handlers.NewProfileHandler(db, ledger),
		Notifications: handlers.NewNotificationHandler(notificationService),
	}, rateLimiter)

	srv := startServer(router, cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	scheduler.Stop()
	jobProcessor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// startServer starts the HTTP server
func startServer(router *gin.Engine, port string) *http.Server {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", port)
	return srv
}
