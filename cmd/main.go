package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lumenlms/lumen/config"
	"github.com/lumenlms/lumen/database"
	_ "github.com/lumenlms/lumen/docs" // Swagger docs - auto-generated
	adminctrl "github.com/lumenlms/lumen/internal/controller/admin"
	userctrl "github.com/lumenlms/lumen/internal/controller/user"
	"github.com/lumenlms/lumen/internal/logger"
	"github.com/lumenlms/lumen/internal/middleware"
	"github.com/lumenlms/lumen/internal/model"
	"github.com/lumenlms/lumen/internal/repository"
	"github.com/lumenlms/lumen/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Lumen Quiz Engine API
// @version 1.0
// @description Quiz attempt lifecycle and grading service for the Lumen LMS.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	app := fx.New(
		// Core Application Components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // Provides *gorm.DB
			NewGinEngine,         // Provides *gin.Engine
		),

		// Repositories Layer
		fx.Provide(
			repository.NewQuizRepository,
			repository.NewQuestionRepository,
			repository.NewAttemptRepository,
			repository.NewResponseRepository,
		),

		// Services Layer
		fx.Provide(
			service.NewAvailabilityPolicy,
			service.NewAttemptGate,
			service.NewNotificationService,
			service.NewGradingEngine,
			service.NewQuizService,
			service.NewAttemptService,
			service.NewResponseRecorder,
			service.NewAdminQuizService,
			func(
				quizRepo repository.QuizRepository,
				attemptRepo repository.AttemptRepository,
				responseRepo repository.ResponseRepository,
				grader service.GradingEngine,
				cfg *config.Config,
			) *service.AttemptTimer {
				interval := time.Duration(cfg.Attempt.SweepIntervalSeconds) * time.Second
				return service.NewAttemptTimer(quizRepo, attemptRepo, responseRepo, grader, interval)
			},
		),

		// API Controllers Layer
		fx.Provide(
			adminctrl.NewAdminQuizController,
			userctrl.NewQuizAttemptController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(StartAttemptSweeper),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger UI at /swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	adminQuizCtrl *adminctrl.AdminQuizController,
	quizAttemptCtrl *userctrl.QuizAttemptController,
) {
	auth := middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)

	// Admin Routes (prefixed with /api/v1/admin)
	adminAPIGroup := router.Group("/api/v1/admin", auth, middleware.RequireRole("admin"))
	{
		adminAPIGroup.POST("/quizzes", adminQuizCtrl.CreateQuiz)
		adminAPIGroup.PATCH("/quizzes/:quiz_id/publish", adminQuizCtrl.SetPublishState)
		adminAPIGroup.GET("/quizzes/:quiz_id/attempts", adminQuizCtrl.GetQuizAttempts)
		adminAPIGroup.PUT("/attempts/:attempt_id/essay-grades", adminQuizCtrl.GradeEssays)
	}

	// Student Routes (prefixed with /api/v1)
	userAPIGroup := router.Group("/api/v1", auth)
	{
		userAPIGroup.GET("/quizzes", quizAttemptCtrl.GetAvailableQuizzes)
		userAPIGroup.GET("/quizzes/:quiz_id", quizAttemptCtrl.GetQuizDetails)
		userAPIGroup.POST("/quizzes/:quiz_id/attempts", quizAttemptCtrl.StartAttempt)
		userAPIGroup.GET("/quizzes/:quiz_id/my-attempts", quizAttemptCtrl.GetMyAttempts)

		userAPIGroup.PUT("/attempts/:attempt_id/answers", quizAttemptCtrl.RecordAnswer)
		userAPIGroup.POST("/attempts/:attempt_id/submit", quizAttemptCtrl.SubmitAttempt)
		userAPIGroup.GET("/attempts/:attempt_id/result", quizAttemptCtrl.GetAttemptResult)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Quiz engine server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

// StartAttemptSweeper runs the expiry sweeper for the life of the process so
// abandoned timed attempts get finalized even when nobody polls them.
func StartAttemptSweeper(lc fx.Lifecycle, timer *service.AttemptTimer) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go timer.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Quiz{},
		&model.Question{},
		&model.QuestionOption{},
		&model.QuizAttempt{},
		&model.QuizResponse{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
