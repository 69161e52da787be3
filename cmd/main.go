package main

import (
	"fmt"
	"os"
	"time"

	"github.com/yungbote/studypilot-backend/internal/clients/openai"
	"github.com/yungbote/studypilot-backend/internal/clients/redis"
	"github.com/yungbote/studypilot-backend/internal/clients/wolfram"
	"github.com/yungbote/studypilot-backend/internal/db"
	"github.com/yungbote/studypilot-backend/internal/handlers"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/repos"
	"github.com/yungbote/studypilot-backend/internal/server"
	"github.com/yungbote/studypilot-backend/internal/services"
	"github.com/yungbote/studypilot-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Database
	database, err := db.NewDatabaseService(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	gormDB := database.DB()

	// Repos
	log.Info("Setting up repos from main...")
	userRepo := repos.NewUserRepo(gormDB, log)
	chatTurnRepo := repos.NewChatTurnRepo(gormDB, log)
	mistakeRepo := repos.NewMistakeRepo(gormDB, log)
	studyPlanRepo := repos.NewStudyPlanRepo(gormDB, log)
	uploadedFileRepo := repos.NewUploadedFileRepo(gormDB, log)

	// Solver cache is optional; a miss-only solver still works.
	solverCache, err := redis.NewSolverCache(log)
	if err != nil {
		log.Warn("Solver cache unavailable, continuing without it", "error", err)
		solverCache = nil
	}
	if solverCache != nil {
		defer solverCache.Close()
	}

	// Math solver client is optional; solve requests degrade to failed
	// results that the tutor can still explain around.
	var wolframClient wolfram.Client
	wolframCfg, err := wolfram.ConfigFromEnv(log)
	if err != nil {
		log.Warn("Math solver not configured", "error", err)
	} else {
		wolframClient, err = wolfram.NewClient(wolframCfg, log)
		if err != nil {
			log.Warn("Math solver client init failed", "error", err)
		}
	}

	// The completion gateway is the one hard dependency.
	openaiCfg, err := openai.ConfigFromEnv(log)
	if err != nil {
		log.Error("Could not configure completion gateway", "error", err)
		os.Exit(1)
	}
	gateway, err := openai.NewClient(openaiCfg, log)
	if err != nil {
		log.Error("Could not init completion gateway", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up services from main...")
	solverPause := time.Duration(utils.GetEnvAsInt("SOLVER_PAUSE_MS", 1000, log)) * time.Millisecond
	solverService, err := services.NewSolverService(wolframClient, solverCache, nil, solverPause, log)
	if err != nil {
		log.Error("Could not init SolverService", "error", err)
		os.Exit(1)
	}
	memoryService := services.NewMemoryService(userRepo, chatTurnRepo, mistakeRepo, studyPlanRepo, log)
	similarityService := services.NewSimilarityService(log)
	promptService := services.NewPromptService(log)

	uploadsDir := utils.GetEnv("UPLOADS_DIR", "uploads", log)
	uploadService, err := services.NewUploadService(uploadsDir, uploadedFileRepo, log)
	if err != nil {
		log.Error("Could not init UploadService", "error", err)
		os.Exit(1)
	}
	documentService := services.NewDocumentService(uploadsDir, log)

	chatService := services.NewChatService(gateway, solverService, memoryService, similarityService, promptService, documentService, log)

	// Handlers
	log.Info("Setting up handlers from main...")
	healthHandler := handlers.NewHealthHandler()
	chatHandler := handlers.NewChatHandler(chatService, log)
	solverHandler := handlers.NewSolverHandler(solverService, log)
	uploadHandler := handlers.NewUploadHandler(uploadService, log)
	mistakeHandler := handlers.NewMistakeHandler(memoryService, log)
	studyPlanHandler := handlers.NewStudyPlanHandler(memoryService, log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:              log,
		HealthHandler:    healthHandler,
		ChatHandler:      chatHandler,
		SolverHandler:    solverHandler,
		UploadHandler:    uploadHandler,
		MistakeHandler:   mistakeHandler,
		StudyPlanHandler: studyPlanHandler,
	})

	port := utils.GetEnv("PORT", "5001", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
