package server

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/studypilot-backend/internal/handlers"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/middleware"
	"github.com/yungbote/studypilot-backend/internal/services"
)

// RouterConfig carries the handlers the HTTP surface is assembled from.
type RouterConfig struct {
	Log              *logger.Logger
	HealthHandler    *handlers.HealthHandler
	ChatHandler      *handlers.ChatHandler
	SolverHandler    *handlers.SolverHandler
	UploadHandler    *handlers.UploadHandler
	MistakeHandler   *handlers.MistakeHandler
	StudyPlanHandler *handlers.StudyPlanHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.AttachRequestID())
	router.Use(middleware.RequestLogger(cfg.Log))
	router.Use(middleware.CORS())

	// Multipart parsing buffers up to the upload cap in memory.
	router.MaxMultipartMemory = services.MaxUploadBytes

	api := router.Group("/api")
	{
		api.GET("/health", cfg.HealthHandler.Health)

		// Tutor chat
		api.POST("/chat", cfg.ChatHandler.Chat)
		api.POST("/chat/stream", cfg.ChatHandler.ChatStream)

		// Direct solver
		api.GET("/query", cfg.SolverHandler.Query)

		// Reference documents
		api.POST("/upload", cfg.UploadHandler.Upload)
		api.GET("/files", cfg.UploadHandler.ListFiles)
		api.DELETE("/files/:filename", cfg.UploadHandler.DeleteFile)

		// Long-term memory
		api.GET("/mistakes", cfg.MistakeHandler.ListMistakes)
		api.POST("/mistakes", cfg.MistakeHandler.AddMistake)
		api.DELETE("/mistakes/:id", cfg.MistakeHandler.DeleteMistake)
		api.GET("/study-plan", cfg.StudyPlanHandler.GetStudyPlan)
		api.POST("/study-plan", cfg.StudyPlanHandler.SaveStudyPlan)
	}

	return router
}
