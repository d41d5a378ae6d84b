package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quizmint/internal/ai"
	appsvc "quizmint/internal/app"
	"quizmint/internal/bootstrap"
	"quizmint/internal/cache"
	"quizmint/internal/generator"
	"quizmint/internal/pkg/pdfextract"
	"quizmint/internal/platform/rabbitmq"
	"quizmint/internal/repository"
	"quizmint/internal/transport/http/handler"
	"quizmint/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.Metrics())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)
	cardRepo := repository.NewFlashcardRepository(app.MySQL)
	eventRepo := repository.NewExtractionEventRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)

	extractor := pdfextract.New(pdfextract.Config{MaxPages: app.Config.Extract.MaxPages})
	summarizer := newSummarizer(app)
	cardCache := cache.NewFlashcardCache(
		app.Redis,
		time.Duration(app.Config.Redis.CardsTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.CardsDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmq.NewEventPublisher(app.MQConn, app.Config.RabbitMQ.ExtractionEventQueue)

	studyService := appsvc.NewStudyService(
		sessionRepo,
		cardRepo,
		eventRepo,
		extractor,
		summarizer,
		publisher,
		cardCache,
		app.Config.StoreTimeout(),
	)

	authHandler := handler.NewAuthHandler(authService)
	sessionHandler := handler.NewSessionHandler(studyService, app.Config.MaxPDFSizeBytes())

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	sessions := v1.Group("/sessions")
	sessions.POST("", sessionHandler.CreateSession)
	sessions.GET("/:id", sessionHandler.GetSession)
	sessions.GET("/:id/flashcards", sessionHandler.ListFlashcards)
	sessions.GET("/:id/events", sessionHandler.ListExtractionEvents)
	sessions.POST("/:id/pdf", sessionHandler.UploadPDF)

	return router
}

// newSummarizer picks the configured flashcard strategy. Naive is the
// default; the model-backed strategy is a drop-in swap.
func newSummarizer(app *bootstrap.App) generator.Summarizer {
	if app.Config.Generator.Mode == "model" {
		return generator.NewModel(ai.NewOpenAICompatibleClient(), ai.ChatConfig{
			BaseURL: app.Config.Generator.BaseURL,
			APIKey:  app.Config.Generator.APIKey,
			Model:   app.Config.Generator.Model,
		})
	}
	return generator.NewNaive()
}
