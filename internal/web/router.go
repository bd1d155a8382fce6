package web

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/akravets/coinboard/internal/chat"
	"github.com/akravets/coinboard/internal/graphs"
	"github.com/akravets/coinboard/internal/indicators"
	"github.com/akravets/coinboard/internal/market"
	"github.com/akravets/coinboard/internal/users"
	"github.com/akravets/coinboard/pkg/models"
)

// NewsReader is the read slice of the news cache the API exposes.
type NewsReader interface {
	ListRecent(ctx context.Context, limit int) ([]models.NewsArticle, error)
}

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health() error
}

// Server bundles the HTTP surface and its dependencies.
type Server struct {
	market     *market.Service
	graphs     *graphs.Service
	indicators *indicators.Service
	chat       *chat.Service
	users      *users.Service
	news       NewsReader
	newsLimit  int
	hub        *PriceHub
	db         HealthChecker
}

func NewServer(
	marketSvc *market.Service,
	graphsSvc *graphs.Service,
	indicatorsSvc *indicators.Service,
	chatSvc *chat.Service,
	usersSvc *users.Service,
	news NewsReader,
	newsLimit int,
	hub *PriceHub,
	db HealthChecker,
) *Server {
	return &Server{
		market:     marketSvc,
		graphs:     graphsSvc,
		indicators: indicatorsSvc,
		chat:       chatSvc,
		users:      usersSvc,
		news:       news,
		newsLimit:  newsLimit,
		hub:        hub,
		db:         db,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	router.GET("/health", s.handleHealth)
	router.GET("/ready", s.handleReady)

	api := router.Group("/api")
	{
		crypto := api.Group("/crypto")
		{
			crypto.GET("/cryptos", s.handleListCryptos)
			crypto.GET("/:id/graph-details", s.handleGraphDetails)
			crypto.GET("/:id/indicator-graph/:kind", s.handleIndicatorGraph)
		}

		api.GET("/news", s.handleListNews)

		auth := api.Group("/auth")
		{
			auth.POST("/register", s.handleRegister)
			auth.POST("/login", s.handleLogin)
			auth.POST("/forgot-password", s.handleForgotPassword)
			auth.POST("/reset-password", s.handleResetPassword)
			auth.GET("/me", s.authRequired(), s.handleMe)
		}

		chatGroup := api.Group("/chat", s.authRequired())
		{
			chatGroup.POST("", s.handleCreateChat)
			chatGroup.GET("", s.handleListChats)
			chatGroup.GET("/:chatId/messages", s.handleListMessages)
			chatGroup.POST("/:chatId/messages", s.handleSendMessage)
			chatGroup.GET("/:chatId/messages/stream", s.handleStreamMessage)
		}
	}

	if s.hub != nil {
		router.GET("/ws/prices", func(c *gin.Context) {
			s.hub.Serve(c.Writer, c.Request)
		})
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	if err := s.db.Health(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
