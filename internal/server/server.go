package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"tgcrm/internal/dispatcher"
	"tgcrm/internal/handler"
	"tgcrm/internal/middleware"
	"tgcrm/internal/repository"
	"tgcrm/internal/telegram"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	log    *zap.Logger
}

func NewServer(db *sqlx.DB, bot *telegram.Client, log *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())

	// Unmatched method/action combinations answer 405, not 404.
	router.HandleMethodNotAllowed = true

	s := &Server{
		router: router,
		db:     db,
		log:    log,
	}

	s.setupRoutes(bot)

	return s
}

func (s *Server) setupRoutes(bot *telegram.Client) {
	clientRepo := repository.NewClientRepository(s.db, s.log)
	messageRepo := repository.NewMessageRepository(s.db, s.log)
	d := dispatcher.New(clientRepo, messageRepo, s.log)
	telegramHandler := handler.NewTelegramHandler(clientRepo, messageRepo, bot, d, s.log)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	s.router.GET("/telegram", telegramHandler.HandleGet)
	s.router.POST("/telegram", telegramHandler.HandlePost)

	methodNotAllowed := func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	}
	s.router.NoMethod(methodNotAllowed)
	s.router.NoRoute(methodNotAllowed)
}

// Router exposes the underlying engine, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Run(addr string) {
	s.log.Info("Server starting", zap.String("addr", addr))
	if err := s.router.Run(addr); err != nil {
		s.log.Fatal("Server failed to start", zap.Error(err))
	}
}
