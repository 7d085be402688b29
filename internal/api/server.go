package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stocksync/internal/api/handlers"
	"stocksync/internal/api/middleware"
	"stocksync/internal/apperrors"
	"stocksync/internal/config"
	"stocksync/internal/logger"
	"stocksync/internal/models"
)

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Clover   handlers.CloverService
	Products handlers.ProductStore
	DB       handlers.Pinger
}

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, deps Deps) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(apperrors.Middleware(func(c *gin.Context, appErr *apperrors.Error) {
		if appErr.Code >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", appErr.Code),
				zap.Error(appErr),
			)
		}
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(deps.DB)
	productHandler := handlers.NewProductHandler(deps.Products, logger)
	cloverHandler := handlers.NewCloverHandler(deps.Clover, logger, cfg)

	auth := middleware.Auth(cfg.JWTSecret)
	managers := middleware.RequireRole(models.UserRoleAdmin, models.UserRoleManager)

	router.GET("/health", healthHandler.Check)

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Products
		products := v1.Group("/products", auth)
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
		}

		// Clover Integration. The OAuth callback is reached by a browser
		// redirect and authenticates through its state parameter.
		v1.GET("/clover/oauth-callback", cloverHandler.OAuthCallback)

		clover := v1.Group("/clover", auth)
		{
			clover.GET("/authorize-url", cloverHandler.AuthorizeURL)
			clover.GET("/connection-status", cloverHandler.ConnectionStatus)
			clover.GET("/merchant-info", cloverHandler.MerchantInfo)
			clover.GET("/sync-status", cloverHandler.SyncStatus)
			clover.POST("/import", managers, cloverHandler.Import)
			clover.POST("/manual-sync", managers, cloverHandler.ManualSync)
			clover.POST("/sync-products", cloverHandler.SyncProducts)
			clover.POST("/sync-inventory", cloverHandler.SyncInventory)
			clover.POST("/disconnect", cloverHandler.Disconnect)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	// Syncs of large catalogs run inside the request, so writes get more room
	// than reads.
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
