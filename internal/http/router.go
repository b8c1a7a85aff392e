package http

import (
	"github.com/gin-gonic/gin"

	"github.com/akowalski/bibliotek/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		// No auth - inject default user ID
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	booksController := NewBooksController(cfg.Books, cfg.Loans)
	categoriesController := NewCategoriesController(cfg.Categories)
	circulationController := NewCirculationController(cfg.Circulation)
	loansController := NewLoansController(cfg.Loans)
	reservationsController := NewReservationsController(cfg.Reservations, cfg.Books)
	statsController := NewStatsController(cfg.Books, cfg.Loans)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Session endpoints
	var authController *AuthController
	if cfg.AuthService != nil && cfg.SessionManager != nil {
		authController = NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.RateLimiter)
		router.POST("/login", authController.Login)
		router.POST("/logout", authController.Logout)
		router.GET("/api/me", authController.Me)
	}

	// Catalog endpoints
	router.GET("/api/books", booksController.GetAllBooks)
	router.GET("/api/books/search", booksController.Search)
	router.GET("/api/books/search/advanced", booksController.SearchAdvanced)
	router.GET("/api/books/:id", booksController.GetBook)
	router.GET("/api/categories", categoriesController.GetAllCategories)
	router.GET("/api/categories/:id/books", booksController.GetByCategory)

	// Circulation endpoints
	router.POST("/api/books/:id/checkout", circulationController.Checkout)
	router.POST("/api/books/:id/return", circulationController.Return)
	router.POST("/api/books/:id/reserve", circulationController.Reserve)

	// Reader endpoints
	router.GET("/api/loans", loansController.MyLoans)
	router.GET("/api/reservations", reservationsController.MyReservations)
	router.GET("/api/reservations/ready", reservationsController.MyPickups)

	// Statistics
	router.GET("/api/stats", statsController.GetStats)

	// Admin endpoints
	adminRoutes := router.Group("/api/admin")
	if cfg.AuthMiddleware != nil {
		adminRoutes.Use(cfg.AuthMiddleware.RequireAdmin())
	}
	adminRoutes.POST("/books", booksController.CreateBook)
	adminRoutes.DELETE("/books/:id", booksController.DeleteBook)
	adminRoutes.POST("/categories", categoriesController.CreateCategory)
	adminRoutes.DELETE("/categories/:id", categoriesController.DeleteCategory)
	adminRoutes.GET("/loans", loansController.AllLoans)
	if authController != nil {
		adminRoutes.POST("/users", authController.RegisterUser)
	}

	return router
}
