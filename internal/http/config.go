package http

import (
	"github.com/akowalski/bibliotek/internal/auth"
	"github.com/akowalski/bibliotek/internal/circulation"
	"github.com/akowalski/bibliotek/internal/config"
	"github.com/akowalski/bibliotek/internal/database"
	"github.com/akowalski/bibliotek/internal/database/books"
	"github.com/akowalski/bibliotek/internal/database/categories"
	"github.com/akowalski/bibliotek/internal/database/loans"
	"github.com/akowalski/bibliotek/internal/database/reservations"
)

// RouterConfig contains all dependencies and configuration needed to
// create the HTTP router. This replaces a long parameter list in
// NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database    *database.Database
	Circulation *circulation.Service

	// Repositories
	Books        *books.Repository
	Categories   *categories.Repository
	Loans        *loans.Repository
	Reservations *reservations.Repository

	// Authentication; all nil when auth mode is "none"
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	RateLimiter    *auth.RateLimiter
	AuthConfig     config.Auth
	CSRFSecret     []byte

	// Application info
	Version string
}
