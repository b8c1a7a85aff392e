package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akowalski/bibliotek/internal/auth"
	"github.com/akowalski/bibliotek/internal/entities"
)

// AuthController handles login and logout for session-based clients.
type AuthController struct {
	service        *auth.Service
	sessionManager *auth.SessionManager
	rateLimiter    *auth.RateLimiter
}

func NewAuthController(service *auth.Service, sessionManager *auth.SessionManager, rateLimiter *auth.RateLimiter) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /login.
func (controller *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}

	ip := c.ClientIP()
	if controller.rateLimiter != nil {
		if allowed, retryAfter := controller.rateLimiter.Allow(ip, req.Username); !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many login attempts",
				Code:  "rate_limited",
			})
			return
		}
	}

	user, err := controller.service.Authenticate(req.Username, req.Password)
	if err != nil {
		if controller.rateLimiter != nil {
			controller.rateLimiter.RecordFailure(ip, req.Username)
		}
		if errors.Is(err, auth.ErrAccountLocked) {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "account locked", Code: "account_locked"})
			return
		}
		// Do not reveal whether the username or the password was wrong
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}

	if controller.rateLimiter != nil {
		controller.rateLimiter.RecordSuccess(ip, req.Username)
	}

	if err := controller.sessionManager.CreateSession(c.Request, user); err != nil {
		respondInternalError(c, err, "create session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "logged in",
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// Logout handles POST /logout.
func (controller *AuthController) Logout(c *gin.Context) {
	if err := controller.sessionManager.DestroySession(c.Request); err != nil {
		respondInternalError(c, err, "destroy session")
		return
	}
	respondSuccess(c, "logged out")
}

type registerUserRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RegisterUser handles POST /api/admin/users: librarians register patrons at the desk.
func (controller *AuthController) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}

	role := entities.UserRole(req.Role)
	if req.Role == "" {
		role = entities.UserRoleUser
	}

	user, err := controller.service.CreateUser(req.Username, req.Password, role, req.FirstName, req.LastName)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			respondConflict(c, "username is taken", "user_exists")
		case errors.Is(err, auth.ErrInvalidRole),
			errors.Is(err, auth.ErrUsernameInvalid),
			errors.Is(err, auth.ErrPasswordTooShort):
			respondBadRequest(c, err.Error())
		default:
			respondInternalError(c, err, "create user")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
}

// Me handles GET /api/me: the authenticated user's identity.
func (controller *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":       auth.GetUserID(c),
		"username": auth.GetUsername(c),
		"role":     auth.GetUserRole(c),
	})
}
