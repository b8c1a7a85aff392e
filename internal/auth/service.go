package auth

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/akowalski/bibliotek/internal/config"
	"github.com/akowalski/bibliotek/internal/entities"
)

// usernamePattern: 3-64 chars, alphanumeric plus underscore/hyphen.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrUserInactive     = errors.New("user account is deactivated")
	ErrAuthRequired     = errors.New("authentication required")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
)

// Service handles authentication and user management.
type Service struct {
	db     *gorm.DB
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateUser creates a new library user with password authentication.
func (s *Service) CreateUser(username, password string, role entities.UserRole, firstName, lastName string) (*entities.User, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}

	switch role {
	case entities.UserRoleUser, entities.UserRoleAdmin:
		// Valid
	default:
		return nil, ErrInvalidRole
	}

	var existing entities.User
	err := s.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		Username:     username,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		Active:       true,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate validates credentials and returns the user.
// Accounts lock for a while after too many failed attempts.
func (s *Service) Authenticate(username, password string) (*entities.User, error) {
	var user entities.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !user.Active {
		return nil, ErrUserInactive
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(&user)
		return nil, err
	}

	// Successful login resets the failure counter.
	s.db.Model(&user).Updates(map[string]any{
		"failed_logins": 0,
		"locked_until":  nil,
	})
	user.FailedLogins = 0
	user.LockedUntil = nil

	return &user, nil
}

// recordFailedLogin increments the failure counter and locks the account
// once the configured threshold is reached.
func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLogins++

	updates := map[string]any{
		"failed_logins": user.FailedLogins,
	}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if user.FailedLogins >= maxAttempts {
		lockedUntil := time.Now().Add(s.lockoutDuration())
		updates["locked_until"] = lockedUntil
		log.Printf("auth: locking account %q until %s after %d failed logins",
			user.Username, lockedUntil.Format(time.RFC3339), user.FailedLogins)
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		log.Printf("auth: failed to record failed login for %q: %v", user.Username, err)
	}
}

func (s *Service) lockoutDuration() time.Duration {
	if s.config.LockoutDuration > 0 {
		return s.config.LockoutDuration
	}
	return 30 * time.Minute
}

// GetUserByID looks up a user by primary key.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := s.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// HasUsers reports whether any user accounts exist.
func (s *Service) HasUsers() (bool, error) {
	var count int64
	if err := s.db.Model(&entities.User{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return count > 0, nil
}

// EnsureAdmin creates the initial admin account when the user table is
// empty. Called on startup with credentials from the configuration; a
// no-op when users already exist or no password is configured.
func (s *Service) EnsureAdmin(username, password string) error {
	if password == "" {
		return nil
	}

	exists, err := s.HasUsers()
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = s.CreateUser(username, password, entities.UserRoleAdmin, "", "")
	if err != nil {
		return fmt.Errorf("failed to create initial admin: %w", err)
	}
	log.Printf("auth: created initial admin account %q", username)
	return nil
}

// Deactivate marks a user account as inactive without deleting it,
// keeping loan and reservation history intact.
func (s *Service) Deactivate(userID uint) error {
	res := s.db.Model(&entities.User{}).Where("id = ?", userID).Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
