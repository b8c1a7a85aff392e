package auth

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/akowalski/bibliotek/internal/config"
	"github.com/akowalski/bibliotek/internal/database"
	"github.com/akowalski/bibliotek/internal/entities"
)

func setupTestService(t *testing.T) (*gorm.DB, *Service, func()) {
	t.Helper()

	dbPath := "./test_auth_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cfg := config.Auth{
		Mode:             config.AuthModeLocal,
		BcryptCost:       bcrypt.MinCost,
		MaxLoginAttempts: 3,
		LockoutDuration:  30 * time.Minute,
	}
	service := NewService(db.DB, cfg)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db.DB, service, cleanup
}

func TestCreateUser(t *testing.T) {
	_, service, cleanup := setupTestService(t)
	defer cleanup()

	user, err := service.CreateUser("jkowalski", "a-long-enough-password", entities.UserRoleUser, "Jan", "Kowalski")
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "jkowalski", user.Username)
	assert.Equal(t, entities.UserRoleUser, user.Role)
	assert.True(t, user.Active)
	assert.NotEqual(t, "a-long-enough-password", user.PasswordHash)
}

func TestCreateUser_Validation(t *testing.T) {
	_, service, cleanup := setupTestService(t)
	defer cleanup()

	cases := []struct {
		name     string
		username string
		password string
		role     entities.UserRole
		wantErr  error
	}{
		{"empty username", "", "a-long-enough-password", entities.UserRoleUser, ErrUsernameRequired},
		{"empty password", "jkowalski", "", entities.UserRoleUser, ErrPasswordRequired},
		{"short username", "jk", "a-long-enough-password", entities.UserRoleUser, ErrUsernameInvalid},
		{"invalid characters", "jan kowalski", "a-long-enough-password", entities.UserRoleUser, ErrUsernameInvalid},
		{"invalid role", "jkowalski", "a-long-enough-password", entities.UserRole("LIBRARIAN"), ErrInvalidRole},
		{"short password", "jkowalski", "short", entities.UserRoleUser, ErrPasswordTooShort},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateUser(tc.username, tc.password, tc.role, "", "")
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	_, service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.CreateUser("jkowalski", "a-long-enough-password", entities.UserRoleUser, "", "")
	require.NoError(t, err)

	_, err = service.CreateUser("jkowalski", "another-long-password", entities.UserRoleUser, "", "")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAuthenticate(t *testing.T) {
	_, service, cleanup := setupTestService(t)
	defer cleanup()

	created, err := service.CreateUser("jkowalski", "a-long-enough-password", entities.UserRoleUser, "", "")
	require.NoError(t, err)

	user, err := service.Authenticate("jkowalski", "a-long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	_, service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.CreateUser("jkowalski", "a-long-enough-password", entities.UserRoleUser, "", "")
	require.NoError(t, err)

	_, err = service.Authenticate("jkowalski", "the-wrong-password-here")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	_, service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.Authenticate("nobody", "a-long-enough-password")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthenticate_LockoutAfterRepeatedFailures(t *testing.T) {
	db, service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.CreateUser("jkowalski", "a-long-enough-password", entities.UserRoleUser, "", "")
	require.NoError(t, err)

	// MaxLoginAttempts is 3 in the test config
	for i := 0; i < 3; i++ {
		_, err = service.Authenticate("jkowalski", "the-wrong-password-here")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}

	var user entities.User
	require.NoError(t, db.Where("username = ?", "jkowalski").First(&user).Error)
	assert.Equal(t, 3, user.FailedLogins)
	require.NotNil(t, user.LockedUntil)
	assert.True(t, user.LockedUntil.After(time.Now()))

	// Even the correct password is rejected while locked
	_, err = service.Authenticate("jkowalski", "a-long-enough-password")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthenticate_SuccessResetsFailures(t *testing.T) {
	db, service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.CreateUser("jkowalski", "a-long-enough-password", entities.UserRoleUser, "", "")
	require.NoError(t, err)

	_, err = service.Authenticate("jkowalski", "the-wrong-password-here")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = service.Authenticate("jkowalski", "a-long-enough-password")
	require.NoError(t, err)

	var user entities.User
	require.NoError(t, db.Where("username = ?", "jkowalski").First(&user).Error)
	assert.Zero(t, user.FailedLogins)
	assert.Nil(t, user.LockedUntil)
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	_, service, cleanup := setupTestService(t)
	defer cleanup()

	user, err := service.CreateUser("jkowalski", "a-long-enough-password", entities.UserRoleUser, "", "")
	require.NoError(t, err)

	require.NoError(t, service.Deactivate(user.ID))

	_, err = service.Authenticate("jkowalski", "a-long-enough-password")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestDeactivate_UnknownUser(t *testing.T) {
	_, service, cleanup := setupTestService(t)
	defer cleanup()

	assert.ErrorIs(t, service.Deactivate(999), ErrUserNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	_, service, cleanup := setupTestService(t)
	defer cleanup()

	require.NoError(t, service.EnsureAdmin("admin", "the-initial-admin-password"))

	user, err := service.Authenticate("admin", "the-initial-admin-password")
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleAdmin, user.Role)
}

func TestEnsureAdmin_SkippedWhenUsersExist(t *testing.T) {
	_, service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.CreateUser("jkowalski", "a-long-enough-password", entities.UserRoleUser, "", "")
	require.NoError(t, err)

	require.NoError(t, service.EnsureAdmin("admin", "the-initial-admin-password"))

	_, err = service.Authenticate("admin", "the-initial-admin-password")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEnsureAdmin_SkippedWithoutPassword(t *testing.T) {
	_, service, cleanup := setupTestService(t)
	defer cleanup()

	require.NoError(t, service.EnsureAdmin("admin", ""))

	exists, err := service.HasUsers()
	require.NoError(t, err)
	assert.False(t, exists)
}
