package reservations

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/akowalski/bibliotek/internal/database"
	"github.com/akowalski/bibliotek/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, func()) {
	t.Helper()

	dbPath := "./test_reservations_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	repo := NewRepository(db.DB)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db.DB, repo, cleanup
}

func addReservationAt(t *testing.T, db *gorm.DB, userID, bookID uint, at time.Time) *entities.Reservation {
	t.Helper()
	reservation := &entities.Reservation{UserID: userID, BookID: bookID, ReservationDate: at}
	require.NoError(t, db.Create(reservation).Error)
	return reservation
}

func TestRepository_Add(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	reservation, err := repo.Add(db, 5, 1)
	require.NoError(t, err)

	assert.NotZero(t, reservation.ID)
	assert.False(t, reservation.ReservationDate.IsZero())

	// No dedup at the store level.
	_, err = repo.Add(db, 5, 1)
	require.NoError(t, err)

	queue, err := repo.ForBook(db, 1)
	require.NoError(t, err)
	assert.Len(t, queue, 2)
}

func TestRepository_NextForBook(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	t.Run("empty queue returns nil", func(t *testing.T) {
		next, err := repo.NextForBook(db, 42)
		require.NoError(t, err)
		assert.Nil(t, next)
	})

	t.Run("earliest date wins", func(t *testing.T) {
		addReservationAt(t, db, 20, 1, time.Now().Add(-time.Hour))
		addReservationAt(t, db, 10, 1, time.Now().Add(-2*time.Hour))

		next, err := repo.NextForBook(db, 1)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, uint(10), next.UserID)
	})

	t.Run("ties broken by id", func(t *testing.T) {
		at := time.Now()
		first := addReservationAt(t, db, 30, 2, at)
		addReservationAt(t, db, 40, 2, at)

		next, err := repo.NextForBook(db, 2)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, first.ID, next.ID)
	})
}

func TestRepository_ForBook_Ordering(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	addReservationAt(t, db, 20, 1, time.Now().Add(-time.Hour))
	addReservationAt(t, db, 10, 1, time.Now().Add(-2*time.Hour))
	addReservationAt(t, db, 30, 2, time.Now())

	queue, err := repo.ForBook(db, 1)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, uint(10), queue[0].UserID)
	assert.Equal(t, uint(20), queue[1].UserID)
}

func TestRepository_Delete(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	reservation := addReservationAt(t, db, 5, 1, time.Now())
	require.NoError(t, repo.Delete(db, reservation.ID))

	queue, err := repo.ForBook(db, 1)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestRepository_ByUser(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := &entities.Book{Title: "Solaris", Author: "Stanisław Lem", Status: entities.BookStatusLoaned}
	require.NoError(t, db.Create(book).Error)

	addReservationAt(t, db, 5, book.ID, time.Now())
	addReservationAt(t, db, 9, book.ID, time.Now())

	mine, err := repo.ByUser(5)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Solaris", mine[0].Book.Title)
}
