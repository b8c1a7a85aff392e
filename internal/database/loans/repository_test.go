package loans

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/akowalski/bibliotek/internal/database"
	"github.com/akowalski/bibliotek/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, func()) {
	t.Helper()

	dbPath := "./test_loans_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	repo := NewRepository(db.DB)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db.DB, repo, cleanup
}

func createBook(t *testing.T, db *gorm.DB, title string) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, Author: "Test Author", Status: entities.BookStatusAvailable}
	require.NoError(t, db.Create(book).Error)
	return book
}

func TestRepository_Create(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Solaris")

	loan, err := repo.Create(db, 5, book.ID)
	require.NoError(t, err)

	assert.NotZero(t, loan.ID)
	assert.Equal(t, uint(5), loan.UserID)
	assert.False(t, loan.LoanDate.IsZero())
	assert.Nil(t, loan.ReturnDate)
}

func TestRepository_Close(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Solaris")
	_, err := repo.Create(db, 5, book.ID)
	require.NoError(t, err)

	closed, err := repo.Close(db, book.ID, 5)
	require.NoError(t, err)
	assert.True(t, closed)

	var loan entities.Loan
	require.NoError(t, db.Where("book_id = ?", book.ID).First(&loan).Error)
	require.NotNil(t, loan.ReturnDate)

	// Closing twice finds no open loan.
	closed, err = repo.Close(db, book.ID, 5)
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestRepository_Close_WrongUser(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Solaris")
	_, err := repo.Create(db, 5, book.ID)
	require.NoError(t, err)

	closed, err := repo.Close(db, book.ID, 9)
	require.NoError(t, err)
	assert.False(t, closed)

	// The real borrower's loan is untouched.
	var loan entities.Loan
	require.NoError(t, db.Where("book_id = ?", book.ID).First(&loan).Error)
	assert.Nil(t, loan.ReturnDate)
}

func TestRepository_ActiveByUser(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	first := createBook(t, db, "Solaris")
	second := createBook(t, db, "Eden")

	_, err := repo.Create(db, 5, first.ID)
	require.NoError(t, err)
	_, err = repo.Create(db, 5, second.ID)
	require.NoError(t, err)
	_, err = repo.Create(db, 9, first.ID)
	require.NoError(t, err)

	_, err = repo.Close(db, second.ID, 5)
	require.NoError(t, err)

	active, err := repo.ActiveByUser(5)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].BookID)
}

func TestRepository_OpenByBook(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Solaris")

	_, err := repo.OpenByBook(book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.Create(db, 5, book.ID)
	require.NoError(t, err)

	loan, err := repo.OpenByBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(5), loan.UserID)
}

func TestRepository_MostLoaned(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	popular := createBook(t, db, "Solaris")
	quiet := createBook(t, db, "Eden")

	for i := 0; i < 3; i++ {
		_, err := repo.Create(db, 5, popular.ID)
		require.NoError(t, err)
		_, err = repo.Close(db, popular.ID, 5)
		require.NoError(t, err)
	}
	_, err := repo.Create(db, 5, quiet.ID)
	require.NoError(t, err)

	rows, err := repo.MostLoaned(5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Solaris", rows[0].Title)
	assert.Equal(t, int64(3), rows[0].LoanCount)
	assert.Equal(t, "Eden", rows[1].Title)

	rows, err = repo.MostLoaned(1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRepository_ActiveBorrowerCount(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	first := createBook(t, db, "Solaris")
	second := createBook(t, db, "Eden")
	third := createBook(t, db, "Potop")

	_, err := repo.Create(db, 5, first.ID)
	require.NoError(t, err)
	_, err = repo.Create(db, 5, second.ID)
	require.NoError(t, err)
	_, err = repo.Create(db, 6, third.ID)
	require.NoError(t, err)

	count, err := repo.ActiveBorrowerCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Closed loans no longer count.
	_, err = repo.Close(db, third.ID, 6)
	require.NoError(t, err)

	count, err = repo.ActiveBorrowerCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
