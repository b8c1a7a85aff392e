package books

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

	dbPath := "./test_books_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	repo := NewRepository(db.DB)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db.DB, repo, cleanup
}

func createBook(t *testing.T, repo *Repository, title, author string, year int, categoryID uint) *entities.Book {
	t.Helper()
	book := &entities.Book{
		Title:           title,
		Author:          author,
		PublicationYear: year,
		CategoryID:      categoryID,
	}
	require.NoError(t, repo.Create(book))
	return book
}

func TestRepository_CreateDefaultsToAvailable(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, repo, "Solaris", "Stanisław Lem", 1961, 1)

	loaded, err := repo.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusAvailable, loaded.Status)
	assert.Nil(t, loaded.ReservedForUserID)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetByID(999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_Search(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	createBook(t, repo, "Solaris", "Stanisław Lem", 1961, 1)
	createBook(t, repo, "The Cyberiad", "Stanisław Lem", 1965, 1)
	createBook(t, repo, "Quo Vadis", "Henryk Sienkiewicz", 1896, 2)

	books, err := repo.Search("lem")
	require.NoError(t, err)
	assert.Len(t, books, 2)

	books, err = repo.Search("cyberiad")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "The Cyberiad", books[0].Title)

	books, err = repo.Search("tolkien")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestRepository_SearchAdvanced(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	createBook(t, repo, "Solaris", "Stanisław Lem", 1961, 1)
	createBook(t, repo, "The Cyberiad", "Stanisław Lem", 1965, 1)
	createBook(t, repo, "Eden", "Stanisław Lem", 1959, 1)
	createBook(t, repo, "Quo Vadis", "Henryk Sienkiewicz", 1896, 2)

	t.Run("filters by author and sorts by year ascending", func(t *testing.T) {
		books, err := repo.SearchAdvanced(SearchCriteria{
			Author:    "lem",
			SortBy:    "publication_year",
			SortOrder: "ASC",
		})
		require.NoError(t, err)
		require.Len(t, books, 3)
		assert.Equal(t, "Eden", books[0].Title)
		assert.Equal(t, "The Cyberiad", books[2].Title)
	})

	t.Run("paginates", func(t *testing.T) {
		criteria := SearchCriteria{
			Author:    "lem",
			SortBy:    "publication_year",
			SortOrder: "ASC",
			Page:      2,
			PageSize:  2,
		}
		count, err := repo.Count(criteria)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		books, err := repo.SearchAdvanced(criteria)
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "The Cyberiad", books[0].Title)
	})

	t.Run("filters by year and category", func(t *testing.T) {
		books, err := repo.SearchAdvanced(SearchCriteria{Year: 1896, CategoryID: 2})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Quo Vadis", books[0].Title)
	})

	t.Run("rejects unknown sort column", func(t *testing.T) {
		_, err := repo.SearchAdvanced(SearchCriteria{SortBy: "id; DROP TABLE books"})
		require.NoError(t, err)
	})
}

func TestRepository_GetByCategory(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	createBook(t, repo, "Solaris", "Stanisław Lem", 1961, 1)
	createBook(t, repo, "Quo Vadis", "Henryk Sienkiewicz", 1896, 2)

	books, err := repo.GetByCategory(2)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Quo Vadis", books[0].Title)
}

func TestRepository_UpdateStatus(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, repo, "Solaris", "Stanisław Lem", 1961, 1)

	holder := uint(7)
	require.NoError(t, repo.UpdateStatus(db, book.ID, entities.BookStatusReserved, &holder))

	loaded, err := repo.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusReserved, loaded.Status)
	require.NotNil(t, loaded.ReservedForUserID)
	assert.Equal(t, uint(7), *loaded.ReservedForUserID)

	// Clearing the holder sets the column back to NULL.
	require.NoError(t, repo.UpdateStatus(db, book.ID, entities.BookStatusAvailable, nil))
	loaded, err = repo.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusAvailable, loaded.Status)
	assert.Nil(t, loaded.ReservedForUserID)
}

func TestRepository_ReservedForUser(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	first := createBook(t, repo, "Solaris", "Stanisław Lem", 1961, 1)
	second := createBook(t, repo, "Eden", "Stanisław Lem", 1959, 1)
	createBook(t, repo, "Quo Vadis", "Henryk Sienkiewicz", 1896, 2)

	holder := uint(7)
	require.NoError(t, repo.UpdateStatus(db, first.ID, entities.BookStatusReserved, &holder))
	other := uint(9)
	require.NoError(t, repo.UpdateStatus(db, second.ID, entities.BookStatusReserved, &other))

	books, err := repo.ReservedForUser(7)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Solaris", books[0].Title)
}

func TestRepository_Counts(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	first := createBook(t, repo, "Solaris", "Stanisław Lem", 1961, 1)
	createBook(t, repo, "Quo Vadis", "Henryk Sienkiewicz", 1896, 2)

	require.NoError(t, repo.UpdateStatus(db, first.ID, entities.BookStatusLoaned, nil))

	total, err := repo.CountAll()
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	loaned, err := repo.CountByStatus(entities.BookStatusLoaned)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaned)
}

func TestRepository_DeleteIsSoft(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, repo, "Solaris", "Stanisław Lem", 1961, 1)
	require.NoError(t, repo.Delete(book.ID))

	_, err := repo.GetByID(book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Row still present for loan history.
	var count int64
	require.NoError(t, db.Unscoped().Model(&entities.Book{}).Where("id = ?", book.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
