// Package books provides database operations for the book catalog.
//
// Status and reserved_for_user_id are circulation state: they are
// written only through UpdateStatus, which joins the caller's
// transaction so that the circulation service can keep book, loan and
// reservation rows consistent.
package books

import (
	"gorm.io/gorm"

	"github.com/akowalski/bibliotek/internal/entities"
)

// SortColumns lists the columns accepted by SearchCriteria.SortBy.
// Anything else falls back to publication_year.
var sortColumns = map[string]bool{
	"title":            true,
	"author":           true,
	"publication_year": true,
}

// SearchCriteria describes an advanced catalog search. Zero values
// mean "not filtered on".
type SearchCriteria struct {
	Title      string
	Author     string
	Year       int
	CategoryID uint
	SortBy     string
	SortOrder  string // "ASC" or "DESC"
	Page       int    // 1-based
	PageSize   int
}

// Repository handles book catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByID retrieves a book by its ID.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	return r.GetByIDTx(r.db, id)
}

// GetByIDTx retrieves a book inside an existing transaction.
func (r *Repository) GetByIDTx(tx *gorm.DB, id uint) (*entities.Book, error) {
	var book entities.Book
	if err := tx.Preload("Category").First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetAll retrieves all books.
func (r *Repository) GetAll() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Preload("Category").Order("title ASC").Find(&books).Error
	return books, err
}

// Search searches books by title or author (case-insensitive partial match).
func (r *Repository) Search(query string) ([]entities.Book, error) {
	var books []entities.Book
	pattern := "%" + query + "%"
	err := r.db.Preload("Category").
		Where("LOWER(title) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?)", pattern, pattern).
		Find(&books).Error
	return books, err
}

// SearchAdvanced runs a criteria-based search with sorting and pagination.
func (r *Repository) SearchAdvanced(criteria SearchCriteria) ([]entities.Book, error) {
	var books []entities.Book
	query := r.applyCriteria(criteria).Preload("Category")

	sortBy := criteria.SortBy
	if !sortColumns[sortBy] {
		sortBy = "publication_year"
	}
	order := "DESC"
	if criteria.SortOrder == "ASC" {
		order = "ASC"
	}
	query = query.Order(sortBy + " " + order)

	if criteria.PageSize > 0 {
		query = query.Limit(criteria.PageSize)
		if criteria.Page > 1 {
			query = query.Offset((criteria.Page - 1) * criteria.PageSize)
		}
	}

	err := query.Find(&books).Error
	return books, err
}

// Count returns the number of books matching the criteria, ignoring
// pagination.
func (r *Repository) Count(criteria SearchCriteria) (int64, error) {
	var count int64
	err := r.applyCriteria(criteria).Model(&entities.Book{}).Count(&count).Error
	return count, err
}

func (r *Repository) applyCriteria(criteria SearchCriteria) *gorm.DB {
	query := r.db
	if criteria.Title != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+criteria.Title+"%")
	}
	if criteria.Author != "" {
		query = query.Where("LOWER(author) LIKE LOWER(?)", "%"+criteria.Author+"%")
	}
	if criteria.Year != 0 {
		query = query.Where("publication_year = ?", criteria.Year)
	}
	if criteria.CategoryID != 0 {
		query = query.Where("category_id = ?", criteria.CategoryID)
	}
	return query
}

// GetByCategory retrieves all books in a category.
func (r *Repository) GetByCategory(categoryID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Preload("Category").Where("category_id = ?", categoryID).Find(&books).Error
	return books, err
}

// Create adds a new book to the catalog. New books start AVAILABLE
// unless the caller says otherwise.
func (r *Repository) Create(book *entities.Book) error {
	if book.Status == "" {
		book.Status = entities.BookStatusAvailable
	}
	return r.db.Create(book).Error
}

// Delete soft-deletes a book.
func (r *Repository) Delete(id uint) error {
	return r.db.Delete(&entities.Book{}, id).Error
}

// UpdateStatus atomically updates the circulation columns of a book.
// It runs against the passed-in handle so it participates in the
// circulation service's transaction. reservedFor must be nil unless
// status is RESERVED.
func (r *Repository) UpdateStatus(tx *gorm.DB, bookID uint, status entities.BookStatus, reservedFor *uint) error {
	return tx.Model(&entities.Book{}).Where("id = ?", bookID).
		Updates(map[string]any{
			"status":               status,
			"reserved_for_user_id": reservedFor,
		}).Error
}

// ReservedForUser returns books currently held for the given user,
// i.e. promoted reservations awaiting pickup.
func (r *Repository) ReservedForUser(userID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Preload("Category").
		Where("status = ? AND reserved_for_user_id = ?", entities.BookStatusReserved, userID).
		Find(&books).Error
	return books, err
}

// CountAll returns the total number of books.
func (r *Repository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of books with the given status.
func (r *Repository) CountByStatus(status entities.BookStatus) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
