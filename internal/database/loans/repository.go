// Package loans provides database operations for loan records.
package loans

import (
	"time"

	"gorm.io/gorm"

	"github.com/akowalski/bibliotek/internal/entities"
)

// MostLoanedBook is a single row of the loan popularity report.
type MostLoanedBook struct {
	Title     string `json:"title"`
	LoanCount int64  `json:"loan_count"`
}

// Repository handles loan database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new loans repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an open loan with loan_date = now. It runs against
// the passed-in handle so it participates in the circulation
// service's transaction.
func (r *Repository) Create(tx *gorm.DB, userID, bookID uint) (*entities.Loan, error) {
	loan := &entities.Loan{
		UserID:   userID,
		BookID:   bookID,
		LoanDate: time.Now(),
	}
	if err := tx.Create(loan).Error; err != nil {
		return nil, err
	}
	return loan, nil
}

// Close sets return_date on the open loan matching (bookID, userID).
// Returns false when no open loan matches, which covers both "never
// loaned" and "already returned". A single UPDATE keeps closing
// idempotent: the second call finds no open row.
func (r *Repository) Close(tx *gorm.DB, bookID, userID uint) (bool, error) {
	result := tx.Model(&entities.Loan{}).
		Where("book_id = ? AND user_id = ? AND return_date IS NULL", bookID, userID).
		Update("return_date", time.Now())
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ActiveByUser returns the user's open loans.
func (r *Repository) ActiveByUser(userID uint) ([]entities.Loan, error) {
	var loans []entities.Loan
	err := r.db.Preload("Book").
		Where("user_id = ? AND return_date IS NULL", userID).
		Order("loan_date ASC").
		Find(&loans).Error
	return loans, err
}

// OpenByBook returns the open loan for a book, if any.
func (r *Repository) OpenByBook(bookID uint) (*entities.Loan, error) {
	var loan entities.Loan
	err := r.db.Where("book_id = ? AND return_date IS NULL", bookID).First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// All returns every loan, open and closed.
func (r *Repository) All() ([]entities.Loan, error) {
	var loans []entities.Loan
	err := r.db.Preload("Book").Order("loan_date DESC").Find(&loans).Error
	return loans, err
}

// ActiveBorrowerCount counts distinct users that currently hold a loan.
func (r *Repository) ActiveBorrowerCount() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Loan{}).
		Where("return_date IS NULL").
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

// MostLoaned returns the most frequently loaned books, busiest first.
func (r *Repository) MostLoaned(limit int) ([]MostLoanedBook, error) {
	var rows []MostLoanedBook
	err := r.db.Model(&entities.Loan{}).
		Select("books.title AS title, COUNT(loans.book_id) AS loan_count").
		Joins("JOIN books ON loans.book_id = books.id").
		Group("loans.book_id, books.title").
		Order("loan_count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
