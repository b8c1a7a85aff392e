// Package reservations provides database operations for the per-book
// reservation queue. Queue order is reservation_date ascending with
// id as tiebreaker; that ordering is the FIFO contract the
// circulation service relies on.
package reservations

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/akowalski/bibliotek/internal/entities"
)

// Repository handles reservation queue database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reservations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add appends a reservation with reservation_date = now. The store
// does not deduplicate; whether a user may queue twice is the
// caller's concern.
func (r *Repository) Add(tx *gorm.DB, userID, bookID uint) (*entities.Reservation, error) {
	reservation := &entities.Reservation{
		UserID:          userID,
		BookID:          bookID,
		ReservationDate: time.Now(),
	}
	if err := tx.Create(reservation).Error; err != nil {
		return nil, err
	}
	return reservation, nil
}

// NextForBook returns the earliest reservation for the book, or nil
// when the queue is empty.
func (r *Repository) NextForBook(tx *gorm.DB, bookID uint) (*entities.Reservation, error) {
	var reservation entities.Reservation
	err := tx.Where("book_id = ?", bookID).
		Order("reservation_date ASC, id ASC").
		First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ForBook returns the full queue for a book, oldest first.
func (r *Repository) ForBook(tx *gorm.DB, bookID uint) ([]entities.Reservation, error) {
	var reservations []entities.Reservation
	err := tx.Where("book_id = ?", bookID).
		Order("reservation_date ASC, id ASC").
		Find(&reservations).Error
	return reservations, err
}

// Delete removes a reservation row. Reservations are never updated,
// only created and deleted.
func (r *Repository) Delete(tx *gorm.DB, id uint) error {
	return tx.Delete(&entities.Reservation{}, id).Error
}

// ByUser returns the user's queued reservations, oldest first.
func (r *Repository) ByUser(userID uint) ([]entities.Reservation, error) {
	var reservations []entities.Reservation
	err := r.db.Preload("Book").Where("user_id = ?", userID).
		Order("reservation_date ASC, id ASC").
		Find(&reservations).Error
	return reservations, err
}
