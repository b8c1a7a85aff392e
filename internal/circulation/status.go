package circulation

import "github.com/akowalski/bibliotek/internal/entities"

// Status is the in-memory view of a book's circulation state: a
// tagged variant over the two persisted columns (status,
// reserved_for_user_id).
type Status struct {
	State       entities.BookStatus
	ReservedFor uint // holder, meaningful only when State is RESERVED
}

// Available is the state of a book anyone may check out.
func Available() Status {
	return Status{State: entities.BookStatusAvailable}
}

// Loaned is the state of a checked-out book.
func Loaned() Status {
	return Status{State: entities.BookStatusLoaned}
}

// ReservedFor is the state of a book held for a specific user.
func ReservedFor(userID uint) Status {
	return Status{State: entities.BookStatusReserved, ReservedFor: userID}
}

// StatusOf decodes a book row into its tagged representation.
func StatusOf(book *entities.Book) Status {
	if book.Status == entities.BookStatusReserved && book.ReservedForUserID != nil {
		return ReservedFor(*book.ReservedForUserID)
	}
	return Status{State: book.Status}
}

// Columns encodes the status back into its persisted column pair.
func (s Status) Columns() (entities.BookStatus, *uint) {
	if s.State == entities.BookStatusReserved {
		holder := s.ReservedFor
		return s.State, &holder
	}
	return s.State, nil
}
