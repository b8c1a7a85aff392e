// Package circulation implements the loan/reservation state machine:
// the rules for moving a book between AVAILABLE, LOANED and RESERVED,
// and the transactional writes that keep book status, loan records and
// the reservation queue consistent.
//
// Reservations use a two-phase hold. Returning a book promotes the
// oldest queued reservation (the book becomes RESERVED for that user)
// but leaves the queue row in place; only when the promoted user
// actually checks the book out is their reservation consumed and
// deleted. A promoted hold therefore survives until its holder acts.
package circulation

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/akowalski/bibliotek/internal/database/books"
	"github.com/akowalski/bibliotek/internal/database/loans"
	"github.com/akowalski/bibliotek/internal/database/reservations"
	"github.com/akowalski/bibliotek/internal/entities"
)

// Business outcomes of circulation operations. These are expected
// results reported to the caller, not storage failures.
var (
	ErrBookNotFound     = errors.New("book not found")
	ErrAlreadyLoaned    = errors.New("book is already loaned")
	ErrReservedForOther = errors.New("book is reserved for another user")
	ErrNotLoanedByUser  = errors.New("user has no open loan for this book")
	ErrNotReservable    = errors.New("only loaned books can be reserved")
)

var businessErrors = []error{
	ErrBookNotFound,
	ErrAlreadyLoaned,
	ErrReservedForOther,
	ErrNotLoanedByUser,
	ErrNotReservable,
}

// Transient reports whether err is a storage failure rather than a
// business outcome. The transaction has already been rolled back, so
// a transient failure is safe for the caller to retry.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	for _, business := range businessErrors {
		if errors.Is(err, business) {
			return false
		}
	}
	return true
}

// Notifier is told when a returned book is promoted to a waiting
// user. Called after the transaction commits.
type Notifier interface {
	ReservationReady(userID, bookID uint)
}

// Recorder receives circulation events for auditing. Called after the
// transaction commits; recording failures must not fail the operation.
type Recorder interface {
	Record(event Event)
}

// Event is an audit record of a completed circulation operation.
type Event struct {
	Action     string `json:"action"` // "checkout", "return", "reserve", "promotion"
	UserID     uint   `json:"user_id"`
	BookID     uint   `json:"book_id"`
	PromotedTo uint   `json:"promoted_to,omitempty"`
}

// Service orchestrates checkout, return and reserve against the book,
// loan and reservation stores inside a single transaction per
// operation.
type Service struct {
	db           *gorm.DB
	books        *books.Repository
	loans        *loans.Repository
	reservations *reservations.Repository
	notifier     Notifier
	recorder     Recorder
}

// NewService creates a circulation service. notifier and recorder may
// be nil.
func NewService(db *gorm.DB, books *books.Repository, loans *loans.Repository, reservations *reservations.Repository) *Service {
	return &Service{
		db:           db,
		books:        books,
		loans:        loans,
		reservations: reservations,
	}
}

// SetNotifier installs the promotion notifier.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetRecorder installs the audit recorder.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// Checkout loans the book to the user. Permitted when the book is
// AVAILABLE, or RESERVED for this exact user; checking out a promoted
// reservation consumes (deletes) the user's queue entry.
func (s *Service) Checkout(userID, bookID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		book, err := s.books.GetByIDTx(tx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return fmt.Errorf("load book: %w", err)
		}

		status := StatusOf(book)
		switch status.State {
		case entities.BookStatusLoaned:
			return ErrAlreadyLoaned
		case entities.BookStatusReserved:
			if status.ReservedFor != userID {
				return ErrReservedForOther
			}
		}

		if _, err := s.loans.Create(tx, userID, bookID); err != nil {
			return fmt.Errorf("create loan: %w", err)
		}

		state, holder := Loaned().Columns()
		if err := s.books.UpdateStatus(tx, bookID, state, holder); err != nil {
			return fmt.Errorf("update book status: %w", err)
		}

		if status.State == entities.BookStatusReserved {
			if err := s.consumeReservation(tx, userID, bookID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.record(Event{Action: "checkout", UserID: userID, BookID: bookID})
	return nil
}

// consumeReservation deletes the user's oldest reservation for the
// book, if one exists.
func (s *Service) consumeReservation(tx *gorm.DB, userID, bookID uint) error {
	queue, err := s.reservations.ForBook(tx, bookID)
	if err != nil {
		return fmt.Errorf("load reservation queue: %w", err)
	}
	for _, reservation := range queue {
		if reservation.UserID == userID {
			if err := s.reservations.Delete(tx, reservation.ID); err != nil {
				return fmt.Errorf("consume reservation: %w", err)
			}
			return nil
		}
	}
	return nil
}

// Return closes the user's open loan on the book. If the queue is
// non-empty the book is promoted to RESERVED for the oldest waiting
// user (their queue entry stays until they check out); otherwise the
// book becomes AVAILABLE again.
func (s *Service) Return(userID, bookID uint) error {
	var promotedTo *uint

	err := s.db.Transaction(func(tx *gorm.DB) error {
		closed, err := s.loans.Close(tx, bookID, userID)
		if err != nil {
			return fmt.Errorf("close loan: %w", err)
		}
		if !closed {
			return ErrNotLoanedByUser
		}

		next, err := s.reservations.NextForBook(tx, bookID)
		if err != nil {
			return fmt.Errorf("peek reservation queue: %w", err)
		}

		var status Status
		if next != nil {
			status = ReservedFor(next.UserID)
			promotedTo = &next.UserID
		} else {
			status = Available()
		}

		state, holder := status.Columns()
		if err := s.books.UpdateStatus(tx, bookID, state, holder); err != nil {
			return fmt.Errorf("update book status: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	event := Event{Action: "return", UserID: userID, BookID: bookID}
	if promotedTo != nil {
		event.PromotedTo = *promotedTo
		if s.notifier != nil {
			s.notifier.ReservationReady(*promotedTo, bookID)
		}
	}
	s.record(event)
	return nil
}

// Reserve queues the user for a currently loaned book. Reserving an
// AVAILABLE book is rejected (it can simply be checked out), and so is
// reserving one already promoted to another user; queueing behind an
// existing LOANED-book queue is allowed.
func (s *Service) Reserve(userID, bookID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		book, err := s.books.GetByIDTx(tx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return fmt.Errorf("load book: %w", err)
		}

		if book.Status != entities.BookStatusLoaned {
			return ErrNotReservable
		}

		if _, err := s.reservations.Add(tx, userID, bookID); err != nil {
			return fmt.Errorf("add reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.record(Event{Action: "reserve", UserID: userID, BookID: bookID})
	return nil
}

func (s *Service) record(event Event) {
	if s.recorder != nil {
		s.recorder.Record(event)
	}
}
