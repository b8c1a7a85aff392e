package http

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/akowalski/bibliotek/internal/circulation"
)

// CirculationController exposes checkout, return and reservation
// endpoints backed by the circulation service.
type CirculationController struct {
	service *circulation.Service
}

func NewCirculationController(service *circulation.Service) *CirculationController {
	return &CirculationController{service: service}
}

// Checkout handles POST /api/books/:id/checkout.
func (controller *CirculationController) Checkout(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := controller.service.Checkout(GetUserID(c), bookID)
	if err != nil {
		controller.respondCirculationError(c, err, "checkout")
		return
	}

	respondSuccess(c, "book checked out")
}

// Return handles POST /api/books/:id/return.
func (controller *CirculationController) Return(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := controller.service.Return(GetUserID(c), bookID)
	if err != nil {
		controller.respondCirculationError(c, err, "return")
		return
	}

	respondSuccess(c, "book returned")
}

// Reserve handles POST /api/books/:id/reserve.
func (controller *CirculationController) Reserve(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := controller.service.Reserve(GetUserID(c), bookID)
	if err != nil {
		controller.respondCirculationError(c, err, "reserve")
		return
	}

	respondSuccess(c, "book reserved")
}

// respondCirculationError maps business errors from the circulation
// service onto HTTP status codes.
func (controller *CirculationController) respondCirculationError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, circulation.ErrBookNotFound):
		respondNotFound(c, "book")
	case errors.Is(err, circulation.ErrAlreadyLoaned):
		respondConflict(c, "book is already loaned", "already_loaned")
	case errors.Is(err, circulation.ErrReservedForOther):
		respondForbidden(c, "book is reserved for another reader", "reserved_for_other")
	case errors.Is(err, circulation.ErrNotLoanedByUser):
		respondConflict(c, "no open loan for this book and reader", "not_loaned_by_user")
	case errors.Is(err, circulation.ErrNotReservable):
		respondConflict(c, "only loaned books can be reserved", "not_reservable")
	default:
		// Everything else is a storage failure; the transaction already
		// rolled back, so the client may simply retry.
		respondUnavailable(c, err, context)
	}
}
