package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akowalski/bibliotek/internal/database/books"
	"github.com/akowalski/bibliotek/internal/database/reservations"
)

// ReservationsController exposes the caller's reservation queue and
// ready pickups.
type ReservationsController struct {
	reservations *reservations.Repository
	books        *books.Repository
}

func NewReservationsController(resRepo *reservations.Repository, bookRepo *books.Repository) *ReservationsController {
	return &ReservationsController{reservations: resRepo, books: bookRepo}
}

// MyReservations handles GET /api/reservations: every queue position
// the caller holds, oldest first.
func (controller *ReservationsController) MyReservations(c *gin.Context) {
	mine, err := controller.reservations.ByUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list reservations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": mine, "count": len(mine)})
}

// MyPickups handles GET /api/reservations/ready: books currently held
// for the caller and ready to check out.
func (controller *ReservationsController) MyPickups(c *gin.Context) {
	held, err := controller.books.ReservedForUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list pickups")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": held, "count": len(held)})
}
