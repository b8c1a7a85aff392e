package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akowalski/bibliotek/internal/database/books"
	"github.com/akowalski/bibliotek/internal/database/loans"
	"github.com/akowalski/bibliotek/internal/entities"
)

// MostLoanedLimit is how many titles the most-loaned ranking returns.
const MostLoanedLimit = 5

// StatsController reports catalog and circulation statistics.
type StatsController struct {
	books *books.Repository
	loans *loans.Repository
}

func NewStatsController(bookRepo *books.Repository, loanRepo *loans.Repository) *StatsController {
	return &StatsController{books: bookRepo, loans: loanRepo}
}

// GetStats handles GET /api/stats.
func (controller *StatsController) GetStats(c *gin.Context) {
	total, err := controller.books.CountAll()
	if err != nil {
		respondInternalError(c, err, "count books")
		return
	}

	byStatus := make(map[string]int64, 3)
	for _, status := range []entities.BookStatus{
		entities.BookStatusAvailable,
		entities.BookStatusLoaned,
		entities.BookStatusReserved,
	} {
		count, err := controller.books.CountByStatus(status)
		if err != nil {
			respondInternalError(c, err, "count books by status")
			return
		}
		byStatus[string(status)] = count
	}

	mostLoaned, err := controller.loans.MostLoaned(MostLoanedLimit)
	if err != nil {
		respondInternalError(c, err, "most loaned books")
		return
	}

	activeBorrowers, err := controller.loans.ActiveBorrowerCount()
	if err != nil {
		respondInternalError(c, err, "count active borrowers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_books":      total,
		"by_status":        byStatus,
		"most_loaned":      mostLoaned,
		"active_borrowers": activeBorrowers,
	})
}
