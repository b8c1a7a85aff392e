package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akowalski/bibliotek/internal/database/loans"
)

// LoansController exposes loan history.
type LoansController struct {
	loans *loans.Repository
}

func NewLoansController(repo *loans.Repository) *LoansController {
	return &LoansController{loans: repo}
}

// MyLoans handles GET /api/loans: the caller's open loans.
func (controller *LoansController) MyLoans(c *gin.Context) {
	active, err := controller.loans.ActiveByUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list active loans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": active, "count": len(active)})
}

// AllLoans handles GET /api/admin/loans (admin only): the full loan
// history, open and closed.
func (controller *LoansController) AllLoans(c *gin.Context) {
	all, err := controller.loans.All()
	if err != nil {
		respondInternalError(c, err, "list all loans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": all, "count": len(all)})
}
