package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/akowalski/bibliotek/internal/database/books"
	"github.com/akowalski/bibliotek/internal/database/loans"
	"github.com/akowalski/bibliotek/internal/entities"
)

// DefaultPageSize is the page size for advanced search when the client
// does not request one.
const DefaultPageSize = 5

// MaxPageSize caps the page size a client can request.
const MaxPageSize = 100

// BooksController exposes the book catalog.
type BooksController struct {
	books *books.Repository
	loans *loans.Repository
}

func NewBooksController(repo *books.Repository, loanRepo *loans.Repository) *BooksController {
	return &BooksController{books: repo, loans: loanRepo}
}

// GetAllBooks handles GET /api/books.
func (controller *BooksController) GetAllBooks(c *gin.Context) {
	all, err := controller.books.GetAll()
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": all, "count": len(all)})
}

// GetBook handles GET /api/books/:id.
func (controller *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.books.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Search handles GET /api/books/search?q=: a simple substring search
// over title and author.
func (controller *BooksController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondBadRequest(c, "q query parameter is required")
		return
	}

	found, err := controller.books.Search(query)
	if err != nil {
		respondInternalError(c, err, "search books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": found, "count": len(found)})
}

// SearchAdvanced handles GET /api/books/search/advanced with field
// filters, sorting and pagination.
func (controller *BooksController) SearchAdvanced(c *gin.Context) {
	criteria := books.SearchCriteria{
		Title:      strings.TrimSpace(c.Query("title")),
		Author:     strings.TrimSpace(c.Query("author")),
		Year:       parseIntQuery(c, "year", 0),
		CategoryID: uint(parseIntQuery(c, "category_id", 0)),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
		Page:       parseIntQuery(c, "page", 1),
		PageSize:   parseIntQuery(c, "page_size", DefaultPageSize),
	}
	if criteria.Page < 1 {
		criteria.Page = 1
	}
	if criteria.PageSize < 1 || criteria.PageSize > MaxPageSize {
		criteria.PageSize = DefaultPageSize
	}

	found, err := controller.books.SearchAdvanced(criteria)
	if err != nil {
		respondInternalError(c, err, "advanced search")
		return
	}
	total, err := controller.books.Count(criteria)
	if err != nil {
		respondInternalError(c, err, "advanced search count")
		return
	}

	totalPages := int((total + int64(criteria.PageSize) - 1) / int64(criteria.PageSize))
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       found,
		Total:      total,
		Page:       criteria.Page,
		PageSize:   criteria.PageSize,
		TotalPages: totalPages,
	})
}

// GetByCategory handles GET /api/categories/:id/books.
func (controller *BooksController) GetByCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	found, err := controller.books.GetByCategory(categoryID)
	if err != nil {
		respondInternalError(c, err, "books by category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": found, "count": len(found)})
}

// createBookRequest is the payload for adding a book to the catalog.
type createBookRequest struct {
	Title           string `json:"title" binding:"required"`
	Author          string `json:"author" binding:"required"`
	PublicationYear int    `json:"publication_year"`
	ISBN            string `json:"isbn"`
	CategoryID      uint   `json:"category_id"`
}

// CreateBook handles POST /api/books (admin only).
func (controller *BooksController) CreateBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title and author are required")
		return
	}

	book := &entities.Book{
		Title:           req.Title,
		Author:          req.Author,
		PublicationYear: req.PublicationYear,
		ISBN:            req.ISBN,
		CategoryID:      req.CategoryID,
	}
	if err := controller.books.Create(book); err != nil {
		respondInternalError(c, err, "create book")
		return
	}

	respondCreated(c, book)
}

// DeleteBook handles DELETE /api/books/:id (admin only). The book is
// soft-deleted so loan history stays intact.
func (controller *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := controller.books.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "delete book")
		return
	}

	// A copy that is out with a reader cannot leave the catalog.
	if _, err := controller.loans.OpenByBook(id); err == nil {
		respondConflict(c, "book is currently on loan", "book_on_loan")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondInternalError(c, err, "delete book")
		return
	}

	if err := controller.books.Delete(id); err != nil {
		respondInternalError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted")
}
