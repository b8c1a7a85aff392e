package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akowalski/bibliotek/internal/database/categories"
)

// CategoriesController manages the category catalog.
type CategoriesController struct {
	categories *categories.Repository
}

func NewCategoriesController(repo *categories.Repository) *CategoriesController {
	return &CategoriesController{categories: repo}
}

// GetAllCategories handles GET /api/categories.
func (controller *CategoriesController) GetAllCategories(c *gin.Context) {
	all, err := controller.categories.GetAll()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": all, "count": len(all)})
}

type createCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateCategory handles POST /api/categories (admin only).
func (controller *CategoriesController) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	category, err := controller.categories.Create(req.Name)
	if err != nil {
		if errors.Is(err, categories.ErrExists) {
			respondConflict(c, "category already exists", "category_exists")
			return
		}
		respondInternalError(c, err, "create category")
		return
	}

	respondCreated(c, category)
}

// DeleteCategory handles DELETE /api/categories/:id (admin only).
func (controller *CategoriesController) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := controller.categories.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, categories.ErrNotFound):
			respondNotFound(c, "category")
		case errors.Is(err, categories.ErrInUse):
			respondConflict(c, "category has books assigned", "category_in_use")
		default:
			respondInternalError(c, err, "delete category")
		}
		return
	}
	respondSuccess(c, "category deleted")
}
