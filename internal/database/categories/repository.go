// Package categories provides database operations for book categories.
package categories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/akowalski/bibliotek/internal/entities"
)

var (
	ErrNotFound = errors.New("category not found")
	ErrExists   = errors.New("category already exists")
	ErrInUse    = errors.New("category has books assigned")
)

// Repository handles category database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetAll() ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.Order("name ASC").Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) GetByID(id uint) (*entities.Category, error) {
	var category entities.Category
	err := r.db.First(&category, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

func (r *Repository) Create(name string) (*entities.Category, error) {
	var existing entities.Category
	err := r.db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		return nil, ErrExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check category: %w", err)
	}

	category := &entities.Category{Name: name}
	if err := r.db.Create(category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// Delete removes a category. Categories with books assigned cannot be
// deleted.
func (r *Repository) Delete(id uint) error {
	var count int64
	if err := r.db.Model(&entities.Book{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count category books: %w", err)
	}
	if count > 0 {
		return ErrInUse
	}

	res := r.db.Delete(&entities.Category{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
