package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eduhub/marketplace-api/model"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// CategoryService manages course categories
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

// List returns all categories ordered by name
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return categories, nil
}

// Create adds a category with a slug derived from its name
func (s *CategoryService) Create(ctx context.Context, name string, description *string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	category := &model.Category{
		Name:        name,
		Slug:        slug.Make(name),
		Description: description,
	}

	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// Exists reports whether a category id is known
func (s *CategoryService) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return count > 0, nil
}
