package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// CategoryService manages ticket categories.
type CategoryService struct {
	categories repository.CategoryRepository
}

// CategoryInput describes a new category. Color defaults to the brand indigo.
type CategoryInput struct {
	Name        string
	Description *string
	Color       string
}

func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, storeError(err, "category", "")
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

// Create adds a category. Admin only.
func (s *CategoryService) Create(ctx context.Context, actor domain.Actor, input CategoryInput) (*domain.Category, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("manage categories")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = domain.DefaultCategoryColor
	}
	if !hexColor.MatchString(color) {
		return nil, apperrors.NewValidationError("color must be a hex value like #6366f1", map[string]any{"color": input.Color})
	}

	category := &domain.Category{
		Name:  name,
		Color: color,
	}
	if input.Description != nil {
		category.Description = blankToNil(*input.Description)
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, storeError(err, "category", name)
	}
	return category, nil
}
