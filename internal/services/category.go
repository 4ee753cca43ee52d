package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/apperror"
	"github.com/shopfront/apiserver/internal/listing"
	"github.com/shopfront/apiserver/types"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context, p listing.Params) ([]types.Category, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (types.Category, error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*types.Category) error) (types.Category, error)
	Delete(ctx context.Context, id uuid.UUID) (types.Category, error)
}

// CategoryInput is the payload for creating a category.
type CategoryInput struct {
	Name        string
	Description string
}

// CategoryPatch holds the fields to change; nil fields are left as they are.
type CategoryPatch struct {
	Name        *string
	Description *string
}

// CategoryService encapsulates category use-cases.
type CategoryService struct {
	repo     CategoryRepository
	products ProductCache
}

func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// WithProductCache drops cached product pages whenever a category changes,
// since those pages embed the category.
func (s *CategoryService) WithProductCache(cache ProductCache) *CategoryService {
	s.products = cache
	return s
}

func (s *CategoryService) List(ctx context.Context, p listing.Params) (listing.Page[types.Category], error) {
	p = p.Normalize()
	items, total, err := s.repo.List(ctx, p)
	if err != nil {
		return listing.Page[types.Category]{}, storeError(err, "categories", "list")
	}
	return listing.Page[types.Category]{Items: items, TotalCount: total, PageNumber: p.PageNumber, PageSize: p.PageSize}, nil
}

func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (types.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	return category, storeError(err, "category", "load")
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (types.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return types.Category{}, apperror.Validation("category name is required")
	}
	created, err := s.repo.Create(ctx, types.Category{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
	})
	return created, storeError(err, "category", "create")
}

func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, patch CategoryPatch) (types.Category, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return types.Category{}, apperror.Validation("category name must not be empty")
	}
	updated, err := s.repo.Update(ctx, id, func(c *types.Category) error {
		if patch.Name != nil {
			c.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			c.Description = strings.TrimSpace(*patch.Description)
		}
		return nil
	})
	if err != nil {
		return types.Category{}, storeError(err, "category", "update")
	}
	s.invalidateProducts(ctx)
	return updated, nil
}

// Delete removes a category. Categories that still own products are kept and
// a conflict is returned.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) (types.Category, error) {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return types.Category{}, storeError(err, "category", "delete")
	}
	s.invalidateProducts(ctx)
	return removed, nil
}

func (s *CategoryService) invalidateProducts(ctx context.Context) {
	if s.products != nil {
		s.products.Invalidate(ctx)
	}
}
