package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/apperror"
	"github.com/shopfront/apiserver/internal/listing"
	"github.com/shopfront/apiserver/internal/store"
	"github.com/shopfront/apiserver/types"
)

// DefaultSearchPageSize is the page size of product searches that do not ask for one.
const DefaultSearchPageSize = 3

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	List(ctx context.Context, p listing.Params) ([]types.Product, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (types.Product, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*types.Product) error) (types.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (types.Product, error)
}

// ProductCache caches product listing pages. Implementations swallow their
// own failures; a miss falls through to the repository.
type ProductCache interface {
	GetPage(ctx context.Context, p listing.Params) (listing.Page[types.Product], bool)
	SetPage(ctx context.Context, p listing.Params, page listing.Page[types.Product])
	Invalidate(ctx context.Context)
}

// ProductInput is the payload for creating a product.
type ProductInput struct {
	Name        string
	Description string
	ImgURL      string
	Quantity    int
	Price       float64
	CategoryID  uuid.UUID
}

// ProductPatch holds the fields to change; nil fields are left as they are.
// An explicit Slug wins over the slug derived from a new Name.
type ProductPatch struct {
	Name        *string
	Slug        *string
	Description *string
	ImgURL      *string
	Quantity    *int
	Price       *float64
	CategoryID  *uuid.UUID
}

// ProductService encapsulates product use-cases.
type ProductService struct {
	repo       ProductRepository
	categories CategoryRepository
	cache      ProductCache
}

func NewProductService(repo ProductRepository, categories CategoryRepository) *ProductService {
	return &ProductService{repo: repo, categories: categories}
}

// WithCache enables listing caches.
func (s *ProductService) WithCache(cache ProductCache) *ProductService {
	s.cache = cache
	return s
}

// GenerateSlug lowercases name and replaces spaces with hyphens.
func GenerateSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

func (s *ProductService) List(ctx context.Context, p listing.Params) (listing.Page[types.Product], error) {
	p = p.Normalize()
	if s.cache != nil {
		if page, ok := s.cache.GetPage(ctx, p); ok {
			return page, nil
		}
	}

	items, total, err := s.repo.List(ctx, p)
	if err != nil {
		return listing.Page[types.Product]{}, storeError(err, "products", "list")
	}
	page := listing.Page[types.Product]{Items: items, TotalCount: total, PageNumber: p.PageNumber, PageSize: p.PageSize}
	if s.cache != nil {
		s.cache.SetPage(ctx, p, page)
	}
	return page, nil
}

// Search lists products by keyword, sort and price only. Category filters
// are ignored.
func (s *ProductService) Search(ctx context.Context, p listing.Params) (listing.Page[types.Product], error) {
	p.CategoryIDs = nil
	if p.PageSize < 1 {
		p.PageSize = DefaultSearchPageSize
	}
	return s.List(ctx, p)
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (types.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	return product, storeError(err, "product", "load")
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (types.Product, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return types.Product{}, apperror.Validation("product name is required")
	case in.Price < 0:
		return types.Product{}, apperror.Validation("price must not be negative")
	case in.Quantity < 0:
		return types.Product{}, apperror.Validation("quantity must not be negative")
	}
	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return types.Product{}, err
	}

	created, err := s.repo.Create(ctx, types.Product{
		Name:        name,
		Slug:        GenerateSlug(name),
		Description: strings.TrimSpace(in.Description),
		ImgURL:      strings.TrimSpace(in.ImgURL),
		Quantity:    in.Quantity,
		Price:       in.Price,
		CategoryID:  in.CategoryID,
	})
	if err != nil {
		return types.Product{}, storeError(err, "product", "create")
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, patch ProductPatch) (types.Product, error) {
	switch {
	case patch.Name != nil && strings.TrimSpace(*patch.Name) == "":
		return types.Product{}, apperror.Validation("product name must not be empty")
	case patch.Price != nil && *patch.Price < 0:
		return types.Product{}, apperror.Validation("price must not be negative")
	case patch.Quantity != nil && *patch.Quantity < 0:
		return types.Product{}, apperror.Validation("quantity must not be negative")
	}
	if patch.CategoryID != nil {
		if err := s.requireCategory(ctx, *patch.CategoryID); err != nil {
			return types.Product{}, err
		}
	}

	updated, err := s.repo.Update(ctx, id, func(p *types.Product) error {
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
			p.Slug = GenerateSlug(p.Name)
		}
		if patch.Slug != nil && strings.TrimSpace(*patch.Slug) != "" {
			p.Slug = GenerateSlug(*patch.Slug)
		}
		if patch.Description != nil {
			p.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.ImgURL != nil {
			p.ImgURL = strings.TrimSpace(*patch.ImgURL)
		}
		if patch.Quantity != nil {
			p.Quantity = *patch.Quantity
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.CategoryID != nil {
			p.CategoryID = *patch.CategoryID
		}
		return nil
	})
	if err != nil {
		return types.Product{}, storeError(err, "product", "update")
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) (types.Product, error) {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return types.Product{}, storeError(err, "product", "delete")
	}
	s.invalidate(ctx)
	return removed, nil
}

func (s *ProductService) requireCategory(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperror.Validation("category is required")
	}
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperror.Validation("category does not exist")
		}
		return storeError(err, "category", "load")
	}
	return nil
}

func (s *ProductService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
