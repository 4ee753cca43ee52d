package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/listing"
	"github.com/shopfront/apiserver/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	categoryColumns = listing.Columns{ID: "id", Name: "name", CreatedAt: "created_at"}
	categorySorts   = []listing.SortField{listing.SortByName, listing.SortByDate}
)

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) List(ctx context.Context, p listing.Params) ([]types.Category, int64, error) {
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&types.Category{}).Scopes(listing.Filter(p, categoryColumns))
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	categories := []types.Category{}
	err := query().
		Scopes(listing.Order(p, categoryColumns, categorySorts...), listing.Window(p)).
		Find(&categories).Error
	if err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (types.Category, error) {
	var category types.Category
	err := r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		First(&category, "id = ?", id).Error
	if err != nil {
		return types.Category{}, translate(err)
	}
	return category, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	category.Products = nil

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&category).Error; err != nil {
		return types.Category{}, translate(err)
	}
	return category, nil
}

// Update locks the category, applies mutate and saves the result in one
// transaction. An error from mutate aborts the update and is returned as is.
func (r *CategoryRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*types.Category) error) (types.Category, error) {
	var updated types.Category
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current types.Category
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := mutate(&current); err != nil {
			return err
		}
		current.ID = id
		current.UpdatedAt = time.Now().UTC()
		if err := tx.Omit(clause.Associations).Save(&current).Error; err != nil {
			return translate(err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return types.Category{}, err
	}
	return updated, nil
}

// Delete removes the category and returns it. Categories that still own
// products are not deleted and ErrInUse is returned.
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) (types.Category, error) {
	var removed types.Category
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&removed, "id = ?", id).Error; err != nil {
			return translate(err)
		}

		var products int64
		if err := tx.Model(&types.Product{}).Where("category_id = ?", id).Count(&products).Error; err != nil {
			return err
		}
		if products > 0 {
			return ErrInUse
		}

		result := tx.Delete(&types.Category{}, "id = ?", id)
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return types.Category{}, err
	}
	return removed, nil
}
