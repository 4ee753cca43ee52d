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
	productColumns = listing.Columns{
		ID:        "id",
		Name:      "name",
		Price:     "price",
		Category:  "category_id",
		CreatedAt: "created_at",
	}
	productSorts = []listing.SortField{listing.SortByName, listing.SortByPrice, listing.SortByDate}
)

// ProductRepository handles persistence for products.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) List(ctx context.Context, p listing.Params) ([]types.Product, int64, error) {
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&types.Product{}).Scopes(listing.Filter(p, productColumns))
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	products := []types.Product{}
	err := query().
		Scopes(listing.Order(p, productColumns, productSorts...), listing.Window(p)).
		Preload("Category").
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (types.Product, error) {
	var product types.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return types.Product{}, translate(err)
	}
	return product, nil
}

// GetMany returns the products with the given IDs. Missing IDs are reported
// as ErrNotFound.
func (r *ProductRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]types.Product, error) {
	unique := uniqueIDs(ids)
	products := []types.Product{}
	if len(unique) == 0 {
		return products, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", unique).Find(&products).Error; err != nil {
		return nil, err
	}
	if len(products) != len(unique) {
		return nil, ErrNotFound
	}
	return products, nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&product).Error; err != nil {
			return translate(err)
		}
		return tx.Preload("Category").First(&product, "id = ?", product.ID).Error
	})
	if err != nil {
		return types.Product{}, err
	}
	return product, nil
}

// Update locks the product, applies mutate and saves the result in one
// transaction.
func (r *ProductRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*types.Product) error) (types.Product, error) {
	var updated types.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current types.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := mutate(&current); err != nil {
			return err
		}
		current.ID = id
		current.Category = nil
		current.UpdatedAt = time.Now().UTC()
		if err := tx.Omit(clause.Associations).Save(&current).Error; err != nil {
			return translate(err)
		}
		return tx.Preload("Category").First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return types.Product{}, err
	}
	return updated, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) (types.Product, error) {
	var removed types.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&removed, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		result := tx.Delete(&types.Product{}, "id = ?", id)
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return types.Product{}, err
	}
	return removed, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
