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

const orderProductsTable = "order_products"

var (
	orderColumns = listing.Columns{ID: "id", Name: "status", CreatedAt: "created_at"}
	orderSorts   = []listing.SortField{listing.SortByName, listing.SortByDate}
)

// OrderRepository handles persistence for orders and their product links.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) List(ctx context.Context, p listing.Params) ([]types.Order, int64, error) {
	return r.list(ctx, p, nil)
}

// ListByUser pages through the orders placed by userID.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, p listing.Params) ([]types.Order, int64, error) {
	return r.list(ctx, p, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	})
}

func (r *OrderRepository) list(ctx context.Context, p listing.Params, scope func(*gorm.DB) *gorm.DB) ([]types.Order, int64, error) {
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&types.Order{}).Scopes(listing.Filter(p, orderColumns))
		if scope != nil {
			q = q.Scopes(scope)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := []types.Order{}
	err := query().
		Scopes(listing.Order(p, orderColumns, orderSorts...), listing.Window(p)).
		Preload("Products").
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (types.Order, error) {
	return r.load(r.db.WithContext(ctx), id)
}

// Create inserts the order and links it to order.Products. The products must
// already exist.
func (r *OrderRepository) Create(ctx context.Context, order types.Order) (types.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	order.User = nil

	var created types.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Products.*").Create(&order).Error; err != nil {
			return translate(err)
		}
		var err error
		created, err = r.load(tx, order.ID)
		return err
	})
	if err != nil {
		return types.Order{}, err
	}
	return created, nil
}

// AddProduct links productID to the order. guard runs against the locked
// order first and may veto the change. Adding a product that is already on
// the order is a no-op.
func (r *OrderRepository) AddProduct(ctx context.Context, orderID, productID uuid.UUID, guard func(types.Order) error) (types.Order, error) {
	var updated types.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current types.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", orderID).Error; err != nil {
			return translate(err)
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}

		var product types.Product
		if err := tx.Select("id").First(&product, "id = ?", productID).Error; err != nil {
			return translate(err)
		}

		link := map[string]any{"order_id": orderID, "product_id": productID}
		if err := tx.Table(orderProductsTable).Clauses(clause.OnConflict{DoNothing: true}).Create(link).Error; err != nil {
			return translate(err)
		}
		if err := tx.Model(&types.Order{}).Where("id = ?", orderID).Update("updated_at", time.Now().UTC()).Error; err != nil {
			return err
		}

		var err error
		updated, err = r.load(tx, orderID)
		return err
	})
	if err != nil {
		return types.Order{}, err
	}
	return updated, nil
}

func (r *OrderRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*types.Order) error) (types.Order, error) {
	var updated types.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current types.Order
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

		var err error
		updated, err = r.load(tx, id)
		return err
	})
	if err != nil {
		return types.Order{}, err
	}
	return updated, nil
}

// Delete removes the order and returns it as it was. guard may veto.
func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID, guard func(types.Order) error) (types.Order, error) {
	var removed types.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&types.Order{}, "id = ?", id).Error; err != nil {
			return translate(err)
		}

		var err error
		removed, err = r.load(tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(removed); err != nil {
				return err
			}
		}

		if err := tx.Exec("DELETE FROM "+orderProductsTable+" WHERE order_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&types.Order{}, "id = ?", id)
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return types.Order{}, err
	}
	return removed, nil
}

func (r *OrderRepository) load(db *gorm.DB, id uuid.UUID) (types.Order, error) {
	var order types.Order
	err := db.
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Preload("User").
		First(&order, "id = ?", id).Error
	if err != nil {
		return types.Order{}, translate(err)
	}
	return order, nil
}
