package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/apperror"
	"github.com/shopfront/apiserver/internal/invoice"
	"github.com/shopfront/apiserver/internal/listing"
	"github.com/shopfront/apiserver/internal/mq"
	"github.com/shopfront/apiserver/internal/store"
	"github.com/shopfront/apiserver/types"
)

// OrderRepository defines persistence operations for orders. guard callbacks
// run against the locked order and may veto the operation.
type OrderRepository interface {
	List(ctx context.Context, p listing.Params) ([]types.Order, int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, p listing.Params) ([]types.Order, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (types.Order, error)
	Create(ctx context.Context, order types.Order) (types.Order, error)
	AddProduct(ctx context.Context, orderID, productID uuid.UUID, guard func(types.Order) error) (types.Order, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*types.Order) error) (types.Order, error)
	Delete(ctx context.Context, id uuid.UUID, guard func(types.Order) error) (types.Order, error)
}

// OrderEventPublisher announces committed order changes.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event mq.OrderEvent) error
}

// OrderInput is the payload for placing an order.
type OrderInput struct {
	Payment    string
	ProductIDs []uuid.UUID
}

// OrderPatch holds the fields to change; nil fields are left as they are.
type OrderPatch struct {
	Status  *types.OrderStatus
	Payment *string
}

// OrderService encapsulates order use-cases.
type OrderService struct {
	orders   OrderRepository
	products ProductRepository
	users    UserRepository
	events   OrderEventPublisher
}

func NewOrderService(orders OrderRepository, products ProductRepository, users UserRepository) *OrderService {
	return &OrderService{orders: orders, products: products, users: users}
}

// WithEvents publishes order events after each committed change.
func (s *OrderService) WithEvents(events OrderEventPublisher) *OrderService {
	s.events = events
	return s
}

func (s *OrderService) List(ctx context.Context, p listing.Params) (listing.Page[types.Order], error) {
	p = p.Normalize()
	items, total, err := s.orders.List(ctx, p)
	if err != nil {
		return listing.Page[types.Order]{}, storeError(err, "orders", "list")
	}
	return listing.Page[types.Order]{Items: items, TotalCount: total, PageNumber: p.PageNumber, PageSize: p.PageSize}, nil
}

// ListMine pages through the caller's own orders.
func (s *OrderService) ListMine(ctx context.Context, actor Actor, p listing.Params) (listing.Page[types.Order], error) {
	p = p.Normalize()
	items, total, err := s.orders.ListByUser(ctx, actor.UserID, p)
	if err != nil {
		return listing.Page[types.Order]{}, storeError(err, "orders", "list")
	}
	return listing.Page[types.Order]{Items: items, TotalCount: total, PageNumber: p.PageNumber, PageSize: p.PageSize}, nil
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (types.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	return order, storeError(err, "order", "load")
}

// Create places an order for the caller with at least one product.
func (s *OrderService) Create(ctx context.Context, actor Actor, in OrderInput) (types.Order, error) {
	if len(in.ProductIDs) == 0 {
		return types.Order{}, apperror.Validation("an order needs at least one product")
	}
	if _, err := s.users.GetByID(ctx, actor.UserID); err != nil {
		return types.Order{}, storeError(err, "user", "load")
	}

	products, err := s.products.GetMany(ctx, in.ProductIDs)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Order{}, apperror.Validation("one or more products do not exist")
		}
		return types.Order{}, storeError(err, "products", "load")
	}

	created, err := s.orders.Create(ctx, types.Order{
		Status:   types.OrderPending,
		Payment:  strings.TrimSpace(in.Payment),
		UserID:   actor.UserID,
		Products: products,
	})
	if err != nil {
		return types.Order{}, storeError(err, "order", "create")
	}
	log.Printf("order created order_id=%s user_id=%s products=%d", created.ID, created.UserID, len(created.Products))
	s.publish(ctx, mq.EventOrderCreated, created)
	return created, nil
}

// AddProduct adds one product to an existing order. Only the owner or an
// administrator may do so.
func (s *OrderService) AddProduct(ctx context.Context, actor Actor, orderID, productID uuid.UUID) (types.Order, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return types.Order{}, storeError(err, "product", "load")
	}
	updated, err := s.orders.AddProduct(ctx, orderID, productID, ownedBy(actor))
	if err != nil {
		return types.Order{}, storeError(err, "order", "update")
	}
	s.publish(ctx, mq.EventOrderUpdated, updated)
	return updated, nil
}

// Update changes any order. Callers must be administrators.
func (s *OrderService) Update(ctx context.Context, id uuid.UUID, patch OrderPatch) (types.Order, error) {
	if err := validateOrderPatch(patch); err != nil {
		return types.Order{}, err
	}
	return s.update(ctx, id, func(o *types.Order) error {
		applyOrderPatch(o, patch)
		return nil
	})
}

// UpdateMine changes one of the caller's own orders. Owners may change the
// payment reference and cancel the order; other status changes are reserved
// to administrators.
func (s *OrderService) UpdateMine(ctx context.Context, actor Actor, id uuid.UUID, patch OrderPatch) (types.Order, error) {
	if err := validateOrderPatch(patch); err != nil {
		return types.Order{}, err
	}
	return s.update(ctx, id, func(o *types.Order) error {
		if o.UserID != actor.UserID {
			return apperror.Forbidden("you may only change your own orders")
		}
		if patch.Status != nil && *patch.Status != o.Status && *patch.Status != types.OrderCancelled {
			return apperror.Forbidden("only administrators may change the order status")
		}
		applyOrderPatch(o, patch)
		return nil
	})
}

func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) (types.Order, error) {
	return s.delete(ctx, id, nil)
}

// DeleteMine removes one of the caller's own orders.
func (s *OrderService) DeleteMine(ctx context.Context, actor Actor, id uuid.UUID) (types.Order, error) {
	return s.delete(ctx, id, func(o types.Order) error {
		if o.UserID != actor.UserID {
			return apperror.Forbidden("you may only delete your own orders")
		}
		return nil
	})
}

// Invoice renders a PDF invoice for an order the caller may see.
func (s *OrderService) Invoice(ctx context.Context, actor Actor, id uuid.UUID) ([]byte, types.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, types.Order{}, storeError(err, "order", "load")
	}
	if err := ownedBy(actor)(order); err != nil {
		return nil, types.Order{}, err
	}
	pdf, err := invoice.Render(order, time.Now())
	if err != nil {
		return nil, types.Order{}, apperror.Internal("failed to render invoice", err)
	}
	return pdf, order, nil
}

func (s *OrderService) update(ctx context.Context, id uuid.UUID, mutate func(*types.Order) error) (types.Order, error) {
	updated, err := s.orders.Update(ctx, id, mutate)
	if err != nil {
		return types.Order{}, storeError(err, "order", "update")
	}
	s.publish(ctx, mq.EventOrderUpdated, updated)
	return updated, nil
}

func (s *OrderService) delete(ctx context.Context, id uuid.UUID, guard func(types.Order) error) (types.Order, error) {
	removed, err := s.orders.Delete(ctx, id, guard)
	if err != nil {
		return types.Order{}, storeError(err, "order", "delete")
	}
	s.publish(ctx, mq.EventOrderDeleted, removed)
	return removed, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order types.Order) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, mq.NewOrderEvent(eventType, order)); err != nil {
		log.Printf("order event publish failed event=%s order_id=%s error=%q", eventType, order.ID, err)
	}
}

func ownedBy(actor Actor) func(types.Order) error {
	return func(o types.Order) error {
		if !actor.IsAdmin && o.UserID != actor.UserID {
			return apperror.Forbidden("you may only access your own orders")
		}
		return nil
	}
}

func validateOrderPatch(patch OrderPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return apperror.Validation("unknown order status")
	}
	return nil
}

func applyOrderPatch(o *types.Order, patch OrderPatch) {
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.Payment != nil {
		o.Payment = strings.TrimSpace(*patch.Payment)
	}
}
