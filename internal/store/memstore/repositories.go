package memstore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/listing"
	"github.com/shopfront/apiserver/internal/store"
	"github.com/shopfront/apiserver/types"
)

var (
	categorySchema = listing.Schema[types.Category]{
		Extract: func(c types.Category) listing.Record {
			return listing.Record{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
		},
		SortFields: []listing.SortField{listing.SortByName, listing.SortByDate},
	}
	productSchema = listing.Schema[types.Product]{
		Extract: func(p types.Product) listing.Record {
			return listing.Record{ID: p.ID, Name: p.Name, Price: p.Price, CategoryID: p.CategoryID, CreatedAt: p.CreatedAt}
		},
		SortFields: []listing.SortField{listing.SortByName, listing.SortByPrice, listing.SortByDate},
	}
	userSchema = listing.Schema[types.User]{
		Extract: func(u types.User) listing.Record {
			return listing.Record{ID: u.ID, Name: u.Username, CreatedAt: u.CreatedAt}
		},
		SortFields: []listing.SortField{listing.SortByName, listing.SortByDate},
	}
	orderSchema = listing.Schema[types.Order]{
		Extract: func(o types.Order) listing.Record {
			return listing.Record{ID: o.ID, Name: string(o.Status), CreatedAt: o.CreatedAt}
		},
		SortFields: []listing.SortField{listing.SortByName, listing.SortByDate},
	}
)

// withoutProductFilters drops filters only products have columns for.
func withoutProductFilters(p listing.Params) listing.Params {
	p.CategoryIDs = nil
	p.MinPrice = 0
	p.MaxPrice = 0
	return p
}

// CategoryRepository is the in-memory category store.
type CategoryRepository struct {
	s *Store
}

func (r *CategoryRepository) List(_ context.Context, p listing.Params) ([]types.Category, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]types.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		all = append(all, c)
	}
	page := listing.Paginate(all, withoutProductFilters(p), categorySchema)
	return page.Items, page.TotalCount, nil
}

func (r *CategoryRepository) GetByID(_ context.Context, id uuid.UUID) (types.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return r.s.categoryWithProducts(c), nil
}

func (r *CategoryRepository) Create(_ context.Context, c types.Category) (types.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if _, exists := r.s.categories[c.ID]; exists {
		return types.Category{}, store.ErrDuplicate
	}
	c.CreatedAt = r.s.timestamp(&r.s.lastCategory)
	c.UpdatedAt = c.CreatedAt
	c.Products = nil
	r.s.categories[c.ID] = c
	return c, nil
}

func (r *CategoryRepository) Update(_ context.Context, id uuid.UUID, mutate func(*types.Category) error) (types.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.categories[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	if err := mutate(&current); err != nil {
		return types.Category{}, err
	}
	current.ID = id
	current.Products = nil
	current.UpdatedAt = r.s.now()
	r.s.categories[id] = current
	return current, nil
}

func (r *CategoryRepository) Delete(_ context.Context, id uuid.UUID) (types.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.categories[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	for _, p := range r.s.products {
		if p.CategoryID == id {
			return types.Category{}, store.ErrInUse
		}
	}
	delete(r.s.categories, id)
	return c, nil
}

// ProductRepository is the in-memory product store.
type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) List(_ context.Context, p listing.Params) ([]types.Product, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]types.Product, 0, len(r.s.products))
	for _, product := range r.s.products {
		all = append(all, r.s.productWithCategory(product))
	}
	page := listing.Paginate(all, p, productSchema)
	return page.Items, page.TotalCount, nil
}

func (r *ProductRepository) GetByID(_ context.Context, id uuid.UUID) (types.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	return r.s.productWithCategory(p), nil
}

func (r *ProductRepository) GetMany(_ context.Context, ids []uuid.UUID) ([]types.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{}, len(ids))
	products := make([]types.Product, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		p, ok := r.s.products[id]
		if !ok {
			return nil, store.ErrNotFound
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *ProductRepository) Create(_ context.Context, p types.Product) (types.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[p.CategoryID]; !ok {
		return types.Product{}, store.ErrNotFound
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, exists := r.s.products[p.ID]; exists {
		return types.Product{}, store.ErrDuplicate
	}
	p.CreatedAt = r.s.timestamp(&r.s.lastProduct)
	p.UpdatedAt = p.CreatedAt
	p.Category = nil
	r.s.products[p.ID] = p
	return r.s.productWithCategory(p), nil
}

func (r *ProductRepository) Update(_ context.Context, id uuid.UUID, mutate func(*types.Product) error) (types.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	if err := mutate(&current); err != nil {
		return types.Product{}, err
	}
	if _, ok := r.s.categories[current.CategoryID]; !ok {
		return types.Product{}, store.ErrNotFound
	}
	current.ID = id
	current.Category = nil
	current.UpdatedAt = r.s.now()
	r.s.products[id] = current
	return r.s.productWithCategory(current), nil
}

func (r *ProductRepository) Delete(_ context.Context, id uuid.UUID) (types.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	delete(r.s.products, id)
	for orderID, linked := range r.s.orderProducts {
		r.s.orderProducts[orderID] = removeID(linked, id)
	}
	return p, nil
}

// UserRepository is the in-memory user store.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) List(_ context.Context, p listing.Params) ([]types.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]types.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if !u.IsAdmin {
			all = append(all, u)
		}
	}
	page := listing.Paginate(all, withoutProductFilters(p), userSchema)
	return page.Items, page.TotalCount, nil
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = normalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, u types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u.Email = normalizeEmail(u.Email)
	if r.s.emailTaken(u.Email, uuid.Nil) {
		return types.User{}, store.ErrDuplicate
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = r.s.timestamp(&r.s.lastUser)
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = u
	return u, nil
}

func (r *UserRepository) Update(_ context.Context, id uuid.UUID, mutate func(*types.User) error) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if err := mutate(&current); err != nil {
		return types.User{}, err
	}
	current.ID = id
	current.Email = normalizeEmail(current.Email)
	if r.s.emailTaken(current.Email, id) {
		return types.User{}, store.ErrDuplicate
	}
	current.UpdatedAt = r.s.now()
	r.s.users[id] = current
	return current, nil
}

func (r *UserRepository) Delete(_ context.Context, id uuid.UUID) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	delete(r.s.users, id)
	for orderID, o := range r.s.orders {
		if o.UserID == id {
			delete(r.s.orders, orderID)
			delete(r.s.orderProducts, orderID)
		}
	}
	return u, nil
}

// OrderRepository is the in-memory order store.
type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) List(_ context.Context, p listing.Params) ([]types.Order, int64, error) {
	return r.list(p, func(types.Order) bool { return true })
}

func (r *OrderRepository) ListByUser(_ context.Context, userID uuid.UUID, p listing.Params) ([]types.Order, int64, error) {
	return r.list(p, func(o types.Order) bool { return o.UserID == userID })
}

func (r *OrderRepository) list(p listing.Params, keep func(types.Order) bool) ([]types.Order, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]types.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		if keep(o) {
			linked := r.s.orderWithLinks(o)
			linked.User = nil
			all = append(all, linked)
		}
	}
	page := listing.Paginate(all, withoutProductFilters(p), orderSchema)
	return page.Items, page.TotalCount, nil
}

func (r *OrderRepository) GetByID(_ context.Context, id uuid.UUID) (types.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	return r.s.orderWithLinks(o), nil
}

func (r *OrderRepository) Create(_ context.Context, o types.Order) (types.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[o.UserID]; !ok {
		return types.Order{}, store.ErrNotFound
	}
	links := make([]uuid.UUID, 0, len(o.Products))
	for _, p := range o.Products {
		if _, ok := r.s.products[p.ID]; !ok {
			return types.Order{}, store.ErrNotFound
		}
		if !containsID(links, p.ID) {
			links = append(links, p.ID)
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = r.s.timestamp(&r.s.lastOrder)
	o.UpdatedAt = o.CreatedAt
	o.Products = nil
	o.User = nil
	r.s.orders[o.ID] = o
	r.s.orderProducts[o.ID] = links
	return r.s.orderWithLinks(o), nil
}

func (r *OrderRepository) AddProduct(_ context.Context, orderID, productID uuid.UUID, guard func(types.Order) error) (types.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[orderID]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	if guard != nil {
		if err := guard(o); err != nil {
			return types.Order{}, err
		}
	}
	if _, ok := r.s.products[productID]; !ok {
		return types.Order{}, store.ErrNotFound
	}
	if !containsID(r.s.orderProducts[orderID], productID) {
		r.s.orderProducts[orderID] = append(r.s.orderProducts[orderID], productID)
	}
	o.UpdatedAt = r.s.now()
	r.s.orders[orderID] = o
	return r.s.orderWithLinks(o), nil
}

func (r *OrderRepository) Update(_ context.Context, id uuid.UUID, mutate func(*types.Order) error) (types.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.orders[id]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	if err := mutate(&current); err != nil {
		return types.Order{}, err
	}
	current.ID = id
	current.Products = nil
	current.User = nil
	current.UpdatedAt = r.s.now()
	r.s.orders[id] = current
	return r.s.orderWithLinks(current), nil
}

func (r *OrderRepository) Delete(_ context.Context, id uuid.UUID, guard func(types.Order) error) (types.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	removed := r.s.orderWithLinks(o)
	if guard != nil {
		if err := guard(removed); err != nil {
			return types.Order{}, err
		}
	}
	delete(r.s.orders, id)
	delete(r.s.orderProducts, id)
	return removed, nil
}

func (s *Store) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range s.users {
		if u.ID != except && u.Email == email {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
