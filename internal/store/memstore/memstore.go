// Package memstore keeps every repository in process memory. It backs the
// server when no database is configured and the service and handler tests.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/apiserver/types"
)

// Store holds all records behind one lock so cross-entity checks are atomic.
type Store struct {
	mu sync.RWMutex

	users      map[uuid.UUID]types.User
	categories map[uuid.UUID]types.Category
	products   map[uuid.UUID]types.Product
	orders     map[uuid.UUID]types.Order

	// orderProducts maps an order to its linked product IDs in insertion order.
	orderProducts map[uuid.UUID][]uuid.UUID

	lastUser     time.Time
	lastCategory time.Time
	lastProduct  time.Time
	lastOrder    time.Time

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:         make(map[uuid.UUID]types.User),
		categories:    make(map[uuid.UUID]types.Category),
		products:      make(map[uuid.UUID]types.Product),
		orders:        make(map[uuid.UUID]types.Order),
		orderProducts: make(map[uuid.UUID][]uuid.UUID),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() *UserRepository           { return &UserRepository{s: s} }
func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }
func (s *Store) Products() *ProductRepository     { return &ProductRepository{s: s} }
func (s *Store) Orders() *OrderRepository         { return &OrderRepository{s: s} }

// timestamp returns a creation time strictly after any earlier call so that
// creation order is total.
func (s *Store) timestamp(last *time.Time) time.Time {
	now := s.now()
	if !now.After(*last) {
		now = last.Add(time.Microsecond)
	}
	*last = now
	return now
}

func (s *Store) productWithCategory(p types.Product) types.Product {
	if c, ok := s.categories[p.CategoryID]; ok {
		c.Products = nil
		p.Category = &c
	}
	return p
}

func (s *Store) categoryWithProducts(c types.Category) types.Category {
	c.Products = []types.Product{}
	for _, p := range s.products {
		if p.CategoryID == c.ID {
			p.Category = nil
			c.Products = append(c.Products, p)
		}
	}
	sort.Slice(c.Products, func(i, j int) bool { return c.Products[i].Name < c.Products[j].Name })
	return c
}

func (s *Store) orderWithLinks(o types.Order) types.Order {
	o.Products = []types.Product{}
	for _, id := range s.orderProducts[o.ID] {
		if p, ok := s.products[id]; ok {
			p.Category = nil
			o.Products = append(o.Products, p)
		}
	}
	sort.Slice(o.Products, func(i, j int) bool { return o.Products[i].Name < o.Products[j].Name })
	if u, ok := s.users[o.UserID]; ok {
		o.User = &u
	}
	return o
}
