package types

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Order links one user to one or more products.
type Order struct {
	ID       uuid.UUID   `json:"orderId" gorm:"primaryKey"`
	Status   OrderStatus `json:"status" gorm:"not null"`
	Payment  string      `json:"payment"`
	UserID   uuid.UUID   `json:"userId" gorm:"not null"`
	User     *User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Products []Product   `json:"products" gorm:"many2many:order_products;"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Total sums the prices of the products on the order.
func (o Order) Total() float64 {
	var total float64
	for _, p := range o.Products {
		total += p.Price
	}
	return total
}
