package types

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products. A category owns zero or more products.
type Category struct {
	ID          uuid.UUID `json:"categoryId" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	Products    []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
