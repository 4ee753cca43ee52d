package types

import (
	"time"

	"github.com/google/uuid"
)

// Product is an item for sale. Every product belongs to exactly one category.
type Product struct {
	ID          uuid.UUID `json:"productId" gorm:"primaryKey"`
	Name        string    `json:"productName" gorm:"not null"`
	Slug        string    `json:"slug" gorm:"not null"`
	Description string    `json:"description"`
	ImgURL      string    `json:"imgUrl" gorm:"column:img_url"`
	Quantity    int       `json:"quantity" gorm:"not null"`

	// Price is never negative.
	Price float64 `json:"price" gorm:"not null"`

	CategoryID uuid.UUID `json:"categoryId" gorm:"not null"`
	Category   *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
