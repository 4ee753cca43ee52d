package types

import (
	"time"

	"github.com/google/uuid"
)

// User represents a customer or administrator account.
// It contains identity, contact details, role flags, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID uuid.UUID `json:"userId" gorm:"primaryKey"`

	// Username is the display login name chosen by the user.
	Username string `json:"username" gorm:"not null"`

	// Email is the user's email address. It is unique across accounts
	// and is the credential used to log in.
	Email string `json:"email" gorm:"uniqueIndex;not null"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" gorm:"column:password_hash;not null"`

	// FirstName and LastName are the user's legal name fields.
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`

	// ImgURL points at the user's avatar, if any.
	ImgURL string `json:"imgUrl" gorm:"column:img_url"`

	// Address is the default shipping address.
	Address string `json:"address"`

	// PhoneNumber is the user's contact number.
	PhoneNumber string `json:"phoneNumber"`

	// BirthDate is optional.
	BirthDate *time.Time `json:"birthDate,omitempty"`

	// IsAdmin grants access to administrative endpoints.
	IsAdmin bool `json:"isAdmin" gorm:"not null"`

	// IsBanned blocks the user from ordering endpoints.
	IsBanned bool `json:"isBanned" gorm:"not null"`

	// CreatedAt is the UTC timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updatedAt"`
}
