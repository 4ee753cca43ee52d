package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/listing"
	"github.com/shopfront/apiserver/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	userColumns = listing.Columns{ID: "id", Name: "username", CreatedAt: "created_at"}
	userSorts   = []listing.SortField{listing.SortByName, listing.SortByDate}
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// List pages through customer accounts. Administrators are not listed.
func (r *UserRepository) List(ctx context.Context, p listing.Params) ([]types.User, int64, error) {
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&types.User{}).
			Where("is_admin = ?", false).
			Scopes(listing.Filter(p, userColumns))
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []types.User{}
	err := query().
		Scopes(listing.Order(p, userColumns, userSorts...), listing.Window(p)).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	var user types.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	var user types.User
	err := r.db.WithContext(ctx).
		First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

// Create inserts the user. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*types.User) error) (types.User, error) {
	var updated types.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current types.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := mutate(&current); err != nil {
			return err
		}
		current.ID = id
		current.Email = strings.ToLower(strings.TrimSpace(current.Email))
		current.UpdatedAt = time.Now().UTC()
		if err := tx.Save(&current).Error; err != nil {
			return translate(err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	return updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) (types.User, error) {
	var removed types.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&removed, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		result := tx.Delete(&types.User{}, "id = ?", id)
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	return removed, nil
}
