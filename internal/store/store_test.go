package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopfront/apiserver/internal/listing"
	"github.com/shopfront/apiserver/types"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return gdb, mock
}

func TestCategoryGetByIDNotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewCategoryRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))

	_, err := repo.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCategoryDeleteRejectsCategoryWithProducts(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewCategoryRepository(gdb)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).AddRow(id.String(), "Shoes", ""))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE category_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), id)
	if !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserListExcludesAdmins(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)
	id := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE is_admin = \$1`).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE is_admin = \$1 ORDER BY "created_at","id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "created_at"}).
			AddRow(id.String(), "alice", "alice@example.com", time.Now()))

	users, total, err := repo.List(context.Background(), listing.Params{PageNumber: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if total != 1 || len(users) != 1 || users[0].ID != id {
		t.Fatalf("unexpected result total=%d users=%+v", total, users)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Message: "duplicate key value"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), types.User{Username: "bob", Email: "Bob@Example.com", PasswordHash: "x"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProductListBuildsFilteredQuery(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewProductRepository(gdb)
	shoes, boots := uuid.New(), uuid.New()
	productID := uuid.New()

	where := `WHERE LOWER\("name"\) LIKE \$1 AND "category_id" IN \(\$2,\$3\) AND "price" >= \$4 AND "price" <= \$5`
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" ` + where).
		WithArgs(`%red\_%`, shoes.String(), boots.String(), 10.0, 100.0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`SELECT \* FROM "products" ` + where + ` ORDER BY "price" DESC,"id" LIMIT (\$6|10) OFFSET (\$7|10)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "category_id"}).
			AddRow(productID.String(), "Red_Shoes", 20.0, shoes.String()))
	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE "categories"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(shoes.String(), "Shoes"))

	products, total, err := repo.List(context.Background(), listing.Params{
		Keyword:     "Red_",
		CategoryIDs: []uuid.UUID{shoes, boots},
		MinPrice:    10,
		MaxPrice:    100,
		SortBy:      "price",
		Ascending:   false,
		PageNumber:  2,
		PageSize:    10,
	})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if total != 11 || len(products) != 1 || products[0].ID != productID {
		t.Fatalf("unexpected result total=%d products=%+v", total, products)
	}
	if products[0].Category == nil || products[0].Category.Name != "Shoes" {
		t.Fatalf("expected preloaded category, got %+v", products[0].Category)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProductListZeroPriceBoundsAreUnbounded(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewProductRepository(gdb)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "products"$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "products" ORDER BY "name","id" LIMIT (\$1|5)$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "category_id"}))

	products, total, err := repo.List(context.Background(), listing.Params{
		SortBy:     "unknown",
		Ascending:  true,
		PageNumber: 1,
		PageSize:   5,
	})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if total != 0 || len(products) != 0 {
		t.Fatalf("expected empty listing, got total=%d products=%+v", total, products)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{gorm.ErrRecordNotFound, ErrNotFound},
		{gorm.ErrDuplicatedKey, ErrDuplicate},
		{&pq.Error{Code: pqForeignKeyViolation}, ErrInUse},
	}
	for _, tc := range cases {
		if got := translate(tc.in); !errors.Is(got, tc.want) {
			t.Fatalf("translate(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if translate(nil) != nil {
		t.Fatalf("expected nil")
	}
}
