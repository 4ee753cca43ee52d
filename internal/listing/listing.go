// Package listing implements the filter, sort and paginate pipeline shared by
// every collection endpoint. The same pipeline runs in memory over slices
// (Paginate) and in SQL as gorm scopes (Filter, Order, Window).
package listing

import (
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
	MaxPageSize       = 100
)

// SortField names a sortable attribute.
type SortField string

const (
	SortByName  SortField = "name"
	SortByPrice SortField = "price"
	SortByDate  SortField = "date"
)

// Params describes one listing request.
type Params struct {
	// Keyword filters by case-insensitive substring match on the name.
	Keyword string

	// MinPrice and MaxPrice bound the price. A value <= 0 leaves the
	// corresponding side unbounded.
	MinPrice float64
	MaxPrice float64

	// CategoryIDs keeps only items whose category is in the set. Empty means no filter.
	CategoryIDs []uuid.UUID

	// SortBy selects the sort field. Empty sorts by creation time ascending.
	SortBy    string
	Ascending bool

	PageNumber int
	PageSize   int
}

// Page is one window of a listing, along with the number of items that
// matched the filters before the window was applied.
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	PageNumber int   `json:"pageNumber"`
	PageSize   int   `json:"pageSize"`
}

// Normalize clamps the page window to valid values.
func (p Params) Normalize() Params {
	if p.PageNumber < 1 {
		p.PageNumber = DefaultPageNumber
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	p.Keyword = strings.TrimSpace(p.Keyword)
	return p
}

// Offset is the number of items skipped before the window.
func (p Params) Offset() int {
	p = p.Normalize()
	return (p.PageNumber - 1) * p.PageSize
}

// Sort resolves the requested sort against the fields an entity supports.
// The second result is false when no explicit sort was requested, in which
// case callers sort by creation time ascending.
func (p Params) Sort(supported ...SortField) (SortField, bool) {
	requested := SortField(strings.ToLower(strings.TrimSpace(p.SortBy)))
	if requested == "" {
		return SortByDate, false
	}
	for _, field := range supported {
		if field == requested {
			return field, true
		}
	}
	return SortByName, true
}

func (p Params) hasCategory(id uuid.UUID) bool {
	for _, c := range p.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Empty returns an empty page echoing the normalized window.
func Empty[T any](p Params) Page[T] {
	p = p.Normalize()
	return Page[T]{Items: []T{}, PageNumber: p.PageNumber, PageSize: p.PageSize}
}
