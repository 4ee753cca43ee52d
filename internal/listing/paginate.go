package listing

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record exposes the attributes the pipeline reads from an item.
type Record struct {
	ID         uuid.UUID
	Name       string
	Price      float64
	CategoryID uuid.UUID
	CreatedAt  time.Time
}

// Schema describes how to read an entity and which sort fields it accepts.
type Schema[T any] struct {
	Extract    func(T) Record
	SortFields []SortField
}

// Paginate filters, sorts and windows source. Filters run first, then the
// sort, then the window; TotalCount counts filtered items before windowing.
// Ties are broken by ID so pages are stable. source is not modified.
func Paginate[T any](source []T, p Params, schema Schema[T]) Page[T] {
	p = p.Normalize()
	keyword := strings.ToLower(p.Keyword)

	type row struct {
		item T
		rec  Record
	}
	rows := make([]row, 0, len(source))
	for _, item := range source {
		rec := schema.Extract(item)
		if keyword != "" && !strings.Contains(strings.ToLower(rec.Name), keyword) {
			continue
		}
		if len(p.CategoryIDs) > 0 && !p.hasCategory(rec.CategoryID) {
			continue
		}
		if p.MinPrice > 0 && rec.Price < p.MinPrice {
			continue
		}
		if p.MaxPrice > 0 && rec.Price > p.MaxPrice {
			continue
		}
		rows = append(rows, row{item: item, rec: rec})
	}

	field, explicit := p.Sort(schema.SortFields...)
	ascending := p.Ascending || !explicit
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i].rec, rows[j].rec, field)
		if c == 0 {
			return strings.Compare(rows[i].rec.ID.String(), rows[j].rec.ID.String()) < 0
		}
		if ascending {
			return c < 0
		}
		return c > 0
	})

	page := Page[T]{
		Items:      []T{},
		TotalCount: int64(len(rows)),
		PageNumber: p.PageNumber,
		PageSize:   p.PageSize,
	}
	start := p.Offset()
	if start >= len(rows) {
		return page
	}
	end := start + p.PageSize
	if end > len(rows) {
		end = len(rows)
	}
	for _, r := range rows[start:end] {
		page.Items = append(page.Items, r.item)
	}
	return page
}

func compare(a, b Record, field SortField) int {
	switch field {
	case SortByPrice:
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return 0
	case SortByDate:
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return strings.Compare(a.Name, b.Name)
	}
}
