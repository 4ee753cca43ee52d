package listing

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns maps pipeline attributes onto table columns. Empty columns are
// skipped by the filters that would use them.
type Columns struct {
	ID        string
	Name      string
	Price     string
	Category  string
	CreatedAt string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Filter applies the keyword, category and price filters.
func Filter(p Params, cols Columns) func(*gorm.DB) *gorm.DB {
	p = p.Normalize()
	return func(db *gorm.DB) *gorm.DB {
		if p.Keyword != "" && cols.Name != "" {
			pattern := "%" + likeEscaper.Replace(strings.ToLower(p.Keyword)) + "%"
			db = db.Where(clause.Expr{SQL: "LOWER(?) LIKE ?", Vars: []any{clause.Column{Name: cols.Name}, pattern}})
		}
		if len(p.CategoryIDs) > 0 && cols.Category != "" {
			db = db.Where(clause.IN{Column: clause.Column{Name: cols.Category}, Values: uuidValues(p)})
		}
		if cols.Price != "" {
			if p.MinPrice > 0 {
				db = db.Where(clause.Gte{Column: clause.Column{Name: cols.Price}, Value: p.MinPrice})
			}
			if p.MaxPrice > 0 {
				db = db.Where(clause.Lte{Column: clause.Column{Name: cols.Price}, Value: p.MaxPrice})
			}
		}
		return db
	}
}

// Order applies the sort with an ID tie-break.
func Order(p Params, cols Columns, supported ...SortField) func(*gorm.DB) *gorm.DB {
	field, explicit := p.Sort(supported...)
	desc := explicit && !p.Ascending
	column := cols.Name
	switch field {
	case SortByPrice:
		column = cols.Price
	case SortByDate:
		column = cols.CreatedAt
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: column}, Desc: desc},
			{Column: clause.Column{Name: cols.ID}},
		}})
	}
}

// Window applies offset and limit.
func Window(p Params) func(*gorm.DB) *gorm.DB {
	p = p.Normalize()
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.PageSize)
	}
}

func uuidValues(p Params) []any {
	values := make([]any, 0, len(p.CategoryIDs))
	for _, id := range p.CategoryIDs {
		values = append(values, id)
	}
	return values
}
