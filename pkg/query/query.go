// Package query implements the reusable search/filter/sort/paginate layer
// used by the list endpoints. Parameters follow the public API convention
// (camelCase field names); they are mapped onto snake_case columns before
// touching the database, and anything that does not survive that mapping is
// silently ignored rather than interpolated into SQL.
package query

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/swiftparcel/parcel-backend/pkg/response"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// reserved parameters are consumed by the builder itself; everything else is
// treated as an equality filter.
var reserved = map[string]bool{
	"searchTerm": true,
	"search":     true,
	"sort":       true,
	"fields":     true,
	"page":       true,
	"limit":      true,
}

var safeColumn = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

type Builder struct {
	db         *gorm.DB
	params     map[string]string
	page       int
	limit      int
	sortExpr   string
	selectCols []string
}

// New wraps a prepared gorm chain (model and any fixed scoping already
// applied) together with the request's flat parameter map.
func New(db *gorm.DB, params map[string]string) *Builder {
	return &Builder{
		db:     db,
		params: params,
		page:   DefaultPage,
		limit:  DefaultLimit,
	}
}

// Search applies a case-insensitive substring match OR-ed across the given
// columns when a searchTerm parameter is present.
func (b *Builder) Search(columns ...string) *Builder {
	term := b.params["searchTerm"]
	if term == "" || len(columns) == 0 {
		return b
	}

	var conds []string
	var args []interface{}
	pattern := "%" + strings.ToLower(term) + "%"
	for _, col := range columns {
		if !safeColumn.MatchString(col) {
			continue
		}
		conds = append(conds, fmt.Sprintf("LOWER(%s) LIKE ?", col))
		args = append(args, pattern)
	}
	if len(conds) > 0 {
		b.db = b.db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	return b
}

// Filter turns every non-reserved parameter into an equality condition on
// the matching column.
func (b *Builder) Filter() *Builder {
	for key, value := range b.params {
		if reserved[key] || value == "" {
			continue
		}
		col := toSnake(key)
		if !safeColumn.MatchString(col) {
			continue
		}
		b.db = b.db.Where(fmt.Sprintf("%s = ?", col), value)
	}
	return b
}

// Sort parses the comma-separated sort parameter; a leading '-' means
// descending. Defaults to newest first.
func (b *Builder) Sort() *Builder {
	raw := b.params["sort"]
	if raw == "" {
		raw = "-createdAt"
	}

	var parts []string
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		col := toSnake(field)
		if !safeColumn.MatchString(col) {
			continue
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) > 0 {
		b.sortExpr = strings.Join(parts, ", ")
	}
	return b
}

// Fields records a comma-separated inclusion projection.
func (b *Builder) Fields() *Builder {
	raw := b.params["fields"]
	if raw == "" {
		return b
	}
	for _, field := range strings.Split(raw, ",") {
		col := toSnake(strings.TrimSpace(field))
		if safeColumn.MatchString(col) {
			b.selectCols = append(b.selectCols, col)
		}
	}
	return b
}

// Paginate reads page and limit, falling back to the defaults on anything
// unparseable.
func (b *Builder) Paginate() *Builder {
	if v, err := strconv.Atoi(b.params["page"]); err == nil && v > 0 {
		b.page = v
	}
	if v, err := strconv.Atoi(b.params["limit"]); err == nil && v > 0 {
		b.limit = v
	}
	return b
}

// Find runs the finished query into dest and returns pagination metadata.
// The total is computed by a separate count over the same conditions so the
// metadata stays accurate regardless of the page requested.
func (b *Builder) Find(dest interface{}) (response.Meta, error) {
	var total int64
	if err := b.db.Session(&gorm.Session{}).Model(dest).Count(&total).Error; err != nil {
		return response.Meta{}, err
	}

	tx := b.db.Session(&gorm.Session{})
	if len(b.selectCols) > 0 {
		tx = tx.Select(b.selectCols)
	}
	if b.sortExpr != "" {
		tx = tx.Order(b.sortExpr)
	}
	tx = tx.Offset((b.page - 1) * b.limit).Limit(b.limit)

	if err := tx.Find(dest).Error; err != nil {
		return response.Meta{}, err
	}

	return response.Meta{
		Page:       b.page,
		Limit:      b.limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(b.limit))),
	}, nil
}

// toSnake maps an API field name like "createdAt" to its column name.
func toSnake(s string) string {
	var out strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out.WriteByte('_')
			}
			out.WriteRune(r + ('a' - 'A'))
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}
