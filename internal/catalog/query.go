package catalog

import (
	"context"
	"math"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"storefront/internal/models"
)

// ListParams are the optional product listing parameters. Nil pointers mean
// the parameter was absent or not numeric.
type ListParams struct {
	Search       string
	MinPrice     *int
	MaxPrice     *int
	CategorySlug string
	TagSlug      string
	Color        string
	Page         *int
	Limit        *int
	Latest       bool
}

// ParseListParams reads listing parameters from a query string.
func ParseListParams(q url.Values) ListParams {
	return ListParams{
		Search:       q.Get("search"),
		MinPrice:     intParam(q, "minPrice"),
		MaxPrice:     intParam(q, "maxPrice"),
		CategorySlug: q.Get("categorySlug"),
		TagSlug:      q.Get("tagSlug"),
		Color:        q.Get("color"),
		Page:         intParam(q, "page"),
		Limit:        intParam(q, "limit"),
		Latest:       q.Get("latest") != "",
	}
}

// intParam reads a base-10 number and truncates it toward zero, so "010"
// is 10 and "10.5" is 10. Values outside the int32 range count as absent.
func intParam(q url.Values, key string) *int {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return nil
	}
	n := int(math.Trunc(f))
	return &n
}

// Clause is one predicate of a product filter.
type Clause struct {
	Name string
	SQL  string
	Args []interface{}
}

// Filter is the ordered conjunction of clauses plus ordering and paging.
type Filter struct {
	Clauses []Clause
	Order   string
	Limit   int
	Offset  int
}

const (
	ClauseSearch   = "search"
	ClausePrice    = "price"
	ClauseCategory = "category"
	ClauseTag      = "tag"
	ClauseColor    = "color"
)

// BuildFilter adds a clause only for parameters that are present. A price
// range needs both bounds; a lone bound adds nothing.
func BuildFilter(p ListParams, pageSize int) Filter {
	var f Filter

	if p.Search != "" {
		f.Clauses = append(f.Clauses, Clause{
			Name: ClauseSearch,
			SQL:  "products.name LIKE ?",
			Args: []interface{}{"%" + p.Search + "%"},
		})
	}

	if p.MinPrice != nil && p.MaxPrice != nil {
		f.Clauses = append(f.Clauses, Clause{
			Name: ClausePrice,
			SQL: "EXISTS (SELECT 1 FROM product_variants pv WHERE pv.product_id = products.id " +
				"AND pv.price >= ? AND pv.price <= ?)",
			Args: []interface{}{*p.MinPrice, *p.MaxPrice},
		})
	}

	if p.CategorySlug != "" {
		f.Clauses = append(f.Clauses, Clause{
			Name: ClauseCategory,
			SQL: "EXISTS (SELECT 1 FROM product_categories pc JOIN categories c ON c.id = pc.category_id " +
				"WHERE pc.product_id = products.id AND c.slug = ?)",
			Args: []interface{}{p.CategorySlug},
		})
	}

	if p.TagSlug != "" {
		f.Clauses = append(f.Clauses, Clause{
			Name: ClauseTag,
			SQL: "EXISTS (SELECT 1 FROM product_tags pt JOIN tags t ON t.id = pt.tag_id " +
				"WHERE pt.product_id = products.id AND t.slug = ?)",
			Args: []interface{}{p.TagSlug},
		})
	}

	if p.Color != "" {
		f.Clauses = append(f.Clauses, Clause{
			Name: ClauseColor,
			SQL:  "EXISTS (SELECT 1 FROM product_variants pv WHERE pv.product_id = products.id AND pv.color = ?)",
			Args: []interface{}{p.Color},
		})
	}

	if p.Latest {
		f.Order = "products.created_at DESC, products.id DESC"
	} else {
		f.Order = "products.created_at ASC, products.id ASC"
	}

	f.Limit = pageSize
	if p.Limit != nil && *p.Limit > 0 {
		f.Limit = *p.Limit
	}
	if p.Page != nil {
		f.Offset = *p.Page*f.Limit - f.Limit
	}
	// page=0 (or negative) would yield a negative offset; it starts at the first row instead.
	if f.Offset < 0 {
		f.Offset = 0
	}

	return f
}

// Has reports whether a clause with the given name is part of the filter.
func (f Filter) Has(name string) bool {
	for _, c := range f.Clauses {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Apply adds every clause to tx as an AND-ed WHERE condition.
func (f Filter) Apply(tx *gorm.DB) *gorm.DB {
	for _, c := range f.Clauses {
		tx = tx.Where(c.SQL, c.Args...)
	}
	return tx
}

// ListProducts returns one page of products with their relations, and the
// total number of products matching the same filter.
func (s *Service) ListProducts(ctx context.Context, p ListParams) ([]models.Product, int64, error) {
	f := BuildFilter(p, s.pageSize)

	products := []models.Product{}
	err := f.Apply(s.db.WithContext(ctx).Model(&models.Product{})).
		Preload("ProductVariants", orderByID).
		Preload("ProductImages", orderByID).
		Preload("Categories", orderByID).
		Preload("Tags", orderByID).
		Order(f.Order).
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&products).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}

	var total int64
	if err := f.Apply(s.db.WithContext(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	return products, total, nil
}

func orderByID(tx *gorm.DB) *gorm.DB {
	return tx.Order("id")
}
