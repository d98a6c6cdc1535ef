package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Upstream payloads carry prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a catalog item served by the upstream catalog service.
// Fields the upstream may omit are pointers so consumers must handle the
// absent case explicitly.
type Product struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    *string           `json:"description,omitempty"`
	Price          decimal.Decimal   `json:"price"`
	CompareAtPrice *decimal.Decimal  `json:"compareAtPrice,omitempty"`
	Stock          *int              `json:"stock,omitempty"`
	CategoryID     string            `json:"categoryId"`
	Tags           []string          `json:"tags,omitempty"`
	Images         []string          `json:"images,omitempty"`
	Rating         *float64          `json:"rating,omitempty"`
	ReviewCount    *int              `json:"reviewCount,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Featured       bool              `json:"featured"`
	SKU            *string           `json:"sku,omitempty"`
}

// PrimaryImage returns the first product image, or empty if there are none.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// OnSale reports whether the compare-at price is meaningful for display.
func (p *Product) OnSale() bool {
	return p.CompareAtPrice != nil && p.CompareAtPrice.GreaterThan(p.Price)
}

// CartLine is one product's accumulated selection in a cart. It carries a
// display snapshot of the product captured at add time so the cart renders
// without refetching the catalog.
type CartLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Stock     *int            `json:"stock,omitempty"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns price times quantity at full precision.
func (l *CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSnapshot is a read view of a cart: the ordered lines plus aggregates
// derived from them. It is never stored separately from the lines.
type CartSnapshot struct {
	Items []CartLine      `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Price buckets for the product list filter.
const (
	PriceBucketAll     = "all"
	PriceBucketUnder50 = "under-50"
	PriceBucket50To200 = "50-200"
	PriceBucket200To1K = "200-1000"
	PriceBucketOver1K  = "over-1000"
)

// Sort keys for the product list.
const (
	SortFeatured  = "featured"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortName      = "name"
)

// CategoryAll is the sentinel meaning "no category filter".
const CategoryAll = "all"

// FilterState is the user-selected combination of search text, category,
// price bucket and sort key driving the pipeline.
type FilterState struct {
	SearchTerm  string `json:"searchTerm"`
	Category    string `json:"category"`
	PriceBucket string `json:"priceBucket"`
	SortKey     string `json:"sortKey"`
}

// DefaultFilterState returns the state that selects everything, featured first.
func DefaultFilterState() FilterState {
	return FilterState{
		Category:    CategoryAll,
		PriceBucket: PriceBucketAll,
		SortKey:     SortFeatured,
	}
}

// Normalize replaces empty or unknown enum values with their defaults so the
// pipeline never sees an invalid state.
func (f FilterState) Normalize() FilterState {
	if f.Category == "" {
		f.Category = CategoryAll
	}
	switch f.PriceBucket {
	case PriceBucketAll, PriceBucketUnder50, PriceBucket50To200, PriceBucket200To1K, PriceBucketOver1K:
	default:
		f.PriceBucket = PriceBucketAll
	}
	switch f.SortKey {
	case SortFeatured, SortPriceLow, SortPriceHigh, SortName:
	default:
		f.SortKey = SortFeatured
	}
	return f
}

// NormalizeQuantity coerces an add-to-cart quantity to a positive integer.
// Non-positive input becomes 1; the cart store clamps, it never rejects.
func NormalizeQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}
