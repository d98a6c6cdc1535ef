// Package pipeline narrows and orders a product list according to a
// FilterState. It holds no state: identical inputs always produce identical
// output, so callers may re-run it on every filter change.
package pipeline

import (
	"sort"
	"strings"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	price50   = decimal.NewFromInt(50)
	price200  = decimal.NewFromInt(200)
	price1000 = decimal.NewFromInt(1000)
)

// Apply filters products by search term, category and price bucket, then
// sorts the result by the state's sort key. The input slice is not modified.
// The filter stages commute; only the sort must run last.
func Apply(products []models.Product, state models.FilterState) []models.Product {
	state = state.Normalize()

	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if !matchesSearch(&p, state.SearchTerm) {
			continue
		}
		if !matchesCategory(&p, state.Category) {
			continue
		}
		if !matchesPriceBucket(&p, state.PriceBucket) {
			continue
		}
		filtered = append(filtered, p)
	}

	sortProducts(filtered, state.SortKey)
	return filtered
}

func matchesSearch(p *models.Product, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(p.Name), term) {
		return true
	}
	return p.Description != nil && strings.Contains(strings.ToLower(*p.Description), term)
}

func matchesCategory(p *models.Product, category string) bool {
	return category == models.CategoryAll || p.CategoryID == category
}

func matchesPriceBucket(p *models.Product, bucket string) bool {
	switch bucket {
	case models.PriceBucketUnder50:
		return p.Price.LessThan(price50)
	case models.PriceBucket50To200:
		return p.Price.GreaterThanOrEqual(price50) && p.Price.LessThanOrEqual(price200)
	case models.PriceBucket200To1K:
		return p.Price.GreaterThan(price200) && p.Price.LessThanOrEqual(price1000)
	case models.PriceBucketOver1K:
		return p.Price.GreaterThan(price1000)
	default:
		return true
	}
}

// sortProducts orders products in place. The sort is stable: products with
// equal keys keep their relative input order.
func sortProducts(products []models.Product, sortKey string) {
	switch sortKey {
	case models.SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.LessThan(products[j].Price)
		})
	case models.SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.GreaterThan(products[j].Price)
		})
	case models.SortName:
		// A fresh collator per call keeps Apply safe for concurrent use.
		c := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(products, func(i, j int) bool {
			return c.CompareString(products[i].Name, products[j].Name) < 0
		})
	default: // featured
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Featured && !products[j].Featured
		})
	}
}

// Categories returns the distinct category ids in first-seen order, for the
// category filter control.
func Categories(products []models.Product) []string {
	seen := make(map[string]struct{}, len(products))
	out := make([]string, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.CategoryID]; ok {
			continue
		}
		seen[p.CategoryID] = struct{}{}
		out = append(out, p.CategoryID)
	}
	return out
}
