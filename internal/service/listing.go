// Package service provides the implementation of catalog business logic.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/connectbuy/catalog/internal/store"
)

// Reserved parameter names are never treated as column filters.
var reservedParams = map[string]bool{
	"page":           true,
	"perPage":        true,
	"sort_by":        true,
	"sort_direction": true,
	"search":         true,
}

// filterColumns enumerates the supported filter columns and their comparison
// modes. Request keys are checked against this list, never against the
// schema; parameters naming anything else are silently ignored.
var filterColumns = []struct {
	Column string
	Mode   store.CompareMode
}{
	{"name", store.CompareSubstring},
	{"description", store.CompareSubstring},
	{"price", store.CompareExact},
	{"stock", store.CompareExact},
	{"is_active", store.CompareExact},
}

const (
	defaultPerPage = 10
	defaultPage    = 1
)

// IsReservedParam reports whether the request key is a reserved listing
// parameter rather than a potential column filter.
func IsReservedParam(key string) bool {
	return reservedParams[key]
}

// ParseListingQuery derives a listing query from untrusted request
// parameters. A non-empty search term selects search mode and discards any
// column filters; otherwise every non-empty parameter naming a supported
// column becomes a filter. Malformed page numbers and page sizes fall back to
// their defaults.
func ParseListingQuery(params url.Values) store.ListingQuery {
	q := store.ListingQuery{
		SortBy:  "id",
		Page:    defaultPage,
		PerPage: defaultPerPage,
	}

	if search := params.Get("search"); search != "" {
		q.Mode = store.FilterSearch
		q.Search = search
	} else {
		q.Mode = store.FilterColumns
		for _, fc := range filterColumns {
			if value := params.Get(fc.Column); value != "" {
				q.Filters = append(q.Filters, store.ColumnFilter{
					Column: fc.Column,
					Mode:   fc.Mode,
					Value:  value,
				})
			}
		}
	}

	switch params.Get("sort_by") {
	case "name":
		q.SortBy = "name"
	case "price":
		q.SortBy = "price"
	case "stock":
		q.SortBy = "stock"
	}
	q.SortDesc = params.Get("sort_direction") == "desc"

	if page, err := strconv.Atoi(params.Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	if perPage, err := strconv.Atoi(params.Get("perPage")); err == nil && perPage > 0 {
		q.PerPage = perPage
	}

	return q
}

// UserSummaryDto is the owning user summary eager-loaded on listings.
type UserSummaryDto struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       int64           `json:"price"`
	Stock       int32           `json:"stock"`
	Image       *string         `json:"image"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	User        *UserSummaryDto `json:"user,omitempty"`
}

// PaginationDto carries page metadata. From and To are the 1-based indexes of
// the first and last item on the page, both zero when the page is empty.
type PaginationDto struct {
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	From        int   `json:"from"`
	To          int   `json:"to"`
}

// ProductPage is one page of listing results plus its pagination metadata.
type ProductPage struct {
	Items      []ProductDto
	Pagination PaginationDto
}

// ListingService builds a filtered, sorted, paginated view over the product
// store from untrusted request parameters. Read-only.
type ListingService interface {
	// List produces a single page of matching products plus pagination
	// metadata. Malformed filter values degrade to an empty result set
	// rather than an error.
	List(ctx context.Context, params url.Values) (*ProductPage, error)
}

// Listing implements ListingService.
type Listing struct {
	repository store.ProductStore
}

// NewListing creates a new ListingService backed by the given repository.
func NewListing(repo store.ProductStore) *Listing {
	return &Listing{repository: repo}
}

// List derives a listing query from the request parameters and assembles one
// page of results.
func (s *Listing) List(ctx context.Context, params url.Values) (*ProductPage, error) {
	query := ParseListingQuery(params)

	products, total, err := s.repository.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	items := make([]ProductDto, len(products))
	for i := range products {
		items[i] = *toDto(&products[i])
	}

	return &ProductPage{
		Items:      items,
		Pagination: paginate(total, query, len(items)),
	}, nil
}

// paginate computes page metadata from the total row count and the requested
// page window.
func paginate(total int64, q store.ListingQuery, count int) PaginationDto {
	lastPage := int((total + int64(q.PerPage) - 1) / int64(q.PerPage))
	if lastPage < 1 {
		lastPage = 1
	}
	meta := PaginationDto{
		Total:       total,
		PerPage:     q.PerPage,
		CurrentPage: q.Page,
		LastPage:    lastPage,
	}
	if count > 0 {
		meta.From = q.Offset() + 1
		meta.To = q.Offset() + count
	}
	return meta
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	dto := &ProductDto{
		ID:          product.ID,
		UserID:      product.UserID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		Image:       product.Image,
		IsActive:    product.IsActive,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	if product.Owner != nil {
		dto.User = &UserSummaryDto{
			ID:    product.Owner.ID,
			Name:  product.Owner.Name,
			Email: product.Owner.Email,
		}
	}
	return dto
}
