package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/connectbuy/catalog/internal/storage"
	"github.com/connectbuy/catalog/internal/store"
)

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Name        string `json:"name"        validate:"required,max=255"`
	Description string `json:"description" validate:"max=255"`
	Price       int64  `json:"price"       validate:"min=0"`
	Stock       int32  `json:"stock"       validate:"min=0"`
}

// ProductUpdateDto represents a partial update. Nil fields are left
// untouched; a non-nil pointer to a zero value is an explicit assignment.
type ProductUpdateDto struct {
	Name        *string `json:"name"        validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=255"`
	Price       *int64  `json:"price"       validate:"omitempty,min=0"`
	Stock       *int32  `json:"stock"       validate:"omitempty,min=0"`
	IsActive    *bool   `json:"is_active"`
}

// ProductService defines the methods for managing products.
type ProductService interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*ProductDto, error)

	// Create adds a new product owned by the given user, storing the
	// optional image blob first. The product starts active.
	Create(ctx context.Context, userID int64, product ProductCreateDto, image *storage.Upload) (*ProductDto, error)

	// Update applies a partial update; a new image replaces the prior blob.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id int64, product ProductUpdateDto, image *storage.Upload) (*ProductDto, error)

	// Delete removes a product and releases its stored image blob.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Delete(ctx context.Context, id int64) error
}

// Products implements ProductService and provides methods to manage products.
type Products struct {
	repository store.ProductStore
	blobs      storage.BlobStore
	logger     *slog.Logger
}

// NewProducts creates a new ProductService with the provided repository and blob store.
func NewProducts(repo store.ProductStore, blobs storage.BlobStore, logger *slog.Logger) *Products {
	return &Products{
		repository: repo,
		blobs:      blobs,
		logger:     logger.With("component", "products"),
	}
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Products) FindByID(ctx context.Context, id int64) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %d: %w", id, err)
	}
	return toDto(product), nil
}

// Create stores the optional image blob, then persists a new product row.
// The owner is always the authenticated user; is_active defaults to true.
// A crash between blob write and row insert can leave an orphaned blob.
func (s *Products) Create(ctx context.Context, userID int64, product ProductCreateDto, image *storage.Upload) (*ProductDto, error) {
	var imagePath *string
	if image != nil {
		path, err := s.blobs.Store(ctx, *image)
		if err != nil {
			return nil, fmt.Errorf("failed to store product image: %w", err)
		}
		imagePath = &path
	}

	created, err := s.repository.Create(ctx, store.CreateProductParams{
		UserID:      userID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		Image:       imagePath,
		IsActive:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toDto(created), nil
}

// Update loads the product, merges the supplied fields and persists the
// result. When a new image is supplied the prior blob is deleted before the
// new one is stored.
func (s *Products) Update(ctx context.Context, id int64, product ProductUpdateDto, image *storage.Upload) (*ProductDto, error) {
	existing, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %d: %w", id, err)
	}

	if product.Name != nil {
		existing.Name = *product.Name
	}
	if product.Description != nil {
		existing.Description = *product.Description
	}
	if product.Price != nil {
		existing.Price = *product.Price
	}
	if product.Stock != nil {
		existing.Stock = *product.Stock
	}
	if product.IsActive != nil {
		existing.IsActive = *product.IsActive
	}

	if image != nil {
		if existing.Image != nil {
			s.deleteBlob(ctx, *existing.Image)
		}
		path, err := s.blobs.Store(ctx, *image)
		if err != nil {
			return nil, fmt.Errorf("failed to store product image: %w", err)
		}
		existing.Image = &path
	}

	updated, err := s.repository.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %d: %w", id, err)
	}
	return toDto(updated), nil
}

// Delete removes the product row, then releases its image blob if present.
func (s *Products) Delete(ctx context.Context, id int64) error {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch product by ID %d: %w", id, err)
	}
	if err := s.repository.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product with ID %d: %w", id, err)
	}
	if product.Image != nil {
		s.deleteBlob(ctx, *product.Image)
	}
	return nil
}

// deleteBlob removes a stored image; failures are logged, not fatal, since
// the row write is the source of truth.
func (s *Products) deleteBlob(ctx context.Context, path string) {
	if err := s.blobs.Delete(ctx, path); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete image blob", "path", path, "error", err)
	}
}
