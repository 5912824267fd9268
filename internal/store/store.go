// Package store provides interfaces and a PostgreSQL implementation for
// catalog storage operations.
package store

import "context"

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations.
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier, with the
	// owning user populated.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Product, error)

	// List returns one page of products matching the listing query, with
	// owning users populated, plus the total number of matching rows.
	List(ctx context.Context, q ListingQuery) ([]Product, int64, error)

	// Create adds a new product to the system.
	Create(ctx context.Context, params CreateProductParams) (*Product, error)

	// Update persists all mutable fields of the given product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, product *Product) (*Product, error)

	// Delete removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Delete(ctx context.Context, id int64) error
}

// UserStore is an interface for user lookups. The catalog only reads users;
// registration is owned elsewhere.
type UserStore interface {
	// FindByID retrieves a user by ID.
	// Returns ErrUserNotFound if no user exists with the given ID.
	FindByID(ctx context.Context, id int64) (*User, error)

	// FindByEmail retrieves a user by email.
	// Returns ErrUserNotFound if no user exists with the given email.
	FindByEmail(ctx context.Context, email string) (*User, error)
}
