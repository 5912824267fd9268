package store

import "time"

// Product is a row in the products table. Price is kept in minor currency
// units. Image is the relative path of the stored upload, nil when the
// product has no image. Owner is populated by queries that join the owning
// user, nil otherwise.
type Product struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
	Price       int64
	Stock       int32
	Image       *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Owner *User
}

// User is a row in the users table.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateProductParams holds the fields required to insert a new product.
type CreateProductParams struct {
	UserID      int64
	Name        string
	Description string
	Price       int64
	Stock       int32
	Image       *string
	IsActive    bool
}
