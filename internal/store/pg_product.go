package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	cerrors "github.com/connectbuy/catalog/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `p.id, p.user_id, p.name, p.description, p.price, p.stock, p.image, p.is_active, p.created_at, p.updated_at`

const ownerColumns = `u.id, u.name, u.email`

// PgProductStore implements ProductStore using PostgreSQL as the data store.
type PgProductStore struct {
	db *pgxpool.Pool
}

// NewPgProductStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgProductStore(dbp *pgxpool.Pool) *PgProductStore {
	return &PgProductStore{db: dbp}
}

// FindByID retrieves a product by its unique identifier, with the owning user populated.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgProductStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s, %s FROM products p JOIN users u ON u.id = p.user_id WHERE p.id = $1`,
		productColumns, ownerColumns)
	product, err := scanProduct(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cerrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// List returns one page of products matching the listing query plus the total
// number of matching rows. Filter and sort column names come from the static
// allow-lists baked into the query builder, never from request input.
func (p *PgProductStore) List(ctx context.Context, q ListingQuery) ([]Product, int64, error) {
	where, args := buildWhere(q)

	countQuery := "SELECT count(*) FROM products p" + where
	var total int64
	if err := p.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	pageQuery := fmt.Sprintf(`SELECT %s, %s FROM products p JOIN users u ON u.id = p.user_id%s ORDER BY p.%s %s, p.id ASC LIMIT $%d OFFSET $%d`,
		productColumns, ownerColumns, where, sortColumn(q.SortBy), sortDirection(q.SortDesc), len(args)+1, len(args)+2)
	args = append(args, q.PerPage, q.Offset())

	rows, err := p.db.Query(ctx, pageQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0, q.PerPage)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read product rows: %w", err)
	}
	return products, total, nil
}

// Create adds a new product to the system.
func (p *PgProductStore) Create(ctx context.Context, params CreateProductParams) (*Product, error) {
	query := fmt.Sprintf(`INSERT INTO products (user_id, name, description, price, stock, image, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, strings.ReplaceAll(productColumns, "p.", ""))
	var product Product
	err := p.db.QueryRow(ctx, query,
		params.UserID, params.Name, params.Description, params.Price, params.Stock, params.Image, params.IsActive,
	).Scan(&product.ID, &product.UserID, &product.Name, &product.Description, &product.Price,
		&product.Stock, &product.Image, &product.IsActive, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

// Update persists all mutable fields of the given product.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgProductStore) Update(ctx context.Context, product *Product) (*Product, error) {
	query := fmt.Sprintf(`UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, image = $5, is_active = $6, updated_at = now()
		WHERE id = $7
		RETURNING %s`, strings.ReplaceAll(productColumns, "p.", ""))
	var updated Product
	err := p.db.QueryRow(ctx, query,
		product.Name, product.Description, product.Price, product.Stock, product.Image, product.IsActive, product.ID,
	).Scan(&updated.ID, &updated.UserID, &updated.Name, &updated.Description, &updated.Price,
		&updated.Stock, &updated.Image, &updated.IsActive, &updated.CreatedAt, &updated.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cerrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &updated, nil
}

// Delete removes a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgProductStore) Delete(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product by ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cerrors.ErrProductNotFound
	}
	return nil
}

// buildWhere translates the listing query into a WHERE clause and its
// arguments. Malformed values for exact-match columns degrade to a predicate
// that matches nothing rather than failing the query.
func buildWhere(q ListingQuery) (string, []any) {
	var conds []string
	var args []any

	if q.Mode == FilterSearch {
		args = append(args, "%"+q.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(p.id::text LIKE $%d OR p.name ILIKE $%d OR p.description ILIKE $%d OR p.price::text LIKE $%d OR p.stock::text LIKE $%d)",
			n, n, n, n, n))
	} else {
		for _, f := range q.Filters {
			cond, arg, ok := filterCondition(f, len(args)+1)
			if !ok {
				conds = append(conds, "FALSE")
				continue
			}
			args = append(args, arg)
			conds = append(conds, cond)
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// filterCondition renders one column filter. The returned bool is false when
// the value cannot be interpreted for the column's type.
func filterCondition(f ColumnFilter, argPos int) (string, any, bool) {
	if f.Mode == CompareSubstring {
		switch f.Column {
		case "name", "description":
			return fmt.Sprintf("p.%s ILIKE $%d", f.Column, argPos), "%" + f.Value + "%", true
		}
		return "", nil, false
	}

	switch f.Column {
	case "price":
		v, err := strconv.ParseInt(f.Value, 10, 64)
		if err != nil {
			return "", nil, false
		}
		return fmt.Sprintf("p.price = $%d", argPos), v, true
	case "stock":
		v, err := strconv.ParseInt(f.Value, 10, 32)
		if err != nil {
			return "", nil, false
		}
		return fmt.Sprintf("p.stock = $%d", argPos), int32(v), true
	case "is_active":
		v, err := strconv.ParseBool(f.Value)
		if err != nil {
			return "", nil, false
		}
		return fmt.Sprintf("p.is_active = $%d", argPos), v, true
	}
	return "", nil, false
}

// sortColumn maps the requested sort column through the ordering allow-list;
// anything else falls back to id.
func sortColumn(col string) string {
	switch col {
	case "name", "price", "stock":
		return col
	}
	return "id"
}

func sortDirection(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var product Product
	var owner User
	err := row.Scan(&product.ID, &product.UserID, &product.Name, &product.Description, &product.Price,
		&product.Stock, &product.Image, &product.IsActive, &product.CreatedAt, &product.UpdatedAt,
		&owner.ID, &owner.Name, &owner.Email)
	if err != nil {
		return nil, err
	}
	product.Owner = &owner
	return &product, nil
}
