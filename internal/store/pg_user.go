package store

import (
	"context"
	"errors"
	"fmt"

	cerrors "github.com/connectbuy/catalog/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, password_hash, created_at, updated_at`

// PgUserStore implements UserStore using PostgreSQL as the data store.
type PgUserStore struct {
	db *pgxpool.Pool
}

// NewPgUserStore creates a new instance of UserStore using a PostgreSQL connection pool.
func NewPgUserStore(dbp *pgxpool.Pool) *PgUserStore {
	return &PgUserStore{db: dbp}
}

// FindByID retrieves a user by ID.
// Returns ErrUserNotFound if no user exists with the given ID.
func (s *PgUserStore) FindByID(ctx context.Context, id int64) (*User, error) {
	return s.findBy(ctx, "id", id)
}

// FindByEmail retrieves a user by email.
// Returns ErrUserNotFound if no user exists with the given email.
func (s *PgUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findBy(ctx, "email", email)
}

func (s *PgUserStore) findBy(ctx context.Context, column string, value any) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, column)
	var user User
	err := s.db.QueryRow(ctx, query, value).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cerrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by %s: %w", column, err)
	}
	return &user, nil
}
