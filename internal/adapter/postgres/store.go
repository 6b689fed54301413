package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements database.Store using PostgreSQL. When a secret key is
// set, destination secrets are sealed before they are written and opened
// after they are read.
type Store struct {
	pool      *pgxpool.Pool
	secretKey []byte
}

// NewStore creates a new Store backed by the given connection pool. key may
// be nil to store secrets in plaintext.
func NewStore(pool *pgxpool.Pool, key []byte) *Store {
	return &Store{pool: pool, secretKey: key}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
