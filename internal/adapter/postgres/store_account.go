package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/account"
)

func scanAccount(row scannable) (account.Account, error) {
	var a account.Account
	err := row.Scan(&a.ID, &a.Name, &a.CreatedAt)
	return a, err
}

func (s *Store) CreateAccount(ctx context.Context, req account.CreateRequest) (*account.Account, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (name) VALUES ($1) RETURNING id, name, created_at`, req.Name)
	a, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, created_at FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return orEmpty(out), rows.Err()
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("delete account %s: %w", id, domain.ErrNotFound)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete account %s", id)
}
