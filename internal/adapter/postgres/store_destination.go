package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/destination"
)

const destinationColumns = `id, owner_id, repo_identifier, notification_url, secret, created_at, updated_at`

// scanDestination reads a row and opens its stored secret.
func (s *Store) scanDestination(row scannable) (destination.Destination, error) {
	var d destination.Destination
	var stored string
	if err := row.Scan(&d.ID, &d.OwnerID, &d.RepoIdentifier, &d.NotificationURL, &stored, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return d, err
	}
	secret, err := destination.Open(stored, s.secretKey)
	if err != nil {
		return d, fmt.Errorf("open secret of destination %s: %w", d.ID, err)
	}
	d.Secret = secret
	return d, nil
}

func (s *Store) GetDestination(ctx context.Context, id string) (*destination.Destination, error) {
	if !validID(id) {
		return nil, fmt.Errorf("get destination %s: %w", id, domain.ErrNotFound)
	}
	row := s.pool.QueryRow(ctx, `SELECT `+destinationColumns+` FROM destinations WHERE id = $1`, id)
	d, err := s.scanDestination(row)
	if err != nil {
		return nil, notFoundWrap(err, "get destination %s", id)
	}
	return &d, nil
}

// CreateDestination inserts d and fills in its id and timestamps. d.Secret
// stays plaintext in memory.
func (s *Store) CreateDestination(ctx context.Context, d *destination.Destination) error {
	sealed, err := destination.Seal(d.Secret, s.secretKey)
	if err != nil {
		return fmt.Errorf("seal secret: %w", err)
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO destinations (owner_id, repo_identifier, notification_url, secret)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		d.OwnerID, d.RepoIdentifier, d.NotificationURL, sealed)
	if err := row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return conflictWrap(err, "create destination %s", d.RepoIdentifier)
	}
	return nil
}

func (s *Store) ListDestinations(ctx context.Context, ownerID string) ([]destination.Destination, error) {
	query := `SELECT ` + destinationColumns + ` FROM destinations`
	var args []any
	if ownerID != "" {
		if !validID(ownerID) {
			return []destination.Destination{}, nil
		}
		query += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY repo_identifier`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}
	defer rows.Close()

	var out []destination.Destination
	for rows.Next() {
		d, err := s.scanDestination(rows)
		if err != nil {
			return nil, fmt.Errorf("scan destination: %w", err)
		}
		out = append(out, d)
	}
	return orEmpty(out), rows.Err()
}

// UpdateDestination changes the non-empty fields of req.
func (s *Store) UpdateDestination(ctx context.Context, id string, req destination.UpdateRequest) error {
	if !validID(id) {
		return fmt.Errorf("update destination %s: %w", id, domain.ErrNotFound)
	}
	var sealed string
	if req.Secret != "" {
		var err error
		if sealed, err = destination.Seal(req.Secret, s.secretKey); err != nil {
			return fmt.Errorf("seal secret: %w", err)
		}
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE destinations
		 SET notification_url = COALESCE(NULLIF($2, ''), notification_url),
		     secret = COALESCE(NULLIF($3, ''), secret),
		     updated_at = now()
		 WHERE id = $1`,
		id, req.NotificationURL, sealed)
	return execExpectOne(tag, err, "update destination %s", id)
}

func (s *Store) DeleteDestination(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("delete destination %s: %w", id, domain.ErrNotFound)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM destinations WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete destination %s", id)
}
