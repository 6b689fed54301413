package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/mention"
)

// GetMentionPreferences merges stored rows over the defaults. A destination
// without rows, including an unknown one, gets the defaults.
func (s *Store) GetMentionPreferences(ctx context.Context, destinationID string) (mention.Preferences, error) {
	if !validID(destinationID) {
		return mention.DefaultPreferences(), nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT event_key, enabled FROM mention_preferences WHERE destination_id = $1`, destinationID)
	if err != nil {
		return nil, fmt.Errorf("get mention preferences %s: %w", destinationID, err)
	}
	defer rows.Close()

	stored := make(map[mention.EventKey]bool)
	for rows.Next() {
		var key string
		var enabled bool
		if err := rows.Scan(&key, &enabled); err != nil {
			return nil, fmt.Errorf("scan mention preference: %w", err)
		}
		stored[mention.EventKey(key)] = enabled
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get mention preferences %s: %w", destinationID, err)
	}
	return mention.Merge(stored), nil
}

// SetMentionPreference upserts one preference row.
func (s *Store) SetMentionPreference(ctx context.Context, destinationID string, key mention.EventKey, enabled bool) error {
	if !validID(destinationID) {
		return fmt.Errorf("set mention preference %s: %w", destinationID, domain.ErrNotFound)
	}
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM destinations WHERE id = $1)`, destinationID).Scan(&exists); err != nil {
		return fmt.Errorf("set mention preference %s: %w", destinationID, err)
	}
	if !exists {
		return fmt.Errorf("set mention preference %s: %w", destinationID, domain.ErrNotFound)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO mention_preferences (destination_id, event_key, enabled)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (destination_id, event_key)
		 DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = now()`,
		destinationID, string(key), enabled)
	if err != nil {
		return fmt.Errorf("set mention preference %s/%s: %w", destinationID, key, err)
	}
	return nil
}

const identityColumns = `id, destination_id, source_username, target_handle, COALESCE(linked_owner_id::text, ''), created_at`

func scanIdentity(row scannable) (mention.Identity, error) {
	var id mention.Identity
	err := row.Scan(&id.ID, &id.DestinationID, &id.SourceUsername, &id.TargetHandle, &id.LinkedOwnerID, &id.CreatedAt)
	return id, err
}

func (s *Store) GetMentionIdentity(ctx context.Context, destinationID, username string) (*mention.Identity, error) {
	if !validID(destinationID) {
		return nil, fmt.Errorf("get mention identity %s: %w", username, domain.ErrNotFound)
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM mention_identities
		 WHERE destination_id = $1 AND source_username = $2`, destinationID, username)
	id, err := scanIdentity(row)
	if err != nil {
		return nil, notFoundWrap(err, "get mention identity %s", username)
	}
	return &id, nil
}

func (s *Store) AddMentionIdentity(ctx context.Context, req mention.IdentityRequest) (*mention.Identity, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO mention_identities (destination_id, source_username, target_handle, linked_owner_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+identityColumns,
		req.DestinationID, req.SourceUsername, req.TargetHandle, nullIfEmpty(req.LinkedOwnerID))
	id, err := scanIdentity(row)
	if err != nil {
		return nil, conflictWrap(err, "add mention identity %s", req.SourceUsername)
	}
	return &id, nil
}

func (s *Store) ListMentionIdentities(ctx context.Context, destinationID string) ([]mention.Identity, error) {
	if !validID(destinationID) {
		return []mention.Identity{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+identityColumns+` FROM mention_identities
		 WHERE destination_id = $1 ORDER BY source_username`, destinationID)
	if err != nil {
		return nil, fmt.Errorf("list mention identities: %w", err)
	}
	defer rows.Close()

	var out []mention.Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mention identity: %w", err)
		}
		out = append(out, id)
	}
	return orEmpty(out), rows.Err()
}

func (s *Store) DeleteMentionIdentity(ctx context.Context, destinationID, username string) error {
	if !validID(destinationID) {
		return fmt.Errorf("delete mention identity %s: %w", username, domain.ErrNotFound)
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM mention_identities WHERE destination_id = $1 AND source_username = $2`,
		destinationID, username)
	return execExpectOne(tag, err, "delete mention identity %s", username)
}
