package store

import (
	"context"
	"fmt"

	"github.com/MediSynth-io/contentplanner/internal/models"
)

const tokenColumns = "id, user_id, name, prefix, token_hash, created_at, expires_at, last_used_at"

func scanToken(row scanner) (*models.APIToken, error) {
	t := &models.APIToken{}
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Prefix, &t.Hash, &t.CreatedAt, &t.ExpiresAt, &t.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateAPIToken stores a token record. The caller supplies prefix and hash.
func (s *Store) CreateAPIToken(ctx context.Context, t models.APIToken) (*models.APIToken, error) {
	var expires any
	if t.ExpiresAt != nil {
		expires = utc(*t.ExpiresAt)
	}
	out, err := scanToken(s.queryRow(ctx, `
		INSERT INTO api_tokens (id, user_id, name, prefix, token_hash, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+tokenColumns,
		newID(), t.UserID, t.Name, t.Prefix, t.Hash, s.timestamp(), expires,
	))
	if err != nil {
		return nil, fmt.Errorf("create api token: %w", err)
	}
	return out, nil
}

// GetAPITokenByPrefix looks a token up by its public prefix.
func (s *Store) GetAPITokenByPrefix(ctx context.Context, prefix string) (*models.APIToken, error) {
	t, err := scanToken(s.queryRow(ctx, "SELECT "+tokenColumns+" FROM api_tokens WHERE prefix = ?", prefix))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get api token: %w", err)
	}
	return t, nil
}

// ListAPITokens retrieves all tokens for a user
func (s *Store) ListAPITokens(ctx context.Context, userID string) ([]models.APIToken, error) {
	rows, err := s.query(ctx, "SELECT "+tokenColumns+" FROM api_tokens WHERE user_id = ? ORDER BY created_at", userID)
	if err != nil {
		return nil, fmt.Errorf("list api tokens: %w", err)
	}
	defer rows.Close()

	tokens := []models.APIToken{}
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api token: %w", err)
		}
		tokens = append(tokens, *t)
	}
	return tokens, rows.Err()
}

// DeleteAPIToken removes a token owned by userID.
func (s *Store) DeleteAPIToken(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.exec(ctx, "DELETE FROM api_tokens WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("delete api token: %w", err)
	}
	return rowsAffected(res)
}

// TouchAPIToken records a successful use.
func (s *Store) TouchAPIToken(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, "UPDATE api_tokens SET last_used_at = ? WHERE id = ?", s.timestamp(), id); err != nil {
		return fmt.Errorf("touch api token: %w", err)
	}
	return nil
}
