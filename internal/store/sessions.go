package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/models"
)

// CreateSession opens a server-side session for a user.
func (s *Store) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*models.Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, err
	}

	now := s.timestamp()
	sess := &models.Session{
		ID:        hex.EncodeToString(tokenBytes),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	_, err := s.exec(ctx,
		"INSERT INTO sessions (sid, user_id, created_at, expire) VALUES (?, ?, ?, ?)",
		sess.ID, sess.UserID, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// GetSession returns a live session. Missing and expired sessions both yield nil.
func (s *Store) GetSession(ctx context.Context, sid string) (*models.Session, error) {
	sess := &models.Session{}
	err := s.queryRow(ctx,
		"SELECT sid, user_id, created_at, expire FROM sessions WHERE sid = ? AND expire > ?",
		sid, s.timestamp(),
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, sid string) (bool, error) {
	res, err := s.exec(ctx, "DELETE FROM sessions WHERE sid = ?", sid)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return rowsAffected(res)
}

// CleanupExpiredSessions removes all expired sessions
func (s *Store) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, "DELETE FROM sessions WHERE expire <= ?", s.timestamp())
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	return res.RowsAffected()
}
