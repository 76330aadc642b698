package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const tokenScheme = "cp"

var ErrInvalidAPIToken = errors.New("invalid api token")

// CreateToken issues an API token. The plaintext is only ever returned here.
func (s *Service) CreateToken(ctx context.Context, userID, name string, ttl time.Duration) (string, *models.APIToken, error) {
	prefix, err := randomHex(6)
	if err != nil {
		return "", nil, err
	}
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash token: %w", err)
	}

	t := models.APIToken{UserID: userID, Name: name, Prefix: prefix, Hash: string(hash)}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		t.ExpiresAt = &expires
	}
	stored, err := s.store.CreateAPIToken(ctx, t)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s_%s_%s", tokenScheme, prefix, secret), stored, nil
}

// ValidateToken resolves a plaintext token to its record.
func (s *Service) ValidateToken(ctx context.Context, plaintext string) (*models.APIToken, error) {
	scheme, rest, ok := strings.Cut(plaintext, "_")
	if !ok || scheme != tokenScheme {
		return nil, ErrInvalidAPIToken
	}
	prefix, secret, ok := strings.Cut(rest, "_")
	if !ok || prefix == "" || secret == "" {
		return nil, ErrInvalidAPIToken
	}

	t, err := s.store.GetAPITokenByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Expired(time.Now()) {
		return nil, ErrInvalidAPIToken
	}
	if bcrypt.CompareHashAndPassword([]byte(t.Hash), []byte(secret)) != nil {
		return nil, ErrInvalidAPIToken
	}

	if err := s.store.TouchAPIToken(ctx, t.ID); err != nil {
		s.log.Warn().Err(err).Str("token_id", t.ID).Msg("Failed to record token use")
	}
	return t, nil
}

// ListTokens lists all tokens for a user
func (s *Service) ListTokens(ctx context.Context, userID string) ([]models.APIToken, error) {
	return s.store.ListAPITokens(ctx, userID)
}

func (s *Service) DeleteToken(ctx context.Context, userID, tokenID string) (bool, error) {
	return s.store.DeleteAPIToken(ctx, userID, tokenID)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
