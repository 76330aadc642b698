package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidState  = errors.New("invalid oauth state")
	ErrExpiredState  = errors.New("oauth state has expired")
	ErrMissingSecret = errors.New("state signing secret is empty")
)

// StateClaims binds an OAuth round trip to the browser that started it.
type StateClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// StateSigner issues and checks signed OAuth state values.
type StateSigner struct {
	secretKey []byte
	ttl       time.Duration
}

func NewStateSigner(secretKey string, ttl time.Duration) *StateSigner {
	return &StateSigner{secretKey: []byte(secretKey), ttl: ttl}
}

// Sign returns a state value carrying nonce.
func (s *StateSigner) Sign(nonce string) (string, error) {
	if len(s.secretKey) == 0 {
		return "", ErrMissingSecret
	}
	now := time.Now()
	claims := StateClaims{
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
}

// Verify checks the signature and expiry and returns the nonce.
func (s *StateSigner) Verify(state string) (string, error) {
	if len(s.secretKey) == 0 {
		return "", ErrInvalidState
	}
	token, err := jwt.ParseWithClaims(state, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidState
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredState
		}
		return "", ErrInvalidState
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid || claims.Nonce == "" {
		return "", ErrInvalidState
	}
	return claims.Nonce, nil
}
