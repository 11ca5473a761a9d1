package sandbox

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/expense-console/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long a sandbox session token stays valid
const DefaultTokenTTL = 10 * time.Hour

// Claims is the payload of a sandbox session token
type Claims struct {
	ID    int64  `json:"id"`
	Roles string `json:"roles"`
	jwt.RegisteredClaims
}

// Signer mints and verifies HS256 session tokens
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner creates a signer. An empty key is rejected.
func NewSigner(key string, ttl time.Duration) (*Signer, error) {
	if key == "" {
		return nil, errors.New("signing key must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Signer{key: []byte(key), ttl: ttl, now: time.Now}, nil
}

// Mint issues a token for user
func (s *Signer) Mint(user models.User) (string, error) {
	now := s.now()
	claims := Claims{
		ID:    user.ID,
		Roles: "ROLE_" + user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the token's user
func (s *Signer) Verify(token string) (*models.User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	role := strings.TrimPrefix(claims.Roles, "ROLE_")
	return &models.User{ID: claims.ID, Username: claims.Subject, Role: role}, nil
}
