package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"yoco/stocksync/internal/constants"
)

// AdminClaims are carried by API bearer tokens
type AdminClaims struct {
	Role constants.APIRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner issues and validates HS256 admin tokens
type TokenSigner struct {
	secretKey []byte
	issuer    string
}

// NewTokenSigner creates a new token signer
func NewTokenSigner(secretKey []byte) *TokenSigner {
	return &TokenSigner{secretKey: secretKey, issuer: "yoco-stocksync"}
}

// Issue signs a token for subject with role, valid for ttl
func (s *TokenSigner) Issue(subject string, role constants.APIRole, ttl time.Duration) (string, error) {
	if len(s.secretKey) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate parses tokenString and returns its claims
func (s *TokenSigner) Validate(tokenString string) (*AdminClaims, error) {
	if len(s.secretKey) == 0 {
		return nil, errors.New("jwt secret is not configured")
	}
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Role != constants.RoleAdmin && claims.Role != constants.RoleOperator {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}
