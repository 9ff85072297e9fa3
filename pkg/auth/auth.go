// Package auth issues and verifies the HS256 session tokens that guard the local API.
// This is a leaf package with no domain dependencies.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the name written to the iss claim and required on parse.
const Issuer = "genhub"

// DefaultExpiry applies when NewIssuer is given a non-positive ttl.
const DefaultExpiry = 720 * time.Hour

// minSecretLen guards against accidentally empty or trivial HMAC secrets.
const minSecretLen = 16

var (
	ErrEmptyToken   = errors.New("token is empty")
	ErrShortSecret  = fmt.Errorf("secret must be at least %d bytes", minSecretLen)
	ErrInvalidToken = errors.New("invalid token claims or signature")
)

// Claims are the registered claims plus the client label the token was minted for.
type Claims struct {
	Client string `json:"client"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses session tokens with one secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds a TokenIssuer. secret must be at least 16 bytes.
func NewIssuer(secret []byte, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < minSecretLen {
		return nil, ErrShortSecret
	}
	if ttl <= 0 {
		ttl = DefaultExpiry
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &TokenIssuer{secret: s, ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of tokens minted by this issuer.
func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

// GenerateToken mints a token for client.
func (i *TokenIssuer) GenerateToken(client string) (string, error) {
	now := i.now()
	claims := &Claims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   client,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature, issuer and expiry and returns the claims.
func (i *TokenIssuer) ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrEmptyToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// HMAC only; rejects alg substitution
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
