package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sudo-init-do/servicehub/internal/account"
)

const purposePasswordReset = "password_reset"

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Role        string `json:"role,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
	Fingerprint string `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 tokens.
type Tokens struct {
	secret   []byte
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

func NewTokens(secret string, ttl, resetTTL time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, resetTTL: resetTTL, now: time.Now}
}

// Issue returns an access token for p.
func (t *Tokens) Issue(p account.Principal) (string, error) {
	now := t.now()
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies an access token. Reset tokens are rejected.
func (t *Tokens) Parse(tokenString string) (account.Principal, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return account.Principal{}, err
	}
	if claims.Purpose != "" {
		return account.Principal{}, ErrInvalidToken
	}
	role := account.Role(claims.Role)
	if !role.Valid() {
		return account.Principal{}, ErrInvalidToken
	}
	return account.Principal{ID: claims.Subject, Role: role}, nil
}

// IssueReset returns a short-lived password reset token bound to the
// account's current password hash, so it stops working once used.
func (t *Tokens) IssueReset(userID, passwordHash string) (string, error) {
	now := t.now()
	claims := Claims{
		Purpose:     purposePasswordReset,
		Fingerprint: fingerprint(passwordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.resetTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// ParseReset verifies a reset token and returns the account id and the
// password fingerprint it was issued against.
func (t *Tokens) ParseReset(tokenString string) (string, string, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return "", "", err
	}
	if claims.Purpose != purposePasswordReset {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Fingerprint, nil
}

func (t *Tokens) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
