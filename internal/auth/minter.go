// Package auth mints the short-lived signed tokens the Kling API expects on every call.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maauso/klingclip/internal/failure"
)

const (
	// TokenLifetime is how long a minted token stays valid after issue.
	TokenLifetime = 1800 * time.Second
	// ClockSkew is how far before issue a token already counts as valid.
	ClockSkew = 5 * time.Second
)

// Static errors for minting.
var (
	// ErrAccessIDRequired is returned when the access key is empty.
	ErrAccessIDRequired = fmt.Errorf("%w: access key is required", failure.ErrConfiguration)
	// ErrSecretRequired is returned when the secret key is empty.
	ErrSecretRequired = fmt.Errorf("%w: secret key is required", failure.ErrConfiguration)
)

// Keys is the long-lived credential pair issued by Kling.
type Keys struct {
	AccessID string
	Secret   string
}

// Validate reports whether both halves of the pair are present.
func (k Keys) Validate() error {
	if strings.TrimSpace(k.AccessID) == "" {
		return ErrAccessIDRequired
	}
	if strings.TrimSpace(k.Secret) == "" {
		return ErrSecretRequired
	}
	return nil
}

// Token is a signed bearer credential with its validity window.
type Token struct {
	Value     string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

// BearerHeader returns the Authorization header value for the token.
func (t Token) BearerHeader() string {
	return "Bearer " + t.Value
}

// Minter signs tokens from a Keys pair. It holds no other state, so a
// single Minter can be shared freely.
type Minter struct {
	keys Keys
}

// NewMinter returns a Minter for keys, or a configuration error if either key is empty.
func NewMinter(keys Keys) (*Minter, error) {
	if err := keys.Validate(); err != nil {
		return nil, err
	}
	return &Minter{keys: keys}, nil
}

// Mint signs a token valid from now-ClockSkew until now+TokenLifetime.
// Claims are {iss, exp, nbf}; the header is {alg: HS256, typ: JWT}.
func (m *Minter) Mint(now time.Time) (Token, error) {
	if err := m.keys.Validate(); err != nil {
		return Token{}, err
	}

	issued := now.Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Issuer:    m.keys.AccessID,
		ExpiresAt: jwt.NewNumericDate(issued.Add(TokenLifetime)),
		NotBefore: jwt.NewNumericDate(issued.Add(-ClockSkew)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.keys.Secret))
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}

	return Token{
		Value:     signed,
		IssuedAt:  issued,
		NotBefore: claims.NotBefore.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
