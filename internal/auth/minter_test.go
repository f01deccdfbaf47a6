package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/klingclip/internal/failure"
)

func TestNewMinter_RequiresKeys(t *testing.T) {
	tests := []struct {
		name string
		keys Keys
		want error
	}{
		{"missing access id", Keys{Secret: "s"}, ErrAccessIDRequired},
		{"blank access id", Keys{AccessID: "   ", Secret: "s"}, ErrAccessIDRequired},
		{"missing secret", Keys{AccessID: "a"}, ErrSecretRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinter(tt.keys)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, failure.ErrConfiguration)
		})
	}
}

func TestMint_ValidityWindow(t *testing.T) {
	m, err := NewMinter(Keys{AccessID: "ak-123", Secret: "sk-456"})
	require.NoError(t, err)

	times := []time.Time{
		time.Unix(1_700_000_000, 0),
		time.Unix(1_700_000_000, 999_000_000),
		time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	for _, now := range times {
		t.Run(now.String(), func(t *testing.T) {
			tok, err := m.Mint(now)
			require.NoError(t, err)

			assert.Equal(t, 1805*time.Second, tok.ExpiresAt.Sub(tok.NotBefore))
			assert.False(t, tok.NotBefore.After(now))
			assert.False(t, now.After(tok.ExpiresAt))
			assert.Equal(t, tok.IssuedAt.Add(-5*time.Second), tok.NotBefore)
			assert.Equal(t, tok.IssuedAt.Add(1800*time.Second), tok.ExpiresAt)
		})
	}
}

func TestMint_ClaimsAndSignature(t *testing.T) {
	m, err := NewMinter(Keys{AccessID: "ak-123", Secret: "sk-456"})
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	tok, err := m.Mint(now)
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tok.Value, claims,
		func(*jwt.Token) (any, error) { return []byte("sk-456"), nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "ak-123", claims.Issuer)
	assert.Equal(t, int64(1_700_001_800), claims.ExpiresAt.Unix())
	assert.Equal(t, int64(1_699_999_995), claims.NotBefore.Unix())

	// Wrong secret must not verify.
	_, err = jwt.ParseWithClaims(tok.Value, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return []byte("other"), nil },
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	assert.Error(t, err)
}

func TestMint_Header(t *testing.T) {
	m, err := NewMinter(Keys{AccessID: "ak", Secret: "sk"})
	require.NoError(t, err)

	tok, err := m.Mint(time.Now())
	require.NoError(t, err)

	parts := strings.Split(tok.Value, ".")
	require.Len(t, parts, 3)

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)

	var header map[string]string
	require.NoError(t, json.Unmarshal(raw, &header))
	assert.Equal(t, map[string]string{"alg": "HS256", "typ": "JWT"}, header)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(payload, &body))
	assert.ElementsMatch(t, []string{"iss", "exp", "nbf"}, keys(body))
}

func TestToken_BearerHeader(t *testing.T) {
	assert.Equal(t, "Bearer abc.def.ghi", Token{Value: "abc.def.ghi"}.BearerHeader())
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
