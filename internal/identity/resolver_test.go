package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "assettrack/pkg/domain-errors"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	require.NoError(t, err)
	return token
}

func TestResolveDisplayNameChain(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   string
	}{
		{
			name: "display name wins",
			claims: Claims{
				DisplayName: "Amelia K.",
				FirstName:   "Amelia",
				LastName:    "Kraft",
				Email:       "amelia@example.com",
			},
			want: "Amelia K.",
		},
		{
			name:   "formal name",
			claims: Claims{FirstName: "Amelia", LastName: "Kraft"},
			want:   "Amelia Kraft",
		},
		{
			name:   "first name only",
			claims: Claims{FirstName: "Amelia"},
			want:   "Amelia",
		},
		{
			name:   "email local part",
			claims: Claims{Email: "amelia.kraft@example.com"},
			want:   "amelia.kraft",
		},
		{
			name: "subject as last resort",
			claims: Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "user-81"},
			},
			want: "user-81",
		},
	}

	resolver := NewResolver(testKey)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(context.Background(), signToken(t, tt.claims))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRejectsBadTokens(t *testing.T) {
	resolver := NewResolver(testKey)

	_, err := resolver.Resolve(context.Background(), "not-a-token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermission))

	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-81",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("other-key"))
	require.NoError(t, err)
	_, err = resolver.Resolve(context.Background(), wrongKey)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermission))

	expired := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-81",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	_, err = resolver.Resolve(context.Background(), expired)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermission))
}

func TestResolveRejectsEmptyIdentity(t *testing.T) {
	resolver := NewResolver(testKey)
	_, err := resolver.Resolve(context.Background(), signToken(t, Claims{}))
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermission))
}
