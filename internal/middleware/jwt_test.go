package middleware

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/commitlens/internal/domain"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:    "test-secret",
		Issuer:    "commitlens",
		ExpiresIn: time.Hour,
	}
}

func testUser() *domain.UserContext {
	return &domain.UserContext{
		UserID: "user-1",
		Email:  "dev@example.com",
		Name:   "Dev",
		Role:   "admin",
	}
}

func TestJWTRoundTrip(t *testing.T) {
	cfg := testJWTConfig()

	token, err := GenerateJWT(testUser(), cfg)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	claims, err := validateJWT(token, cfg.Secret, cfg.Issuer)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "dev@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "commitlens", claims.Issuer)
}

func TestJWTExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ExpiresIn = -time.Minute

	token, err := GenerateJWT(testUser(), cfg)
	require.NoError(t, err)

	_, err = validateJWT(token, cfg.Secret, cfg.Issuer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestJWTTamperedSignature(t *testing.T) {
	cfg := testJWTConfig()

	token, err := GenerateJWT(testUser(), cfg)
	require.NoError(t, err)

	_, err = validateJWT(token, "different-secret", cfg.Issuer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestJWTWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()

	token, err := GenerateJWT(testUser(), cfg)
	require.NoError(t, err)

	_, err = validateJWT(token, cfg.Secret, "someone-else")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issuer")
}

func TestJWTMalformedToken(t *testing.T) {
	cfg := testJWTConfig()

	for _, token := range []string{"", "a.b", "not-a-token", "a.b.c.d"} {
		_, err := validateJWT(token, cfg.Secret, cfg.Issuer)
		assert.Error(t, err, "token %q", token)
	}
}
