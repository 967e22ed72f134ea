package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fitcoach/backend/config"
	"fitcoach/backend/pkg/jwt"
	"fitcoach/backend/pkg/redis"
)

const testSecret = "identity-test-secret-0123456789"

type memCache struct {
	entries map[string]redis.CachedIdentity
	ttls    map[string]time.Duration
	getErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]redis.CachedIdentity{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) CacheIdentity(_ context.Context, digest string, identity redis.CachedIdentity, ttl time.Duration) error {
	m.entries[digest] = identity
	m.ttls[digest] = ttl
	return nil
}

func (m *memCache) GetIdentity(_ context.Context, digest string) (redis.CachedIdentity, bool, error) {
	if m.getErr != nil {
		return redis.CachedIdentity{}, false, m.getErr
	}
	v, ok := m.entries[digest]
	return v, ok, nil
}

func sign(t *testing.T, sub, email string, exp time.Time) string {
	t.Helper()
	claims := jwt.Claims{
		Email: email,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Subject:   sub,
			Audience:  jwtv5.ClaimStrings{"authenticated"},
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newParser() *jwt.Verifier {
	return jwt.NewVerifier(&config.AuthConfig{JWTSecret: testSecret, Audience: "authenticated"})
}

func TestVerifier_CachesVerifiedIdentity(t *testing.T) {
	cache := newMemCache()
	v := NewVerifier(newParser(), cache, 5*time.Minute, zap.NewNop())

	token := sign(t, "user-1", "u1@example.com", time.Now().Add(time.Hour))
	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "u1@example.com", id.Email)

	digest := tokenDigest(token)
	require.Contains(t, cache.entries, digest)
	assert.Equal(t, 5*time.Minute, cache.ttls[digest])
}

func TestVerifier_TTLCappedByExpiry(t *testing.T) {
	cache := newMemCache()
	v := NewVerifier(newParser(), cache, time.Hour, zap.NewNop())

	token := sign(t, "user-1", "u1@example.com", time.Now().Add(2*time.Minute))
	_, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.LessOrEqual(t, cache.ttls[tokenDigest(token)], 2*time.Minute)
}

func TestVerifier_CacheHitSkipsParsing(t *testing.T) {
	cache := newMemCache()
	cache.entries[tokenDigest("opaque")] = redis.CachedIdentity{UserID: "user-9", Email: "u9@example.com"}
	v := NewVerifier(newParser(), cache, time.Minute, zap.NewNop())

	id, err := v.Verify(context.Background(), "opaque")
	require.NoError(t, err)
	assert.Equal(t, "user-9", id.UserID)
}

func TestVerifier_CacheErrorFallsBack(t *testing.T) {
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	v := NewVerifier(newParser(), cache, time.Minute, zap.NewNop())

	token := sign(t, "user-2", "u2@example.com", time.Now().Add(time.Hour))
	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-2", id.UserID)
}

func TestVerifier_NoCache(t *testing.T) {
	v := NewVerifier(newParser(), nil, time.Minute, zap.NewNop())
	_, err := v.Verify(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}
