// Package identity 对接外部身份提供方：校验 Access Token，管理提供方账号。
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"fitcoach/backend/pkg/jwt"
	"fitcoach/backend/pkg/redis"
)

// ErrInvalidCredential Token 无效或已过期
var ErrInvalidCredential = errors.New("无效或已过期的访问凭证")

// Identity 身份提供方确认的身份
type Identity struct {
	UserID string
	Email  string
}

// Cache 校验结果缓存（由 Redis 实现）
type Cache interface {
	CacheIdentity(ctx context.Context, tokenDigest string, identity redis.CachedIdentity, ttl time.Duration) error
	GetIdentity(ctx context.Context, tokenDigest string) (redis.CachedIdentity, bool, error)
}

// Verifier 带缓存的 Token 校验器；cache 为 nil 时每次都本地验签
type Verifier struct {
	parser *jwt.Verifier
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewVerifier 创建 Verifier
func NewVerifier(parser *jwt.Verifier, cache Cache, ttl time.Duration, logger *zap.Logger) *Verifier {
	return &Verifier{parser: parser, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Verify 校验 Token，返回 (user_id, email)
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	digest := tokenDigest(token)

	if v.cache != nil {
		cached, ok, err := v.cache.GetIdentity(ctx, digest)
		if err != nil {
			// 缓存不可用时降级为直接验签
			v.logger.Warn("读取身份缓存失败", zap.Error(err))
		} else if ok {
			return &Identity{UserID: cached.UserID, Email: cached.Email}, nil
		}
	}

	claims, err := v.parser.ParseToken(token)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	identity := &Identity{UserID: claims.Subject, Email: claims.Email}

	if v.cache != nil {
		ttl := v.ttl
		if remaining := claims.ExpiresAt.Time.Sub(v.now()); remaining < ttl {
			ttl = remaining
		}
		if err := v.cache.CacheIdentity(ctx, digest, redis.CachedIdentity{UserID: identity.UserID, Email: identity.Email}, ttl); err != nil {
			v.logger.Warn("写入身份缓存失败", zap.Error(err))
		}
	}

	return identity, nil
}

// tokenDigest 缓存键只保存 Token 摘要，不落原文
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
