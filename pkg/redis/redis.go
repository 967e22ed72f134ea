package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fitcoach/backend/config"
)

// Client Redis 客户端封装
// 当前用于缓存身份提供方 Token 校验结果，减少重复校验
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 身份校验缓存 ──

const identityPrefix = "auth:identity:"

// CachedIdentity 缓存的已校验身份
type CachedIdentity struct {
	UserID string
	Email  string
}

// CacheIdentity 缓存 Token 摘要 → 身份，TTL 不超过 Token 剩余有效期
func (c *Client) CacheIdentity(ctx context.Context, tokenDigest string, identity CachedIdentity, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 即将过期，无需缓存
	}
	key := identityPrefix + tokenDigest
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, "user_id", identity.UserID, "email", identity.Email)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// GetIdentity 读取缓存；未命中返回 ok=false
func (c *Client) GetIdentity(ctx context.Context, tokenDigest string) (CachedIdentity, bool, error) {
	fields, err := c.rdb.HGetAll(ctx, identityPrefix+tokenDigest).Result()
	if err != nil {
		return CachedIdentity{}, false, err
	}
	if fields["user_id"] == "" {
		return CachedIdentity{}, false, nil
	}
	return CachedIdentity{UserID: fields["user_id"], Email: fields["email"]}, true, nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
