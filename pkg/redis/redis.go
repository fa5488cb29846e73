package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/config"
)

// Client Redis 客户端封装
// 用于 Token 黑名单、限流、审批互斥锁与用户目录缓存
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

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 固定窗口限流 ──

// RateLimitResult 一次计数后的窗口状态
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// 首次计数时设置过期时间，保证窗口边界固定
var incrWindowScript = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// CheckRateLimit 对 key 计数一次，超过 limit 即拒绝
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	vals, err := incrWindowScript.Run(ctx, c.rdb, []string{"ratelimit:" + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, err
	}
	count, pttl := vals[0], vals[1]

	res := &RateLimitResult{
		Allowed: count <= int64(limit),
		ResetIn: time.Duration(pttl) * time.Millisecond,
	}
	if rem := int64(limit) - count; rem > 0 {
		res.Remaining = int(rem)
	}
	if res.ResetIn < 0 {
		res.ResetIn = window
	}
	return res, nil
}

// ── 互斥锁 ──

// ErrLockNotAcquired 锁已被其他请求持有
var ErrLockNotAcquired = errors.New("资源正被其他操作处理")

const lockPrefix = "lock:"

// 仅当 value 与持有者令牌一致时删除，避免误删他人续期后的锁
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 已获取的互斥锁
type Lock struct {
	client *Client
	key    string
	token  string
}

// AcquireLock 以 SET NX PX 获取互斥锁，未获取时返回 ErrLockNotAcquired
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	token := uuid.New().String()
	key := lockPrefix + name

	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &Lock{client: c, key: key, token: token}, nil
}

// Release 释放互斥锁；锁已过期时静默返回
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := unlockScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		l.client.logger.Warn("释放互斥锁失败", zap.String("key", l.key), zap.Error(err))
		return err
	}
	return nil
}

// ── JSON 缓存 ──

const cachePrefix = "cache:"

// GetJSON 读取缓存并反序列化到 dest，未命中返回 false
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, cachePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 序列化 value 并写入缓存
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cachePrefix+key, raw, ttl).Err()
}

// Delete 删除缓存键
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = cachePrefix + k
	}
	return c.rdb.Del(ctx, full...).Err()
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
