package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/uplink-rewards/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "rw"

// 进程内共享的 Redis 客户端；未启用时所有读写都是空操作
var (
	mu     sync.RWMutex
	client *redis.Client
	prefix = defaultPrefix
)

// InitRedis 按配置创建客户端，不在此处探活，连通性由健康检查反映
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		UseClient(nil, "")
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	UseClient(redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}), cfg.Prefix)
	return nil
}

// UseClient 替换当前客户端，nil 表示关闭缓存
func UseClient(c *redis.Client, keyPrefix string) {
	mu.Lock()
	defer mu.Unlock()
	client = c
	prefix = strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
}

func current() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	return client
}

// Enabled 判断缓存是否启用
func Enabled() bool {
	return current() != nil
}

// Client 获取 Redis 客户端，未启用时为 nil
func Client() *redis.Client {
	return current()
}

// Ping 检查 Redis 连通性，未启用时直接返回
func Ping(ctx context.Context) error {
	c := current()
	if c == nil {
		return nil
	}
	return c.Ping(ctx).Err()
}

// Close 关闭客户端并停用缓存
func Close() error {
	mu.Lock()
	c := client
	client = nil
	mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

// GetJSON 读取 JSON 缓存，未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	c := current()
	if c == nil {
		return false, nil
	}
	raw, err := c.Get(ctx, BuildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c := current()
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, BuildKey(key), payload, ttl).Err()
}

// Del 删除一组缓存键
func Del(ctx context.Context, keys ...string) error {
	c := current()
	if c == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, BuildKey(key))
	}
	return c.Del(ctx, full...).Err()
}

// BuildKey 拼接带前缀的缓存键
func BuildKey(key string) string {
	mu.RLock()
	p := prefix
	mu.RUnlock()
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return p
	}
	return p + ":" + trimmed
}
