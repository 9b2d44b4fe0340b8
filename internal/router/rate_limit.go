package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	handlershared "github.com/uplink-rewards/internal/http/handlers/shared"
	"github.com/uplink-rewards/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
}

func (r RateLimitRule) active() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

// RateLimitMiddleware 基于 Redis 计数的限流；Redis 不可用时放行，
// 领取接口本身有唯一约束兜底
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	window := time.Duration(rule.WindowSeconds) * time.Second
	return func(c *gin.Context) {
		if client == nil || !rule.active() {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = rule.Prefix + ":" + key
		}

		count, ttl, err := hitWindow(c.Request.Context(), client, key, window)
		if err != nil {
			handlershared.RequestLog(c).Warnw("rate_limit_unavailable", "key", key, "error", err)
			c.Next()
			return
		}
		if count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}

		wait := int(ttl / time.Second)
		if wait < 1 {
			wait = rule.WindowSeconds
		}
		msgKey := strings.TrimSpace(rule.MessageKey)
		if msgKey == "" {
			msgKey = "error.rate_limited"
		}
		c.Header("Retry-After", strconv.Itoa(wait))
		response.Error(c, response.CodeTooManyRequests, handlershared.Messagef(msgKey, wait))
		c.Abort()
	}
}

// hitWindow 计数加一，首次命中时设置窗口过期，返回当前计数与剩余时间
func hitWindow(ctx context.Context, client *redis.Client, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

// KeyByUserID 使用登录用户作为限流 key，未登录时回退到 IP
func KeyByUserID(c *gin.Context) string {
	if value, ok := c.Get(userIDContextKey); ok {
		if uid, ok := value.(uint); ok && uid > 0 {
			return fmt.Sprintf("u%d", uid)
		}
	}
	return c.ClientIP()
}
