package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/uplink-rewards/internal/authz"
	"github.com/uplink-rewards/internal/config"
	handlershared "github.com/uplink-rewards/internal/http/handlers/shared"
	"github.com/uplink-rewards/internal/http/response"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/metrics"
	"github.com/uplink-rewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"
const userIDContextKey = handlershared.UserIDContextKey
const serviceNameContextKey = "service_name"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			requestIDHeader,
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", requestIDHeader+", Retry-After")
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 请求日志与接口耗时指标；skipPaths 中的探活请求只记指标不打日志
func LoggerMiddleware(log *zap.Logger, m *metrics.RewardMetrics, skipPaths ...string) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		m.ObserveHTTPRequest(c.Request.Method, c.FullPath(), status, latency.Seconds())
		if _, ok := skip[c.Request.URL.Path]; ok {
			return
		}

		fields := []interface{}{
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if uid, ok := c.Get(userIDContextKey); ok {
			fields = append(fields, "user_id", uid)
		}
		if caller := c.GetString(serviceNameContextKey); caller != "" {
			fields = append(fields, "caller", caller)
		}
		switch {
		case len(c.Errors) > 0:
			sugar.Errorw("request", append(fields, "errors", c.Errors.String())...)
		case status >= 500:
			sugar.Warnw("request", fields...)
		default:
			sugar.Infow("request", fields...)
		}
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// bearerToken 读取 Bearer 令牌，失败时已写出 401
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		response.Unauthorized(c, handlershared.Message("error.auth_header_missing"))
		c.Abort()
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") || strings.TrimSpace(parts[1]) == "" {
		response.Unauthorized(c, handlershared.Message("error.auth_header_invalid"))
		c.Abort()
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// UserJWTAuthMiddleware 用户 JWT 鉴权中间件，令牌由账号服务签发
func UserJWTAuthMiddleware(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" {
			response.Unauthorized(c, handlershared.Message("error.jwt_secret_missing"))
			c.Abort()
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}
		claims, err := service.ParseUserToken(secretKey, tokenString)
		if err != nil {
			response.Unauthorized(c, handlershared.Message("error.token_invalid"))
			c.Abort()
			return
		}
		c.Set(userIDContextKey, claims.UserID)
		c.Next()
	}
}

// ServiceJWTAuthMiddleware 内部服务令牌鉴权中间件
func ServiceJWTAuthMiddleware(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" {
			response.Unauthorized(c, handlershared.Message("error.jwt_secret_missing"))
			c.Abort()
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}
		claims, err := service.ParseServiceToken(secretKey, tokenString)
		if err != nil {
			response.Unauthorized(c, handlershared.Message("error.token_invalid"))
			c.Abort()
			return
		}
		c.Set(serviceNameContextKey, claims.Service)
		c.Next()
	}
}

// ServiceRBACMiddleware 内部接口 RBAC 鉴权中间件
func ServiceRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("service_rbac_unavailable")
			response.Unauthorized(c, handlershared.Message("error.unauthorized"))
			c.Abort()
			return
		}
		serviceName := c.GetString(serviceNameContextKey)
		if serviceName == "" {
			response.Unauthorized(c, handlershared.Message("error.unauthorized"))
			c.Abort()
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceService(serviceName, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("service_rbac_enforce_failed",
				"service", serviceName,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Unauthorized(c, handlershared.Message("error.unauthorized"))
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("service_rbac_permission_denied",
				"service", serviceName,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, handlershared.Message("error.forbidden"))
			c.Abort()
			return
		}

		c.Next()
	}
}
