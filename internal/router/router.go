package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/uplink-rewards/internal/authz"
	"github.com/uplink-rewards/internal/cache"
	"github.com/uplink-rewards/internal/config"
	adminhandlers "github.com/uplink-rewards/internal/http/handlers/admin"
	publichandlers "github.com/uplink-rewards/internal/http/handlers/public"
	"github.com/uplink-rewards/internal/http/response"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const internalRoutePrefix = "/api/v1/internal/"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按用户侧/内部服务分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rw"
	}
	claimRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:bonus_claim", redisPrefix),
		WindowSeconds: cfg.Security.ClaimRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClaimRateLimit.MaxRequests,
		MessageKey:    "error.claim_too_many",
	}

	metricsPath := strings.TrimSpace(cfg.Metrics.Path)
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log, c.Metrics, "/health", metricsPath))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 用户侧奖励接口
		rewards := apiV1.Group("/rewards")
		rewards.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey))
		{
			rewards.GET("/commissions", publicHandler.GetCommissions)
			rewards.GET("/commissions/stats", publicHandler.GetCommissionStats)
			rewards.GET("/turnover", publicHandler.GetTurnoverStats)
			rewards.GET("/levels", publicHandler.GetLevels)
			rewards.POST("/levels/:level_id/claim", RateLimitMiddleware(cache.Client(), claimRule, KeyByUserID), publicHandler.ClaimLevelBonus)
			rewards.GET("/team", publicHandler.GetTeam)
			rewards.GET("/referrals", publicHandler.GetDirectReferrals)
		}

		// 内部服务接口
		internal := apiV1.Group("/internal")
		internal.Use(ServiceJWTAuthMiddleware(cfg.InternalAuth.SecretKey))
		internal.Use(ServiceRBACMiddleware(c.AuthzService))
		{
			internal.POST("/events/pnl", adminHandler.IngestPnLEvent)
			internal.POST("/events/investment", adminHandler.IngestInvestmentEvent)
			internal.POST("/events/signup", adminHandler.IngestReferralSignup)

			internal.POST("/commissions/:id/paid", adminHandler.MarkCommissionPaid)
			internal.POST("/bonus-claims/:id/settled", adminHandler.MarkBonusSettled)

			internal.GET("/settings/reward", adminHandler.GetRewardSettings)
			internal.PUT("/settings/reward", adminHandler.UpdateRewardSettings)

			internal.GET("/authz/roles", adminHandler.ListAuthzRoles)
			internal.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			internal.GET("/authz/services/:service/roles", adminHandler.GetAuthzServiceRoles)
			internal.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildInternalPermissionCatalog(r))
			})
		}
	}

	if cfg.Metrics.Enabled {
		r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		components, healthy := c.HealthCheck(ctx.Request.Context())
		status := "ok"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, gin.H{"status": status, "components": components})
	})

	return r
}

type internalPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildInternalPermissionCatalog(engine *gin.Engine) []internalPermissionCatalogItem {
	if engine == nil {
		return []internalPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]internalPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, internalRoutePrefix) {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, internalPermissionCatalogItem{
			Module:     deriveInternalPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveInternalPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "internal" {
		return segments[0]
	}
	return segments[1]
}
