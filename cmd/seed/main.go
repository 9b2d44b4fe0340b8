package main

import (
	"flag"
	"fmt"
	"sort"
	"time"

	"github.com/uplink-rewards/internal/config"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/models"
	"github.com/uplink-rewards/internal/provider"
	"github.com/uplink-rewards/internal/service"
)

// 本地联调用：写入一条演示推荐链，并为已配置的内部服务签发令牌
func main() {
	var depth int
	var tokenTTL time.Duration
	flag.IntVar(&depth, "depth", 12, "演示推荐链长度（用户ID从 1 开始）")
	flag.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "签发令牌有效期")
	flag.Parse()

	cfg := config.Load("")
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	container, err := provider.Build(cfg, models.DB, provider.Options{})
	if err != nil {
		stdLog.Fatalf("Failed to build container: %v", err)
	}

	// 推荐链：1 <- 2 <- ... <- depth
	if depth > 0 {
		if err := container.ReferralService.RegisterUser(1); err != nil {
			stdLog.Fatalf("Failed to register root user: %v", err)
		}
	}
	for child := 2; child <= depth; child++ {
		err := container.ReferralService.HandleSignupEvent(service.ReferralSignupEvent{
			ID:           fmt.Sprintf("seed-signup-%d", child),
			UserID:       uint(child),
			ParentUserID: uint(child - 1),
			OccurredAt:   time.Now(),
		})
		if err != nil {
			stdLog.Fatalf("Failed to bind user %d: %v", child, err)
		}
	}
	fmt.Printf("seeded referral chain of %d users\n", depth)

	names := make([]string, 0, len(cfg.InternalAuth.ServiceRoles))
	for name := range cfg.InternalAuth.ServiceRoles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		token, err := service.GenerateServiceToken(cfg.InternalAuth.SecretKey, name, tokenTTL)
		if err != nil {
			stdLog.Fatalf("Failed to issue token for %s: %v", name, err)
		}
		fmt.Printf("%s %v\n  %s\n", name, cfg.InternalAuth.ServiceRoles[name], token)
	}
	if depth > 0 {
		token, err := service.GenerateUserToken(cfg.UserJWT.SecretKey, 1, tokenTTL)
		if err != nil {
			stdLog.Fatalf("Failed to issue user token: %v", err)
		}
		fmt.Printf("user 1\n  %s\n", token)
	}
}
