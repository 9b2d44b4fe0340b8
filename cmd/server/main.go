package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/uplink-rewards/internal/app"
	"github.com/uplink-rewards/internal/config"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/models"

	"github.com/gin-gonic/gin"
)

func main() {
	var (
		configPath  string
		mode        string
		migrateOnly bool
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认在 . ../ ./etc 下查找")
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all, api, worker")
	flag.BoolVar(&migrateOnly, "migrate-only", false, "仅执行数据库迁移后退出")
	flag.Parse()

	mode, err := app.ParseMode(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	printStartupBanner(mode)

	cfg := config.Load(configPath)
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	release := cfg.Server.Mode == "release"
	for _, name := range cfg.WeakSecrets() {
		if release {
			stdLog.Fatalf("%s 过弱或仍为默认值，生产环境必须配置强随机密钥", name)
		}
		logger.Warnw("config_weak_secret", "key", name)
	}

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Server.Mode == "debug"); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}
	if migrateOnly {
		logger.Infow("migrate_done", "driver", cfg.Database.Driver)
		return
	}

	if release {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner(mode string) {
	const (
		reset = "\033[0m"
		bold  = "\033[1m"
		cyan  = "\033[36m"
		dim   = "\033[2m"
	)
	fmt.Println(bold + cyan + "Uplink Rewards Engine" + reset + dim + "  多级推荐佣金 · 团队业绩等级奖励" + reset)
	fmt.Println(dim + "mode=" + mode + "  (all: HTTP + 队列 Worker + 事件总线 / api: 仅 HTTP / worker: 仅消费)" + reset)
}
