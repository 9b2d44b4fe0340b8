package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/uplink-rewards/internal/authz"
	"github.com/uplink-rewards/internal/cache"
	"github.com/uplink-rewards/internal/config"
	"github.com/uplink-rewards/internal/ingest"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/metrics"
	"github.com/uplink-rewards/internal/models"
	"github.com/uplink-rewards/internal/queue"
	"github.com/uplink-rewards/internal/repository"
	"github.com/uplink-rewards/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Metrics     *metrics.RewardMetrics
	Publisher   service.MessagePublisher
	Converter   service.CurrencyConverter
	// Dispatcher 由启动流程在消费者就绪后注入
	Dispatcher ingest.Dispatcher

	// Repositories
	UserRepo       repository.UserRepository
	ReferralRepo   repository.ReferralRepository
	CommissionRepo repository.CommissionRepository
	TurnoverRepo   repository.TurnoverRepository
	BonusRepo      repository.BonusRepository
	SettingRepo    repository.SettingRepository

	// Services
	AuthzService      *authz.Service
	SettingService    *service.SettingService
	ReferralService   *service.ReferralService
	CommissionService *service.CommissionService
	TurnoverService   *service.TurnoverService
	BonusService      *service.BonusService
	StatsService      *service.StatsService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
	}

	var registerer prometheus.Registerer
	if cfg.Metrics.Enabled {
		registerer = prometheus.DefaultRegisterer
	}

	var publisher service.MessagePublisher = service.NoopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = ingest.NewKafkaPublisher(&cfg.Kafka)
	}

	c, err := Build(cfg, models.DB, Options{
		QueueClient: queueClient,
		Registerer:  registerer,
		Publisher:   publisher,
	})
	if err != nil {
		logger.Errorw("provider_init_failed", "error", err)
		panic(err)
	}
	return c
}

// Options 容器可替换依赖
type Options struct {
	QueueClient *queue.Client
	Registerer  prometheus.Registerer // nil 时不注册指标
	Publisher   service.MessagePublisher
}

// Build 基于给定数据库构建容器
func Build(cfg *config.Config, db *gorm.DB, opts Options) (*Container, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("config and db are required")
	}
	converter, err := service.NewStaticRateConverter(cfg.Reward.BaseCurrency, cfg.Reward.CurrencyRates)
	if err != nil {
		return nil, fmt.Errorf("init currency converter failed: %w", err)
	}
	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: opts.QueueClient,
		Publisher:   opts.Publisher,
		Converter:   converter,
	}
	if c.Publisher == nil {
		c.Publisher = service.NoopPublisher{}
	}
	if opts.Registerer != nil {
		c.Metrics = metrics.NewRewardMetrics(opts.Registerer)
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	if err := c.initServices(db); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.UserRepo = repository.NewUserRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.TurnoverRepo = repository.NewTurnoverRepository(db)
	c.BonusRepo = repository.NewBonusRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

func (c *Container) initServices(db *gorm.DB) error {
	authzService, err := authz.NewService(db)
	if err != nil {
		return fmt.Errorf("init authz failed: %w", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return fmt.Errorf("bootstrap builtin roles failed: %w", err)
	}
	if err := authzService.ApplyServiceRoles(c.Config.InternalAuth.ServiceRoles); err != nil {
		return err
	}
	c.AuthzService = authzService

	c.SettingService = service.NewSettingService(c.SettingRepo)
	if _, err := c.SettingService.GetRewardSetting(); err != nil {
		logger.Warnw("provider_load_reward_setting_failed", "error", err)
	}

	c.ReferralService = service.NewReferralService(c.ReferralRepo, c.UserRepo)
	c.CommissionService = service.NewCommissionService(
		c.CommissionRepo, c.UserRepo, c.ReferralService, c.SettingService, c.Converter, c.Publisher, c.Metrics,
	)
	c.TurnoverService = service.NewTurnoverService(c.TurnoverRepo, c.UserRepo, c.ReferralService, c.Converter, c.Metrics)
	c.BonusService = service.NewBonusService(c.BonusRepo, c.TurnoverRepo, c.SettingService, c.Converter, c.Publisher, c.Metrics)
	c.StatsService = service.NewStatsService(
		c.CommissionRepo,
		c.TurnoverRepo,
		c.BonusRepo,
		c.BonusService,
		c.SettingService,
		time.Duration(c.Config.Reward.StatsCacheTTLSeconds)*time.Second,
	)
	return nil
}

// HealthCheck 检查数据库与缓存连通性，返回各组件状态与整体是否可用
func (c *Container) HealthCheck(ctx context.Context) (map[string]string, bool) {
	status := map[string]string{"database": "ok", "redis": "disabled"}
	healthy := true
	sqlDB, err := c.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		status["database"] = "unavailable"
		healthy = false
	}
	if cache.Enabled() {
		status["redis"] = "ok"
		if err := cache.Ping(ctx); err != nil {
			status["redis"] = "unavailable"
			healthy = false
		}
	}
	return status, healthy
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if closer, ok := c.Publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warnw("provider_close_publisher_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
