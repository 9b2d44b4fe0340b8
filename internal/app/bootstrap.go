package app

import (
	"errors"
	"net"

	"github.com/uplink-rewards/internal/ingest"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/provider"
	"github.com/uplink-rewards/internal/router"
	"github.com/uplink-rewards/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(opts Options) (*Runner, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)
	consumer := worker.NewConsumer(container)
	// 队列可用时事件先入队，否则在当前进程同步处理
	container.Dispatcher = ingest.NewDispatcher(container.QueueClient, consumer)

	var services []Service

	// 初始化 HTTP 服务
	if opts.runsHTTP() {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	if opts.runsWorker() {
		// 初始化 Worker 服务
		if cfg.Queue.Enabled && container.QueueClient.Enabled() {
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				container.Close()
				return nil, err
			}
			services = append(services, workerService)
		} else {
			logger.Warnw("app_worker_skipped", "reason", "queue_disabled")
		}

		// 初始化事件总线消费者
		if cfg.Kafka.Enabled {
			kafkaConsumer, err := ingest.NewKafkaConsumer(&cfg.Kafka, container.Dispatcher)
			if err != nil {
				container.Close()
				return nil, err
			}
			services = append(services, kafkaConsumer)
		}
	}

	if len(services) == 0 {
		container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts, err := normalizeOptions(opts)
	if err != nil {
		return err
	}
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", net.JoinHostPort(opts.Config.Server.Host, opts.Config.Server.Port), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
