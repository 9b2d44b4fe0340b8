package queue

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/uplink-rewards/internal/config"
	"github.com/uplink-rewards/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 资金相关任务队列
	CriticalQueue = constants.QueueCritical
)

// ErrQueueDisabled 队列未启用
var ErrQueueDisabled = errors.New("queue disabled")

// Client 奖励事件入队客户端，disabled 时所有入队返回 ErrQueueDisabled
type Client struct {
	client    *asynq.Client
	maxRetry  int
	retention time.Duration
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{
		client:    asynq.NewClient(buildRedisOpt(cfg)),
		maxRetry:  cfg.MaxRetry,
		retention: time.Duration(cfg.RetentionMinutes) * time.Minute,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueuePnLEvent 盈亏事件进入资金队列
func (c *Client) EnqueuePnLEvent(ctx context.Context, payload PnLEventPayload) error {
	return c.enqueue(ctx, TaskRewardPnLEvent, payload.EventID, CriticalQueue, payload)
}

// EnqueueInvestmentEvent 投资事件进入资金队列
func (c *Client) EnqueueInvestmentEvent(ctx context.Context, payload InvestmentEventPayload) error {
	return c.enqueue(ctx, TaskRewardInvestmentEvent, payload.EventID, CriticalQueue, payload)
}

// EnqueueReferralSignup 注册绑定进入默认队列
func (c *Client) EnqueueReferralSignup(ctx context.Context, payload ReferralSignupPayload) error {
	return c.enqueue(ctx, TaskRewardReferralSignup, payload.EventID, DefaultQueue, payload)
}

// enqueue 以事件ID作为任务ID；保留期内的重复投递视为成功
func (c *Client) enqueue(ctx context.Context, taskType, eventID, queueName string, payload interface{}) error {
	if !c.Enabled() {
		return ErrQueueDisabled
	}
	task, err := newTask(taskType, payload)
	if err != nil {
		return err
	}
	options := []asynq.Option{
		asynq.Queue(queueName),
		asynq.TaskID(TaskID(taskType, eventID)),
	}
	if c.maxRetry > 0 {
		options = append(options, asynq.MaxRetry(c.maxRetry))
	}
	if c.retention > 0 {
		options = append(options, asynq.Retention(c.retention))
	}
	_, err = c.client.EnqueueContext(ctx, task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// BuildServerConfig 生成消费端配置，资金队列权重高于默认队列
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{CriticalQueue: 6, DefaultQueue: 3},
	}
	if cfg != nil && cfg.Concurrency > 0 {
		serverCfg.Concurrency = cfg.Concurrency
	}
	if cfg != nil && len(cfg.Queues) > 0 {
		serverCfg.Queues = cfg.Queues
	}
	return buildRedisOpt(cfg), serverCfg
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
