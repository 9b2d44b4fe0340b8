package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uplink-rewards/internal/config"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/queue"
	"github.com/uplink-rewards/internal/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

const (
	retryBackoffMin = time.Second
	retryBackoffMax = 30 * time.Second
)

// errUndecodable 消息体无法解析，重试无意义
var errUndecodable = errors.New("message undecodable")

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer 订阅上游事件主题并分发
type KafkaConsumer struct {
	reader     messageReader
	dispatcher Dispatcher
	topics     config.KafkaTopicConfig
	retryMin   time.Duration
	retryMax   time.Duration
}

// NewKafkaConsumer 创建消费者，三个入站主题共用一个消费组
func NewKafkaConsumer(cfg *config.KafkaConfig, dispatcher Dispatcher) (*KafkaConsumer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("kafka disabled")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is nil")
	}
	topics := make([]string, 0, 3)
	for _, topic := range []string{cfg.Topics.PnLEvents, cfg.Topics.InvestmentEvents, cfg.Topics.ReferralSignups} {
		if strings.TrimSpace(topic) != "" {
			topics = append(topics, strings.TrimSpace(topic))
		}
	}
	if len(topics) == 0 {
		return nil, errors.New("no inbound topics configured")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newKafkaConsumer(reader, dispatcher, cfg.Topics), nil
}

func newKafkaConsumer(reader messageReader, dispatcher Dispatcher, topics config.KafkaTopicConfig) *KafkaConsumer {
	return &KafkaConsumer{
		reader:     reader,
		dispatcher: dispatcher,
		topics:     topics,
		retryMin:   retryBackoffMin,
		retryMax:   retryBackoffMax,
	}
}

// Name 服务名称
func (c *KafkaConsumer) Name() string {
	return "ingest"
}

// Start 拉取消息，处理成功或确认无法处理后才提交位点
func (c *KafkaConsumer) Start(ctx context.Context) error {
	log := logger.Named("ingest")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch kafka message failed: %w", err)
		}
		if err := c.handleWithRetry(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warnw("ingest_commit_failed", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
	}
}

// Stop 停止服务
func (c *KafkaConsumer) Stop(_ context.Context) error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

func (c *KafkaConsumer) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	log := logger.Named("ingest")
	operation := func() error {
		err := c.handleMessage(ctx, msg)
		if err != nil && (errors.Is(err, errUndecodable) || service.IsPermanentEventError(err)) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warnw("ingest_message_retry", "topic", msg.Topic, "offset", msg.Offset, "backoff", wait.String(), "error", err)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), ctx), notify)
	if err == nil || ctx.Err() != nil {
		return err
	}
	// 只有永久性错误会走到这里，丢弃并提交位点
	log.Warnw("ingest_message_dropped",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"error", err,
	)
	return nil
}

// newBackOff 瞬时错误无限重试，间隔指数增长
func (c *KafkaConsumer) newBackOff() backoff.BackOff {
	expBackOff := backoff.NewExponentialBackOff()
	expBackOff.InitialInterval = c.retryMin
	expBackOff.MaxInterval = c.retryMax
	expBackOff.MaxElapsedTime = 0
	return expBackOff
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	switch msg.Topic {
	case c.topics.PnLEvents:
		var payload queue.PnLEventPayload
		if err := decode(msg.Value, &payload); err != nil {
			return err
		}
		return c.dispatcher.DispatchPnLEvent(ctx, payload)
	case c.topics.InvestmentEvents:
		var payload queue.InvestmentEventPayload
		if err := decode(msg.Value, &payload); err != nil {
			return err
		}
		return c.dispatcher.DispatchInvestmentEvent(ctx, payload)
	case c.topics.ReferralSignups:
		var payload queue.ReferralSignupPayload
		if err := decode(msg.Value, &payload); err != nil {
			return err
		}
		return c.dispatcher.DispatchReferralSignup(ctx, payload)
	default:
		return fmt.Errorf("%w: unknown topic %s", errUndecodable, msg.Topic)
	}
}

func decode(body []byte, dest interface{}) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: %v", errUndecodable, err)
	}
	return nil
}
