package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/uplink-rewards/internal/config"
	"github.com/uplink-rewards/internal/constants"

	"github.com/segmentio/kafka-go"
)

const publishTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 将奖励结果写入下游主题
type KafkaPublisher struct {
	writer messageWriter
	topics map[string]string
}

// NewKafkaPublisher 创建发布者，主题由消息类型决定
func NewKafkaPublisher(cfg *config.KafkaConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
	}
	return newKafkaPublisher(writer, cfg.Topics)
}

func newKafkaPublisher(writer messageWriter, topics config.KafkaTopicConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		topics: map[string]string{
			constants.MessageCommissionCreated: strings.TrimSpace(topics.CommissionCreated),
			constants.MessageBonusClaimed:      strings.TrimSpace(topics.BonusClaimed),
		},
	}
}

// Publish 按用户ID分区写入，保证同一用户的消息有序
func (p *KafkaPublisher) Publish(ctx context.Context, kind, key string, payload interface{}) error {
	topic := p.topics[kind]
	if topic == "" {
		return fmt.Errorf("no topic configured for %s", kind)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: body,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(kind)},
		},
	})
}

// Close 关闭写入器
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
