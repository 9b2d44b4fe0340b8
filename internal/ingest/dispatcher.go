package ingest

import (
	"context"

	"github.com/uplink-rewards/internal/queue"
)

// Dispatcher 奖励事件分发入口，Kafka 与内部 HTTP 接口共用
type Dispatcher interface {
	DispatchPnLEvent(ctx context.Context, payload queue.PnLEventPayload) error
	DispatchInvestmentEvent(ctx context.Context, payload queue.InvestmentEventPayload) error
	DispatchReferralSignup(ctx context.Context, payload queue.ReferralSignupPayload) error
}

// Processor 同步处理奖励事件
type Processor interface {
	ProcessPnLEvent(ctx context.Context, payload queue.PnLEventPayload) error
	ProcessInvestmentEvent(ctx context.Context, payload queue.InvestmentEventPayload) error
	ProcessReferralSignup(ctx context.Context, payload queue.ReferralSignupPayload) error
}

// NewDispatcher 队列可用时入队，否则同步处理
func NewDispatcher(client *queue.Client, processor Processor) Dispatcher {
	if client.Enabled() {
		return &queueDispatcher{client: client}
	}
	return &inlineDispatcher{processor: processor}
}

type queueDispatcher struct {
	client *queue.Client
}

func (d *queueDispatcher) DispatchPnLEvent(ctx context.Context, payload queue.PnLEventPayload) error {
	return d.client.EnqueuePnLEvent(ctx, payload)
}

func (d *queueDispatcher) DispatchInvestmentEvent(ctx context.Context, payload queue.InvestmentEventPayload) error {
	return d.client.EnqueueInvestmentEvent(ctx, payload)
}

func (d *queueDispatcher) DispatchReferralSignup(ctx context.Context, payload queue.ReferralSignupPayload) error {
	return d.client.EnqueueReferralSignup(ctx, payload)
}

type inlineDispatcher struct {
	processor Processor
}

func (d *inlineDispatcher) DispatchPnLEvent(ctx context.Context, payload queue.PnLEventPayload) error {
	return d.processor.ProcessPnLEvent(ctx, payload)
}

func (d *inlineDispatcher) DispatchInvestmentEvent(ctx context.Context, payload queue.InvestmentEventPayload) error {
	return d.processor.ProcessInvestmentEvent(ctx, payload)
}

func (d *inlineDispatcher) DispatchReferralSignup(ctx context.Context, payload queue.ReferralSignupPayload) error {
	return d.processor.ProcessReferralSignup(ctx, payload)
}
