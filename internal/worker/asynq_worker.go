package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uplink-rewards/internal/constants"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/provider"
	"github.com/uplink-rewards/internal/queue"
	"github.com/uplink-rewards/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 奖励事件消费者
type Consumer struct {
	*provider.Container
	invalidateStats func(ctx context.Context, userID uint)
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{Container: c}
	consumer.invalidateStats = func(ctx context.Context, userID uint) {
		if consumer.StatsService != nil {
			consumer.StatsService.InvalidateUser(ctx, userID)
		}
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskRewardPnLEvent, c.handlePnLEvent)
	mux.HandleFunc(queue.TaskRewardInvestmentEvent, c.handleInvestmentEvent)
	mux.HandleFunc(queue.TaskRewardReferralSignup, c.handleReferralSignup)
}

func (c *Consumer) handlePnLEvent(ctx context.Context, task *asynq.Task) error {
	var payload queue.PnLEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_pnl_event_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return toTaskError(c.ProcessPnLEvent(ctx, payload))
}

func (c *Consumer) handleInvestmentEvent(ctx context.Context, task *asynq.Task) error {
	var payload queue.InvestmentEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_investment_event_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return toTaskError(c.ProcessInvestmentEvent(ctx, payload))
}

func (c *Consumer) handleReferralSignup(ctx context.Context, task *asynq.Task) error {
	var payload queue.ReferralSignupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_referral_signup_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return toTaskError(c.ProcessReferralSignup(ctx, payload))
}

// ProcessPnLEvent 处理盈亏事件并清理受益人统计缓存
func (c *Consumer) ProcessPnLEvent(ctx context.Context, payload queue.PnLEventPayload) error {
	records, err := c.CommissionService.HandlePnLEvent(ctx, service.PnLEvent{
		ID:         payload.EventID,
		UserID:     payload.UserID,
		PnLAmount:  payload.PnLAmount,
		Currency:   payload.Currency,
		OccurredAt: payload.OccurredAt,
	})
	if err != nil {
		logEventFailure(constants.RewardEventPnL, payload.EventID, payload.UserID, err)
		return err
	}
	for _, record := range records {
		c.invalidateStats(ctx, record.BeneficiaryUserID)
	}
	return nil
}

// ProcessInvestmentEvent 处理投资事件并清理入账上级的统计缓存
func (c *Consumer) ProcessInvestmentEvent(ctx context.Context, payload queue.InvestmentEventPayload) error {
	credited, err := c.TurnoverService.CreditInvestment(service.InvestmentEvent{
		ID:         payload.EventID,
		UserID:     payload.UserID,
		Amount:     payload.Amount,
		Currency:   payload.Currency,
		OccurredAt: payload.OccurredAt,
	})
	if err != nil {
		logEventFailure(constants.RewardEventInvestment, payload.EventID, payload.UserID, err)
		return err
	}
	for _, userID := range credited {
		c.invalidateStats(ctx, userID)
	}
	return nil
}

// ProcessReferralSignup 处理注册绑定事件
func (c *Consumer) ProcessReferralSignup(_ context.Context, payload queue.ReferralSignupPayload) error {
	err := c.ReferralService.HandleSignupEvent(service.ReferralSignupEvent{
		ID:           payload.EventID,
		UserID:       payload.UserID,
		ParentUserID: payload.ParentUserID,
		OccurredAt:   payload.OccurredAt,
	})
	if err != nil {
		logEventFailure(constants.RewardEventReferralSignup, payload.EventID, payload.UserID, err)
		return err
	}
	return nil
}

// toTaskError 永久性错误不再重试，任务归档等待人工处理
func toTaskError(err error) error {
	if err == nil {
		return nil
	}
	if service.IsPermanentEventError(err) {
		return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
	}
	return err
}

func logEventFailure(kind, eventID string, userID uint, err error) {
	if service.IsPermanentEventError(err) {
		logger.Warnw("worker_event_rejected", "kind", kind, "event_id", eventID, "user_id", userID, "error", err)
		return
	}
	logger.Errorw("worker_event_failed", "kind", kind, "event_id", eventID, "user_id", userID, "error", err)
}
