package queue

import (
	"encoding/json"
	"time"

	"github.com/uplink-rewards/internal/constants"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

const (
	// TaskRewardPnLEvent 盈亏事件佣金计算任务
	TaskRewardPnLEvent = constants.TaskRewardPnLEvent
	// TaskRewardInvestmentEvent 投资事件团队业绩累计任务
	TaskRewardInvestmentEvent = constants.TaskRewardInvestmentEvent
	// TaskRewardReferralSignup 注册绑定上级任务
	TaskRewardReferralSignup = constants.TaskRewardReferralSignup
)

// PnLEventPayload 盈亏事件任务载荷
type PnLEventPayload struct {
	EventID    string          `json:"event_id"`
	UserID     uint            `json:"user_id"`
	PnLAmount  decimal.Decimal `json:"pnl_amount"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// InvestmentEventPayload 投资事件任务载荷
type InvestmentEventPayload struct {
	EventID    string          `json:"event_id"`
	UserID     uint            `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ReferralSignupPayload 注册绑定任务载荷
type ReferralSignupPayload struct {
	EventID      string    `json:"event_id"`
	UserID       uint      `json:"user_id"`
	ParentUserID uint      `json:"parent_user_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func newTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}

// NewPnLEventTask 创建盈亏事件任务
func NewPnLEventTask(payload PnLEventPayload) (*asynq.Task, error) {
	return newTask(TaskRewardPnLEvent, payload)
}

// NewInvestmentEventTask 创建投资事件任务
func NewInvestmentEventTask(payload InvestmentEventPayload) (*asynq.Task, error) {
	return newTask(TaskRewardInvestmentEvent, payload)
}

// NewReferralSignupTask 创建注册绑定任务
func NewReferralSignupTask(payload ReferralSignupPayload) (*asynq.Task, error) {
	return newTask(TaskRewardReferralSignup, payload)
}

// TaskID 同一事件只入队一次
func TaskID(taskType, eventID string) string {
	return taskType + ":" + eventID
}
