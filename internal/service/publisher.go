package service

import "context"

// MessagePublisher 对外发布奖励消息，kind 取 constants.Message* 常量
type MessagePublisher interface {
	Publish(ctx context.Context, kind, key string, payload interface{}) error
}

// NoopPublisher 未启用消息总线时使用
type NoopPublisher struct{}

// Publish 丢弃消息
func (NoopPublisher) Publish(context.Context, string, string, interface{}) error {
	return nil
}

// CommissionCreatedMessage 佣金创建消息
type CommissionCreatedMessage struct {
	CommissionID      uint   `json:"commission_id"`
	SourceEventID     string `json:"source_event_id"`
	BeneficiaryUserID uint   `json:"beneficiary_user_id"`
	SourceUserID      uint   `json:"source_user_id"`
	Level             int    `json:"level"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
}

// BonusClaimedMessage 等级奖励领取消息
type BonusClaimedMessage struct {
	ClaimID  uint   `json:"claim_id"`
	ClaimNo  string `json:"claim_no"`
	UserID   uint   `json:"user_id"`
	LevelID  string `json:"level_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}
