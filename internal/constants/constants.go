package constants

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 佣金记录状态常量
const (
	CommissionStatusPending = "pending"
	CommissionStatusPaid    = "paid"
)

// 等级奖励领取状态常量
const (
	BonusClaimStatusAvailable = "available"
	BonusClaimStatusClaimed   = "claimed"
)

// 奖励事件类型常量
const (
	RewardEventPnL            = "pnl"
	RewardEventInvestment     = "investment"
	RewardEventReferralSignup = "referral_signup"
)

// 异步任务类型常量
const (
	TaskRewardPnLEvent        = "reward:pnl_event"
	TaskRewardInvestmentEvent = "reward:investment_event"
	TaskRewardReferralSignup  = "reward:referral_signup"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 设置项 key 常量
const (
	SettingKeyRewardConfig = "reward_config"
)

// 对外消息主题 key 常量
const (
	MessageCommissionCreated = "commission.created"
	MessageBonusClaimed      = "bonus.claimed"
)

// 佣金层级上限
const (
	CommissionMaxDepth = 10
)
