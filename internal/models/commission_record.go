package models

import "time"

// CommissionRecord 多级推荐佣金记录
type CommissionRecord struct {
	ID                uint       `gorm:"primarykey" json:"id"`                                                                                   // 主键
	SourceEventID     string     `gorm:"type:varchar(64);not null;index:idx_commission_event_beneficiary,unique" json:"source_event_id"`        // 来源盈亏事件ID
	BeneficiaryUserID uint       `gorm:"not null;index;index:idx_commission_event_beneficiary,unique" json:"beneficiary_user_id"`               // 受益人（上级）
	SourceUserID      uint       `gorm:"not null;index" json:"source_user_id"`                                                                  // 产生盈亏的下级
	Level             int        `gorm:"not null;index" json:"level"`                                                                           // 层级（1..10）
	RatePercent       Money      `gorm:"type:decimal(10,2);not null;default:0" json:"rate_percent"`                                             // 佣金比例（百分比）
	InvestorPnL       Money      `gorm:"type:decimal(20,2);not null;default:0" json:"investor_pnl"`                                             // 下级盈亏金额（基准币）
	CommissionAmount  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`                                        // 佣金金额
	Currency          string     `gorm:"type:varchar(16);not null" json:"currency"`                                                             // 基准币种
	Status            string     `gorm:"type:varchar(20);not null;index" json:"status"`                                                         // 状态
	OccurredAt        time.Time  `gorm:"index" json:"occurred_at"`                                                                              // 盈亏发生时间
	PaidAt            *time.Time `gorm:"index" json:"paid_at,omitempty"`                                                                        // 发放时间
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                                                                               // 创建时间
	UpdatedAt         time.Time  `gorm:"index" json:"updated_at"`                                                                               // 更新时间
}

// TableName 指定表名
func (CommissionRecord) TableName() string {
	return "commission_records"
}
