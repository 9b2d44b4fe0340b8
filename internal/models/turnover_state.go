package models

import "time"

// TurnoverState 团队业绩累计（只增不减）
type TurnoverState struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                      // 主键
	UserID       uint      `gorm:"not null;uniqueIndex" json:"user_id"`                       // 用户ID
	TeamTurnover Money     `gorm:"type:decimal(24,2);not null;default:0" json:"team_turnover"` // 团队累计业绩（基准币）
	CreatedAt    time.Time `json:"created_at"`                                                // 创建时间
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`                                   // 更新时间
}

// TableName 指定表名
func (TurnoverState) TableName() string {
	return "turnover_states"
}

// TurnoverCredit 团队业绩入账流水，(event_id, user_id) 唯一用于幂等
type TurnoverCredit struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                                          // 主键
	EventID      string    `gorm:"type:varchar(64);not null;index:idx_turnover_credit_event_user,unique" json:"event_id"` // 投资事件ID
	UserID       uint      `gorm:"not null;index;index:idx_turnover_credit_event_user,unique" json:"user_id"`     // 被记入业绩的上级
	SourceUserID uint      `gorm:"not null;index" json:"source_user_id"`                                          // 投资的下级
	Depth        int       `gorm:"not null" json:"depth"`                                                         // 与下级的距离
	Amount       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                           // 入账金额（基准币）
	OccurredAt   time.Time `gorm:"index" json:"occurred_at"`                                                      // 投资发生时间
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                                                       // 创建时间
}

// TableName 指定表名
func (TurnoverCredit) TableName() string {
	return "turnover_credits"
}
