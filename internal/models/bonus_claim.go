package models

import "time"

// BonusClaim 团队业绩等级奖励领取记录，(user_id, level_id) 唯一
type BonusClaim struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                                         // 主键
	ClaimNo       string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"claim_no"`                        // 领取单号
	UserID        uint       `gorm:"not null;index;index:idx_bonus_claim_user_level,unique" json:"user_id"`        // 用户ID
	LevelID       string     `gorm:"type:varchar(32);not null;index:idx_bonus_claim_user_level,unique" json:"level_id"` // 等级ID
	Threshold     Money      `gorm:"type:decimal(24,2);not null;default:0" json:"threshold"`                       // 领取时的门槛快照
	TurnoverAt    Money      `gorm:"type:decimal(24,2);not null;default:0" json:"turnover_at_claim"`               // 领取时的团队业绩快照
	BonusAmount   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"bonus_amount"`                    // 奖励金额
	Currency      string     `gorm:"type:varchar(16);not null" json:"currency"`                                    // 基准币种
	Status        string     `gorm:"type:varchar(20);not null;index" json:"status"`                                // 状态
	ClaimedAt     time.Time  `gorm:"index" json:"claimed_at"`                                                      // 领取时间
	SettledAt     *time.Time `gorm:"index" json:"settled_at,omitempty"`                                            // 发放完成时间
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                                                      // 创建时间
	UpdatedAt     time.Time  `gorm:"index" json:"updated_at"`                                                      // 更新时间
}

// TableName 指定表名
func (BonusClaim) TableName() string {
	return "bonus_claims"
}
