package models

import "time"

// ReferralEdge 推荐关系（子 -> 父），注册时写入一次，之后不再修改
type ReferralEdge struct {
	ID           uint      `gorm:"primarykey" json:"id"`                         // 主键
	ChildUserID  uint      `gorm:"not null;uniqueIndex" json:"child_user_id"`    // 被推荐人
	ParentUserID uint      `gorm:"not null;index" json:"parent_user_id"`         // 推荐人
	CreatedAt    time.Time `gorm:"index;not null" json:"created_at"`             // 建立时间
}

// TableName 指定表名
func (ReferralEdge) TableName() string {
	return "referral_edges"
}
