package models

import "time"

// User 奖励引擎已知用户（仅保存 ID 镜像，账号体系由外部服务维护）
type User struct {
	ID        uint      `gorm:"primarykey;autoIncrement:false" json:"id"`        // 外部用户ID
	Status    string    `gorm:"type:varchar(20);not null;index" json:"status"`   // 用户状态
	CreatedAt time.Time `gorm:"index" json:"created_at"`                         // 首次登记时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                         // 更新时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
