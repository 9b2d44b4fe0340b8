package models

import "time"

// Setting 运行期可调配置，按 key 存一份 JSON
type Setting struct {
	Key       string    `gorm:"primarykey;size:64" json:"key"`
	ValueJSON JSON      `gorm:"type:json" json:"value"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}
