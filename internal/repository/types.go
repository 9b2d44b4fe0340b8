package repository

import "github.com/shopspring/decimal"

// CommissionListFilter 佣金记录列表过滤条件
type CommissionListFilter struct {
	Page              int
	PageSize          int
	BeneficiaryUserID uint
	Level             int
	Status            string
	SourceEventID     string
}

// ReferralListFilter 直推下级列表过滤条件
type ReferralListFilter struct {
	Page         int
	PageSize     int
	ParentUserID uint
}

// CommissionLevelAggregate 按层级汇总的佣金
type CommissionLevelAggregate struct {
	Level       int             `gorm:"column:level"`
	RecordCount int64           `gorm:"column:record_count"`
	Total       decimal.Decimal `gorm:"column:total"`
}
