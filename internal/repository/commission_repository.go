package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/uplink-rewards/internal/constants"
	"github.com/uplink-rewards/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 佣金记录数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	CreateIfAbsent(record *models.CommissionRecord) (bool, error)
	GetByID(id uint) (*models.CommissionRecord, error)
	GetByEventAndBeneficiary(eventID string, beneficiaryUserID uint) (*models.CommissionRecord, error)
	List(filter CommissionListFilter) ([]models.CommissionRecord, int64, error)
	MarkPaid(id uint, now time.Time) (int64, error)
	SumByBeneficiary(beneficiaryUserID uint, statuses []string) (decimal.Decimal, error)
	SumByLevel(beneficiaryUserID uint) ([]CommissionLevelAggregate, error)
}

// GormCommissionRepository GORM 佣金仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateIfAbsent 按 (source_event_id, beneficiary_user_id) 幂等写入，已存在返回 false
func (r *GormCommissionRepository) CreateIfAbsent(record *models.CommissionRecord) (bool, error) {
	if record == nil {
		return false, nil
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source_event_id"},
			{Name: "beneficiary_user_id"},
		},
		DoNothing: true,
	}).Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByID 按ID查询佣金记录
func (r *GormCommissionRepository) GetByID(id uint) (*models.CommissionRecord, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.CommissionRecord
	if err := r.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByEventAndBeneficiary 按事件与受益人查询
func (r *GormCommissionRepository) GetByEventAndBeneficiary(eventID string, beneficiaryUserID uint) (*models.CommissionRecord, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" || beneficiaryUserID == 0 {
		return nil, nil
	}
	var row models.CommissionRecord
	if err := r.db.Where("source_event_id = ? AND beneficiary_user_id = ?", eventID, beneficiaryUserID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// List 查询佣金记录，按创建时间倒序
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.CommissionRecord, int64, error) {
	query := r.db.Model(&models.CommissionRecord{})
	if filter.BeneficiaryUserID != 0 {
		query = query.Where("beneficiary_user_id = ?", filter.BeneficiaryUserID)
	}
	if filter.Level > 0 {
		query = query.Where("level = ?", filter.Level)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if eventID := strings.TrimSpace(filter.SourceEventID); eventID != "" {
		query = query.Where("source_event_id = ?", eventID)
	}

	return findPage[models.CommissionRecord](query, filter.Page, filter.PageSize, "created_at desc, id desc")
}

// MarkPaid 待发放佣金标记为已发放，返回受影响行数
func (r *GormCommissionRepository) MarkPaid(id uint, now time.Time) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.CommissionRecord{}).
		Where("id = ? AND status = ?", id, constants.CommissionStatusPending).
		Updates(map[string]interface{}{
			"status":     constants.CommissionStatusPaid,
			"paid_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumByBeneficiary 汇总受益人佣金，statuses 为空时统计全部状态
func (r *GormCommissionRepository) SumByBeneficiary(beneficiaryUserID uint, statuses []string) (decimal.Decimal, error) {
	if beneficiaryUserID == 0 {
		return decimal.Zero, nil
	}
	query := r.db.Model(&models.CommissionRecord{}).Where("beneficiary_user_id = ?", beneficiaryUserID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := query.Select("COALESCE(SUM(commission_amount), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return models.RoundMoney(row.Total), nil
}

// SumByLevel 按层级汇总受益人佣金
func (r *GormCommissionRepository) SumByLevel(beneficiaryUserID uint) ([]CommissionLevelAggregate, error) {
	if beneficiaryUserID == 0 {
		return []CommissionLevelAggregate{}, nil
	}
	var rows []CommissionLevelAggregate
	if err := r.db.Model(&models.CommissionRecord{}).
		Select("level, COUNT(*) AS record_count, COALESCE(SUM(commission_amount), 0) AS total").
		Where("beneficiary_user_id = ?", beneficiaryUserID).
		Group("level").
		Order("level asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = models.RoundMoney(rows[i].Total)
	}
	return rows, nil
}
