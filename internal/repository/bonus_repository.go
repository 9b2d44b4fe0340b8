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

// BonusRepository 等级奖励领取数据访问接口
type BonusRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) BonusRepository

	CreateClaimIfAbsent(claim *models.BonusClaim) (bool, error)
	GetByID(id uint) (*models.BonusClaim, error)
	GetByUserAndLevel(userID uint, levelID string) (*models.BonusClaim, error)
	ListByUser(userID uint) ([]models.BonusClaim, error)
	MarkSettled(id uint, now time.Time) (int64, error)
	SumBonusByUser(userID uint) (decimal.Decimal, error)
}

// GormBonusRepository GORM 等级奖励仓储
type GormBonusRepository struct {
	db *gorm.DB
}

// NewBonusRepository 创建等级奖励仓储
func NewBonusRepository(db *gorm.DB) *GormBonusRepository {
	return &GormBonusRepository{db: db}
}

// WithTx 绑定事务
func (r *GormBonusRepository) WithTx(tx *gorm.DB) BonusRepository {
	if tx == nil {
		return r
	}
	return &GormBonusRepository{db: tx}
}

// Transaction 执行事务
func (r *GormBonusRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateClaimIfAbsent 写入领取记录，(user_id, level_id) 已存在返回 false
func (r *GormBonusRepository) CreateClaimIfAbsent(claim *models.BonusClaim) (bool, error) {
	if claim == nil {
		return false, nil
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "level_id"},
		},
		DoNothing: true,
	}).Create(claim)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByID 按ID查询领取记录
func (r *GormBonusRepository) GetByID(id uint) (*models.BonusClaim, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.BonusClaim
	if err := r.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByUserAndLevel 查询用户某等级的领取记录
func (r *GormBonusRepository) GetByUserAndLevel(userID uint, levelID string) (*models.BonusClaim, error) {
	levelID = strings.TrimSpace(levelID)
	if userID == 0 || levelID == "" {
		return nil, nil
	}
	var row models.BonusClaim
	if err := r.db.Where("user_id = ? AND level_id = ?", userID, levelID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByUser 查询用户全部领取记录
func (r *GormBonusRepository) ListByUser(userID uint) ([]models.BonusClaim, error) {
	if userID == 0 {
		return []models.BonusClaim{}, nil
	}
	var rows []models.BonusClaim
	if err := r.db.Where("user_id = ?", userID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSettled 已领取奖励标记为发放完成，返回受影响行数
func (r *GormBonusRepository) MarkSettled(id uint, now time.Time) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.BonusClaim{}).
		Where("id = ? AND status = ?", id, constants.BonusClaimStatusAvailable).
		Updates(map[string]interface{}{
			"status":     constants.BonusClaimStatusClaimed,
			"settled_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumBonusByUser 汇总用户已领取的等级奖励
func (r *GormBonusRepository) SumBonusByUser(userID uint) (decimal.Decimal, error) {
	if userID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.BonusClaim{}).
		Select("COALESCE(SUM(bonus_amount), 0) AS total").
		Where("user_id = ?", userID).
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return models.RoundMoney(row.Total), nil
}
