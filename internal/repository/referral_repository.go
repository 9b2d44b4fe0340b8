package repository

import (
	"errors"

	"github.com/uplink-rewards/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralRepository 推荐关系数据访问接口
type ReferralRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ReferralRepository

	GetParentEdge(childUserID uint) (*models.ReferralEdge, error)
	CreateEdgeIfAbsent(edge *models.ReferralEdge) (bool, error)
	ListChildren(filter ReferralListFilter) ([]models.ReferralEdge, int64, error)
	ListChildIDs(parentUserIDs []uint) ([]uint, error)
	CountChildren(parentUserID uint) (int64, error)
}

// GormReferralRepository GORM 推荐关系仓储
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐关系仓储
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) ReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Transaction 执行事务
func (r *GormReferralRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetParentEdge 查询用户的上级关系，不存在返回 nil
func (r *GormReferralRepository) GetParentEdge(childUserID uint) (*models.ReferralEdge, error) {
	if childUserID == 0 {
		return nil, nil
	}
	var edge models.ReferralEdge
	if err := r.db.Where("child_user_id = ?", childUserID).First(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &edge, nil
}

// CreateEdgeIfAbsent 写入推荐关系，child_user_id 已存在时返回 false
func (r *GormReferralRepository) CreateEdgeIfAbsent(edge *models.ReferralEdge) (bool, error) {
	if edge == nil {
		return false, nil
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "child_user_id"}},
		DoNothing: true,
	}).Create(edge)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListChildren 分页查询直推下级
func (r *GormReferralRepository) ListChildren(filter ReferralListFilter) ([]models.ReferralEdge, int64, error) {
	query := r.db.Model(&models.ReferralEdge{}).Where("parent_user_id = ?", filter.ParentUserID)

	return findPage[models.ReferralEdge](query, filter.Page, filter.PageSize, "created_at desc, id desc")
}

// ListChildIDs 批量查询一组上级的全部直推下级 ID
func (r *GormReferralRepository) ListChildIDs(parentUserIDs []uint) ([]uint, error) {
	if len(parentUserIDs) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.ReferralEdge{}).
		Where("parent_user_id IN ?", parentUserIDs).
		Order("child_user_id asc").
		Pluck("child_user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountChildren 统计直推人数
func (r *GormReferralRepository) CountChildren(parentUserID uint) (int64, error) {
	if parentUserID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.ReferralEdge{}).
		Where("parent_user_id = ?", parentUserID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
