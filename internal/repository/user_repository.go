package repository

import (
	"errors"
	"time"

	"github.com/uplink-rewards/internal/constants"
	"github.com/uplink-rewards/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	GetByID(id uint) (*models.User, error)
	GetByIDForUpdate(id uint) (*models.User, error)
	ListByIDsForUpdate(ids []uint) ([]models.User, error)
	Ensure(id uint, now time.Time) (bool, error)
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) UserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// GetByID 根据 ID 获取用户，不存在返回 nil
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	return firstUser(r.db, id)
}

// GetByIDForUpdate 同 GetByID，并在事务内持有行锁
func (r *GormUserRepository) GetByIDForUpdate(id uint) (*models.User, error) {
	return firstUser(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func firstUser(query *gorm.DB, id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	err := query.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByIDsForUpdate 按 ID 升序批量加锁，固定顺序避免死锁
func (r *GormUserRepository) ListByIDsForUpdate(ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Ensure 登记用户，已存在时不做修改，返回是否新建
func (r *GormUserRepository) Ensure(id uint, now time.Time) (bool, error) {
	if id == 0 {
		return false, nil
	}
	user := models.User{
		ID:        id,
		Status:    constants.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&user)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
