package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/uplink-rewards/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository 运行期配置的键值存储
type SettingRepository interface {
	GetByKey(key string) (*models.Setting, error)
	Upsert(key string, value models.JSON) (*models.Setting, error)
}

// GormSettingRepository GORM 实现
type GormSettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建设置仓库
func NewSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// GetByKey 按键读取，不存在返回 nil；结构体条件让 GORM 负责给 key 列加引号
func (r *GormSettingRepository) GetByKey(key string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var setting models.Setting
	err := r.db.Where(&models.Setting{Key: key}).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert 按键覆盖写入，同时刷新 updated_at
func (r *GormSettingRepository) Upsert(key string, value models.JSON) (*models.Setting, error) {
	setting := &models.Setting{
		Key:       strings.TrimSpace(key),
		ValueJSON: value,
		UpdatedAt: time.Now(),
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value_json", "updated_at"}),
	}).Create(setting).Error; err != nil {
		return nil, err
	}
	return setting, nil
}
