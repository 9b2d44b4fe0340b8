package repository

import (
	"errors"
	"time"

	"github.com/uplink-rewards/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TurnoverRepository 团队业绩数据访问接口
type TurnoverRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) TurnoverRepository

	CreateCreditIfAbsent(credit *models.TurnoverCredit) (bool, error)
	IncrementTeamTurnover(userID uint, amount decimal.Decimal, now time.Time) error
	GetState(userID uint) (*models.TurnoverState, error)
	CountCreditsByEvent(eventID string) (int64, error)
}

// GormTurnoverRepository GORM 团队业绩仓储
type GormTurnoverRepository struct {
	db *gorm.DB
}

// NewTurnoverRepository 创建团队业绩仓储
func NewTurnoverRepository(db *gorm.DB) *GormTurnoverRepository {
	return &GormTurnoverRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTurnoverRepository) WithTx(tx *gorm.DB) TurnoverRepository {
	if tx == nil {
		return r
	}
	return &GormTurnoverRepository{db: tx}
}

// Transaction 执行事务
func (r *GormTurnoverRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateCreditIfAbsent 写入入账流水，(event_id, user_id) 已存在返回 false
func (r *GormTurnoverRepository) CreateCreditIfAbsent(credit *models.TurnoverCredit) (bool, error) {
	if credit == nil {
		return false, nil
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "event_id"},
			{Name: "user_id"},
		},
		DoNothing: true,
	}).Create(credit)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementTeamTurnover 原子累加团队业绩，不存在时创建
func (r *GormTurnoverRepository) IncrementTeamTurnover(userID uint, amount decimal.Decimal, now time.Time) error {
	if userID == 0 || !amount.IsPositive() {
		return nil
	}
	state := models.TurnoverState{
		UserID:       userID,
		TeamTurnover: models.NewMoneyFromDecimal(amount),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// 累加表达式需带表名，postgres 下 EXCLUDED 与目标表同名列会产生歧义
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"team_turnover": gorm.Expr("turnover_states.team_turnover + ?", models.RoundMoney(amount)),
			"updated_at":    now,
		}),
	}).Create(&state).Error
}

// GetState 查询团队业绩，不存在返回 nil
func (r *GormTurnoverRepository) GetState(userID uint) (*models.TurnoverState, error) {
	if userID == 0 {
		return nil, nil
	}
	var state models.TurnoverState
	if err := r.db.Where("user_id = ?", userID).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

// CountCreditsByEvent 统计某投资事件已入账的上级数量
func (r *GormTurnoverRepository) CountCreditsByEvent(eventID string) (int64, error) {
	if eventID == "" {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.TurnoverCredit{}).Where("event_id = ?", eventID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
