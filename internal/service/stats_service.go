package service

import (
	"context"
	"fmt"
	"time"

	"github.com/uplink-rewards/internal/cache"
	"github.com/uplink-rewards/internal/constants"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/models"
	"github.com/uplink-rewards/internal/repository"

	"github.com/shopspring/decimal"
)

// StatsService 奖励统计只读服务
type StatsService struct {
	commissionRepo repository.CommissionRepository
	turnoverRepo   repository.TurnoverRepository
	bonusRepo      repository.BonusRepository
	bonusService   *BonusService
	settingService *SettingService
	cacheTTL       time.Duration
}

// NewStatsService 创建统计服务，cacheTTL <= 0 时不走缓存
func NewStatsService(
	commissionRepo repository.CommissionRepository,
	turnoverRepo repository.TurnoverRepository,
	bonusRepo repository.BonusRepository,
	bonusService *BonusService,
	settingService *SettingService,
	cacheTTL time.Duration,
) *StatsService {
	return &StatsService{
		commissionRepo: commissionRepo,
		turnoverRepo:   turnoverRepo,
		bonusRepo:      bonusRepo,
		bonusService:   bonusService,
		settingService: settingService,
		cacheTTL:       cacheTTL,
	}
}

// LevelCommission 某一层级的佣金汇总
type LevelCommission struct {
	Level       int             `json:"level"`
	RecordCount int64           `json:"record_count"`
	Total       decimal.Decimal `json:"total"`
}

// CommissionStats 佣金统计
type CommissionStats struct {
	TotalEarned   decimal.Decimal   `json:"total_earned"`
	PendingAmount decimal.Decimal   `json:"pending_amount"`
	PaidAmount    decimal.Decimal   `json:"paid_amount"`
	ByLevel       []LevelCommission `json:"by_level"`
}

// LevelSummary 等级摘要
type LevelSummary struct {
	LevelID     string          `json:"level_id"`
	Name        string          `json:"name"`
	Threshold   decimal.Decimal `json:"threshold"`
	BonusAmount decimal.Decimal `json:"bonus_amount"`
}

// NextLevelInfo 下一个未达成等级
type NextLevelInfo struct {
	LevelSummary
	CurrentTurnover decimal.Decimal `json:"current_turnover"`
	Remaining       decimal.Decimal `json:"remaining"`
	ProgressPercent decimal.Decimal `json:"progress_percent"`
}

// TurnoverStats 团队业绩统计
type TurnoverStats struct {
	TeamTurnover       decimal.Decimal `json:"team_turnover"`
	TotalBonusesEarned decimal.Decimal `json:"total_bonuses_earned"`
	CurrentLevel       *LevelSummary   `json:"current_level"`
	NextLevel          *NextLevelInfo  `json:"next_level"`
}

// TotalEarned 累计佣金（含待发放）
func (s *StatsService) TotalEarned(userID uint) (decimal.Decimal, error) {
	return s.commissionRepo.SumByBeneficiary(userID, nil)
}

// CommissionsByLevel 查询某一层级的全部佣金记录，按时间倒序
func (s *StatsService) CommissionsByLevel(userID uint, level int) ([]models.CommissionRecord, error) {
	if userID == 0 {
		return nil, ErrUserIDInvalid
	}
	if level <= 0 {
		return []models.CommissionRecord{}, nil
	}
	rows, _, err := s.commissionRepo.List(repository.CommissionListFilter{
		BeneficiaryUserID: userID,
		Level:             level,
	})
	return rows, err
}

// CommissionLevelSummary 按层级汇总佣金
func (s *StatsService) CommissionLevelSummary(userID uint) ([]LevelCommission, error) {
	rows, err := s.commissionRepo.SumByLevel(userID)
	if err != nil {
		return nil, err
	}
	result := make([]LevelCommission, 0, len(rows))
	for _, row := range rows {
		result = append(result, LevelCommission{
			Level:       row.Level,
			RecordCount: row.RecordCount,
			Total:       row.Total,
		})
	}
	return result, nil
}

// NextLevel 下一个未达成的等级，全部达成时返回 nil
func (s *StatsService) NextLevel(userID uint) (*NextLevelInfo, error) {
	setting, err := s.settingService.GetRewardSetting()
	if err != nil {
		return nil, err
	}
	turnover, err := s.teamTurnover(userID)
	if err != nil {
		return nil, err
	}
	_, next := resolveLevels(setting, turnover)
	return next, nil
}

// GetUserCommissions 分页查询用户佣金，按时间倒序，level <= 0 表示全部层级
func (s *StatsService) GetUserCommissions(userID uint, level, page, pageSize int) ([]models.CommissionRecord, int64, error) {
	if userID == 0 {
		return nil, 0, ErrUserIDInvalid
	}
	return s.commissionRepo.List(repository.CommissionListFilter{
		BeneficiaryUserID: userID,
		Level:             level,
		Page:              page,
		PageSize:          pageSize,
	})
}

// GetCommissionStats 佣金统计
func (s *StatsService) GetCommissionStats(ctx context.Context, userID uint) (*CommissionStats, error) {
	if userID == 0 {
		return nil, ErrUserIDInvalid
	}
	key := commissionStatsCacheKey(userID)
	var cached CommissionStats
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	total, err := s.TotalEarned(userID)
	if err != nil {
		return nil, err
	}
	pending, err := s.commissionRepo.SumByBeneficiary(userID, []string{constants.CommissionStatusPending})
	if err != nil {
		return nil, err
	}
	paid, err := s.commissionRepo.SumByBeneficiary(userID, []string{constants.CommissionStatusPaid})
	if err != nil {
		return nil, err
	}
	byLevel, err := s.CommissionLevelSummary(userID)
	if err != nil {
		return nil, err
	}
	stats := &CommissionStats{
		TotalEarned:   total,
		PendingAmount: pending,
		PaidAmount:    paid,
		ByLevel:       byLevel,
	}
	s.writeCache(ctx, key, stats)
	return stats, nil
}

// GetTurnoverStats 团队业绩统计
func (s *StatsService) GetTurnoverStats(ctx context.Context, userID uint) (*TurnoverStats, error) {
	if userID == 0 {
		return nil, ErrUserIDInvalid
	}
	key := turnoverStatsCacheKey(userID)
	var cached TurnoverStats
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	setting, err := s.settingService.GetRewardSetting()
	if err != nil {
		return nil, err
	}
	turnover, err := s.teamTurnover(userID)
	if err != nil {
		return nil, err
	}
	bonuses, err := s.bonusRepo.SumBonusByUser(userID)
	if err != nil {
		return nil, err
	}
	current, next := resolveLevels(setting, turnover)
	stats := &TurnoverStats{
		TeamTurnover:       models.RoundMoney(turnover),
		TotalBonusesEarned: bonuses,
		CurrentLevel:       current,
		NextLevel:          next,
	}
	s.writeCache(ctx, key, stats)
	return stats, nil
}

// GetLevelStatuses 全部等级状态
func (s *StatsService) GetLevelStatuses(userID uint) ([]LevelStatus, error) {
	return s.bonusService.Evaluate(userID)
}

// InvalidateUser 清除用户统计缓存
func (s *StatsService) InvalidateUser(ctx context.Context, userID uint) {
	if s.cacheTTL <= 0 || !cache.Enabled() {
		return
	}
	if err := cache.Del(ctx, commissionStatsCacheKey(userID), turnoverStatsCacheKey(userID)); err != nil {
		logger.Named("stats").Warnw("stats_cache_delete_failed", "user_id", userID, "error", err)
	}
}

func (s *StatsService) teamTurnover(userID uint) (decimal.Decimal, error) {
	state, err := s.turnoverRepo.GetState(userID)
	if err != nil {
		return decimal.Zero, err
	}
	if state == nil {
		return decimal.Zero, nil
	}
	return state.TeamTurnover.Decimal, nil
}

func (s *StatsService) readCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cacheTTL <= 0 {
		return false
	}
	hit, err := cache.GetJSON(ctx, key, dest)
	if err != nil {
		logger.Named("stats").Warnw("stats_cache_read_failed", "key", key, "error", err)
		return false
	}
	return hit
}

func (s *StatsService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cacheTTL <= 0 {
		return
	}
	if err := cache.SetJSON(ctx, key, value, s.cacheTTL); err != nil {
		logger.Named("stats").Warnw("stats_cache_write_failed", "key", key, "error", err)
	}
}

// resolveLevels 返回已达成的最高等级与下一个未达成等级
func resolveLevels(setting RewardSetting, turnover decimal.Decimal) (*LevelSummary, *NextLevelInfo) {
	var current *LevelSummary
	for _, level := range setting.TurnoverLevels {
		summary := LevelSummary{
			LevelID:     level.ID,
			Name:        level.Name,
			Threshold:   level.Threshold,
			BonusAmount: level.Bonus(),
		}
		if turnover.GreaterThanOrEqual(level.Threshold) {
			current = &summary
			continue
		}
		return current, &NextLevelInfo{
			LevelSummary:    summary,
			CurrentTurnover: models.RoundMoney(turnover),
			Remaining:       models.RoundMoney(level.Threshold.Sub(turnover)),
			ProgressPercent: progressPercent(turnover, level.Threshold),
		}
	}
	return current, nil
}

func commissionStatsCacheKey(userID uint) string {
	return fmt.Sprintf("reward:stats:commission:%d", userID)
}

func turnoverStatsCacheKey(userID uint) string {
	return fmt.Sprintf("reward:stats:turnover:%d", userID)
}
