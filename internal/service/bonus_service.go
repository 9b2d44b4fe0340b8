package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uplink-rewards/internal/constants"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/metrics"
	"github.com/uplink-rewards/internal/models"
	"github.com/uplink-rewards/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BonusService 团队业绩等级奖励服务
type BonusService struct {
	repo           repository.BonusRepository
	turnoverRepo   repository.TurnoverRepository
	settingService *SettingService
	converter      CurrencyConverter
	publisher      MessagePublisher
	metrics        *metrics.RewardMetrics
}

// NewBonusService 创建等级奖励服务
func NewBonusService(
	repo repository.BonusRepository,
	turnoverRepo repository.TurnoverRepository,
	settingService *SettingService,
	converter CurrencyConverter,
	publisher MessagePublisher,
	m *metrics.RewardMetrics,
) *BonusService {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &BonusService{
		repo:           repo,
		turnoverRepo:   turnoverRepo,
		settingService: settingService,
		converter:      converter,
		publisher:      publisher,
		metrics:        m,
	}
}

// LevelStatus 等级达成与领取状态
type LevelStatus struct {
	LevelID         string          `json:"level_id"`
	Name            string          `json:"name"`
	Threshold       decimal.Decimal `json:"threshold"`
	BonusAmount     decimal.Decimal `json:"bonus_amount"`
	Achieved        bool            `json:"achieved"`
	Claimed         bool            `json:"claimed"`
	ClaimStatus     string          `json:"claim_status,omitempty"`
	ProgressPercent decimal.Decimal `json:"progress_percent"`
}

// Evaluate 按门槛升序返回全部等级状态
func (s *BonusService) Evaluate(userID uint) ([]LevelStatus, error) {
	if userID == 0 {
		return nil, ErrUserIDInvalid
	}
	setting, err := s.settingService.GetRewardSetting()
	if err != nil {
		return nil, err
	}
	turnover, err := s.teamTurnover(s.turnoverRepo, userID)
	if err != nil {
		return nil, err
	}
	claims, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	claimed := make(map[string]string, len(claims))
	for _, claim := range claims {
		claimed[claim.LevelID] = claim.Status
	}

	result := make([]LevelStatus, 0, len(setting.TurnoverLevels))
	for _, level := range setting.TurnoverLevels {
		status, ok := claimed[level.ID]
		result = append(result, LevelStatus{
			LevelID:         level.ID,
			Name:            level.Name,
			Threshold:       level.Threshold,
			BonusAmount:     level.Bonus(),
			Achieved:        turnover.GreaterThanOrEqual(level.Threshold),
			Claimed:         ok,
			ClaimStatus:     status,
			ProgressPercent: progressPercent(turnover, level.Threshold),
		})
	}
	return result, nil
}

// Claim 领取等级奖励，同一用户同一等级最多成功一次
func (s *BonusService) Claim(ctx context.Context, userID uint, levelID string) (*models.BonusClaim, error) {
	if userID == 0 {
		return nil, ErrUserIDInvalid
	}
	levelID = normalizeRewardLevelID(levelID)
	setting, err := s.settingService.GetRewardSetting()
	if err != nil {
		return nil, err
	}
	if !setting.Enabled {
		return nil, ErrRewardDisabled
	}
	level, ok := setting.FindLevel(levelID)
	if !ok {
		return nil, ErrBonusLevelNotFound
	}

	var claim *models.BonusClaim
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		turnover, err := s.teamTurnover(s.turnoverRepo.WithTx(tx), userID)
		if err != nil {
			return err
		}
		if turnover.LessThan(level.Threshold) {
			return ErrNotAchieved
		}
		existing, err := repo.GetByUserAndLevel(userID, level.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyClaimed
		}

		now := time.Now()
		row := &models.BonusClaim{
			ClaimNo:     generateBonusClaimNo(now),
			UserID:      userID,
			LevelID:     level.ID,
			Threshold:   models.NewMoneyFromDecimal(level.Threshold),
			TurnoverAt:  models.NewMoneyFromDecimal(turnover),
			BonusAmount: models.NewMoneyFromDecimal(level.Bonus()),
			Currency:    s.converter.BaseCurrency(),
			Status:      constants.BonusClaimStatusAvailable,
			ClaimedAt:   now,
		}
		created, err := repo.CreateClaimIfAbsent(row)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyClaimed
			}
			return err
		}
		if !created {
			return ErrAlreadyClaimed
		}
		claim = row
		return nil
	})
	if err != nil {
		s.metrics.RecordBonusClaim(level.ID, claimResultLabel(err))
		return nil, err
	}

	s.metrics.RecordBonusClaim(level.ID, "ok")
	logger.Named("bonus").Infow("bonus_level_claimed",
		"user_id", userID,
		"level_id", level.ID,
		"claim_no", claim.ClaimNo,
		"bonus_amount", claim.BonusAmount.String(),
	)
	s.publishBonusClaimed(ctx, claim)
	return claim, nil
}

// MarkBonusSettled 发放完成后将领取记录标记为已发放
func (s *BonusService) MarkBonusSettled(claimID uint) (*models.BonusClaim, error) {
	claim, err := s.repo.GetByID(claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, ErrBonusClaimNotFound
	}
	affected, err := s.repo.MarkSettled(claimID, time.Now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrBonusClaimStatusInvalid
	}
	return s.repo.GetByID(claimID)
}

func (s *BonusService) teamTurnover(repo repository.TurnoverRepository, userID uint) (decimal.Decimal, error) {
	state, err := repo.GetState(userID)
	if err != nil {
		return decimal.Zero, err
	}
	if state == nil {
		return decimal.Zero, nil
	}
	return state.TeamTurnover.Decimal, nil
}

func (s *BonusService) publishBonusClaimed(ctx context.Context, claim *models.BonusClaim) {
	msg := BonusClaimedMessage{
		ClaimID:  claim.ID,
		ClaimNo:  claim.ClaimNo,
		UserID:   claim.UserID,
		LevelID:  claim.LevelID,
		Amount:   claim.BonusAmount.String(),
		Currency: claim.Currency,
		Status:   claim.Status,
	}
	key := strconv.FormatUint(uint64(claim.UserID), 10)
	if err := s.publisher.Publish(ctx, constants.MessageBonusClaimed, key, msg); err != nil {
		logger.Named("bonus").Warnw("bonus_publish_failed", "claim_no", claim.ClaimNo, "error", err)
	}
}

// progressPercent 进度百分比，封顶 100，保留两位小数
func progressPercent(turnover, threshold decimal.Decimal) decimal.Decimal {
	if !threshold.IsPositive() {
		return decimal.NewFromInt(100)
	}
	percent := turnover.Mul(decimal.NewFromInt(100)).Div(threshold)
	if percent.GreaterThan(decimal.NewFromInt(100)) {
		percent = decimal.NewFromInt(100)
	}
	if percent.IsNegative() {
		percent = decimal.Zero
	}
	return percent.Round(2)
}

func claimResultLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotAchieved):
		return "not_achieved"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	default:
		return "error"
	}
}

func generateBonusClaimNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
	return fmt.Sprintf("BC%s%s", now.Format("20060102150405"), suffix)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
