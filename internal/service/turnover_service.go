package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uplink-rewards/internal/constants"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/metrics"
	"github.com/uplink-rewards/internal/models"
	"github.com/uplink-rewards/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TurnoverService 团队业绩累计服务
type TurnoverService struct {
	repo      repository.TurnoverRepository
	userRepo  repository.UserRepository
	referral  *ReferralService
	converter CurrencyConverter
	metrics   *metrics.RewardMetrics
}

// NewTurnoverService 创建团队业绩服务
func NewTurnoverService(
	repo repository.TurnoverRepository,
	userRepo repository.UserRepository,
	referral *ReferralService,
	converter CurrencyConverter,
	m *metrics.RewardMetrics,
) *TurnoverService {
	return &TurnoverService{
		repo:      repo,
		userRepo:  userRepo,
		referral:  referral,
		converter: converter,
		metrics:   m,
	}
}

// InvestmentEvent 投资确认事件
type InvestmentEvent struct {
	ID         string          `json:"id"`
	UserID     uint            `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// HandleInvestmentEvent 将投资额计入全部上级的团队业绩（不限层级），返回本次入账的上级数。
// 每个 (事件, 上级) 只入账一次，重复投递不会重复累加。
func (s *TurnoverService) HandleInvestmentEvent(event InvestmentEvent) (int, error) {
	credited, err := s.CreditInvestment(event)
	return len(credited), err
}

// CreditInvestment 同 HandleInvestmentEvent，返回本次实际入账的上级ID（由近到远）
func (s *TurnoverService) CreditInvestment(event InvestmentEvent) ([]uint, error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveEventDuration(constants.RewardEventInvestment, time.Since(started).Seconds())
	}()
	log := logger.Named("turnover")

	event.ID = strings.TrimSpace(event.ID)
	if event.ID == "" || event.UserID == 0 {
		s.metrics.RecordRejected(constants.RewardEventInvestment, "invalid")
		return nil, ErrEventInvalid
	}

	source, err := s.userRepo.GetByID(event.UserID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		s.metrics.RecordRejected(constants.RewardEventInvestment, "unknown_user")
		log.Warnw("turnover_event_rejected", "event_id", event.ID, "user_id", event.UserID, "reason", "unknown_user")
		return nil, fmt.Errorf("%w: %d", ErrSourceUserNotFound, event.UserID)
	}
	if !event.Amount.IsPositive() {
		return nil, nil
	}

	amount, err := s.converter.ToBase(event.Amount, event.Currency)
	if err != nil {
		s.metrics.RecordRejected(constants.RewardEventInvestment, "currency")
		return nil, err
	}
	amount = models.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, nil
	}

	ancestors, err := s.referral.GetAncestors(event.UserID, 0)
	if err != nil {
		if !errors.Is(err, ErrGraphIntegrity) {
			return nil, err
		}
		s.metrics.RecordGraphIntegrityWarning()
	}
	if len(ancestors) == 0 {
		return nil, nil
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	credited := make([]uint, 0, len(ancestors))
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := time.Now()
		for i, ancestorID := range ancestors {
			ok, err := repo.CreateCreditIfAbsent(&models.TurnoverCredit{
				EventID:      event.ID,
				UserID:       ancestorID,
				SourceUserID: event.UserID,
				Depth:        i + 1,
				Amount:       models.NewMoneyFromDecimal(amount),
				OccurredAt:   occurredAt,
			})
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := repo.IncrementTeamTurnover(ancestorID, amount, now); err != nil {
				return err
			}
			credited = append(credited, ancestorID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(credited) < len(ancestors) {
		s.metrics.RecordReplay(constants.RewardEventInvestment)
	}
	s.metrics.RecordTurnoverCredits(len(credited))
	log.Infow("turnover_event_processed",
		"event_id", event.ID,
		"user_id", event.UserID,
		"amount", amount.String(),
		"ancestors", len(ancestors),
		"credited", len(credited),
	)
	return credited, nil
}

// GetTeamTurnover 查询团队累计业绩，无记录时为 0
func (s *TurnoverService) GetTeamTurnover(userID uint) (decimal.Decimal, error) {
	state, err := s.repo.GetState(userID)
	if err != nil {
		return decimal.Zero, err
	}
	if state == nil {
		return decimal.Zero, nil
	}
	return state.TeamTurnover.Decimal, nil
}
