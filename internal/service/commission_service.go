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

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionService 多级佣金服务
type CommissionService struct {
	repo           repository.CommissionRepository
	userRepo       repository.UserRepository
	referral       *ReferralService
	settingService *SettingService
	converter      CurrencyConverter
	publisher      MessagePublisher
	metrics        *metrics.RewardMetrics
}

// NewCommissionService 创建佣金服务
func NewCommissionService(
	repo repository.CommissionRepository,
	userRepo repository.UserRepository,
	referral *ReferralService,
	settingService *SettingService,
	converter CurrencyConverter,
	publisher MessagePublisher,
	m *metrics.RewardMetrics,
) *CommissionService {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &CommissionService{
		repo:           repo,
		userRepo:       userRepo,
		referral:       referral,
		settingService: settingService,
		converter:      converter,
		publisher:      publisher,
		metrics:        m,
	}
}

// PnLEvent 投资盈亏结算事件
type PnLEvent struct {
	ID         string          `json:"id"`
	UserID     uint            `json:"user_id"`
	PnLAmount  decimal.Decimal `json:"pnl_amount"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// HandlePnLEvent 为盈利事件的每一级上级生成佣金，返回本次新建的记录。
// 亏损或零盈亏不产生佣金；重复投递时返回空结果。
func (s *CommissionService) HandlePnLEvent(ctx context.Context, event PnLEvent) ([]models.CommissionRecord, error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveEventDuration(constants.RewardEventPnL, time.Since(started).Seconds())
	}()
	log := logger.Named("commission")

	event.ID = strings.TrimSpace(event.ID)
	if event.ID == "" || event.UserID == 0 {
		s.metrics.RecordRejected(constants.RewardEventPnL, "invalid")
		return nil, ErrEventInvalid
	}

	source, err := s.userRepo.GetByID(event.UserID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		s.metrics.RecordRejected(constants.RewardEventPnL, "unknown_user")
		log.Warnw("commission_event_rejected", "event_id", event.ID, "user_id", event.UserID, "reason", "unknown_user")
		return nil, fmt.Errorf("%w: %d", ErrSourceUserNotFound, event.UserID)
	}
	if !event.PnLAmount.IsPositive() {
		return []models.CommissionRecord{}, nil
	}

	setting, err := s.settingService.GetRewardSetting()
	if err != nil {
		return nil, err
	}
	if !setting.Enabled || setting.MaxDepth() == 0 {
		return []models.CommissionRecord{}, nil
	}

	pnl, err := s.converter.ToBase(event.PnLAmount, event.Currency)
	if err != nil {
		s.metrics.RecordRejected(constants.RewardEventPnL, "currency")
		return nil, err
	}
	// 佣金按入库的盈亏金额计算，保证 commission = investor_pnl × rate
	pnl = models.RoundMoney(pnl)
	if !pnl.IsPositive() {
		return []models.CommissionRecord{}, nil
	}

	ancestors, err := s.referral.GetAncestors(event.UserID, setting.MaxDepth())
	if err != nil {
		if !errors.Is(err, ErrGraphIntegrity) {
			return nil, err
		}
		s.metrics.RecordGraphIntegrityWarning()
	}
	if len(ancestors) == 0 {
		return []models.CommissionRecord{}, nil
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	baseCurrency := s.converter.BaseCurrency()
	hundred := decimal.NewFromInt(100)

	created := make([]models.CommissionRecord, 0, len(ancestors))
	replays := 0
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i, beneficiaryID := range ancestors {
			rate := setting.CommissionRates[i]
			amount := models.RoundMoney(pnl.Mul(rate).Div(hundred))
			if !amount.IsPositive() {
				continue
			}
			record := models.CommissionRecord{
				SourceEventID:     event.ID,
				BeneficiaryUserID: beneficiaryID,
				SourceUserID:      event.UserID,
				Level:             i + 1,
				RatePercent:       models.NewMoneyFromDecimal(rate),
				InvestorPnL:       models.NewMoneyFromDecimal(pnl),
				CommissionAmount:  models.NewMoneyFromDecimal(amount),
				Currency:          baseCurrency,
				Status:            constants.CommissionStatusPending,
				OccurredAt:        occurredAt,
			}
			ok, err := repo.CreateIfAbsent(&record)
			if err != nil {
				return err
			}
			if !ok {
				replays++
				continue
			}
			created = append(created, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replays > 0 {
		s.metrics.RecordReplay(constants.RewardEventPnL)
		log.Debugw("commission_event_replayed", "event_id", event.ID, "skipped", replays)
	}
	for _, record := range created {
		s.metrics.RecordCommissionCreated(strconv.Itoa(record.Level), record.CommissionAmount.Decimal)
		s.publishCommissionCreated(ctx, record)
	}
	log.Infow("commission_event_processed",
		"event_id", event.ID,
		"user_id", event.UserID,
		"pnl", pnl.String(),
		"ancestors", len(ancestors),
		"created", len(created),
	)
	return created, nil
}

// MarkCommissionPaid 待发放佣金标记为已发放，只能成功一次
func (s *CommissionService) MarkCommissionPaid(id uint) (*models.CommissionRecord, error) {
	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrCommissionNotFound
	}
	affected, err := s.repo.MarkPaid(id, time.Now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrCommissionStatusInvalid
	}
	return s.repo.GetByID(id)
}

func (s *CommissionService) publishCommissionCreated(ctx context.Context, record models.CommissionRecord) {
	msg := CommissionCreatedMessage{
		CommissionID:      record.ID,
		SourceEventID:     record.SourceEventID,
		BeneficiaryUserID: record.BeneficiaryUserID,
		SourceUserID:      record.SourceUserID,
		Level:             record.Level,
		Amount:            record.CommissionAmount.String(),
		Currency:          record.Currency,
		Status:            record.Status,
	}
	key := strconv.FormatUint(uint64(record.BeneficiaryUserID), 10)
	if err := s.publisher.Publish(ctx, constants.MessageCommissionCreated, key, msg); err != nil {
		logger.Named("commission").Warnw("commission_publish_failed",
			"commission_id", record.ID,
			"event_id", record.SourceEventID,
			"error", err,
		)
	}
}
