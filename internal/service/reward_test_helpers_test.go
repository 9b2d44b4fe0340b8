package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/uplink-rewards/internal/models"
	"github.com/uplink-rewards/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type rewardTestEnv struct {
	db         *gorm.DB
	settings   *SettingService
	referral   *ReferralService
	commission *CommissionService
	turnover   *TurnoverService
	bonus      *BonusService
	stats      *StatsService
	publisher  *recordingPublisher
}

type publishedMessage struct {
	Kind    string
	Key     string
	Payload interface{}
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (p *recordingPublisher) Publish(_ context.Context, kind, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{Kind: kind, Key: key, Payload: payload})
	return nil
}

func (p *recordingPublisher) count(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, msg := range p.messages {
		if msg.Kind == kind {
			total++
		}
	}
	return total
}

func setupRewardServiceTest(t *testing.T) *rewardTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:reward_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// sqlite 单连接，并发用例在连接上排队
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.MigrateRewardTables(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	converter, err := NewStaticRateConverter("USDT", map[string]string{
		"USDT": "1",
		"EUR":  "1.10",
	})
	if err != nil {
		t.Fatalf("create converter failed: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	turnoverRepo := repository.NewTurnoverRepository(db)
	bonusRepo := repository.NewBonusRepository(db)
	settingService := NewSettingService(repository.NewSettingRepository(db))
	publisher := &recordingPublisher{}

	referral := NewReferralService(referralRepo, userRepo)
	bonus := NewBonusService(bonusRepo, turnoverRepo, settingService, converter, publisher, nil)
	return &rewardTestEnv{
		db:         db,
		settings:   settingService,
		referral:   referral,
		commission: NewCommissionService(commissionRepo, userRepo, referral, settingService, converter, publisher, nil),
		turnover:   NewTurnoverService(turnoverRepo, userRepo, referral, converter, nil),
		bonus:      bonus,
		stats:      NewStatsService(commissionRepo, turnoverRepo, bonusRepo, bonus, settingService, 0),
		publisher:  publisher,
	}
}

// buildChain 建立 ids[0] <- ids[1] <- ... 的推荐链（ids[i] 的上级为 ids[i-1]）
func buildChain(t *testing.T, env *rewardTestEnv, ids ...uint) {
	t.Helper()
	if len(ids) == 0 {
		return
	}
	if err := env.referral.RegisterUser(ids[0]); err != nil {
		t.Fatalf("register root failed: %v", err)
	}
	for i := 1; i < len(ids); i++ {
		if err := env.referral.AddEdge(ids[i], ids[i-1]); err != nil {
			t.Fatalf("add edge %d -> %d failed: %v", ids[i], ids[i-1], err)
		}
	}
}

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func requireDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: want %s got %s", label, want, got.String())
	}
}
