//go:build integration
// +build integration

package repository

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/uplink-rewards/internal/constants"
	"github.com/uplink-rewards/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.User{},
		&models.ReferralEdge{},
		&models.CommissionRecord{},
		&models.TurnoverState{},
		&models.TurnoverCredit{},
		&models.BonusClaim{},
		&models.Setting{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := models.MigrateRewardTables(db); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresConcurrentTurnoverIncrement(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewTurnoverRepository(db)
	now := time.Now().UTC()

	const workers = 20
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Transaction(func(tx *gorm.DB) error {
				txRepo := repo.WithTx(tx)
				ok, err := txRepo.CreateCreditIfAbsent(&models.TurnoverCredit{
					EventID:      fmt.Sprintf("pg-inv-%d", i),
					UserID:       1,
					SourceUserID: 2,
					Depth:        1,
					Amount:       models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
					OccurredAt:   now,
				})
				if err != nil || !ok {
					return err
				}
				return txRepo.IncrementTeamTurnover(1, decimal.NewFromInt(100), now)
			})
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent increment failed: %v", err)
		}
	}

	state, err := repo.GetState(1)
	if err != nil || state == nil {
		t.Fatalf("get state failed: %v", err)
	}
	if !state.TeamTurnover.Equal(decimal.NewFromInt(100 * workers)) {
		t.Fatalf("lost update detected: %s", state.TeamTurnover.String())
	}
}

func TestPostgresConcurrentBonusClaimInsertsOnce(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewBonusRepository(db)
	now := time.Now().UTC()

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.CreateClaimIfAbsent(&models.BonusClaim{
				ClaimNo:     fmt.Sprintf("PG-BC-%d", i),
				UserID:      1,
				LevelID:     "silver",
				Threshold:   models.NewMoneyFromDecimal(decimal.NewFromInt(50000)),
				TurnoverAt:  models.NewMoneyFromDecimal(decimal.NewFromInt(60000)),
				BonusAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(500)),
				Currency:    "USDT",
				Status:      constants.BonusClaimStatusAvailable,
				ClaimedAt:   now,
			})
			if err != nil {
				t.Errorf("claim insert failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if inserted != 1 {
		t.Fatalf("expected exactly one claim row, got %d", inserted)
	}
}
