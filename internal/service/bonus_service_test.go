package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/uplink-rewards/internal/constants"
	"github.com/uplink-rewards/internal/models"
)

func investDownline(t *testing.T, env *rewardTestEnv, userID uint, amounts ...string) {
	t.Helper()
	for i, amount := range amounts {
		if _, err := env.turnover.HandleInvestmentEvent(InvestmentEvent{
			ID:     fmt.Sprintf("inv-%d-%d", userID, i),
			UserID: userID,
			Amount: dec(amount),
		}); err != nil {
			t.Fatalf("invest %s failed: %v", amount, err)
		}
	}
}

func TestEvaluateBronzeAchievedButUnclaimed(t *testing.T) {
	env := setupRewardServiceTest(t)
	buildChain(t, env, 1, 2)
	investDownline(t, env, 2, "4000", "4000", "3000")

	statuses, err := env.bonus.Evaluate(1)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if len(statuses) != 5 {
		t.Fatalf("expected 5 levels, got %d", len(statuses))
	}
	bronze := statuses[0]
	if bronze.LevelID != "bronze" || !bronze.Achieved || bronze.Claimed {
		t.Fatalf("unexpected bronze status: %+v", bronze)
	}
	requireDecimal(t, "bronze bonus", bronze.BonusAmount, "50")
	requireDecimal(t, "bronze progress", bronze.ProgressPercent, "100")

	silver := statuses[1]
	if silver.Achieved {
		t.Fatalf("silver should not be achieved: %+v", silver)
	}
	requireDecimal(t, "silver progress", silver.ProgressPercent, "22")

	claim, err := env.bonus.Claim(context.Background(), 1, "bronze")
	if err != nil {
		t.Fatalf("claim bronze failed: %v", err)
	}
	if claim.Status != constants.BonusClaimStatusAvailable {
		t.Fatalf("new claim must be available: %+v", claim)
	}
	requireDecimal(t, "claimed amount", claim.BonusAmount.Decimal, "50")

	statuses, err = env.bonus.Evaluate(1)
	if err != nil {
		t.Fatalf("evaluate after claim failed: %v", err)
	}
	if !statuses[0].Claimed || statuses[0].ClaimStatus != constants.BonusClaimStatusAvailable {
		t.Fatalf("bronze should be claimed: %+v", statuses[0])
	}
	if got := env.publisher.count(constants.MessageBonusClaimed); got != 1 {
		t.Fatalf("expected 1 bonus message, got %d", got)
	}
}

func TestClaimBelowThresholdReturnsNotAchieved(t *testing.T) {
	env := setupRewardServiceTest(t)
	buildChain(t, env, 1, 2)
	investDownline(t, env, 2, "8000")

	if _, err := env.bonus.Claim(context.Background(), 1, "bronze"); !errors.Is(err, ErrNotAchieved) {
		t.Fatalf("expected ErrNotAchieved, got %v", err)
	}
	var count int64
	if err := env.db.Model(&models.BonusClaim{}).Where("user_id = ?", 1).Count(&count).Error; err != nil {
		t.Fatalf("count claims failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed claim must not write rows, got %d", count)
	}
	statuses, err := env.bonus.Evaluate(1)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if statuses[0].Claimed {
		t.Fatalf("bronze must stay unclaimed: %+v", statuses[0])
	}
	requireDecimal(t, "bronze progress", statuses[0].ProgressPercent, "80")
}

func TestClaimSkippedTiersIndependently(t *testing.T) {
	env := setupRewardServiceTest(t)
	buildChain(t, env, 1, 2)
	investDownline(t, env, 2, "120000")

	for _, level := range []string{"gold", "bronze", "silver"} {
		if _, err := env.bonus.Claim(context.Background(), 1, level); err != nil {
			t.Fatalf("claim %s failed: %v", level, err)
		}
	}
	if _, err := env.bonus.Claim(context.Background(), 1, "platinum"); !errors.Is(err, ErrNotAchieved) {
		t.Fatalf("expected ErrNotAchieved for platinum, got %v", err)
	}
	if _, err := env.bonus.Claim(context.Background(), 1, "mythic"); !errors.Is(err, ErrBonusLevelNotFound) {
		t.Fatalf("expected ErrBonusLevelNotFound, got %v", err)
	}
}

func TestClaimConcurrentCallersSucceedOnce(t *testing.T) {
	env := setupRewardServiceTest(t)
	buildChain(t, env, 1, 2)
	investDownline(t, env, 2, "60000")

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.bonus.Claim(context.Background(), 1, "silver")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	success, already := 0, 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrAlreadyClaimed):
			already++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	if success != 1 || already != callers-1 {
		t.Fatalf("want 1 success and %d already claimed, got %d and %d", callers-1, success, already)
	}
	var count int64
	if err := env.db.Model(&models.BonusClaim{}).
		Where("user_id = ? AND level_id = ?", 1, "silver").
		Count(&count).Error; err != nil {
		t.Fatalf("count claims failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one claim row, got %d", count)
	}
}

func TestMarkBonusSettledOnlyOnce(t *testing.T) {
	env := setupRewardServiceTest(t)
	buildChain(t, env, 1, 2)
	investDownline(t, env, 2, "10000")

	claim, err := env.bonus.Claim(context.Background(), 1, "Bronze")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	settled, err := env.bonus.MarkBonusSettled(claim.ID)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settled.Status != constants.BonusClaimStatusClaimed || settled.SettledAt == nil {
		t.Fatalf("unexpected settled claim: %+v", settled)
	}
	if _, err := env.bonus.MarkBonusSettled(claim.ID); !errors.Is(err, ErrBonusClaimStatusInvalid) {
		t.Fatalf("expected ErrBonusClaimStatusInvalid, got %v", err)
	}
}

func TestClaimRejectedWhenRewardsDisabled(t *testing.T) {
	env := setupRewardServiceTest(t)
	buildChain(t, env, 1, 2)
	investDownline(t, env, 2, "10000")

	setting := RewardDefaultSetting()
	setting.Enabled = false
	if _, err := env.settings.UpdateRewardSetting(setting); err != nil {
		t.Fatalf("update setting failed: %v", err)
	}
	if _, err := env.bonus.Claim(context.Background(), 1, "bronze"); !errors.Is(err, ErrRewardDisabled) {
		t.Fatalf("expected ErrRewardDisabled, got %v", err)
	}
}
