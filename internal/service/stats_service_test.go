package service

import (
	"context"
	"testing"
	"time"
)

func TestGetCommissionStatsSplitsByStatusAndLevel(t *testing.T) {
	env := setupRewardServiceTest(t)
	buildChain(t, env, 1, 2, 3)
	ctx := context.Background()

	first, err := env.commission.HandlePnLEvent(ctx, PnLEvent{ID: "pnl-s1", UserID: 3, PnLAmount: dec("1000")})
	if err != nil {
		t.Fatalf("handle pnl failed: %v", err)
	}
	if _, err := env.commission.HandlePnLEvent(ctx, PnLEvent{ID: "pnl-s2", UserID: 2, PnLAmount: dec("200")}); err != nil {
		t.Fatalf("handle pnl failed: %v", err)
	}
	// 用户 1: 第 2 级 30，第 1 级 10
	var level2ID uint
	for _, record := range first {
		if record.BeneficiaryUserID == 1 {
			level2ID = record.ID
		}
	}
	if _, err := env.commission.MarkCommissionPaid(level2ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	stats, err := env.stats.GetCommissionStats(ctx, 1)
	if err != nil {
		t.Fatalf("commission stats failed: %v", err)
	}
	requireDecimal(t, "total", stats.TotalEarned, "40")
	requireDecimal(t, "pending", stats.PendingAmount, "10")
	requireDecimal(t, "paid", stats.PaidAmount, "30")
	if len(stats.ByLevel) != 2 || stats.ByLevel[0].Level != 1 || stats.ByLevel[1].Level != 2 {
		t.Fatalf("unexpected level summary: %+v", stats.ByLevel)
	}
	requireDecimal(t, "level 1 total", stats.ByLevel[0].Total, "10")
	requireDecimal(t, "level 2 total", stats.ByLevel[1].Total, "30")

	level1, err := env.stats.CommissionsByLevel(1, 1)
	if err != nil || len(level1) != 1 || level1[0].SourceEventID != "pnl-s2" {
		t.Fatalf("unexpected level 1 records: %+v err=%v", level1, err)
	}
	none, err := env.stats.CommissionsByLevel(1, 7)
	if err != nil || len(none) != 0 {
		t.Fatalf("empty level should return no records: %+v err=%v", none, err)
	}
}

func TestGetUserCommissionsNewestFirst(t *testing.T) {
	env := setupRewardServiceTest(t)
	buildChain(t, env, 1, 2)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"pnl-old", "pnl-mid", "pnl-new"} {
		if _, err := env.commission.HandlePnLEvent(ctx, PnLEvent{
			ID:         id,
			UserID:     2,
			PnLAmount:  dec("100"),
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("handle pnl failed: %v", err)
		}
	}

	rows, total, err := env.stats.GetUserCommissions(1, 0, 1, 2)
	if err != nil {
		t.Fatalf("list commissions failed: %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("unexpected page: total=%d rows=%d", total, len(rows))
	}
	if rows[0].SourceEventID != "pnl-new" || rows[1].SourceEventID != "pnl-mid" {
		t.Fatalf("expected newest first, got %s, %s", rows[0].SourceEventID, rows[1].SourceEventID)
	}
}

func TestGetTurnoverStatsCurrentAndNextLevel(t *testing.T) {
	env := setupRewardServiceTest(t)
	buildChain(t, env, 1, 2)
	ctx := context.Background()

	empty, err := env.stats.GetTurnoverStats(ctx, 1)
	if err != nil {
		t.Fatalf("turnover stats failed: %v", err)
	}
	if empty.CurrentLevel != nil || empty.NextLevel == nil || empty.NextLevel.LevelID != "bronze" {
		t.Fatalf("unexpected empty stats: %+v", empty)
	}

	investDownline(t, env, 2, "4000", "4000", "3000")
	if _, err := env.bonus.Claim(ctx, 1, "bronze"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	stats, err := env.stats.GetTurnoverStats(ctx, 1)
	if err != nil {
		t.Fatalf("turnover stats failed: %v", err)
	}
	requireDecimal(t, "team turnover", stats.TeamTurnover, "11000")
	requireDecimal(t, "bonuses", stats.TotalBonusesEarned, "50")
	if stats.CurrentLevel == nil || stats.CurrentLevel.LevelID != "bronze" {
		t.Fatalf("current level should be bronze: %+v", stats.CurrentLevel)
	}
	next := stats.NextLevel
	if next == nil || next.LevelID != "silver" {
		t.Fatalf("next level should be silver: %+v", next)
	}
	requireDecimal(t, "remaining", next.Remaining, "39000")
	requireDecimal(t, "progress", next.ProgressPercent, "22")

	direct, err := env.stats.NextLevel(1)
	if err != nil || direct == nil || direct.LevelID != "silver" {
		t.Fatalf("next level lookup mismatch: %+v err=%v", direct, err)
	}
}

func TestNextLevelNilWhenAllAchieved(t *testing.T) {
	env := setupRewardServiceTest(t)
	buildChain(t, env, 1, 2)
	investDownline(t, env, 2, "1000000")

	next, err := env.stats.NextLevel(1)
	if err != nil {
		t.Fatalf("next level failed: %v", err)
	}
	if next != nil {
		t.Fatalf("all levels achieved, expected nil, got %+v", next)
	}
}
