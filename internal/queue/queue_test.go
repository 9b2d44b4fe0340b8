package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/uplink-rewards/internal/config"

	"github.com/shopspring/decimal"
)

func TestNewPnLEventTaskPayload(t *testing.T) {
	task, err := NewPnLEventTask(PnLEventPayload{
		EventID:   "pnl-1",
		UserID:    42,
		PnLAmount: decimal.RequireFromString("1000.50"),
		Currency:  "USDT",
	})
	if err != nil {
		t.Fatalf("create task failed: %v", err)
	}
	if task.Type() != TaskRewardPnLEvent {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var decoded PnLEventPayload
	if err := json.Unmarshal(task.Payload(), &decoded); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if decoded.EventID != "pnl-1" || decoded.UserID != 42 || !decoded.PnLAmount.Equal(decimal.RequireFromString("1000.5")) {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestTaskIDIncludesType(t *testing.T) {
	if got := TaskID(TaskRewardInvestmentEvent, "inv-9"); got != "reward:investment_event:inv-9" {
		t.Fatalf("unexpected task id: %s", got)
	}
}

func TestDisabledClientRejectsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	err = client.EnqueuePnLEvent(context.Background(), PnLEventPayload{EventID: "x"})
	if !errors.Is(err, ErrQueueDisabled) {
		t.Fatalf("expected ErrQueueDisabled, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close disabled client failed: %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 10 || cfg.Queues[CriticalQueue] == 0 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}

func TestBuildRedisOptFallsBackToLocalhost(t *testing.T) {
	if opt := buildRedisOpt(nil); opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("nil config addr: %s", opt.Addr)
	}
	if opt := buildRedisOpt(&config.QueueConfig{Port: -1}); opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("blank config addr: %s", opt.Addr)
	}
}

func TestNewClientKeepsRetention(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: true, RetentionMinutes: 90})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	defer client.Close()
	if !client.Enabled() || client.retention != 90*time.Minute {
		t.Fatalf("unexpected client: enabled=%v retention=%v", client.Enabled(), client.retention)
	}
}
