package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/uplink-rewards/internal/config"
	"github.com/uplink-rewards/internal/ingest"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/models"
	"github.com/uplink-rewards/internal/provider"
	"github.com/uplink-rewards/internal/service"
	"github.com/uplink-rewards/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testUserSecret     = "router-test-user-secret"
	testInternalSecret = "router-test-internal-secret"
)

type routerTestEnv struct {
	engine    *gin.Engine
	container *provider.Container
	db        *gorm.DB
}

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupRouterTest(t *testing.T) *routerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.L = zap.NewNop()

	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.MigrateRewardTables(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	cfg := &config.Config{
		UserJWT: config.JWTConfig{SecretKey: testUserSecret},
		InternalAuth: config.InternalAuthConfig{
			SecretKey: testInternalSecret,
			ServiceRoles: map[string][]string{
				"investment-core": {"event_producer"},
				"payout-worker":   {"payout"},
				"ops-console":     {"operator"},
			},
		},
		Reward: config.RewardConfig{BaseCurrency: "USDT", CurrencyRates: map[string]string{"USDT": "1"}},
	}
	container, err := provider.Build(cfg, db, provider.Options{})
	if err != nil {
		t.Fatalf("build container failed: %v", err)
	}
	container.Dispatcher = ingest.NewDispatcher(nil, worker.NewConsumer(container))

	return &routerTestEnv{
		engine:    SetupRouter(cfg, container),
		container: container,
		db:        db,
	}
}

func (e *routerTestEnv) do(t *testing.T, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return w.Code, resp
}

func serviceToken(t *testing.T, name string) string {
	t.Helper()
	token, err := service.GenerateServiceToken(testInternalSecret, name, time.Hour)
	if err != nil {
		t.Fatalf("generate service token failed: %v", err)
	}
	return token
}

func userToken(t *testing.T, userID uint) string {
	t.Helper()
	token, err := service.GenerateUserToken(testUserSecret, userID, time.Hour)
	if err != nil {
		t.Fatalf("generate user token failed: %v", err)
	}
	return token
}

func TestInternalEventsFlowIntoUserStats(t *testing.T) {
	env := setupRouterTest(t)
	producer := serviceToken(t, "investment-core")

	_, resp := env.do(t, http.MethodPost, "/api/v1/internal/events/signup", producer, gin.H{
		"event_id": "signup-2", "user_id": 2, "parent_user_id": 1,
	})
	if resp.StatusCode != 0 {
		t.Fatalf("signup event failed: %+v", resp)
	}
	_, resp = env.do(t, http.MethodPost, "/api/v1/internal/events/pnl", producer, gin.H{
		"event_id": "pnl-1", "user_id": 2, "pnl_amount": "1000", "currency": "USDT",
	})
	if resp.StatusCode != 0 {
		t.Fatalf("pnl event failed: %+v", resp)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/rewards/commissions/stats", userToken(t, 1), nil)
	if resp.StatusCode != 0 {
		t.Fatalf("commission stats failed: %+v", resp)
	}
	var stats struct {
		TotalEarned decimal.Decimal `json:"total_earned"`
	}
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		t.Fatalf("decode stats failed: %v", err)
	}
	if !stats.TotalEarned.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("total earned want 50 got %s", stats.TotalEarned)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/rewards/commissions?level=1", userToken(t, 1), nil)
	var records []models.CommissionRecord
	if err := json.Unmarshal(resp.Data, &records); err != nil {
		t.Fatalf("decode records failed: %v", err)
	}
	if len(records) != 1 || records[0].SourceUserID != 2 {
		t.Fatalf("unexpected commission list: %+v", records)
	}
}

func TestInternalEventRejectsPermanentFailure(t *testing.T) {
	env := setupRouterTest(t)
	producer := serviceToken(t, "investment-core")

	_, resp := env.do(t, http.MethodPost, "/api/v1/internal/events/pnl", producer, gin.H{
		"event_id": "pnl-ghost", "user_id": 404, "pnl_amount": "10",
	})
	if resp.StatusCode != 400 {
		t.Fatalf("unknown source user want 400 got %+v", resp)
	}
	_, resp = env.do(t, http.MethodPost, "/api/v1/internal/events/pnl", producer, gin.H{"user_id": 1})
	if resp.StatusCode != 400 {
		t.Fatalf("missing event id want 400 got %+v", resp)
	}
}

func TestInternalRoutesEnforceServiceRoles(t *testing.T) {
	env := setupRouterTest(t)

	_, resp := env.do(t, http.MethodGet, "/api/v1/internal/settings/reward", serviceToken(t, "investment-core"), nil)
	if resp.StatusCode != 403 {
		t.Fatalf("event producer reading settings want 403 got %+v", resp)
	}
	_, resp = env.do(t, http.MethodPost, "/api/v1/internal/events/pnl", serviceToken(t, "payout-worker"), gin.H{
		"event_id": "pnl-x", "user_id": 1, "pnl_amount": "10",
	})
	if resp.StatusCode != 403 {
		t.Fatalf("payout worker posting events want 403 got %+v", resp)
	}
	_, resp = env.do(t, http.MethodGet, "/api/v1/internal/settings/reward", serviceToken(t, "ops-console"), nil)
	if resp.StatusCode != 0 {
		t.Fatalf("operator reading settings failed: %+v", resp)
	}
	_, resp = env.do(t, http.MethodGet, "/api/v1/internal/settings/reward", userToken(t, 1), nil)
	if resp.StatusCode != 401 {
		t.Fatalf("user token on internal route want 401 got %+v", resp)
	}
	_, resp = env.do(t, http.MethodGet, "/api/v1/internal/authz/permissions/catalog", serviceToken(t, "ops-console"), nil)
	if resp.StatusCode != 0 {
		t.Fatalf("operator reading catalog failed: %+v", resp)
	}
}

func TestUpdateRewardSettingsValidates(t *testing.T) {
	env := setupRouterTest(t)
	operator := serviceToken(t, "ops-console")

	_, resp := env.do(t, http.MethodPut, "/api/v1/internal/settings/reward", operator, gin.H{
		"enabled":          true,
		"commission_rates": []string{"150"},
	})
	if resp.StatusCode != 400 {
		t.Fatalf("invalid rate want 400 got %+v", resp)
	}
	_, resp = env.do(t, http.MethodPut, "/api/v1/internal/settings/reward", operator, gin.H{
		"enabled":          true,
		"commission_rates": []string{"8", "4"},
		"turnover_levels": []gin.H{
			{"id": "starter", "name": "Starter", "threshold": "1000", "bonus_amount": "10"},
		},
	})
	if resp.StatusCode != 0 {
		t.Fatalf("valid update failed: %+v", resp)
	}
	setting, err := env.container.SettingService.GetRewardSetting()
	if err != nil {
		t.Fatalf("get setting failed: %v", err)
	}
	if setting.MaxDepth() != 2 || len(setting.TurnoverLevels) != 1 {
		t.Fatalf("setting not persisted: %+v", setting)
	}
}

func TestPayoutCallbacksAndBonusClaim(t *testing.T) {
	env := setupRouterTest(t)
	producer := serviceToken(t, "investment-core")
	payout := serviceToken(t, "payout-worker")

	env.do(t, http.MethodPost, "/api/v1/internal/events/signup", producer, gin.H{
		"event_id": "signup-2", "user_id": 2, "parent_user_id": 1,
	})
	env.do(t, http.MethodPost, "/api/v1/internal/events/pnl", producer, gin.H{
		"event_id": "pnl-1", "user_id": 2, "pnl_amount": "200",
	})
	var record models.CommissionRecord
	if err := env.db.Where("source_event_id = ?", "pnl-1").First(&record).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}

	path := fmt.Sprintf("/api/v1/internal/commissions/%d/paid", record.ID)
	if _, resp := env.do(t, http.MethodPost, path, payout, nil); resp.StatusCode != 0 {
		t.Fatalf("mark paid failed: %+v", resp)
	}
	if _, resp := env.do(t, http.MethodPost, path, payout, nil); resp.StatusCode != 409 {
		t.Fatalf("second mark paid want 409 got %+v", resp)
	}
	if _, resp := env.do(t, http.MethodPost, "/api/v1/internal/commissions/abc/paid", payout, nil); resp.StatusCode != 400 {
		t.Fatalf("bad id want 400 got %+v", resp)
	}

	user := userToken(t, 1)
	if _, resp := env.do(t, http.MethodPost, "/api/v1/rewards/levels/bronze/claim", user, nil); resp.StatusCode != 400 {
		t.Fatalf("claim below threshold want 400 got %+v", resp)
	}
	env.do(t, http.MethodPost, "/api/v1/internal/events/investment", producer, gin.H{
		"event_id": "inv-1", "user_id": 2, "amount": "10000",
	})
	_, resp := env.do(t, http.MethodPost, "/api/v1/rewards/levels/bronze/claim", user, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("claim bronze failed: %+v", resp)
	}
	var claim models.BonusClaim
	if err := json.Unmarshal(resp.Data, &claim); err != nil {
		t.Fatalf("decode claim failed: %v", err)
	}
	if _, resp := env.do(t, http.MethodPost, "/api/v1/rewards/levels/bronze/claim", user, nil); resp.StatusCode != 409 {
		t.Fatalf("second claim want 409 got %+v", resp)
	}
	settlePath := fmt.Sprintf("/api/v1/internal/bonus-claims/%d/settled", claim.ID)
	if _, resp := env.do(t, http.MethodPost, settlePath, payout, nil); resp.StatusCode != 0 {
		t.Fatalf("settle claim failed: %+v", resp)
	}
}

func TestUserTeamEndpoints(t *testing.T) {
	env := setupRouterTest(t)
	producer := serviceToken(t, "investment-core")
	for i, child := range []uint{2, 3} {
		env.do(t, http.MethodPost, "/api/v1/internal/events/signup", producer, gin.H{
			"event_id": fmt.Sprintf("signup-%d", i), "user_id": child, "parent_user_id": 1,
		})
	}

	_, resp := env.do(t, http.MethodGet, "/api/v1/rewards/team", userToken(t, 1), nil)
	var overview service.TeamOverview
	if err := json.Unmarshal(resp.Data, &overview); err != nil {
		t.Fatalf("decode overview failed: %v", err)
	}
	if overview.DirectCount != 2 {
		t.Fatalf("direct count want 2 got %+v", overview)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rewards/referrals?page=1&page_size=1", nil)
	req.Header.Set("Authorization", "Bearer "+userToken(t, 1))
	env.engine.ServeHTTP(w, req)
	var page struct {
		Pagination struct {
			Total     int64 `json:"total"`
			TotalPage int64 `json:"total_page"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page failed: %v", err)
	}
	if page.Pagination.Total != 2 || page.Pagination.TotalPage != 2 {
		t.Fatalf("unexpected pagination: %+v", page.Pagination)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/rewards/levels", userToken(t, 1), nil)
	var levels []service.LevelStatus
	if err := json.Unmarshal(resp.Data, &levels); err != nil {
		t.Fatalf("decode levels failed: %v", err)
	}
	if len(levels) == 0 || levels[0].Achieved {
		t.Fatalf("unexpected level statuses: %+v", levels)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := setupRouterTest(t)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health want 200 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestBuildInternalPermissionCatalog(t *testing.T) {
	env := setupRouterTest(t)
	items := buildInternalPermissionCatalog(env.engine)
	found := false
	for _, item := range items {
		if item.Permission == "POST:/internal/commissions/:id/paid" {
			found = true
			if item.Module != "commissions" {
				t.Fatalf("module want commissions got %s", item.Module)
			}
		}
	}
	if !found {
		t.Fatalf("catalog missing payout route: %+v", items)
	}
}
