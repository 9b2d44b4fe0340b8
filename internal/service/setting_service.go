package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/uplink-rewards/internal/models"
	"github.com/uplink-rewards/internal/repository"

	"github.com/shopspring/decimal"
)

// rewardSettingTTL 进程内配置快照有效期；多实例部署时其他实例最多滞后这么久
const rewardSettingTTL = 5 * time.Second

// SettingService 运行期配置读写，奖励配置在进程内缓存一个短时快照
type SettingService struct {
	repo repository.SettingRepository

	mu       sync.RWMutex
	snapshot *RewardSetting
	loadedAt time.Time
	version  uint64
	now      func() time.Time
}

// NewSettingService 创建设置服务
func NewSettingService(repo repository.SettingRepository) *SettingService {
	return &SettingService{repo: repo, now: time.Now}
}

// GetByKey 读取原始配置，不存在时返回 nil
func (s *SettingService) GetByKey(key string) (models.JSON, error) {
	setting, err := s.repo.GetByKey(key)
	if err != nil || setting == nil {
		return nil, err
	}
	return setting.ValueJSON, nil
}

// Update 覆盖写入配置；调用方负责校验与归一化
func (s *SettingService) Update(key string, value map[string]interface{}) (models.JSON, error) {
	setting, err := s.repo.Upsert(key, models.JSON(value))
	if err != nil {
		return nil, err
	}
	return setting.ValueJSON, nil
}

// cachedRewardSetting 返回未过期的快照；未命中时同时返回当前版本号供回填
func (s *SettingService) cachedRewardSetting() (RewardSetting, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil || s.now().Sub(s.loadedAt) > rewardSettingTTL {
		return RewardSetting{}, s.version, false
	}
	return s.snapshot.clone(), s.version, true
}

// storeRewardSetting 回填快照；读库期间发生过写入则放弃，避免旧值覆盖新值
func (s *SettingService) storeRewardSetting(setting RewardSetting, seen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seen != s.version {
		return
	}
	snapshot := setting.clone()
	s.snapshot = &snapshot
	s.loadedAt = s.now()
}

// replaceRewardSetting 写入成功后立即替换快照
func (s *SettingService) replaceRewardSetting(setting RewardSetting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	snapshot := setting.clone()
	s.snapshot = &snapshot
	s.loadedAt = s.now()
}

func (s RewardSetting) clone() RewardSetting {
	out := s
	out.CommissionRates = append([]decimal.Decimal(nil), s.CommissionRates...)
	out.TurnoverLevels = append([]TurnoverLevel(nil), s.TurnoverLevels...)
	return out
}

// parseSettingDecimal 解析金额/比例，字符串优先，避免 float 误差
func parseSettingDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return decimal.Zero, fmt.Errorf("empty string")
		}
		return decimal.NewFromString(trimmed)
	case json.Number:
		return decimal.NewFromString(v.String())
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported value type %T", value)
	}
}

func parseSettingBool(raw interface{}) bool {
	switch value := raw.(type) {
	case bool:
		return value
	case float64:
		return value != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}

func normalizeSettingText(raw interface{}) string {
	text, _ := raw.(string)
	return strings.TrimSpace(text)
}
