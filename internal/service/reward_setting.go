package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/uplink-rewards/internal/constants"
	"github.com/uplink-rewards/internal/models"

	"github.com/shopspring/decimal"
)

const (
	rewardLevelIDMaxRune   = 32
	rewardLevelNameMaxRune = 64
)

var (
	rewardPercentMin = decimal.Zero
	rewardPercentMax = decimal.NewFromInt(100)
)

// TurnoverLevel 团队业绩等级
type TurnoverLevel struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Threshold   decimal.Decimal `json:"threshold"`
	BonusRate   decimal.Decimal `json:"bonus_rate"`   // 百分比，bonus_amount 为 0 时按门槛计算
	BonusAmount decimal.Decimal `json:"bonus_amount"` // 固定奖励金额
}

// Bonus 等级奖励金额
func (l TurnoverLevel) Bonus() decimal.Decimal {
	if l.BonusAmount.IsPositive() {
		return models.RoundMoney(l.BonusAmount)
	}
	return models.RoundMoney(l.Threshold.Mul(l.BonusRate).Div(decimal.NewFromInt(100)))
}

// RewardSetting 奖励引擎配置
type RewardSetting struct {
	Enabled         bool              `json:"enabled"`
	CommissionRates []decimal.Decimal `json:"commission_rates"` // 第 i 项为第 i+1 级佣金百分比
	TurnoverLevels  []TurnoverLevel   `json:"turnover_levels"`
}

// MaxDepth 佣金最大层级
func (s RewardSetting) MaxDepth() int {
	return len(s.CommissionRates)
}

// FindLevel 按ID查找等级
func (s RewardSetting) FindLevel(levelID string) (TurnoverLevel, bool) {
	key := normalizeRewardLevelID(levelID)
	for _, level := range s.TurnoverLevels {
		if level.ID == key {
			return level, true
		}
	}
	return TurnoverLevel{}, false
}

// RewardDefaultSetting 默认奖励配置
func RewardDefaultSetting() RewardSetting {
	rates := []decimal.Decimal{
		decimal.NewFromInt(5),
		decimal.NewFromInt(3),
		decimal.NewFromInt(2),
	}
	for len(rates) < constants.CommissionMaxDepth {
		rates = append(rates, decimal.NewFromInt(1))
	}
	return NormalizeRewardSetting(RewardSetting{
		Enabled:         true,
		CommissionRates: rates,
		TurnoverLevels: []TurnoverLevel{
			{ID: "bronze", Name: "Bronze", Threshold: decimal.NewFromInt(10000), BonusRate: decimal.RequireFromString("0.5")},
			{ID: "silver", Name: "Silver", Threshold: decimal.NewFromInt(50000), BonusRate: decimal.RequireFromString("1.0")},
			{ID: "gold", Name: "Gold", Threshold: decimal.NewFromInt(100000), BonusRate: decimal.RequireFromString("1.5")},
			{ID: "platinum", Name: "Platinum", Threshold: decimal.NewFromInt(500000), BonusRate: decimal.RequireFromString("2.0")},
			{ID: "diamond", Name: "Diamond", Threshold: decimal.NewFromInt(1000000), BonusRate: decimal.RequireFromString("2.5")},
		},
	})
}

// NormalizeRewardSetting 归一化奖励配置
func NormalizeRewardSetting(setting RewardSetting) RewardSetting {
	rates := make([]decimal.Decimal, 0, len(setting.CommissionRates))
	for _, rate := range setting.CommissionRates {
		rates = append(rates, clampRewardPercent(rate))
		if len(rates) >= constants.CommissionMaxDepth {
			break
		}
	}
	setting.CommissionRates = rates

	levels := make([]TurnoverLevel, 0, len(setting.TurnoverLevels))
	seen := make(map[string]struct{}, len(setting.TurnoverLevels))
	for _, level := range setting.TurnoverLevels {
		level.ID = normalizeRewardLevelID(level.ID)
		if level.ID == "" {
			continue
		}
		if _, ok := seen[level.ID]; ok {
			continue
		}
		seen[level.ID] = struct{}{}
		level.Name = normalizeSettingTextWithRuneLimit(level.Name, rewardLevelNameMaxRune)
		if level.Name == "" {
			level.Name = level.ID
		}
		level.Threshold = models.RoundMoney(level.Threshold)
		level.BonusRate = clampRewardPercent(level.BonusRate)
		level.BonusAmount = models.RoundMoney(level.BonusAmount)
		if level.BonusAmount.IsNegative() {
			level.BonusAmount = decimal.Zero
		}
		levels = append(levels, level)
	}
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Threshold.LessThan(levels[j].Threshold)
	})
	setting.TurnoverLevels = levels
	return setting
}

// ValidateRewardSetting 校验奖励配置
func ValidateRewardSetting(setting RewardSetting) error {
	if len(setting.CommissionRates) == 0 {
		return fmt.Errorf("%w: 至少需要一级佣金比例", ErrRewardConfigInvalid)
	}
	if len(setting.CommissionRates) > constants.CommissionMaxDepth {
		return fmt.Errorf("%w: 佣金层级不能超过 %d", ErrRewardConfigInvalid, constants.CommissionMaxDepth)
	}
	for i, rate := range setting.CommissionRates {
		if rate.LessThan(rewardPercentMin) || rate.GreaterThan(rewardPercentMax) {
			return fmt.Errorf("%w: 第 %d 级佣金比例必须在 0-100 之间", ErrRewardConfigInvalid, i+1)
		}
	}

	seen := make(map[string]struct{}, len(setting.TurnoverLevels))
	prev := decimal.Zero
	for i, level := range setting.TurnoverLevels {
		id := normalizeRewardLevelID(level.ID)
		if id == "" {
			return fmt.Errorf("%w: 第 %d 个等级缺少 id", ErrRewardConfigInvalid, i+1)
		}
		if len([]rune(id)) > rewardLevelIDMaxRune {
			return fmt.Errorf("%w: 等级 id %s 过长", ErrRewardConfigInvalid, id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: 等级 id %s 重复", ErrRewardConfigInvalid, id)
		}
		seen[id] = struct{}{}
		if !level.Threshold.IsPositive() {
			return fmt.Errorf("%w: 等级 %s 门槛必须大于 0", ErrRewardConfigInvalid, id)
		}
		if i > 0 && !level.Threshold.GreaterThan(prev) {
			return fmt.Errorf("%w: 等级门槛必须严格递增", ErrRewardConfigInvalid)
		}
		prev = level.Threshold
		if level.BonusRate.LessThan(rewardPercentMin) || level.BonusRate.GreaterThan(rewardPercentMax) {
			return fmt.Errorf("%w: 等级 %s 奖励比例必须在 0-100 之间", ErrRewardConfigInvalid, id)
		}
		if level.BonusAmount.IsNegative() {
			return fmt.Errorf("%w: 等级 %s 奖励金额不能小于 0", ErrRewardConfigInvalid, id)
		}
	}
	return nil
}

// RewardSettingToMap 将奖励配置转换为 settings 存储结构，金额一律存字符串
func RewardSettingToMap(setting RewardSetting) map[string]interface{} {
	normalized := NormalizeRewardSetting(setting)
	rates := make([]interface{}, 0, len(normalized.CommissionRates))
	for _, rate := range normalized.CommissionRates {
		rates = append(rates, rate.String())
	}
	levels := make([]interface{}, 0, len(normalized.TurnoverLevels))
	for _, level := range normalized.TurnoverLevels {
		levels = append(levels, map[string]interface{}{
			"id":           level.ID,
			"name":         level.Name,
			"threshold":    level.Threshold.StringFixed(models.MoneyScale),
			"bonus_rate":   level.BonusRate.String(),
			"bonus_amount": level.BonusAmount.StringFixed(models.MoneyScale),
		})
	}
	return map[string]interface{}{
		"enabled":          normalized.Enabled,
		"commission_rates": rates,
		"turnover_levels":  levels,
	}
}

func rewardSettingFromJSON(raw models.JSON, fallback RewardSetting) RewardSetting {
	result := fallback

	if enabledRaw, ok := raw["enabled"]; ok {
		result.Enabled = parseSettingBool(enabledRaw)
	}
	if ratesRaw, ok := raw["commission_rates"].([]interface{}); ok {
		rates := make([]decimal.Decimal, 0, len(ratesRaw))
		for _, item := range ratesRaw {
			parsed, err := parseSettingDecimal(item)
			if err != nil {
				rates = nil
				break
			}
			rates = append(rates, parsed)
		}
		if len(rates) > 0 {
			result.CommissionRates = rates
		}
	}
	if levelsRaw, ok := raw["turnover_levels"].([]interface{}); ok {
		levels := make([]TurnoverLevel, 0, len(levelsRaw))
		for _, item := range levelsRaw {
			itemMap, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			level := TurnoverLevel{
				ID:   normalizeSettingText(itemMap["id"]),
				Name: normalizeSettingText(itemMap["name"]),
			}
			if parsed, err := parseSettingDecimal(itemMap["threshold"]); err == nil {
				level.Threshold = parsed
			}
			if parsed, err := parseSettingDecimal(itemMap["bonus_rate"]); err == nil {
				level.BonusRate = parsed
			}
			if parsed, err := parseSettingDecimal(itemMap["bonus_amount"]); err == nil {
				level.BonusAmount = parsed
			}
			if !level.Threshold.IsPositive() {
				continue
			}
			levels = append(levels, level)
		}
		if len(levels) > 0 {
			result.TurnoverLevels = levels
		}
	}

	return NormalizeRewardSetting(result)
}

// GetRewardSetting 获取奖励配置（优先 settings，空时回退默认）
func (s *SettingService) GetRewardSetting() (RewardSetting, error) {
	fallback := RewardDefaultSetting()
	if s == nil {
		return fallback, nil
	}
	cached, version, ok := s.cachedRewardSetting()
	if ok {
		return cached, nil
	}

	value, err := s.GetByKey(constants.SettingKeyRewardConfig)
	if err != nil {
		return fallback, err
	}
	setting := fallback
	if value != nil {
		setting = rewardSettingFromJSON(value, fallback)
	}
	s.storeRewardSetting(setting, version)
	return setting, nil
}

// UpdateRewardSetting 校验并保存奖励配置，本实例快照立即刷新
func (s *SettingService) UpdateRewardSetting(setting RewardSetting) (RewardSetting, error) {
	if err := ValidateRewardSetting(setting); err != nil {
		return RewardDefaultSetting(), err
	}
	normalized := NormalizeRewardSetting(setting)
	if _, err := s.Update(constants.SettingKeyRewardConfig, RewardSettingToMap(normalized)); err != nil {
		return RewardDefaultSetting(), err
	}
	s.replaceRewardSetting(normalized)
	return normalized, nil
}

func clampRewardPercent(value decimal.Decimal) decimal.Decimal {
	value = value.Round(2)
	if value.LessThan(rewardPercentMin) {
		return rewardPercentMin
	}
	if value.GreaterThan(rewardPercentMax) {
		return rewardPercentMax
	}
	return value
}

func normalizeRewardLevelID(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeSettingTextWithRuneLimit(raw string, maxRuneCount int) string {
	text := strings.TrimSpace(raw)
	if text == "" || maxRuneCount <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRuneCount {
		return text
	}
	return string(runes[:maxRuneCount])
}
