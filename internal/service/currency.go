package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyConverter 将事件币种金额换算为基准币
type CurrencyConverter interface {
	BaseCurrency() string
	ToBase(amount decimal.Decimal, currency string) (decimal.Decimal, error)
}

// StaticRateConverter 基于固定汇率表的换算器
type StaticRateConverter struct {
	base  string
	rates map[string]decimal.Decimal
}

// NewStaticRateConverter 根据配置创建换算器，rates 为 币种 -> 基准币汇率
func NewStaticRateConverter(base string, rates map[string]string) (*StaticRateConverter, error) {
	base = normalizeCurrency(base)
	if base == "" {
		return nil, fmt.Errorf("%w: 基准币种为空", ErrCurrencyUnsupported)
	}
	parsed := make(map[string]decimal.Decimal, len(rates)+1)
	for code, raw := range rates {
		code = normalizeCurrency(code)
		if code == "" {
			continue
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("币种 %s 汇率解析失败: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("币种 %s 汇率必须大于 0", code)
		}
		parsed[code] = rate
	}
	parsed[base] = decimal.NewFromInt(1)
	return &StaticRateConverter{base: base, rates: parsed}, nil
}

// BaseCurrency 基准币种
func (c *StaticRateConverter) BaseCurrency() string {
	return c.base
}

// ToBase 换算为基准币，币种为空时视为基准币，结果不做舍入
func (c *StaticRateConverter) ToBase(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	code := normalizeCurrency(currency)
	if code == "" || code == c.base {
		return amount, nil
	}
	rate, ok := c.rates[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrCurrencyUnsupported, code)
	}
	return amount.Mul(rate), nil
}

func normalizeCurrency(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
