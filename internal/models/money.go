package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MoneyScale 基准币最小记账单位的小数位数
const MoneyScale int32 = 2

// Money 统一金额类型（基准币，保留 MoneyScale 位小数）
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 从 decimal 创建金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: RoundMoney(amount)}
}

// ZeroMoney 返回零金额
func ZeroMoney() Money {
	return Money{Decimal: decimal.Zero}
}

// RoundMoney 按最小记账单位四舍五入
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyScale)
}

// MarshalJSON 统一输出定长小数字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 解析金额，仅接受字符串或 JSON 数字字面量，不经过 float64
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	m.Decimal = RoundMoney(d)
	return nil
}

// Value 用于数据库写入
func (m Money) Value() (driver.Value, error) {
	return RoundMoney(m.Decimal).Value()
}

// Scan 用于数据库读取
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = RoundMoney(m.Decimal)
	return nil
}

// String 返回定长小数格式
func (m Money) String() string {
	return RoundMoney(m.Decimal).StringFixed(MoneyScale)
}
