package money

import (
	"errors"
	"fmt"
)

// ============================================================================
// 金额值对象
// ============================================================================
//
// 【为什么需要统一的金额类型？】
//
// 钱包里既有"credits"（平台积分）也有"USD"（美元，以分为最小单位）。
// 如果各处直接传 int64，调用方很容易把积分当美分、把美分当美元：
//
//	grant(teamID, 100)  // 100 是积分？美分？美元？没人知道
//
// 统一成 Money{Amount, Unit} 后，单位不匹配在运算时直接报错，
// 隐式换算被彻底禁止。换算必须显式发生在 API 边界之外。
//
// 金额一律使用最小单位的整数（积分数 / 美分数），不使用浮点数。
//
// ============================================================================

// Unit 货币单位
type Unit string

const (
	UnitCredits Unit = "credits" // 平台积分
	UnitUSD     Unit = "USD"     // 美元（最小单位：美分）
)

var (
	ErrInvalidUnit  = errors.New("invalid currency unit")
	ErrUnitMismatch = errors.New("currency unit mismatch")
)

// Valid 判断单位是否合法
func (u Unit) Valid() bool {
	return u == UnitCredits || u == UnitUSD
}

// Money 金额（最小单位整数 + 单位）
type Money struct {
	Amount int64 `json:"amount"` // 最小单位数量，可为负（出账）
	Unit   Unit  `json:"unit"`
}

// New 构造金额，单位不合法时返回错误
func New(amount int64, unit Unit) (Money, error) {
	if !unit.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
	return Money{Amount: amount, Unit: unit}, nil
}

// IsPositive 金额是否为正
func (m Money) IsPositive() bool {
	return m.Amount > 0
}

// Add 同单位相加，单位不一致返回 ErrUnitMismatch
func (m Money) Add(o Money) (Money, error) {
	if m.Unit != o.Unit {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrUnitMismatch, m.Unit, o.Unit)
	}
	return Money{Amount: m.Amount + o.Amount, Unit: m.Unit}, nil
}

// Sub 同单位相减，单位不一致返回 ErrUnitMismatch
func (m Money) Sub(o Money) (Money, error) {
	if m.Unit != o.Unit {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrUnitMismatch, m.Unit, o.Unit)
	}
	return Money{Amount: m.Amount - o.Amount, Unit: m.Unit}, nil
}

// SameUnit 单位是否一致
func (m Money) SameUnit(o Money) bool {
	return m.Unit == o.Unit
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Unit)
}
