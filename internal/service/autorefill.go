package service

import (
	"controltower/internal/model"
)

// RefillDecision 一次扣费的充值决策结果
type RefillDecision struct {
	Refill         bool  // 是否触发自动充值
	RefillAmount   int64 // 充值金额
	ResultBalance  int64 // 本次扣费（含充值）落账后的余额
	Insufficient   bool  // 余额不足，扣费应当失败
	BelowThreshold bool  // 扣费后余额低于告警阈值（仅普通扣费时有意义）
}

// DecideRefill 自动充值决策
//
// 纯函数：只看余额、本次费用和策略，不做任何 IO。
// 调用方拿到决策后自行完成渠道扣款与落账。
//
// 规则：
//  1. 余额够扣 -> 直接扣，不充值；扣后低于阈值时置 BelowThreshold
//  2. 余额不够且策略可用（开启 + 有支付方式 + 充值额 > 0）
//     -> 充值后再扣；充完仍不够就失败，不产生任何变动
//  3. 余额不够且策略不可用 -> 失败
func DecideRefill(balance, cost int64, p model.AutoRefillPolicy) RefillDecision {
	if balance >= cost {
		result := balance - cost
		return RefillDecision{
			ResultBalance:  result,
			BelowThreshold: p.Enabled && p.Threshold > 0 && result < p.Threshold,
		}
	}

	eligible := p.Enabled && p.PaymentMethodID != "" && p.Amount > 0
	if !eligible {
		return RefillDecision{Insufficient: true, ResultBalance: balance}
	}

	result := balance + p.Amount - cost
	if result < 0 {
		// 充完仍不够：不该为一笔注定失败的扣费去刷用户的卡
		return RefillDecision{Insufficient: true, ResultBalance: balance}
	}

	return RefillDecision{
		Refill:        true,
		RefillAmount:  p.Amount,
		ResultBalance: result,
	}
}
