package model

import (
	"time"
)

const (
	WalletStatusActive    = "active"
	WalletStatusSuspended = "suspended"
	WalletStatusFrozen    = "frozen"
)

// Wallet 租户钱包表
// 每个团队一条记录，是整个计费系统的核心数据
//
// 【重要】余额更新必须走条件更新（version 比对），
// 禁止先读后写的裸更新，否则并发扣款会把余额扣成负数
type Wallet struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID  string `gorm:"type:varchar(64);uniqueIndex;not null" json:"team_id"`
	Balance int64  `gorm:"not null;default:0" json:"balance"`                          // 余额（最小单位整数）
	Unit    string `gorm:"type:varchar(16);not null;default:credits" json:"unit"`      // credits / USD
	Status  string `gorm:"type:varchar(16);not null;default:active" json:"status"`     // active / suspended / frozen
	Version int    `gorm:"not null;default:0" json:"version"`                          // 乐观锁版本号

	// 自动充值策略
	AutoRefillEnabled         bool   `gorm:"not null;default:false" json:"auto_refill_enabled"`
	AutoRefillThreshold       int64  `gorm:"not null;default:0" json:"auto_refill_threshold"`
	AutoRefillAmount          int64  `gorm:"not null;default:0" json:"auto_refill_amount"`
	AutoRefillPaymentMethodID string `gorm:"type:varchar(64)" json:"auto_refill_payment_method_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet"
}

// AutoRefillPolicy 自动充值策略（API 视图）
type AutoRefillPolicy struct {
	Enabled         bool   `json:"enabled"`
	Threshold       int64  `json:"threshold"`
	Amount          int64  `json:"amount"`
	PaymentMethodID string `json:"paymentMethodId,omitempty"`
}

// AutoRefill 取出钱包上的自动充值策略
func (w *Wallet) AutoRefill() AutoRefillPolicy {
	return AutoRefillPolicy{
		Enabled:         w.AutoRefillEnabled,
		Threshold:       w.AutoRefillThreshold,
		Amount:          w.AutoRefillAmount,
		PaymentMethodID: w.AutoRefillPaymentMethodID,
	}
}
