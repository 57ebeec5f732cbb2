package model

import (
	"time"
)

const (
	ContractStatusDraft     = "draft"
	ContractStatusActive    = "active"
	ContractStatusCancelled = "cancelled"
)

const (
	BillingCycleMonthly = "monthly"
	BillingCycleAnnual  = "annual"
)

// Contract 计费合同
// 创建时校验 team 存在，之后不做反向校验
type Contract struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	TeamID       string     `gorm:"type:varchar(36);index;not null" json:"team_id"`
	Name         string     `gorm:"type:varchar(128);not null" json:"name"`
	AmountMinor  int64      `gorm:"not null" json:"amount_minor"` // 合同金额（最小单位）
	Unit         string     `gorm:"type:varchar(16);not null" json:"unit"`
	BillingCycle string     `gorm:"type:varchar(16);not null" json:"billing_cycle"`
	Status       string     `gorm:"type:varchar(16);not null;default:draft" json:"status"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       *time.Time `json:"ends_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contract) TableName() string {
	return "contract"
}

// Subscription 订阅记录，主要由支付回调维护
type Subscription struct {
	ID                     string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TeamID                 string    `gorm:"type:varchar(36);index;not null" json:"team_id"`
	ProviderSubscriptionID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"provider_subscription_id"`
	Plan                   string    `gorm:"type:varchar(32)" json:"plan"`
	Status                 string    `gorm:"type:varchar(32);not null" json:"status"`
	CurrentPeriodEnd       time.Time `json:"current_period_end"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// PaymentMethod 支付方式
// 在支付渠道侧真实存在，这里冗余一份卡面信息用于展示
type PaymentMethod struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TeamID           string    `gorm:"type:varchar(36);index;not null" json:"team_id"`
	ProviderMethodID string    `gorm:"type:varchar(64);not null" json:"provider_method_id"`
	Brand            string    `gorm:"type:varchar(16)" json:"brand"`
	Last4            string    `gorm:"type:varchar(4)" json:"last4"`
	ExpMonth         int       `json:"exp_month"`
	ExpYear          int       `json:"exp_year"`
	IsDefault        bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PaymentMethod) TableName() string {
	return "payment_method"
}

// Payment 支付回调落库的支付记录
// ProviderEventID 唯一索引保证同一事件重放不会重复入库
type Payment struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID            string    `gorm:"type:varchar(36);index;not null" json:"team_id"`
	ProviderEventID   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"provider_event_id"`
	ProviderPaymentID string    `gorm:"type:varchar(64)" json:"provider_payment_id"`
	AmountMinor       int64     `gorm:"not null" json:"amount_minor"`
	Unit              string    `gorm:"type:varchar(16);not null" json:"unit"`
	Status            string    `gorm:"type:varchar(32);not null" json:"status"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Payment) TableName() string {
	return "payment"
}

// Invoice 支付回调落库的账单记录
type Invoice struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID            string    `gorm:"type:varchar(36);index;not null" json:"team_id"`
	ProviderInvoiceID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"provider_invoice_id"`
	AmountDueMinor    int64     `gorm:"not null" json:"amount_due_minor"`
	Unit              string    `gorm:"type:varchar(16);not null" json:"unit"`
	Status            string    `gorm:"type:varchar(32);not null" json:"status"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoice"
}
