package model

import (
	"time"
)

// ============================================================================
// 钱包流水
// ============================================================================

const (
	TransactionKindGrant      = "grant"       // 管理员发放
	TransactionKindPurchase   = "purchase"    // 购买积分包
	TransactionKindDebit      = "debit"       // Agent 运行扣费
	TransactionKindAutoRefill = "auto_refill" // 自动充值
)

// WalletTransaction 钱包流水表
// 记录钱包的每一笔资金变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 记录交易后余额快照 —— 便于校验余额一致性
// 3. 带因果信息（runID / agentID / 操作者）—— 每笔变动可归因
type WalletTransaction struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TxnNo        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"txn_no"`  // 流水号（全局唯一）
	TeamID       string    `gorm:"type:varchar(64);index;not null" json:"team_id"`
	Kind         string    `gorm:"type:varchar(20);not null" json:"kind"`                // 交易类型
	Amount       int64     `gorm:"not null" json:"amount"`                               // 金额（正数入账，负数出账）
	Unit         string    `gorm:"type:varchar(16);not null" json:"unit"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`                        // 交易后余额
	Description  string    `gorm:"type:varchar(256)" json:"description"`
	RunID        string    `gorm:"type:varchar(64);index" json:"run_id,omitempty"`       // 扣费来源运行
	AgentID      string    `gorm:"type:varchar(64)" json:"agent_id,omitempty"`
	Actor        string    `gorm:"type:varchar(64)" json:"actor,omitempty"`              // 操作者（发放 / 购买）
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transaction"
}
