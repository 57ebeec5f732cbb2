package model

import (
	"time"
)

const (
	AgentStatusActive   = "active"
	AgentStatusDisabled = "disabled"
)

// Agent 租户下的 Agent 配置
type Agent struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TeamID      string    `gorm:"type:varchar(36);index;not null" json:"team_id"`
	Name        string    `gorm:"type:varchar(128);not null" json:"name"`
	Description string    `gorm:"type:varchar(512)" json:"description"`
	Status      string    `gorm:"type:varchar(16);not null;default:active" json:"status"`
	Config      string    `gorm:"type:text" json:"config"` // JSON 文本，后端不解释内容
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Agent) TableName() string {
	return "agent"
}
