package model

import (
	"time"
)

// WhiteLabelConfig 租户白标配置，每团队一条
type WhiteLabelConfig struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID       string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"team_id"`
	BrandName    string    `gorm:"type:varchar(128)" json:"brand_name"`
	LogoURL      string    `gorm:"type:varchar(512)" json:"logo_url"`
	PrimaryColor string    `gorm:"type:varchar(16)" json:"primary_color"`
	SupportEmail string    `gorm:"type:varchar(128)" json:"support_email"`
	CustomDomain string    `gorm:"type:varchar(128)" json:"custom_domain"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WhiteLabelConfig) TableName() string {
	return "white_label_config"
}
