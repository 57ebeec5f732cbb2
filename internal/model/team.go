package model

import (
	"time"
)

const (
	TeamStatusActive    = "active"
	TeamStatusSuspended = "suspended"
)

// Team 租户（团队）表，计费与权限的基本单位
type Team struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	OwnerID   string    `gorm:"type:varchar(36);index;not null" json:"owner_id"`
	Plan      string    `gorm:"type:varchar(32);not null;default:free" json:"plan"`
	Status    string    `gorm:"type:varchar(16);not null;default:active" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Team) TableName() string {
	return "team"
}

// TeamMember 团队成员关系
type TeamMember struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID   string    `gorm:"type:varchar(36);uniqueIndex:uk_team_user;not null" json:"team_id"`
	UserID   string    `gorm:"type:varchar(36);uniqueIndex:uk_team_user;index;not null" json:"user_id"`
	Role     string    `gorm:"type:varchar(16);not null" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (TeamMember) TableName() string {
	return "team_member"
}
