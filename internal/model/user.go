package model

import (
	"time"
)

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

const (
	// UserStatusPending 由邀请创建、尚未首次登录的占位身份。
	// 首次通过身份提供方验证后绑定 subject 并转为 active。
	UserStatusPending = "pending"
	UserStatusActive  = "active"
)

// User 平台用户表
// AuthSubject 是身份提供方下发的用户标识，登录时以它做关联查询
type User struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email       string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	Name        string    `gorm:"type:varchar(128)" json:"name"`
	Role        string    `gorm:"type:varchar(16);not null;default:user" json:"role"`
	Status      string    `gorm:"type:varchar(16);not null;default:active" json:"status"`
	AuthSubject string    `gorm:"type:varchar(128);index" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}
