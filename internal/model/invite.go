package model

import (
	"time"
)

const (
	InviteStatusPending   = "pending"
	InviteStatusAccepted  = "accepted"
	InviteStatusExpired   = "expired"
	InviteStatusCancelled = "cancelled"
)

// 邀请状态机：pending 是唯一的非终态
var validInviteTransitions = map[string][]string{
	InviteStatusPending: {InviteStatusAccepted, InviteStatusExpired, InviteStatusCancelled},
}

// CanInviteTransitionTo 判断邀请状态流转是否合法
func CanInviteTransitionTo(currentStatus, targetStatus string) bool {
	allowed, exists := validInviteTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// Invite 团队邀请表
// 邀请 ID 本身就是接受凭证（接受接口免认证），因此 ID 必须不可猜测（uuid）
type Invite struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	TeamID     string     `gorm:"type:varchar(36);index;not null" json:"team_id"`
	Email      string     `gorm:"type:varchar(128);index;not null" json:"email"`
	Role       string     `gorm:"type:varchar(16);not null" json:"role"`
	Status     string     `gorm:"type:varchar(16);index;not null;default:pending" json:"status"`
	InvitedBy  string     `gorm:"type:varchar(64)" json:"invited_by"`
	ExpiresAt  time.Time  `gorm:"not null;index" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Invite) TableName() string {
	return "invite"
}

// IsExpired 是否已过期（读时判断，不依赖后台任务）
func (i *Invite) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
