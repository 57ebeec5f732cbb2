package model

import (
	"time"
)

const (
	ReferralStatusPending   = "pending"
	ReferralStatusConverted = "converted"
)

// Referral 推荐记录
// 转化时通过钱包发放奖励积分
type Referral struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	TeamID        string     `gorm:"type:varchar(36);index;not null" json:"team_id"`
	Code          string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	ReferredEmail string     `gorm:"type:varchar(128)" json:"referred_email"`
	Status        string     `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	RewardAmount  int64      `gorm:"not null;default:0" json:"reward_amount"`
	RewardUnit    string     `gorm:"type:varchar(16);not null;default:credits" json:"reward_unit"`
	ConvertedAt   *time.Time `json:"converted_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Referral) TableName() string {
	return "referral"
}
