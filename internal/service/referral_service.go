package service

import (
	"context"
	"strings"
	"time"

	"controltower/internal/apperr"
	"controltower/internal/model"
	"controltower/internal/repository"
	"controltower/pkg/money"

	"github.com/google/uuid"
)

// ReferralService 推荐与转化奖励
//
// 转化奖励通过钱包入账：条件流转 pending -> converted 做幂等闸门，
// 同一条推荐不可能发两次奖励。
type ReferralService struct {
	referrals repository.ReferralRepository
	teams     repository.TeamRepository
	wallet    *WalletService
	now       func() time.Time
}

func NewReferralService(
	referrals repository.ReferralRepository,
	teams repository.TeamRepository,
	wallet *WalletService,
) *ReferralService {
	return &ReferralService{
		referrals: referrals,
		teams:     teams,
		wallet:    wallet,
		now:       time.Now,
	}
}

// CreateReferralInput 新建推荐参数
type CreateReferralInput struct {
	TeamID        string `json:"teamId" binding:"required"`
	ReferredEmail string `json:"referredEmail"`
	RewardAmount  int64  `json:"rewardAmount" binding:"required"`
}

func (s *ReferralService) Create(ctx context.Context, in CreateReferralInput) (*model.Referral, error) {
	if _, err := s.teams.GetByID(ctx, in.TeamID); err != nil {
		return nil, err
	}
	if in.RewardAmount <= 0 {
		return nil, apperr.Validationf("reward amount must be positive")
	}

	referral := &model.Referral{
		ID:            uuid.NewString(),
		TeamID:        in.TeamID,
		Code:          newReferralCode(),
		ReferredEmail: in.ReferredEmail,
		Status:        model.ReferralStatusPending,
		RewardAmount:  in.RewardAmount,
		RewardUnit:    string(money.UnitCredits),
	}
	if err := s.referrals.Create(ctx, referral); err != nil {
		return nil, err
	}
	return referral, nil
}

func (s *ReferralService) List(ctx context.Context, teamID string, page, pageSize int) ([]*model.Referral, int64, error) {
	return s.referrals.List(ctx, teamID, page, pageSize)
}

// Convert 推荐转化，发放奖励积分
func (s *ReferralService) Convert(ctx context.Context, code string) (*model.Referral, error) {
	referral, err := s.referrals.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	converted, err := s.referrals.MarkConverted(ctx, referral.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !converted {
		return nil, apperr.Conflictf("referral has already been converted")
	}

	reward, err := money.New(referral.RewardAmount, money.Unit(referral.RewardUnit))
	if err != nil {
		return nil, err
	}
	if err := s.wallet.GrantReferralReward(ctx, referral.TeamID, reward, referral.ID); err != nil {
		return nil, err
	}

	return s.referrals.GetByID(ctx, referral.ID)
}

// newReferralCode 短码，够随机即可
func newReferralCode() string {
	return "REF-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
