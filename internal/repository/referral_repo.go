package repository

import (
	"context"
	"errors"
	"time"

	"controltower/internal/apperr"
	"controltower/internal/model"

	"gorm.io/gorm"
)

type ReferralRepository interface {
	Create(ctx context.Context, referral *model.Referral) error
	GetByID(ctx context.Context, id string) (*model.Referral, error)
	GetByCode(ctx context.Context, code string) (*model.Referral, error)
	List(ctx context.Context, teamID string, page, pageSize int) ([]*model.Referral, int64, error)
	// MarkConverted 条件更新 pending -> converted，重复转化返回 false
	MarkConverted(ctx context.Context, id string, now time.Time) (bool, error)
}

type referralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) Create(ctx context.Context, referral *model.Referral) error {
	err := r.db.WithContext(ctx).Create(referral).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflictf("referral code already exists")
	}
	return err
}

func (r *referralRepository) GetByID(ctx context.Context, id string) (*model.Referral, error) {
	var referral model.Referral
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("referral not found")
		}
		return nil, err
	}
	return &referral, nil
}

func (r *referralRepository) GetByCode(ctx context.Context, code string) (*model.Referral, error) {
	var referral model.Referral
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("referral not found")
		}
		return nil, err
	}
	return &referral, nil
}

func (r *referralRepository) List(ctx context.Context, teamID string, page, pageSize int) ([]*model.Referral, int64, error) {
	var referrals []*model.Referral
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Referral{})
	if teamID != "" {
		query = query.Where("team_id = ?", teamID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&referrals).Error

	return referrals, total, err
}

func (r *referralRepository) MarkConverted(ctx context.Context, id string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("id = ? AND status = ?", id, model.ReferralStatusPending).
		Updates(map[string]interface{}{
			"status":       model.ReferralStatusConverted,
			"converted_at": &now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
