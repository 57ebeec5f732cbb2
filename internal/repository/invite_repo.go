package repository

import (
	"context"
	"errors"
	"time"

	"controltower/internal/apperr"
	"controltower/internal/model"

	"gorm.io/gorm"
)

// ErrInviteStatusInvalid 状态流转条件不满足（目标状态不合法或已被并发修改）
var ErrInviteStatusInvalid = errors.New("invite status transition invalid")

type InviteRepository interface {
	Create(ctx context.Context, invite *model.Invite) error
	GetByID(ctx context.Context, id string) (*model.Invite, error)
	ListByTeam(ctx context.Context, teamID string, page, pageSize int) ([]*model.Invite, int64, error)
	// UpdateStatus 条件更新：仅当当前状态等于 fromStatus 时流转，
	// 保证同一邀请不会被两个并发请求同时接受
	UpdateStatus(ctx context.Context, id string, fromStatus, toStatus string) error
	// ExpireStale 把 expires_at 已过的 pending 邀请批量置为 expired
	ExpireStale(ctx context.Context, now time.Time, limit int) (int64, error)
}

type inviteRepository struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepository{db: db}
}

func (r *inviteRepository) Create(ctx context.Context, invite *model.Invite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *inviteRepository) GetByID(ctx context.Context, id string) (*model.Invite, error) {
	var invite model.Invite
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("invite not found")
		}
		return nil, err
	}
	return &invite, nil
}

func (r *inviteRepository) ListByTeam(ctx context.Context, teamID string, page, pageSize int) ([]*model.Invite, int64, error) {
	var invites []*model.Invite
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Invite{}).Where("team_id = ?", teamID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&invites).Error

	return invites, total, err
}

func (r *inviteRepository) UpdateStatus(ctx context.Context, id string, fromStatus, toStatus string) error {
	if !model.CanInviteTransitionTo(fromStatus, toStatus) {
		return ErrInviteStatusInvalid
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}
	if toStatus == model.InviteStatusAccepted {
		now := time.Now()
		updates["accepted_at"] = &now
	}

	result := r.db.WithContext(ctx).
		Model(&model.Invite{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInviteStatusInvalid
	}
	return nil
}

func (r *inviteRepository) ExpireStale(ctx context.Context, now time.Time, limit int) (int64, error) {
	// 先取一批 ID 再更新，避免一条 UPDATE 扫全表
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Invite{}).
		Where("status = ? AND expires_at < ?", model.InviteStatusPending, now).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&model.Invite{}).
		Where("id IN ? AND status = ?", ids, model.InviteStatusPending).
		Update("status", model.InviteStatusExpired)

	return result.RowsAffected, result.Error
}
