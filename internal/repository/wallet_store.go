package repository

import (
	"context"
	"errors"

	"controltower/internal/apperr"
	"controltower/internal/model"
	"controltower/pkg/money"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletStore 钱包存储
//
// 【设计约定】Apply 是唯一的余额写入口：
// 余额写入 + 流水追加 + 出站事件落库在一个事务里完成，
// 并以 version 做条件更新（CAS）。调用方读到旧版本时拿到
// ErrVersionConflict，自行重读重试。
//
// 这样两笔并发扣款不可能都成功 —— 后写的那笔版本必然对不上。
type WalletStore interface {
	GetOrCreate(ctx context.Context, teamID string, unit money.Unit) (*model.Wallet, error)
	GetByTeamID(ctx context.Context, teamID string) (*model.Wallet, error)
	// Apply 条件写入：version 匹配时把余额写为 newBalance（version+1），
	// 同事务追加流水与出站事件
	Apply(ctx context.Context, teamID string, version int, newBalance int64,
		entries []*model.WalletTransaction, events []*model.OutboxMessage) error
	SaveAutoRefill(ctx context.Context, teamID string, policy model.AutoRefillPolicy) error
	ListTransactions(ctx context.Context, teamID string, page, pageSize int) ([]*model.WalletTransaction, int64, error)
}

type walletStore struct {
	db *gorm.DB
}

func NewWalletStore(db *gorm.DB) WalletStore {
	return &walletStore{db: db}
}

func (s *walletStore) GetByTeamID(ctx context.Context, teamID string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := s.db.WithContext(ctx).Where("team_id = ?", teamID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("wallet not found for team %s", teamID)
		}
		return nil, err
	}
	return &wallet, nil
}

func (s *walletStore) GetOrCreate(ctx context.Context, teamID string, unit money.Unit) (*model.Wallet, error) {
	wallet, err := s.GetByTeamID(ctx, teamID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	newWallet := &model.Wallet{
		TeamID:  teamID,
		Balance: 0,
		Unit:    string(unit),
		Status:  model.WalletStatusActive,
	}

	// 并发创建时靠唯一索引兜底，冲突则放弃插入改为读取
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "team_id"}},
			DoNothing: true,
		}).
		Create(newWallet).Error
	if err != nil {
		return nil, err
	}

	return s.GetByTeamID(ctx, teamID)
}

func (s *walletStore) Apply(ctx context.Context, teamID string, version int, newBalance int64,
	entries []*model.WalletTransaction, events []*model.OutboxMessage) error {

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Wallet{}).
			Where("team_id = ? AND version = ?", teamID, version).
			Updates(map[string]interface{}{
				"balance": newBalance,
				"version": gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.ErrVersionConflict
		}

		for _, entry := range entries {
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		for _, event := range events {
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *walletStore) SaveAutoRefill(ctx context.Context, teamID string, policy model.AutoRefillPolicy) error {
	result := s.db.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("team_id = ?", teamID).
		Updates(map[string]interface{}{
			"auto_refill_enabled":           policy.Enabled,
			"auto_refill_threshold":         policy.Threshold,
			"auto_refill_amount":            policy.Amount,
			"auto_refill_payment_method_id": policy.PaymentMethodID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFoundf("wallet not found for team %s", teamID)
	}
	return nil
}

func (s *walletStore) ListTransactions(ctx context.Context, teamID string, page, pageSize int) ([]*model.WalletTransaction, int64, error) {
	var transactions []*model.WalletTransaction
	var total int64

	query := s.db.WithContext(ctx).Model(&model.WalletTransaction{}).Where("team_id = ?", teamID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}
