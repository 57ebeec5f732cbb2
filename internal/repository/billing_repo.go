package repository

import (
	"context"
	"errors"

	"controltower/internal/apperr"
	"controltower/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContractRepository interface {
	Create(ctx context.Context, contract *model.Contract) error
	GetByID(ctx context.Context, id string) (*model.Contract, error)
	Update(ctx context.Context, contract *model.Contract) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, teamID string, page, pageSize int) ([]*model.Contract, int64, error)
}

type contractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, contract *model.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *contractRepository) GetByID(ctx context.Context, id string) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("contract not found")
		}
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) Update(ctx context.Context, contract *model.Contract) error {
	return r.db.WithContext(ctx).Save(contract).Error
}

func (r *contractRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Contract{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFoundf("contract not found")
	}
	return nil
}

func (r *contractRepository) List(ctx context.Context, teamID string, page, pageSize int) ([]*model.Contract, int64, error) {
	var contracts []*model.Contract
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Contract{})
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
		Find(&contracts).Error

	return contracts, total, err
}

type SubscriptionRepository interface {
	// UpsertByProviderID 以渠道订阅 ID 为幂等键更新或插入
	UpsertByProviderID(ctx context.Context, sub *model.Subscription) error
	List(ctx context.Context, teamID string, page, pageSize int) ([]*model.Subscription, int64, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) UpsertByProviderID(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_subscription_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "current_period_end", "updated_at"}),
		}).
		Create(sub).Error
}

func (r *subscriptionRepository) List(ctx context.Context, teamID string, page, pageSize int) ([]*model.Subscription, int64, error) {
	var subs []*model.Subscription
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Subscription{})
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
		Find(&subs).Error

	return subs, total, err
}

type PaymentMethodRepository interface {
	Create(ctx context.Context, method *model.PaymentMethod) error
	GetByID(ctx context.Context, id string) (*model.PaymentMethod, error)
	ListByTeam(ctx context.Context, teamID string) ([]*model.PaymentMethod, error)
}

type paymentMethodRepository struct {
	db *gorm.DB
}

func NewPaymentMethodRepository(db *gorm.DB) PaymentMethodRepository {
	return &paymentMethodRepository{db: db}
}

func (r *paymentMethodRepository) Create(ctx context.Context, method *model.PaymentMethod) error {
	return r.db.WithContext(ctx).Create(method).Error
}

func (r *paymentMethodRepository) GetByID(ctx context.Context, id string) (*model.PaymentMethod, error) {
	var method model.PaymentMethod
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("payment method not found")
		}
		return nil, err
	}
	return &method, nil
}

func (r *paymentMethodRepository) ListByTeam(ctx context.Context, teamID string) ([]*model.PaymentMethod, error) {
	var methods []*model.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Find(&methods).Error
	return methods, err
}

type PaymentRepository interface {
	// CreateIfAbsent 以渠道事件 ID 幂等插入，重复事件静默跳过
	CreateIfAbsent(ctx context.Context, payment *model.Payment) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreateIfAbsent(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(payment).Error
}

type InvoiceRepository interface {
	UpsertByProviderID(ctx context.Context, invoice *model.Invoice) error
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) UpsertByProviderID(ctx context.Context, invoice *model.Invoice) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_invoice_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount_due_minor", "status", "updated_at"}),
		}).
		Create(invoice).Error
}
