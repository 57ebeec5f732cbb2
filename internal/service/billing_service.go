package service

import (
	"context"
	"time"

	"controltower/internal/apperr"
	"controltower/internal/model"
	"controltower/internal/payment"
	"controltower/internal/repository"
	"controltower/pkg/money"

	"github.com/google/uuid"
)

// BillingService 合同、订阅与支付方式
//
// 订阅记录由支付回调维护，这里只读；
// 支付方式先在渠道侧完成绑定，再冗余卡面信息落库。
type BillingService struct {
	contracts     repository.ContractRepository
	subscriptions repository.SubscriptionRepository
	methods       repository.PaymentMethodRepository
	teams         repository.TeamRepository
	gateway       payment.Gateway
}

func NewBillingService(
	contracts repository.ContractRepository,
	subscriptions repository.SubscriptionRepository,
	methods repository.PaymentMethodRepository,
	teams repository.TeamRepository,
	gateway payment.Gateway,
) *BillingService {
	return &BillingService{
		contracts:     contracts,
		subscriptions: subscriptions,
		methods:       methods,
		teams:         teams,
		gateway:       gateway,
	}
}

// ----------------------------------------------------------------------------
// 合同
// ----------------------------------------------------------------------------

// CreateContractInput 新建合同参数
type CreateContractInput struct {
	TeamID       string     `json:"teamId" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	AmountMinor  int64      `json:"amountMinor" binding:"required"`
	Unit         string     `json:"unit"`
	BillingCycle string     `json:"billingCycle" binding:"required"`
	StartsAt     time.Time  `json:"startsAt"`
	EndsAt       *time.Time `json:"endsAt"`
}

func (s *BillingService) CreateContract(ctx context.Context, in CreateContractInput) (*model.Contract, error) {
	if _, err := s.teams.GetByID(ctx, in.TeamID); err != nil {
		return nil, err
	}
	if in.AmountMinor <= 0 {
		return nil, apperr.Validationf("contract amount must be positive")
	}
	if in.BillingCycle != model.BillingCycleMonthly && in.BillingCycle != model.BillingCycleAnnual {
		return nil, apperr.Validationf("invalid billing cycle: %s", in.BillingCycle)
	}
	unit := in.Unit
	if unit == "" {
		unit = string(money.UnitUSD)
	}
	if _, err := money.New(in.AmountMinor, money.Unit(unit)); err != nil {
		return nil, apperr.Validationf("invalid unit: %s", unit)
	}
	startsAt := in.StartsAt
	if startsAt.IsZero() {
		startsAt = time.Now()
	}

	contract := &model.Contract{
		ID:           uuid.NewString(),
		TeamID:       in.TeamID,
		Name:         in.Name,
		AmountMinor:  in.AmountMinor,
		Unit:         unit,
		BillingCycle: in.BillingCycle,
		Status:       model.ContractStatusDraft,
		StartsAt:     startsAt,
		EndsAt:       in.EndsAt,
	}
	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *BillingService) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	return s.contracts.GetByID(ctx, id)
}

func (s *BillingService) ListContracts(ctx context.Context, teamID string, page, pageSize int) ([]*model.Contract, int64, error) {
	return s.contracts.List(ctx, teamID, page, pageSize)
}

// UpdateContractInput nil 字段不改
type UpdateContractInput struct {
	Name   *string    `json:"name"`
	Status *string    `json:"status"`
	EndsAt *time.Time `json:"endsAt"`
}

func (s *BillingService) UpdateContract(ctx context.Context, id string, in UpdateContractInput) (*model.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		contract.Name = *in.Name
	}
	if in.Status != nil {
		switch *in.Status {
		case model.ContractStatusDraft, model.ContractStatusActive, model.ContractStatusCancelled:
			contract.Status = *in.Status
		default:
			return nil, apperr.Validationf("invalid contract status: %s", *in.Status)
		}
	}
	if in.EndsAt != nil {
		contract.EndsAt = in.EndsAt
	}
	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *BillingService) DeleteContract(ctx context.Context, id string) error {
	if _, err := s.contracts.GetByID(ctx, id); err != nil {
		return err
	}
	return s.contracts.Delete(ctx, id)
}

// ----------------------------------------------------------------------------
// 订阅（回调维护，只读）
// ----------------------------------------------------------------------------

func (s *BillingService) ListSubscriptions(ctx context.Context, teamID string, page, pageSize int) ([]*model.Subscription, int64, error) {
	return s.subscriptions.List(ctx, teamID, page, pageSize)
}

// ----------------------------------------------------------------------------
// 支付方式
// ----------------------------------------------------------------------------

// AttachPaymentMethod 绑卡：渠道侧换 token 成支付方式，卡面信息冗余落库
func (s *BillingService) AttachPaymentMethod(ctx context.Context, teamID, token string) (*model.PaymentMethod, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	meta, err := s.gateway.AttachPaymentMethod(ctx, teamID, token)
	if err != nil {
		return nil, err
	}

	existing, err := s.methods.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	method := &model.PaymentMethod{
		ID:               uuid.NewString(),
		TeamID:           teamID,
		ProviderMethodID: meta.ProviderMethodID,
		Brand:            meta.Brand,
		Last4:            meta.Last4,
		ExpMonth:         meta.ExpMonth,
		ExpYear:          meta.ExpYear,
		IsDefault:        len(existing) == 0, // 第一张卡默认
	}
	if err := s.methods.Create(ctx, method); err != nil {
		return nil, err
	}
	return method, nil
}

func (s *BillingService) ListPaymentMethods(ctx context.Context, teamID string) ([]*model.PaymentMethod, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	return s.methods.ListByTeam(ctx, teamID)
}
