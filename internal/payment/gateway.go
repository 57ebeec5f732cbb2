package payment

import (
	"context"
	"strings"

	"controltower/internal/apperr"
	"controltower/pkg/idgen"
	"controltower/pkg/money"
)

// ChargeRequest 对支付渠道发起的一次扣款
type ChargeRequest struct {
	TeamID          string
	Amount          money.Money
	PaymentMethodID string // 渠道侧的支付方式 ID
	Description     string
}

// ChargeResult 扣款结果
type ChargeResult struct {
	ProviderChargeID string
	Status           string
}

// CardMeta 渠道返回的卡面信息（冗余落库用）
type CardMeta struct {
	ProviderMethodID string
	Brand            string
	Last4            string
	ExpMonth         int
	ExpYear          int
}

// Gateway 支付渠道抽象
// 渠道调用与钱包写入解耦：扣款成功之后才允许动账
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	AttachPaymentMethod(ctx context.Context, teamID, token string) (*CardMeta, error)
}

// SimulatedGateway 模拟渠道实现
//
// 没接真实渠道之前的占位实现：扣款总是成功并返回一个本地生成的
// 扣款单号。token 以 "tok_fail" 开头时模拟渠道拒绝，联调用。
type SimulatedGateway struct{}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{}
}

func (g *SimulatedGateway) Charge(_ context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.PaymentMethodID == "" {
		return nil, apperr.Validationf("payment method is required")
	}
	if !req.Amount.IsPositive() {
		return nil, apperr.Validationf("charge amount must be positive")
	}
	if strings.HasPrefix(req.PaymentMethodID, "pm_fail") {
		return nil, apperr.Upstreamf("payment provider declined the charge")
	}

	return &ChargeResult{
		ProviderChargeID: idgen.GenerateChargeNo(),
		Status:           "succeeded",
	}, nil
}

func (g *SimulatedGateway) AttachPaymentMethod(_ context.Context, teamID, token string) (*CardMeta, error) {
	if token == "" {
		return nil, apperr.Validationf("card token is required")
	}
	if strings.HasPrefix(token, "tok_fail") {
		return nil, apperr.Upstreamf("payment provider rejected the card")
	}

	// 模拟渠道：token 末尾 4 位当作卡号末四位
	last4 := "4242"
	if len(token) >= 4 {
		last4 = token[len(token)-4:]
	}

	return &CardMeta{
		ProviderMethodID: "pm_" + token,
		Brand:            "visa",
		Last4:            last4,
		ExpMonth:         12,
		ExpYear:          2030,
	}, nil
}
