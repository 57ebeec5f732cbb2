package service

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"controltower/internal/apperr"
	"controltower/internal/mailer"
	"controltower/internal/model"
	"controltower/internal/payment"
	"controltower/internal/repository"
	"controltower/pkg/idgen"

	"github.com/google/uuid"
)

// webhookEvent 支付渠道回调的事件结构
type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		TeamID           string `json:"teamId"`
		PaymentID        string `json:"paymentId"`
		InvoiceID        string `json:"invoiceId"`
		SubscriptionID   string `json:"subscriptionId"`
		Plan             string `json:"plan"`
		Status           string `json:"status"`
		Amount           int64  `json:"amount"`
		Unit             string `json:"unit"`
		CurrentPeriodEnd int64  `json:"currentPeriodEnd"` // unix 秒
	} `json:"data"`
}

// WebhookService 支付回调处理
//
// 【安全约定】回调不过认证中间件，合法性完全靠签名：
// HMAC 验不过一律 401，不暴露失败原因细节。
//
// 【幂等约定】渠道会重放事件。payment 以 provider_event_id 唯一索引
// 幂等插入，invoice / subscription 以渠道 ID upsert，重放无害。
type WebhookService struct {
	secret        []byte
	tolerance     time.Duration
	payments      repository.PaymentRepository
	invoices      repository.InvoiceRepository
	subscriptions repository.SubscriptionRepository
	teams         repository.TeamRepository
	users         repository.UserRepository
	mail          mailer.Mailer
	outbox        repository.OutboxRepository
	eventsTopic   string
	now           func() time.Time
}

func NewWebhookService(
	secret string,
	payments repository.PaymentRepository,
	invoices repository.InvoiceRepository,
	subscriptions repository.SubscriptionRepository,
	teams repository.TeamRepository,
	users repository.UserRepository,
	mail mailer.Mailer,
	outbox repository.OutboxRepository,
	eventsTopic string,
) *WebhookService {
	return &WebhookService{
		secret:        []byte(secret),
		tolerance:     payment.DefaultTolerance,
		payments:      payments,
		invoices:      invoices,
		subscriptions: subscriptions,
		teams:         teams,
		users:         users,
		mail:          mail,
		outbox:        outbox,
		eventsTopic:   eventsTopic,
		now:           time.Now,
	}
}

// HandleEvent 验签并分发一条回调事件
func (s *WebhookService) HandleEvent(ctx context.Context, body []byte, signatureHeader string) error {
	if err := payment.VerifySignature(s.secret, signatureHeader, body, s.tolerance, s.now()); err != nil {
		return apperr.Unauthorizedf("invalid webhook signature")
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return apperr.Validationf("malformed webhook payload")
	}
	if ev.ID == "" || ev.Type == "" {
		return apperr.Validationf("webhook event must carry id and type")
	}

	switch ev.Type {
	case "payment.succeeded":
		return s.handlePaymentSucceeded(ctx, &ev)
	case "payment.failed":
		return s.handlePaymentFailed(ctx, &ev)
	case "subscription.updated":
		return s.upsertSubscription(ctx, &ev, ev.Data.Status)
	case "subscription.deleted":
		return s.upsertSubscription(ctx, &ev, "cancelled")
	default:
		// 没见过的事件类型照单全收，渠道加新类型不该打挂我们
		log.Printf("[WebhookService] 忽略未知事件类型 type=%s id=%s", ev.Type, ev.ID)
		return nil
	}
}

func (s *WebhookService) handlePaymentSucceeded(ctx context.Context, ev *webhookEvent) error {
	err := s.payments.CreateIfAbsent(ctx, &model.Payment{
		TeamID:            ev.Data.TeamID,
		ProviderEventID:   ev.ID,
		ProviderPaymentID: ev.Data.PaymentID,
		AmountMinor:       ev.Data.Amount,
		Unit:              ev.Data.Unit,
		Status:            "succeeded",
	})
	if err != nil {
		return err
	}

	s.notifyOwner(ctx, ev.Data.TeamID, func(email string) mailer.Message {
		return mailer.PaymentSucceededEmail(email, amountDesc(ev.Data.Amount, ev.Data.Unit))
	})
	return s.emitBillingEvent(ctx, ev)
}

func (s *WebhookService) handlePaymentFailed(ctx context.Context, ev *webhookEvent) error {
	err := s.invoices.UpsertByProviderID(ctx, &model.Invoice{
		TeamID:            ev.Data.TeamID,
		ProviderInvoiceID: ev.Data.InvoiceID,
		AmountDueMinor:    ev.Data.Amount,
		Unit:              ev.Data.Unit,
		Status:            "payment_failed",
	})
	if err != nil {
		return err
	}

	s.notifyOwner(ctx, ev.Data.TeamID, func(email string) mailer.Message {
		return mailer.PaymentFailedEmail(email, amountDesc(ev.Data.Amount, ev.Data.Unit))
	})
	return s.emitBillingEvent(ctx, ev)
}

func (s *WebhookService) upsertSubscription(ctx context.Context, ev *webhookEvent, status string) error {
	if ev.Data.SubscriptionID == "" {
		return apperr.Validationf("subscription event must carry subscriptionId")
	}
	sub := &model.Subscription{
		ID:                     uuid.NewString(),
		TeamID:                 ev.Data.TeamID,
		ProviderSubscriptionID: ev.Data.SubscriptionID,
		Plan:                   ev.Data.Plan,
		Status:                 status,
	}
	if ev.Data.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = time.Unix(ev.Data.CurrentPeriodEnd, 0)
	}
	if err := s.subscriptions.UpsertByProviderID(ctx, sub); err != nil {
		return err
	}
	return s.emitBillingEvent(ctx, ev)
}

// notifyOwner 给团队拥有者发通知邮件，失败只记日志
func (s *WebhookService) notifyOwner(ctx context.Context, teamID string, build func(email string) mailer.Message) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		log.Printf("[WebhookService] 通知失败，团队不存在 team=%s err=%v", teamID, err)
		return
	}
	owner, err := s.users.GetByID(ctx, team.OwnerID)
	if err != nil {
		log.Printf("[WebhookService] 通知失败，拥有者不存在 team=%s owner=%s err=%v", teamID, team.OwnerID, err)
		return
	}
	if err := s.mail.Send(build(owner.Email)); err != nil {
		log.Printf("[WebhookService] 通知邮件发送失败 team=%s err=%v", teamID, err)
	}
}

// emitBillingEvent 回调事件转发到消息总线（经出站表）
func (s *WebhookService) emitBillingEvent(ctx context.Context, ev *webhookEvent) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"event":     "billing." + ev.Type,
		"eventId":   ev.ID,
		"teamId":    ev.Data.TeamID,
		"timestamp": s.now().UnixMilli(),
	})
	return s.outbox.Create(ctx, &model.OutboxMessage{
		MessageKey: idgen.GenerateEventKey(),
		Topic:      s.eventsTopic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	})
}

func amountDesc(amount int64, unit string) string {
	if unit == "" {
		unit = "credits"
	}
	return strconv.FormatInt(amount, 10) + " " + unit
}
