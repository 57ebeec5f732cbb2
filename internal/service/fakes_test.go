package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"controltower/internal/apperr"
	"controltower/internal/mailer"
	"controltower/internal/model"
	"controltower/internal/payment"
	"controltower/pkg/idgen"
	"controltower/pkg/money"
)

// ============================================================================
// service 层单测用的内存版依赖。
// fakeWalletStore 的 Apply 和真实现一样做版本比对，
// 并发扣费的回归测试靠它复现数据库的 CAS 语义。
// ============================================================================

type fakeWalletStore struct {
	mu      sync.Mutex
	wallets map[string]*model.Wallet
	entries []*model.WalletTransaction
	events  []*model.OutboxMessage
}

func newFakeWalletStore() *fakeWalletStore {
	return &fakeWalletStore{wallets: make(map[string]*model.Wallet)}
}

func (s *fakeWalletStore) GetOrCreate(_ context.Context, teamID string, unit money.Unit) (*model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[teamID]
	if !ok {
		w = &model.Wallet{
			ID:      int64(len(s.wallets) + 1),
			TeamID:  teamID,
			Unit:    string(unit),
			Status:  model.WalletStatusActive,
			Version: 0,
		}
		s.wallets[teamID] = w
	}
	snapshot := *w
	return &snapshot, nil
}

func (s *fakeWalletStore) GetByTeamID(_ context.Context, teamID string) (*model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[teamID]
	if !ok {
		return nil, apperr.NotFoundf("wallet not found for team %s", teamID)
	}
	snapshot := *w
	return &snapshot, nil
}

func (s *fakeWalletStore) Apply(_ context.Context, teamID string, version int, newBalance int64,
	entries []*model.WalletTransaction, events []*model.OutboxMessage) error {

	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[teamID]
	if !ok || w.Version != version {
		return apperr.ErrVersionConflict
	}
	w.Balance = newBalance
	w.Version++
	s.entries = append(s.entries, entries...)
	s.events = append(s.events, events...)
	return nil
}

func (s *fakeWalletStore) SaveAutoRefill(_ context.Context, teamID string, policy model.AutoRefillPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[teamID]
	if !ok {
		return apperr.NotFoundf("wallet not found for team %s", teamID)
	}
	w.AutoRefillEnabled = policy.Enabled
	w.AutoRefillThreshold = policy.Threshold
	w.AutoRefillAmount = policy.Amount
	w.AutoRefillPaymentMethodID = policy.PaymentMethodID
	return nil
}

func (s *fakeWalletStore) ListTransactions(_ context.Context, teamID string, page, pageSize int) ([]*model.WalletTransaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.WalletTransaction
	for _, e := range s.entries {
		if e.TeamID == teamID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

// setBalance 测试预置余额
func (s *fakeWalletStore) setBalance(teamID string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[teamID].Balance = balance
}

func (s *fakeWalletStore) entriesFor(teamID string) []*model.WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.WalletTransaction
	for _, e := range s.entries {
		if e.TeamID == teamID {
			out = append(out, e)
		}
	}
	return out
}

// ----------------------------------------------------------------------------

type fakeTeamRepo struct {
	mu      sync.Mutex
	teams   map[string]*model.Team
	members []*model.TeamMember
}

func newFakeTeamRepo(teams ...*model.Team) *fakeTeamRepo {
	r := &fakeTeamRepo{teams: make(map[string]*model.Team)}
	for _, t := range teams {
		r.teams[t.ID] = t
	}
	return r
}

func (r *fakeTeamRepo) Create(_ context.Context, team *model.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id string) (*model.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, apperr.NotFoundf("team %s not found", id)
	}
	return t, nil
}

func (r *fakeTeamRepo) Update(_ context.Context, team *model.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.teams, id)
	return nil
}

func (r *fakeTeamRepo) List(_ context.Context, page, pageSize int) ([]*model.Team, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Team
	for _, t := range r.teams {
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (r *fakeTeamRepo) AddMember(_ context.Context, member *model.TeamMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.TeamID == member.TeamID && m.UserID == member.UserID {
			return apperr.Conflictf("user is already a member of this team")
		}
	}
	r.members = append(r.members, member)
	return nil
}

func (r *fakeTeamRepo) ListMembers(_ context.Context, teamID string) ([]*model.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.TeamMember
	for _, m := range r.members {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) GetMember(_ context.Context, teamID, userID string) (*model.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.TeamID == teamID && m.UserID == userID {
			return m, nil
		}
	}
	return nil, apperr.NotFoundf("member not found")
}

// ----------------------------------------------------------------------------

type fakePaymentMethodRepo struct {
	mu      sync.Mutex
	methods map[string]*model.PaymentMethod
}

func newFakePaymentMethodRepo(methods ...*model.PaymentMethod) *fakePaymentMethodRepo {
	r := &fakePaymentMethodRepo{methods: make(map[string]*model.PaymentMethod)}
	for _, m := range methods {
		r.methods[m.ID] = m
	}
	return r
}

func (r *fakePaymentMethodRepo) Create(_ context.Context, method *model.PaymentMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[method.ID] = method
	return nil
}

func (r *fakePaymentMethodRepo) GetByID(_ context.Context, id string) (*model.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.methods[id]
	if !ok {
		return nil, apperr.NotFoundf("payment method %s not found", id)
	}
	return m, nil
}

func (r *fakePaymentMethodRepo) ListByTeam(_ context.Context, teamID string) ([]*model.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentMethod
	for _, m := range r.methods {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	return out, nil
}

// ----------------------------------------------------------------------------

// fakeGateway 记录每次渠道调用；pm 带 "pm_fail" 前缀时模拟渠道拒绝
type fakeGateway struct {
	mu      sync.Mutex
	charges []payment.ChargeRequest
}

func (g *fakeGateway) Charge(_ context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if strings.HasPrefix(req.PaymentMethodID, "pm_fail") {
		return nil, apperr.Upstreamf("payment provider declined the charge")
	}
	g.charges = append(g.charges, req)
	return &payment.ChargeResult{ProviderChargeID: idgen.GenerateChargeNo(), Status: "succeeded"}, nil
}

func (g *fakeGateway) AttachPaymentMethod(_ context.Context, teamID, token string) (*payment.CardMeta, error) {
	if strings.HasPrefix(token, "tok_fail") {
		return nil, apperr.Upstreamf("payment provider rejected the card")
	}
	return &payment.CardMeta{
		ProviderMethodID: "pm_" + token,
		Brand:            "visa",
		Last4:            "4242",
		ExpMonth:         12,
		ExpYear:          2030,
	}, nil
}

func (g *fakeGateway) chargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.charges)
}

// ----------------------------------------------------------------------------

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // by id
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperr.Conflictf("user with email %s already exists", user.Email)
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFoundf("user %s not found", id)
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NotFoundf("user with email %s not found", email)
}

func (r *fakeUserRepo) GetByAuthSubject(_ context.Context, subject string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.AuthSubject == subject {
			return u, nil
		}
	}
	return nil, apperr.NotFoundf("user not found")
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, page, pageSize int) ([]*model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

// ----------------------------------------------------------------------------

type fakeInviteRepo struct {
	mu      sync.Mutex
	invites map[string]*model.Invite
}

func newFakeInviteRepo(invites ...*model.Invite) *fakeInviteRepo {
	r := &fakeInviteRepo{invites: make(map[string]*model.Invite)}
	for _, i := range invites {
		r.invites[i.ID] = i
	}
	return r
}

func (r *fakeInviteRepo) Create(_ context.Context, invite *model.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invites[invite.ID] = invite
	return nil
}

func (r *fakeInviteRepo) GetByID(_ context.Context, id string) (*model.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.invites[id]
	if !ok {
		return nil, apperr.NotFoundf("invite %s not found", id)
	}
	snapshot := *i
	return &snapshot, nil
}

func (r *fakeInviteRepo) ListByTeam(_ context.Context, teamID string, page, pageSize int) ([]*model.Invite, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Invite
	for _, i := range r.invites {
		if i.TeamID == teamID {
			out = append(out, i)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeInviteRepo) UpdateStatus(_ context.Context, id string, fromStatus, toStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.invites[id]
	if !ok || i.Status != fromStatus {
		return apperr.Conflictf("invite is not %s", fromStatus)
	}
	i.Status = toStatus
	if toStatus == model.InviteStatusAccepted {
		now := time.Now()
		i.AcceptedAt = &now
	}
	return nil
}

func (r *fakeInviteRepo) ExpireStale(_ context.Context, now time.Time, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, i := range r.invites {
		if i.Status == model.InviteStatusPending && now.After(i.ExpiresAt) {
			i.Status = model.InviteStatusExpired
			n++
		}
	}
	return n, nil
}

// ----------------------------------------------------------------------------

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*model.Payment // provider_event_id 为键
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]*model.Payment)}
}

func (r *fakePaymentRepo) CreateIfAbsent(_ context.Context, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ProviderEventID]; ok {
		return nil // 幂等跳过
	}
	r.payments[p.ProviderEventID] = p
	return nil
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*model.Invoice // provider_invoice_id 为键
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[string]*model.Invoice)}
}

func (r *fakeInvoiceRepo) UpsertByProviderID(_ context.Context, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[inv.ProviderInvoiceID] = inv
	return nil
}

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription // provider_subscription_id 为键
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[string]*model.Subscription)}
}

func (r *fakeSubscriptionRepo) UpsertByProviderID(_ context.Context, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.subs[sub.ProviderSubscriptionID]; ok {
		existing.Plan = sub.Plan
		existing.Status = sub.Status
		existing.CurrentPeriodEnd = sub.CurrentPeriodEnd
		return nil
	}
	r.subs[sub.ProviderSubscriptionID] = sub
	return nil
}

func (r *fakeSubscriptionRepo) List(_ context.Context, teamID string, page, pageSize int) ([]*model.Subscription, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.subs {
		if s.TeamID == teamID {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

// ----------------------------------------------------------------------------

// fakeMailer 收集发出的邮件
type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *fakeMailer) Send(msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) sentTo(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.sent {
		if msg.To == addr {
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------------------

type fakeReferralRepo struct {
	mu        sync.Mutex
	referrals map[string]*model.Referral
}

func newFakeReferralRepo() *fakeReferralRepo {
	return &fakeReferralRepo{referrals: make(map[string]*model.Referral)}
}

func (r *fakeReferralRepo) Create(_ context.Context, referral *model.Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.referrals[referral.ID] = referral
	return nil
}

func (r *fakeReferralRepo) GetByID(_ context.Context, id string) (*model.Referral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.referrals[id]
	if !ok {
		return nil, apperr.NotFoundf("referral %s not found", id)
	}
	snapshot := *ref
	return &snapshot, nil
}

func (r *fakeReferralRepo) GetByCode(_ context.Context, code string) (*model.Referral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range r.referrals {
		if ref.Code == code {
			snapshot := *ref
			return &snapshot, nil
		}
	}
	return nil, apperr.NotFoundf("referral code %s not found", code)
}

func (r *fakeReferralRepo) List(_ context.Context, teamID string, page, pageSize int) ([]*model.Referral, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Referral
	for _, ref := range r.referrals {
		if ref.TeamID == teamID {
			out = append(out, ref)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeReferralRepo) MarkConverted(_ context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.referrals[id]
	if !ok {
		return false, apperr.NotFoundf("referral %s not found", id)
	}
	if ref.Status != model.ReferralStatusPending {
		return false, nil
	}
	ref.Status = model.ReferralStatusConverted
	ref.ConvertedAt = &now
	return true, nil
}

// ----------------------------------------------------------------------------

type fakeOutboxRepo struct {
	mu       sync.Mutex
	messages []*model.OutboxMessage
}

func (r *fakeOutboxRepo) Create(_ context.Context, msg *model.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = int64(len(r.messages) + 1)
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeOutboxRepo) GetPendingMessages(_ context.Context, limit int) ([]*model.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.OutboxMessage
	for _, m := range r.messages {
		if m.Status == model.OutboxStatusPending {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeOutboxRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m.Status = status
			return nil
		}
	}
	return fmt.Errorf("outbox message %d not found", id)
}

func (r *fakeOutboxRepo) IncrementRetryCount(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m.RetryCount++
			return nil
		}
	}
	return fmt.Errorf("outbox message %d not found", id)
}

func (r *fakeOutboxRepo) MarkAsFailed(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m.Status = model.OutboxStatusFailed
			return nil
		}
	}
	return fmt.Errorf("outbox message %d not found", id)
}
