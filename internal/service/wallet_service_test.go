package service

import (
	"context"
	"sync"
	"testing"

	"controltower/internal/apperr"
	"controltower/internal/auth"
	"controltower/internal/infrastructure/lock"
	"controltower/internal/model"
	"controltower/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTeamID = "team-1"

var (
	superAdmin = &auth.Identity{UserID: "admin-1", Role: auth.RoleSuperAdmin}
	teamOwner  = &auth.Identity{UserID: "owner-1", Role: auth.RoleUser}
	outsider   = &auth.Identity{UserID: "other-1", Role: auth.RoleUser}
)

type walletFixture struct {
	svc     *WalletService
	store   *fakeWalletStore
	gateway *fakeGateway
	methods *fakePaymentMethodRepo
	mail    *fakeMailer
}

func newWalletFixture() *walletFixture {
	store := newFakeWalletStore()
	teams := newFakeTeamRepo(&model.Team{ID: testTeamID, Name: "Acme", OwnerID: "owner-1"})
	methods := newFakePaymentMethodRepo(&model.PaymentMethod{
		ID: "pm-1", TeamID: testTeamID, ProviderMethodID: "pm_prov_1",
	})
	gateway := &fakeGateway{}
	users := newFakeUserRepo(&model.User{ID: "owner-1", Email: "owner@example.com"})
	mail := &fakeMailer{}
	svc := NewWalletService(store, teams, users, methods, gateway, lock.NoopLocker{}, mail, "wallet-events")
	return &walletFixture{svc: svc, store: store, gateway: gateway, methods: methods, mail: mail}
}

func credits(t *testing.T, n int64) money.Money {
	t.Helper()
	m, err := money.New(n, money.UnitCredits)
	require.NoError(t, err)
	return m
}

// seedWallet 预置一个带余额的钱包
func (f *walletFixture) seedWallet(t *testing.T, balance int64) {
	t.Helper()
	_, err := f.store.GetOrCreate(context.Background(), testTeamID, money.UnitCredits)
	require.NoError(t, err)
	f.store.setBalance(testTeamID, balance)
}

func (f *walletFixture) seedPolicy(t *testing.T, policy model.AutoRefillPolicy) {
	t.Helper()
	require.NoError(t, f.store.SaveAutoRefill(context.Background(), testTeamID, policy))
}

// ----------------------------------------------------------------------------
// Grant
// ----------------------------------------------------------------------------

func TestGrantIsNotIdempotent(t *testing.T) {
	f := newWalletFixture()
	ctx := context.Background()

	_, err := f.svc.Grant(ctx, testTeamID, credits(t, 100), "launch bonus", superAdmin)
	require.NoError(t, err)
	wallet, err := f.svc.Grant(ctx, testTeamID, credits(t, 100), "launch bonus", superAdmin)
	require.NoError(t, err)

	// 同样的请求发两次就是两笔
	assert.Equal(t, int64(200), wallet.Balance)
	entries := f.store.entriesFor(testTeamID)
	require.Len(t, entries, 2)
	assert.Equal(t, model.TransactionKindGrant, entries[0].Kind)
	assert.Equal(t, int64(100), entries[0].BalanceAfter)
	assert.Equal(t, int64(200), entries[1].BalanceAfter)
}

func TestGrantRejectsNonPositiveAmount(t *testing.T) {
	f := newWalletFixture()

	_, err := f.svc.Grant(context.Background(), testTeamID, money.Money{Amount: 0, Unit: money.UnitCredits}, "", superAdmin)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGrantUnknownTeam(t *testing.T) {
	f := newWalletFixture()

	_, err := f.svc.Grant(context.Background(), "no-such-team", credits(t, 100), "", superAdmin)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// ----------------------------------------------------------------------------
// Purchase
// ----------------------------------------------------------------------------

func TestPurchaseChargesBeforeCredit(t *testing.T) {
	f := newWalletFixture()

	wallet, err := f.svc.Purchase(context.Background(), testTeamID, credits(t, 500), "pm-1", teamOwner)
	require.NoError(t, err)

	assert.Equal(t, int64(500), wallet.Balance)
	assert.Equal(t, 1, f.gateway.chargeCount())
	entries := f.store.entriesFor(testTeamID)
	require.Len(t, entries, 1)
	assert.Equal(t, model.TransactionKindPurchase, entries[0].Kind)
}

func TestPurchaseGatewayFailureLeavesNoCredit(t *testing.T) {
	f := newWalletFixture()
	f.methods.Create(context.Background(), &model.PaymentMethod{
		ID: "pm-bad", TeamID: testTeamID, ProviderMethodID: "pm_fail_prov",
	})

	_, err := f.svc.Purchase(context.Background(), testTeamID, credits(t, 500), "pm-bad", teamOwner)
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	// 扣款失败绝不能出现积分
	wallet, err := f.store.GetByTeamID(context.Background(), testTeamID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.Balance)
	assert.Empty(t, f.store.entriesFor(testTeamID))
}

func TestPurchaseRequiresOwner(t *testing.T) {
	f := newWalletFixture()

	_, err := f.svc.Purchase(context.Background(), testTeamID, credits(t, 500), "pm-1", outsider)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, 0, f.gateway.chargeCount())
}

func TestPurchaseRejectsForeignPaymentMethod(t *testing.T) {
	f := newWalletFixture()
	f.methods.Create(context.Background(), &model.PaymentMethod{
		ID: "pm-foreign", TeamID: "team-2", ProviderMethodID: "pm_prov_2",
	})

	_, err := f.svc.Purchase(context.Background(), testTeamID, credits(t, 500), "pm-foreign", teamOwner)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

// ----------------------------------------------------------------------------
// ReportRun
// ----------------------------------------------------------------------------

func TestReportRunConservation(t *testing.T) {
	f := newWalletFixture()
	ctx := context.Background()
	f.seedWallet(t, 1000)
	f.seedPolicy(t, model.AutoRefillPolicy{
		Enabled: true, Threshold: 100, Amount: 500, PaymentMethodID: "pm-1",
	})

	// 第一笔：余额够，普通扣费
	res, err := f.svc.ReportRun(ctx, testTeamID, credits(t, 300), "run-1", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, int64(700), res.NewBalance)
	assert.False(t, res.Refilled)

	// 第二笔：700 不够扣 900，充 500 后落账 300
	res, err = f.svc.ReportRun(ctx, testTeamID, credits(t, 900), "run-2", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), res.NewBalance)
	assert.True(t, res.Refilled)
	assert.Equal(t, int64(500), res.RefillAmount)
	assert.Equal(t, 1, f.gateway.chargeCount())

	// 流水：debit + (auto_refill, debit)，每条都有余额快照
	entries := f.store.entriesFor(testTeamID)
	require.Len(t, entries, 3)
	assert.Equal(t, model.TransactionKindDebit, entries[0].Kind)
	assert.Equal(t, int64(700), entries[0].BalanceAfter)
	assert.Equal(t, model.TransactionKindAutoRefill, entries[1].Kind)
	assert.Equal(t, int64(1200), entries[1].BalanceAfter)
	assert.Equal(t, model.TransactionKindDebit, entries[2].Kind)
	assert.Equal(t, int64(300), entries[2].BalanceAfter)
	assert.Equal(t, "run-2", entries[2].RunID)
}

func TestReportRunInsufficientFunds(t *testing.T) {
	f := newWalletFixture()
	f.seedWallet(t, 100)

	_, err := f.svc.ReportRun(context.Background(), testTeamID, credits(t, 900), "run-1", "agent-1")
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	// 失败不留任何痕迹
	wallet, _ := f.store.GetByTeamID(context.Background(), testTeamID)
	assert.Equal(t, int64(100), wallet.Balance)
	assert.Empty(t, f.store.entriesFor(testTeamID))
	assert.Equal(t, 0, f.gateway.chargeCount())
}

func TestReportRunStillShortAfterRefillFails(t *testing.T) {
	f := newWalletFixture()
	f.seedWallet(t, 100)
	f.seedPolicy(t, model.AutoRefillPolicy{
		Enabled: true, Threshold: 100, Amount: 500, PaymentMethodID: "pm-1",
	})

	_, err := f.svc.ReportRun(context.Background(), testTeamID, credits(t, 900), "run-1", "agent-1")
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	// 注定失败的扣费不许刷卡
	assert.Equal(t, 0, f.gateway.chargeCount())
	wallet, _ := f.store.GetByTeamID(context.Background(), testTeamID)
	assert.Equal(t, int64(100), wallet.Balance)
}

func TestReportRunBelowThresholdSignal(t *testing.T) {
	f := newWalletFixture()
	f.seedWallet(t, 150)
	f.seedPolicy(t, model.AutoRefillPolicy{
		Enabled: true, Threshold: 200, Amount: 500, PaymentMethodID: "pm-1",
	})

	res, err := f.svc.ReportRun(context.Background(), testTeamID, credits(t, 100), "run-1", "agent-1")
	require.NoError(t, err)

	assert.Equal(t, int64(50), res.NewBalance)
	assert.False(t, res.Refilled)
	assert.True(t, res.BelowThreshold)

	// 拥有者收到低余额提醒
	require.Len(t, f.mail.sent, 1)
	assert.True(t, f.mail.sentTo("owner@example.com"))
	assert.Contains(t, f.mail.sent[0].Subject, "running low")
}

func TestReportRunUnitMismatch(t *testing.T) {
	f := newWalletFixture()
	f.seedWallet(t, 1000)

	usd, err := money.New(100, money.UnitUSD)
	require.NoError(t, err)
	_, err = f.svc.ReportRun(context.Background(), testTeamID, usd, "run-1", "agent-1")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// TestConcurrentDebits 两笔并发 Debit(60) 打余额 100 的钱包：
// 条件写入保证恰好一笔成功，余额落在 40 而不是 -20
func TestConcurrentDebits(t *testing.T) {
	f := newWalletFixture()
	f.seedWallet(t, 100)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ReportRun(context.Background(), testTeamID, credits(t, 60), "run", "agent-1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 1, succeeded)

	wallet, _ := f.store.GetByTeamID(context.Background(), testTeamID)
	assert.Equal(t, int64(40), wallet.Balance)
	assert.Len(t, f.store.entriesFor(testTeamID), 1)
}

// ----------------------------------------------------------------------------
// ConfigureAutoRefill
// ----------------------------------------------------------------------------

func TestConfigureAutoRefill(t *testing.T) {
	f := newWalletFixture()
	ctx := context.Background()

	err := f.svc.ConfigureAutoRefill(ctx, testTeamID, model.AutoRefillPolicy{
		Enabled: true, Threshold: 200, Amount: 500, PaymentMethodID: "pm-1",
	}, teamOwner)
	require.NoError(t, err)

	policy, err := f.svc.GetAutoRefill(ctx, testTeamID, teamOwner)
	require.NoError(t, err)
	assert.True(t, policy.Enabled)
	assert.Equal(t, int64(200), policy.Threshold)
	assert.Equal(t, int64(500), policy.Amount)
}

func TestConfigureAutoRefillValidation(t *testing.T) {
	f := newWalletFixture()
	ctx := context.Background()

	cases := []model.AutoRefillPolicy{
		{Enabled: true, Threshold: 0, Amount: 500, PaymentMethodID: "pm-1"},
		{Enabled: true, Threshold: 200, Amount: 0, PaymentMethodID: "pm-1"},
		{Enabled: true, Threshold: 200, Amount: 500, PaymentMethodID: ""},
	}
	for _, policy := range cases {
		err := f.svc.ConfigureAutoRefill(ctx, testTeamID, policy, teamOwner)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}

	// 关闭时不校验细节
	err := f.svc.ConfigureAutoRefill(ctx, testTeamID, model.AutoRefillPolicy{}, teamOwner)
	assert.NoError(t, err)
}

func TestConfigureAutoRefillRequiresOwner(t *testing.T) {
	f := newWalletFixture()

	err := f.svc.ConfigureAutoRefill(context.Background(), testTeamID, model.AutoRefillPolicy{
		Enabled: true, Threshold: 200, Amount: 500, PaymentMethodID: "pm-1",
	}, outsider)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestGetAutoRefillRequiresOwner(t *testing.T) {
	f := newWalletFixture()
	ctx := context.Background()

	_, err := f.svc.GetAutoRefill(ctx, testTeamID, outsider)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// 未知团队走 404，而不是悄悄建出一个钱包
	_, err = f.svc.GetAutoRefill(ctx, "team-ghost", superAdmin)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.store.GetByTeamID(ctx, "team-ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	policy, err := f.svc.GetAutoRefill(ctx, testTeamID, superAdmin)
	require.NoError(t, err)
	assert.False(t, policy.Enabled)
}
