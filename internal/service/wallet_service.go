package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"controltower/internal/apperr"
	"controltower/internal/auth"
	"controltower/internal/infrastructure/lock"
	"controltower/internal/mailer"
	"controltower/internal/model"
	"controltower/internal/payment"
	"controltower/internal/repository"
	"controltower/pkg/idgen"
	"controltower/pkg/money"
)

// CAS 写入冲突时的最大重试次数。
// 同团队写入已被分布式锁串行化，这里只兜没加锁的路径（grant）
const maxApplyRetries = 3

// DebitResult Agent 运行扣费的结果
type DebitResult struct {
	TxnNo          string `json:"txnNo"`
	NewBalance     int64  `json:"newBalance"`
	Refilled       bool   `json:"refilled"`
	RefillAmount   int64  `json:"refillAmount,omitempty"`
	BelowThreshold bool   `json:"belowThreshold"`
}

// WalletService 钱包服务
//
// 【核心约束】资金事件只有三个入口：Grant / Purchase / ReportRun。
// 三者最终都走 store.Apply 做条件写入（CAS），余额永不为负。
// 涉及外部扣款的路径（Purchase / 自动充值）额外按团队加分布式锁，
// 防止并发请求把同一张卡刷两次。
type WalletService struct {
	store       repository.WalletStore
	teams       repository.TeamRepository
	users       repository.UserRepository
	methods     repository.PaymentMethodRepository
	gateway     payment.Gateway
	locker      lock.Locker
	mail        mailer.Mailer
	eventsTopic string
}

func NewWalletService(
	store repository.WalletStore,
	teams repository.TeamRepository,
	users repository.UserRepository,
	methods repository.PaymentMethodRepository,
	gateway payment.Gateway,
	locker lock.Locker,
	mail mailer.Mailer,
	eventsTopic string,
) *WalletService {
	return &WalletService{
		store:       store,
		teams:       teams,
		users:       users,
		methods:     methods,
		gateway:     gateway,
		mail:        mail,
		locker:      locker,
		eventsTopic: eventsTopic,
	}
}

// GetWallet 查询钱包（不存在则惰性创建）
func (s *WalletService) GetWallet(ctx context.Context, teamID string) (*model.Wallet, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	return s.store.GetOrCreate(ctx, teamID, money.UnitCredits)
}

// ListTransactions 查询钱包流水
func (s *WalletService) ListTransactions(ctx context.Context, teamID string, page, pageSize int) ([]*model.WalletTransaction, int64, error) {
	return s.store.ListTransactions(ctx, teamID, page, pageSize)
}

// Grant 管理员发放积分
//
// 不做幂等：同一请求发两次就是发两笔，审计靠流水
func (s *WalletService) Grant(ctx context.Context, teamID string, amount money.Money, reason string, actor *auth.Identity) (*model.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validationf("grant amount must be positive")
	}
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxApplyRetries; attempt++ {
		wallet, err := s.store.GetOrCreate(ctx, teamID, amount.Unit)
		if err != nil {
			return nil, err
		}
		if err := checkWritable(wallet, amount.Unit); err != nil {
			return nil, err
		}

		newBalance := wallet.Balance + amount.Amount
		entry := &model.WalletTransaction{
			TxnNo:        idgen.GenerateTransactionNo(),
			TeamID:       teamID,
			Kind:         model.TransactionKindGrant,
			Amount:       amount.Amount,
			Unit:         string(amount.Unit),
			BalanceAfter: newBalance,
			Description:  reason,
			Actor:        actorLabel(actor),
		}
		event := s.walletEvent("wallet.granted", teamID, amount.Amount, newBalance, entry.TxnNo, "")

		err = s.store.Apply(ctx, teamID, wallet.Version, newBalance,
			[]*model.WalletTransaction{entry}, []*model.OutboxMessage{event})
		if errors.Is(err, apperr.ErrVersionConflict) {
			continue // 版本过期，重读重试
		}
		if err != nil {
			return nil, err
		}
		return s.store.GetByTeamID(ctx, teamID)
	}
	return nil, apperr.ErrVersionConflict
}

// Purchase 购买积分包
//
// 先渠道扣款后入账：扣款失败绝不能出现积分；
// 入账失败但扣款成功的窗口由锁 + 重试压到最小
func (s *WalletService) Purchase(ctx context.Context, teamID string, amount money.Money, paymentMethodID string, actor *auth.Identity) (*model.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validationf("purchase amount must be positive")
	}
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := requireTeamOwner(team, actor); err != nil {
		return nil, err
	}

	method, err := s.methods.GetByID(ctx, paymentMethodID)
	if err != nil {
		return nil, err
	}
	if method.TeamID != teamID {
		return nil, apperr.Forbiddenf("payment method does not belong to this team")
	}

	unlock, err := s.locker.Lock(ctx, lock.WalletKey(teamID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	wallet, err := s.store.GetOrCreate(ctx, teamID, amount.Unit)
	if err != nil {
		return nil, err
	}
	if err := checkWritable(wallet, amount.Unit); err != nil {
		return nil, err
	}

	charge, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		TeamID:          teamID,
		Amount:          amount,
		PaymentMethodID: method.ProviderMethodID,
		Description:     "credit pack purchase",
	})
	if err != nil {
		return nil, err
	}

	newBalance := wallet.Balance + amount.Amount
	entry := &model.WalletTransaction{
		TxnNo:        idgen.GenerateTransactionNo(),
		TeamID:       teamID,
		Kind:         model.TransactionKindPurchase,
		Amount:       amount.Amount,
		Unit:         string(amount.Unit),
		BalanceAfter: newBalance,
		Description:  "credit pack purchase (charge " + charge.ProviderChargeID + ")",
		Actor:        actorLabel(actor),
	}
	event := s.walletEvent("wallet.purchased", teamID, amount.Amount, newBalance, entry.TxnNo, "")

	err = s.store.Apply(ctx, teamID, wallet.Version, newBalance,
		[]*model.WalletTransaction{entry}, []*model.OutboxMessage{event})
	if err != nil {
		// 持锁期间没有并发写，版本冲突说明有人绕过锁直接动账
		log.Printf("[WalletService] 购买入账失败 team=%s charge=%s err=%v", teamID, charge.ProviderChargeID, err)
		return nil, err
	}
	return s.store.GetByTeamID(ctx, teamID)
}

// ReportRun Agent 运行扣费
//
// 扣费主流程：
//  1. 读余额，用 DecideRefill 决策本次是否需要自动充值
//  2. 需要充值 -> 先调渠道扣款（只扣一次，重试不重复扣）
//  3. 充值 + 扣费作为一次 CAS 写入原子落账（两条流水）
//
// 余额不足且无法充值时直接失败，不留任何痕迹。
func (s *WalletService) ReportRun(ctx context.Context, teamID string, cost money.Money, runID, agentID string) (*DebitResult, error) {
	if !cost.IsPositive() {
		return nil, apperr.Validationf("run cost must be positive")
	}

	unlock, err := s.locker.Lock(ctx, lock.WalletKey(teamID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 渠道扣款是外部副作用，CAS 重试回不去。
	// 标记位保证重试路径不会再扣一次卡，已扣的钱照常入账。
	refillCharged := false
	var chargedAmount int64

	for attempt := 0; attempt < maxApplyRetries; attempt++ {
		wallet, err := s.store.GetOrCreate(ctx, teamID, cost.Unit)
		if err != nil {
			return nil, err
		}
		if err := checkWritable(wallet, cost.Unit); err != nil {
			return nil, err
		}

		decision := DecideRefill(wallet.Balance, cost.Amount, wallet.AutoRefill())
		if refillCharged {
			// 卡已经刷了，无论当前余额如何都要把充值入账
			decision = RefillDecision{
				Refill:        true,
				RefillAmount:  chargedAmount,
				ResultBalance: wallet.Balance + chargedAmount - cost.Amount,
			}
		}
		if decision.Insufficient {
			return nil, apperr.InsufficientFundsf(
				"insufficient balance: have %d, need %d", wallet.Balance, cost.Amount)
		}

		if decision.Refill && !refillCharged {
			method, err := s.methods.GetByID(ctx, wallet.AutoRefillPaymentMethodID)
			if err != nil {
				return nil, err
			}
			refillMoney, err := money.New(decision.RefillAmount, cost.Unit)
			if err != nil {
				return nil, err
			}
			_, err = s.gateway.Charge(ctx, payment.ChargeRequest{
				TeamID:          teamID,
				Amount:          refillMoney,
				PaymentMethodID: method.ProviderMethodID,
				Description:     "auto refill",
			})
			if err != nil {
				return nil, err
			}
			refillCharged = true
			chargedAmount = decision.RefillAmount
		}

		var entries []*model.WalletTransaction
		var events []*model.OutboxMessage

		if decision.Refill {
			refillEntry := &model.WalletTransaction{
				TxnNo:        idgen.GenerateTransactionNo(),
				TeamID:       teamID,
				Kind:         model.TransactionKindAutoRefill,
				Amount:       decision.RefillAmount,
				Unit:         string(cost.Unit),
				BalanceAfter: wallet.Balance + decision.RefillAmount,
				Description:  "auto refill triggered by run " + runID,
			}
			entries = append(entries, refillEntry)
			events = append(events, s.walletEvent("wallet.auto_refilled", teamID,
				decision.RefillAmount, refillEntry.BalanceAfter, refillEntry.TxnNo, runID))
		}

		debitEntry := &model.WalletTransaction{
			TxnNo:        idgen.GenerateTransactionNo(),
			TeamID:       teamID,
			Kind:         model.TransactionKindDebit,
			Amount:       -cost.Amount,
			Unit:         string(cost.Unit),
			BalanceAfter: decision.ResultBalance,
			RunID:        runID,
			AgentID:      agentID,
		}
		entries = append(entries, debitEntry)
		events = append(events, s.walletEvent("wallet.debited", teamID,
			-cost.Amount, decision.ResultBalance, debitEntry.TxnNo, runID))

		err = s.store.Apply(ctx, teamID, wallet.Version, decision.ResultBalance, entries, events)
		if errors.Is(err, apperr.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if decision.BelowThreshold {
			s.notifyLowBalance(ctx, teamID, decision.ResultBalance)
		}

		return &DebitResult{
			TxnNo:          debitEntry.TxnNo,
			NewBalance:     decision.ResultBalance,
			Refilled:       decision.Refill,
			RefillAmount:   decision.RefillAmount,
			BelowThreshold: decision.BelowThreshold,
		}, nil
	}
	return nil, apperr.ErrVersionConflict
}

// GrantReferralReward 推荐转化奖励入账（referral 服务调用）
func (s *WalletService) GrantReferralReward(ctx context.Context, teamID string, amount money.Money, referralID string) error {
	for attempt := 0; attempt < maxApplyRetries; attempt++ {
		wallet, err := s.store.GetOrCreate(ctx, teamID, amount.Unit)
		if err != nil {
			return err
		}
		if err := checkWritable(wallet, amount.Unit); err != nil {
			return err
		}

		newBalance := wallet.Balance + amount.Amount
		entry := &model.WalletTransaction{
			TxnNo:        idgen.GenerateTransactionNo(),
			TeamID:       teamID,
			Kind:         model.TransactionKindGrant,
			Amount:       amount.Amount,
			Unit:         string(amount.Unit),
			BalanceAfter: newBalance,
			Description:  "referral reward (" + referralID + ")",
			Actor:        "system",
		}
		event := s.walletEvent("wallet.granted", teamID, amount.Amount, newBalance, entry.TxnNo, "")

		err = s.store.Apply(ctx, teamID, wallet.Version, newBalance,
			[]*model.WalletTransaction{entry}, []*model.OutboxMessage{event})
		if errors.Is(err, apperr.ErrVersionConflict) {
			continue
		}
		return err
	}
	return apperr.ErrVersionConflict
}

// GetAutoRefill 查询自动充值策略，仅团队 owner/super_admin 可见
// （策略里带支付方式 ID，不能对普通成员暴露）
func (s *WalletService) GetAutoRefill(ctx context.Context, teamID string, actor *auth.Identity) (*model.AutoRefillPolicy, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := requireTeamOwner(team, actor); err != nil {
		return nil, err
	}
	wallet, err := s.store.GetOrCreate(ctx, teamID, money.UnitCredits)
	if err != nil {
		return nil, err
	}
	policy := wallet.AutoRefill()
	return &policy, nil
}

// ConfigureAutoRefill 配置自动充值策略
func (s *WalletService) ConfigureAutoRefill(ctx context.Context, teamID string, policy model.AutoRefillPolicy, actor *auth.Identity) error {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if err := requireTeamOwner(team, actor); err != nil {
		return err
	}

	if policy.Enabled {
		if policy.Threshold <= 0 {
			return apperr.Validationf("threshold must be positive")
		}
		if policy.Amount <= 0 {
			return apperr.Validationf("refill amount must be positive")
		}
		if policy.PaymentMethodID == "" {
			return apperr.Validationf("payment method is required when auto refill is enabled")
		}
		method, err := s.methods.GetByID(ctx, policy.PaymentMethodID)
		if err != nil {
			return err
		}
		if method.TeamID != teamID {
			return apperr.Forbiddenf("payment method does not belong to this team")
		}
	}

	if _, err := s.store.GetOrCreate(ctx, teamID, money.UnitCredits); err != nil {
		return err
	}
	return s.store.SaveAutoRefill(ctx, teamID, policy)
}

// notifyLowBalance 余额跌破阈值时提醒团队拥有者，失败只记日志
func (s *WalletService) notifyLowBalance(ctx context.Context, teamID string, balance int64) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		log.Printf("[WalletService] 低余额提醒失败，团队不存在 team=%s err=%v", teamID, err)
		return
	}
	owner, err := s.users.GetByID(ctx, team.OwnerID)
	if err != nil {
		log.Printf("[WalletService] 低余额提醒失败，拥有者不存在 team=%s owner=%s err=%v", teamID, team.OwnerID, err)
		return
	}
	if err := s.mail.Send(mailer.LowBalanceEmail(owner.Email, balance)); err != nil {
		log.Printf("[WalletService] 低余额提醒发送失败 team=%s err=%v", teamID, err)
	}
}

// checkWritable 钱包必须 active 且单位一致才允许动账
func checkWritable(wallet *model.Wallet, unit money.Unit) error {
	if wallet.Status != model.WalletStatusActive {
		return apperr.Conflictf("wallet is %s", wallet.Status)
	}
	if wallet.Unit != string(unit) {
		return apperr.Validationf("unit mismatch: wallet is %s, got %s", wallet.Unit, unit)
	}
	return nil
}

// requireTeamOwner 团队拥有者或超管才能操作
func requireTeamOwner(team *model.Team, actor *auth.Identity) error {
	if actor == nil {
		return apperr.Unauthorizedf("authentication required")
	}
	if actor.System || actor.IsSuperAdmin() {
		return nil
	}
	if team.OwnerID == actor.UserID {
		return nil
	}
	return apperr.Forbiddenf("only the team owner can perform this operation")
}

func actorLabel(actor *auth.Identity) string {
	if actor == nil {
		return ""
	}
	if actor.System {
		return "system"
	}
	return actor.UserID
}

// walletEvent 构造出站事件，与业务写入同事务落库
func (s *WalletService) walletEvent(eventType, teamID string, amount, balance int64, txnNo, runID string) *model.OutboxMessage {
	payload, _ := json.Marshal(map[string]interface{}{
		"event":     eventType,
		"teamId":    teamID,
		"amount":    amount,
		"balance":   balance,
		"txnNo":     txnNo,
		"runId":     runID,
		"timestamp": time.Now().UnixMilli(),
	})
	return &model.OutboxMessage{
		MessageKey: idgen.GenerateEventKey(),
		Topic:      s.eventsTopic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
}
