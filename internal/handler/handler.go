package handler

import (
	"time"

	"controltower/internal/auth"
	"controltower/internal/config"
	"controltower/internal/infrastructure/lock"
	"controltower/internal/mailer"
	"controltower/internal/payment"
	"controltower/internal/repository"
	"controltower/internal/service"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	walletService   *service.WalletService
	teamService     *service.TeamService
	userService     *service.UserService
	inviteService   *service.InviteService
	agentService    *service.AgentService
	billingService  *service.BillingService
	referralService *service.ReferralService
	webhookService  *service.WebhookService
	uploadService   *service.UploadService
}

// NewHandler 创建处理器实例，在这里完成依赖装配
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	users := repository.NewUserRepository(db)
	teams := repository.NewTeamRepository(db)
	agents := repository.NewAgentRepository(db)
	invites := repository.NewInviteRepository(db)
	contracts := repository.NewContractRepository(db)
	subscriptions := repository.NewSubscriptionRepository(db)
	methods := repository.NewPaymentMethodRepository(db)
	payments := repository.NewPaymentRepository(db)
	invoices := repository.NewInvoiceRepository(db)
	referrals := repository.NewReferralRepository(db)
	whiteLabel := repository.NewWhiteLabelRepository(db)
	walletStore := repository.NewWalletStore(db)
	outbox := repository.NewOutboxRepository(db)

	var locker lock.Locker = lock.NoopLocker{}
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb)
	}
	gateway := payment.NewSimulatedGateway()
	mail := mailer.NewMailer(cfg.SMTP)

	walletService := service.NewWalletService(walletStore, teams, users, methods, gateway, locker, mail, cfg.Kafka.Topic.WalletEvents)

	return &Handler{
		walletService: walletService,
		teamService:   service.NewTeamService(teams, users, whiteLabel),
		userService:   service.NewUserService(users),
		inviteService: service.NewInviteService(invites, teams, users, mail,
			time.Duration(cfg.Business.InviteTTLHours)*time.Hour),
		agentService:    service.NewAgentService(agents, teams),
		billingService:  service.NewBillingService(contracts, subscriptions, methods, teams, gateway),
		referralService: service.NewReferralService(referrals, teams, walletService),
		webhookService: service.NewWebhookService(cfg.Payment.WebhookSecret,
			payments, invoices, subscriptions, teams, users, mail, outbox, cfg.Kafka.Topic.BillingEvents),
		uploadService: service.NewUploadService(cfg.Upload.Dir, cfg.Upload.MaxSizeMB),
	}
}

// NewAuthenticator 组装请求认证器
func NewAuthenticator(db *gorm.DB, cfg *config.Config) *auth.Authenticator {
	return auth.NewAuthenticator(
		cfg.Auth.APIKey,
		auth.NewJWTVerifier(cfg.Auth.JWTSecret),
		repository.NewUserRepository(db),
	)
}
