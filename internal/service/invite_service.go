package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"controltower/internal/apperr"
	"controltower/internal/auth"
	"controltower/internal/mailer"
	"controltower/internal/model"
	"controltower/internal/repository"

	"github.com/google/uuid"
)

// InviteService 团队邀请
//
// 邀请 ID 即接受凭证，接受接口不要求认证。
// 过期判定以读取时刻为准，后台过期任务只是兜底清理。
type InviteService struct {
	invites repository.InviteRepository
	teams   repository.TeamRepository
	users   repository.UserRepository
	mail    mailer.Mailer
	ttl     time.Duration
	now     func() time.Time // 测试注入
}

func NewInviteService(
	invites repository.InviteRepository,
	teams repository.TeamRepository,
	users repository.UserRepository,
	mail mailer.Mailer,
	ttl time.Duration,
) *InviteService {
	return &InviteService{
		invites: invites,
		teams:   teams,
		users:   users,
		mail:    mail,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create 发起邀请并发送邀请邮件
func (s *InviteService) Create(ctx context.Context, teamID, email, role string, actor *auth.Identity) (*model.Invite, error) {
	if email == "" {
		return nil, apperr.Validationf("email is required")
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, apperr.Validationf("invalid invite role: %s", role)
	}
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	invite := &model.Invite{
		ID:        uuid.NewString(),
		TeamID:    teamID,
		Email:     email,
		Role:      role,
		Status:    model.InviteStatusPending,
		InvitedBy: actorLabel(actor),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, err
	}

	// 邮件失败不回滚邀请，收件人可以让发起人重发
	acceptURL := fmt.Sprintf("/api/v1/invites/%s/accept", invite.ID)
	inviterEmail := "the team admin"
	if actor != nil && actor.Email != "" {
		inviterEmail = actor.Email
	}
	if err := s.mail.Send(mailer.InviteEmail(email, team.Name, inviterEmail, acceptURL)); err != nil {
		log.Printf("[InviteService] 邀请邮件发送失败 invite=%s email=%s err=%v", invite.ID, email, err)
	}

	return invite, nil
}

// List 查询团队的邀请列表
func (s *InviteService) List(ctx context.Context, teamID string, page, pageSize int) ([]*model.Invite, int64, error) {
	return s.invites.ListByTeam(ctx, teamID, page, pageSize)
}

// Cancel 取消待处理的邀请
func (s *InviteService) Cancel(ctx context.Context, inviteID string) error {
	if _, err := s.invites.GetByID(ctx, inviteID); err != nil {
		return err
	}
	err := s.invites.UpdateStatus(ctx, inviteID, model.InviteStatusPending, model.InviteStatusCancelled)
	if err != nil {
		return apperr.Validationf("only pending invites can be cancelled")
	}
	return nil
}

// Accept 接受邀请
//
// 流程：读时过期判定 -> 状态机校验 -> 条件流转 pending->accepted
// -> 关联（或占位创建）用户 -> 加入团队。
// 条件流转保证同一邀请被并发接受时只有一个请求成功。
func (s *InviteService) Accept(ctx context.Context, inviteID string) (*model.TeamMember, error) {
	invite, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return nil, err
	}

	if invite.Status == model.InviteStatusPending && invite.IsExpired(s.now()) {
		// 顺手把状态落库，失败也不影响本次判定
		if err := s.invites.UpdateStatus(ctx, inviteID, model.InviteStatusPending, model.InviteStatusExpired); err != nil {
			log.Printf("[InviteService] 过期状态落库失败 invite=%s err=%v", inviteID, err)
		}
		return nil, apperr.Validationf("Invite has expired")
	}

	switch invite.Status {
	case model.InviteStatusPending:
		// 继续
	case model.InviteStatusExpired:
		return nil, apperr.Validationf("Invite has expired")
	case model.InviteStatusAccepted:
		return nil, apperr.Validationf("Invite has already been accepted")
	case model.InviteStatusCancelled:
		return nil, apperr.Validationf("Invite has been cancelled")
	default:
		return nil, apperr.Conflictf("invite is in unknown status %s", invite.Status)
	}

	user, err := s.users.GetByEmail(ctx, invite.Email)
	if apperr.IsNotFound(err) {
		// 受邀邮箱还没注册：先建占位身份，首次登录时绑定认证主体
		user = &model.User{
			ID:     uuid.NewString(),
			Email:  invite.Email,
			Role:   model.RoleUser,
			Status: model.UserStatusPending,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err := s.invites.UpdateStatus(ctx, inviteID, model.InviteStatusPending, model.InviteStatusAccepted); err != nil {
		return nil, apperr.Validationf("Invite has already been accepted")
	}

	member := &model.TeamMember{
		TeamID: invite.TeamID,
		UserID: user.ID,
		Role:   invite.Role,
	}
	if err := s.teams.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}
