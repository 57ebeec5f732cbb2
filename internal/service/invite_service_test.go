package service

import (
	"context"
	"testing"
	"time"

	"controltower/internal/apperr"
	"controltower/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inviteFixture struct {
	svc     *InviteService
	invites *fakeInviteRepo
	teams   *fakeTeamRepo
	users   *fakeUserRepo
	mail    *fakeMailer
	clock   time.Time
}

func newInviteFixture() *inviteFixture {
	f := &inviteFixture{
		invites: newFakeInviteRepo(),
		teams:   newFakeTeamRepo(&model.Team{ID: testTeamID, Name: "Acme", OwnerID: "owner-1"}),
		users:   newFakeUserRepo(),
		mail:    &fakeMailer{},
		clock:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewInviteService(f.invites, f.teams, f.users, f.mail, 7*24*time.Hour)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func TestCreateInviteSendsEmail(t *testing.T) {
	f := newInviteFixture()

	invite, err := f.svc.Create(context.Background(), testTeamID, "new@example.com", model.RoleUser, teamOwner)
	require.NoError(t, err)

	assert.Equal(t, model.InviteStatusPending, invite.Status)
	assert.Equal(t, f.clock.Add(7*24*time.Hour), invite.ExpiresAt)
	assert.True(t, f.mail.sentTo("new@example.com"))
}

func TestCreateInviteValidation(t *testing.T) {
	f := newInviteFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, testTeamID, "", model.RoleUser, teamOwner)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(ctx, testTeamID, "a@b.com", model.RoleSuperAdmin, teamOwner)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(ctx, "no-such-team", "a@b.com", model.RoleUser, teamOwner)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAcceptInviteCreatesPendingUser(t *testing.T) {
	f := newInviteFixture()
	ctx := context.Background()

	invite, err := f.svc.Create(ctx, testTeamID, "new@example.com", model.RoleAdmin, teamOwner)
	require.NoError(t, err)

	member, err := f.svc.Accept(ctx, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, testTeamID, member.TeamID)
	assert.Equal(t, model.RoleAdmin, member.Role)

	// 受邀邮箱没注册过：生成占位身份，等首次登录时绑定
	user, err := f.users.GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusPending, user.Status)

	stored, _ := f.invites.GetByID(ctx, invite.ID)
	assert.Equal(t, model.InviteStatusAccepted, stored.Status)
}

func TestAcceptInviteExistingUser(t *testing.T) {
	f := newInviteFixture()
	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, &model.User{
		ID: "user-9", Email: "known@example.com", Status: model.UserStatusActive,
	}))

	invite, err := f.svc.Create(ctx, testTeamID, "known@example.com", model.RoleUser, teamOwner)
	require.NoError(t, err)

	member, err := f.svc.Accept(ctx, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-9", member.UserID)
}

func TestAcceptExpiredInvite(t *testing.T) {
	f := newInviteFixture()
	ctx := context.Background()

	invite, err := f.svc.Create(ctx, testTeamID, "late@example.com", model.RoleUser, teamOwner)
	require.NoError(t, err)

	// 过期后才来接受：读时判定，无须等后台任务
	f.clock = f.clock.Add(8 * 24 * time.Hour)

	_, err = f.svc.Accept(ctx, invite.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.EqualError(t, err, "Invite has expired")

	// 状态也被顺手落库
	stored, _ := f.invites.GetByID(ctx, invite.ID)
	assert.Equal(t, model.InviteStatusExpired, stored.Status)
}

func TestAcceptTwice(t *testing.T) {
	f := newInviteFixture()
	ctx := context.Background()

	invite, err := f.svc.Create(ctx, testTeamID, "dup@example.com", model.RoleUser, teamOwner)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, invite.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, invite.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.EqualError(t, err, "Invite has already been accepted")
}

func TestAcceptCancelledInvite(t *testing.T) {
	f := newInviteFixture()
	ctx := context.Background()

	invite, err := f.svc.Create(ctx, testTeamID, "gone@example.com", model.RoleUser, teamOwner)
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, invite.ID))

	_, err = f.svc.Accept(ctx, invite.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.EqualError(t, err, "Invite has been cancelled")
}

func TestAcceptUnknownInvite(t *testing.T) {
	f := newInviteFixture()

	_, err := f.svc.Accept(context.Background(), "no-such-invite")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelNonPending(t *testing.T) {
	f := newInviteFixture()
	ctx := context.Background()

	invite, err := f.svc.Create(ctx, testTeamID, "x@example.com", model.RoleUser, teamOwner)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, invite.ID)
	require.NoError(t, err)

	err = f.svc.Cancel(ctx, invite.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
