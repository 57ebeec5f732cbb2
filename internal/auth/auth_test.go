package auth

import (
	"context"
	"testing"
	"time"

	"controltower/internal/apperr"
	"controltower/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	bySubject map[string]*model.User
	byEmail   map[string]*model.User
	updated   []*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{
		bySubject: make(map[string]*model.User),
		byEmail:   make(map[string]*model.User),
	}
	for _, u := range users {
		if u.AuthSubject != "" {
			r.bySubject[u.AuthSubject] = u
		}
		r.byEmail[u.Email] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperr.NotFoundf("user not found")
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, apperr.NotFoundf("user not found")
}

func (r *fakeUserRepo) GetByAuthSubject(ctx context.Context, subject string) (*model.User, error) {
	if u, ok := r.bySubject[subject]; ok {
		return u, nil
	}
	return nil, apperr.NotFoundf("user not found")
}

func (r *fakeUserRepo) Update(ctx context.Context, u *model.User) error {
	r.updated = append(r.updated, u)
	if u.AuthSubject != "" {
		r.bySubject[u.AuthSubject] = u
	}
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, page, pageSize int) ([]*model.User, int64, error) {
	return nil, 0, nil
}

func TestSatisfiesRoleMatrix(t *testing.T) {
	system := &Identity{UserID: "system", Role: RoleSuperAdmin, System: true}
	superAdmin := &Identity{UserID: "u1", Role: RoleSuperAdmin}
	admin := &Identity{UserID: "u2", Role: RoleAdmin}
	user := &Identity{UserID: "u3", Role: RoleUser}

	cases := []struct {
		identity *Identity
		required string
		want     bool
	}{
		{system, RoleInternal, true},
		{system, RoleSuperAdmin, true},
		{system, RoleAdmin, true},
		{superAdmin, RoleInternal, false}, // internal 只认机器身份
		{superAdmin, RoleSuperAdmin, true},
		{superAdmin, RoleAdmin, true},
		{admin, RoleSuperAdmin, false},
		{admin, RoleAdmin, true},
		{admin, RoleInternal, false},
		{user, RoleAdmin, false},
		{user, RoleSuperAdmin, false},
		{user, RoleInternal, false},
		{user, RoleUser, true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.identity.Satisfies(tc.required),
			"role=%s required=%s", tc.identity.Role, tc.required)
	}
}

func TestAuthenticateAPIKey(t *testing.T) {
	a := NewAuthenticator("secret-key", NewJWTVerifier("jwtsecret"), newFakeUserRepo())

	identity, err := a.Authenticate(context.Background(), "secret-key", "")
	require.NoError(t, err)
	assert.True(t, identity.System)
	assert.Equal(t, RoleSuperAdmin, identity.Role)
	assert.Equal(t, "system", identity.UserID)

	_, err = a.Authenticate(context.Background(), "wrong-key", "")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestAuthenticateEmptyAPIKeyConfigRejectsKeyPath(t *testing.T) {
	// 服务端没配密钥时，任何 X-API-Key 都不能通过
	a := NewAuthenticator("", NewJWTVerifier("jwtsecret"), newFakeUserRepo())
	_, err := a.Authenticate(context.Background(), "", "")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestAuthenticateBearerToken(t *testing.T) {
	verifier := NewJWTVerifier("jwtsecret")
	users := newFakeUserRepo(&model.User{
		ID:          "u1",
		Email:       "admin@example.com",
		Role:        model.RoleAdmin,
		Status:      model.UserStatusActive,
		AuthSubject: "sub-1",
	})
	a := NewAuthenticator("key", verifier, users)

	token, err := verifier.IssueForTest("sub-1", "admin@example.com", time.Minute)
	require.NoError(t, err)

	identity, err := a.Authenticate(context.Background(), "", "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, RoleAdmin, identity.Role)
	assert.False(t, identity.System)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	verifier := NewJWTVerifier("jwtsecret")
	a := NewAuthenticator("key", verifier, newFakeUserRepo())

	// 过期超出 30s 容差
	token, err := verifier.IssueForTest("sub-1", "x@example.com", -2*time.Minute)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), "", "Bearer "+token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	verifier := NewJWTVerifier("jwtsecret")
	a := NewAuthenticator("key", verifier, newFakeUserRepo())

	token, err := verifier.IssueForTest("sub-ghost", "ghost@example.com", time.Minute)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), "", "Bearer "+token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestPendingUserPromotedOnFirstLogin(t *testing.T) {
	verifier := NewJWTVerifier("jwtsecret")
	pending := &model.User{
		ID:     "u9",
		Email:  "invitee@example.com",
		Role:   model.RoleUser,
		Status: model.UserStatusPending,
	}
	users := newFakeUserRepo(pending)
	a := NewAuthenticator("key", verifier, users)

	token, err := verifier.IssueForTest("sub-new", "invitee@example.com", time.Minute)
	require.NoError(t, err)

	identity, err := a.Authenticate(context.Background(), "", "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "u9", identity.UserID)

	require.Len(t, users.updated, 1)
	assert.Equal(t, model.UserStatusActive, users.updated[0].Status)
	assert.Equal(t, "sub-new", users.updated[0].AuthSubject)

	// 再次认证直接按 subject 命中
	identity2, err := a.Authenticate(context.Background(), "", "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "u9", identity2.UserID)
	assert.Len(t, users.updated, 1)
}

func TestBadSigningMethodRejected(t *testing.T) {
	verifier := NewJWTVerifier("jwtsecret")
	other := NewJWTVerifier("other-secret")

	token, err := other.IssueForTest("sub-1", "x@example.com", time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.Error(t, err)
}
