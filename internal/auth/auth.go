package auth

import (
	"context"
	"errors"
	"strings"

	"controltower/internal/apperr"
	"controltower/internal/model"
	"controltower/internal/repository"
)

// 鉴权需要的角色。internal 只给机器身份（静态 API Key），
// 任何人类角色都不满足它。
const (
	RoleUser       = model.RoleUser
	RoleAdmin      = model.RoleAdmin
	RoleSuperAdmin = model.RoleSuperAdmin
	RoleInternal   = "internal"
)

// Identity 一次请求的调用方身份
type Identity struct {
	UserID string
	Email  string
	Role   string
	System bool // 静态 API Key 命中时为 true
}

// IsSuperAdmin 是否具备超管权限
func (i *Identity) IsSuperAdmin() bool {
	return i.Role == RoleSuperAdmin
}

// Satisfies 两级角色检查
//
//	internal    -> 仅 system 身份
//	super_admin -> super_admin
//	admin       -> admin / super_admin
//	user        -> 任意已认证身份
func (i *Identity) Satisfies(required string) bool {
	switch required {
	case RoleInternal:
		return i.System
	case RoleSuperAdmin:
		return i.Role == RoleSuperAdmin
	case RoleAdmin:
		return i.Role == RoleAdmin || i.Role == RoleSuperAdmin
	case RoleUser:
		return true
	default:
		return false
	}
}

// TokenClaims 身份提供方令牌里我们关心的字段
type TokenClaims struct {
	Subject string
	Email   string
}

// TokenVerifier 校验外部身份提供方签发的令牌
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*TokenClaims, error)
}

// Authenticator 请求认证器
//
// 两条认证路径：
//  1. X-API-Key 与服务端密钥比对，命中得到 system 身份（super_admin）
//  2. Bearer 令牌经身份提供方验签，再按 subject 关联本地用户记录
type Authenticator struct {
	apiKey   string
	verifier TokenVerifier
	users    repository.UserRepository
}

func NewAuthenticator(apiKey string, verifier TokenVerifier, users repository.UserRepository) *Authenticator {
	return &Authenticator{
		apiKey:   apiKey,
		verifier: verifier,
		users:    users,
	}
}

// Authenticate 认证一次请求
// apiKeyHeader 取自 X-API-Key，authzHeader 取自 Authorization
func (a *Authenticator) Authenticate(ctx context.Context, apiKeyHeader, authzHeader string) (*Identity, error) {
	if apiKeyHeader != "" {
		if a.apiKey == "" || apiKeyHeader != a.apiKey {
			return nil, apperr.Unauthorizedf("invalid api key")
		}
		return &Identity{UserID: "system", Role: RoleSuperAdmin, System: true}, nil
	}

	token, ok := strings.CutPrefix(authzHeader, "Bearer ")
	if !ok || token == "" {
		return nil, apperr.Unauthorizedf("missing credentials")
	}

	claims, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return nil, apperr.Unauthorizedf("invalid token")
	}

	user, err := a.lookupUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	return &Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}

// lookupUser 按 subject 查本地用户；查不到时尝试 pending 身份晋升：
// 邀请接受流程会为未注册邮箱创建 pending 用户，首次验证通过的令牌
// 在这里绑定 subject 并转正
func (a *Authenticator) lookupUser(ctx context.Context, claims *TokenClaims) (*model.User, error) {
	user, err := a.users.GetByAuthSubject(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	if claims.Email == "" {
		return nil, apperr.Unauthorizedf("no user record for this identity")
	}

	pending, err := a.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorizedf("no user record for this identity")
		}
		return nil, err
	}
	if pending.Status != model.UserStatusPending {
		// 已注册用户换了身份提供方账号之类的场景不在这里处理
		return nil, apperr.Unauthorizedf("no user record for this identity")
	}

	pending.AuthSubject = claims.Subject
	pending.Status = model.UserStatusActive
	if err := a.users.Update(ctx, pending); err != nil {
		return nil, err
	}
	return pending, nil
}
