package service

import (
	"context"
	"strings"

	"controltower/internal/apperr"
	"controltower/internal/model"
	"controltower/internal/repository"

	"github.com/google/uuid"
)

// UserService 平台用户管理（管理端）
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// CreateUserInput 新建用户参数
type CreateUserInput struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validationf("invalid email address")
	}
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleAdmin && role != model.RoleSuperAdmin {
		return nil, apperr.Validationf("invalid role: %s", role)
	}

	user := &model.User{
		ID:     uuid.NewString(),
		Email:  email,
		Name:   in.Name,
		Role:   role,
		Status: model.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, page, pageSize int) ([]*model.User, int64, error) {
	return s.users.List(ctx, page, pageSize)
}

// UpdateUserInput nil 字段不改
type UpdateUserInput struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Role != nil {
		switch *in.Role {
		case model.RoleUser, model.RoleAdmin, model.RoleSuperAdmin:
			user.Role = *in.Role
		default:
			return nil, apperr.Validationf("invalid role: %s", *in.Role)
		}
	}
	if in.Status != nil {
		if *in.Status != model.UserStatusActive && *in.Status != model.UserStatusPending {
			return nil, apperr.Validationf("invalid status: %s", *in.Status)
		}
		user.Status = *in.Status
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
