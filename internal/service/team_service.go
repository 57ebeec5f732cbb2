package service

import (
	"context"

	"controltower/internal/apperr"
	"controltower/internal/model"
	"controltower/internal/repository"

	"github.com/google/uuid"
)

// TeamService 团队与成员管理，顺带团队维度的白标配置
type TeamService struct {
	teams      repository.TeamRepository
	users      repository.UserRepository
	whiteLabel repository.WhiteLabelRepository
}

func NewTeamService(
	teams repository.TeamRepository,
	users repository.UserRepository,
	whiteLabel repository.WhiteLabelRepository,
) *TeamService {
	return &TeamService{teams: teams, users: users, whiteLabel: whiteLabel}
}

// CreateTeamInput 建团参数
type CreateTeamInput struct {
	Name    string `json:"name" binding:"required"`
	OwnerID string `json:"ownerId" binding:"required"`
	Plan    string `json:"plan"`
}

func (s *TeamService) Create(ctx context.Context, in CreateTeamInput) (*model.Team, error) {
	owner, err := s.users.GetByID(ctx, in.OwnerID)
	if err != nil {
		return nil, err
	}

	plan := in.Plan
	if plan == "" {
		plan = "free"
	}
	team := &model.Team{
		ID:      uuid.NewString(),
		Name:    in.Name,
		OwnerID: owner.ID,
		Plan:    plan,
		Status:  model.TeamStatusActive,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, err
	}

	// 拥有者自动成为 admin 成员
	member := &model.TeamMember{TeamID: team.ID, UserID: owner.ID, Role: model.RoleAdmin}
	if err := s.teams.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *TeamService) Get(ctx context.Context, id string) (*model.Team, error) {
	return s.teams.GetByID(ctx, id)
}

func (s *TeamService) List(ctx context.Context, page, pageSize int) ([]*model.Team, int64, error) {
	return s.teams.List(ctx, page, pageSize)
}

// UpdateTeamInput 所有字段可选，nil 表示不改
type UpdateTeamInput struct {
	Name   *string `json:"name"`
	Plan   *string `json:"plan"`
	Status *string `json:"status"`
}

func (s *TeamService) Update(ctx context.Context, id string, in UpdateTeamInput) (*model.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validationf("team name cannot be empty")
		}
		team.Name = *in.Name
	}
	if in.Plan != nil {
		team.Plan = *in.Plan
	}
	if in.Status != nil {
		if *in.Status != model.TeamStatusActive && *in.Status != model.TeamStatusSuspended {
			return nil, apperr.Validationf("invalid team status: %s", *in.Status)
		}
		team.Status = *in.Status
	}
	if err := s.teams.Update(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *TeamService) Delete(ctx context.Context, id string) error {
	if _, err := s.teams.GetByID(ctx, id); err != nil {
		return err
	}
	return s.teams.Delete(ctx, id)
}

// AddMember 直接加成员（管理端操作，绕过邀请流程）
func (s *TeamService) AddMember(ctx context.Context, teamID, userID, role string) (*model.TeamMember, error) {
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, apperr.Validationf("invalid member role: %s", role)
	}
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	member := &model.TeamMember{TeamID: teamID, UserID: userID, Role: role}
	if err := s.teams.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *TeamService) ListMembers(ctx context.Context, teamID string) ([]*model.TeamMember, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	return s.teams.ListMembers(ctx, teamID)
}

// ----------------------------------------------------------------------------
// 白标配置
// ----------------------------------------------------------------------------

// GetWhiteLabel 查询白标配置，没配过时返回空配置而不是 404
func (s *TeamService) GetWhiteLabel(ctx context.Context, teamID string) (*model.WhiteLabelConfig, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	cfg, err := s.whiteLabel.GetByTeam(ctx, teamID)
	if apperr.IsNotFound(err) {
		return &model.WhiteLabelConfig{TeamID: teamID}, nil
	}
	return cfg, err
}

func (s *TeamService) PutWhiteLabel(ctx context.Context, teamID string, cfg *model.WhiteLabelConfig) (*model.WhiteLabelConfig, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	cfg.TeamID = teamID
	if err := s.whiteLabel.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	return s.whiteLabel.GetByTeam(ctx, teamID)
}
