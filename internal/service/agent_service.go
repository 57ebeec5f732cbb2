package service

import (
	"context"
	"encoding/json"

	"controltower/internal/apperr"
	"controltower/internal/model"
	"controltower/internal/repository"

	"github.com/google/uuid"
)

// AgentService 租户 Agent 配置管理
type AgentService struct {
	agents repository.AgentRepository
	teams  repository.TeamRepository
}

func NewAgentService(agents repository.AgentRepository, teams repository.TeamRepository) *AgentService {
	return &AgentService{agents: agents, teams: teams}
}

// CreateAgentInput 新建 Agent 参数
type CreateAgentInput struct {
	TeamID      string `json:"teamId" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Config      string `json:"config"`
}

func (s *AgentService) Create(ctx context.Context, in CreateAgentInput) (*model.Agent, error) {
	if _, err := s.teams.GetByID(ctx, in.TeamID); err != nil {
		return nil, err
	}
	if in.Config != "" && !json.Valid([]byte(in.Config)) {
		return nil, apperr.Validationf("agent config must be valid JSON")
	}

	agent := &model.Agent{
		ID:          uuid.NewString(),
		TeamID:      in.TeamID,
		Name:        in.Name,
		Description: in.Description,
		Status:      model.AgentStatusActive,
		Config:      in.Config,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (s *AgentService) Get(ctx context.Context, id string) (*model.Agent, error) {
	return s.agents.GetByID(ctx, id)
}

func (s *AgentService) List(ctx context.Context, teamID string, page, pageSize int) ([]*model.Agent, int64, error) {
	return s.agents.List(ctx, teamID, page, pageSize)
}

// UpdateAgentInput nil 字段不改
type UpdateAgentInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Config      *string `json:"config"`
}

func (s *AgentService) Update(ctx context.Context, id string, in UpdateAgentInput) (*model.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validationf("agent name cannot be empty")
		}
		agent.Name = *in.Name
	}
	if in.Description != nil {
		agent.Description = *in.Description
	}
	if in.Status != nil {
		if *in.Status != model.AgentStatusActive && *in.Status != model.AgentStatusDisabled {
			return nil, apperr.Validationf("invalid agent status: %s", *in.Status)
		}
		agent.Status = *in.Status
	}
	if in.Config != nil {
		if *in.Config != "" && !json.Valid([]byte(*in.Config)) {
			return nil, apperr.Validationf("agent config must be valid JSON")
		}
		agent.Config = *in.Config
	}
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (s *AgentService) Delete(ctx context.Context, id string) error {
	if _, err := s.agents.GetByID(ctx, id); err != nil {
		return err
	}
	return s.agents.Delete(ctx, id)
}
