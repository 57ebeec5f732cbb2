package repository

import (
	"context"
	"errors"

	"controltower/internal/apperr"
	"controltower/internal/model"

	"gorm.io/gorm"
)

type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id string) (*model.Team, error)
	Update(ctx context.Context, team *model.Team) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page, pageSize int) ([]*model.Team, int64, error)
	AddMember(ctx context.Context, member *model.TeamMember) error
	ListMembers(ctx context.Context, teamID string) ([]*model.TeamMember, error)
	GetMember(ctx context.Context, teamID, userID string) (*model.TeamMember, error)
}

type teamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("team not found")
		}
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) Update(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Save(team).Error
}

func (r *teamRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Team{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFoundf("team not found")
	}
	return nil
}

func (r *teamRepository) List(ctx context.Context, page, pageSize int) ([]*model.Team, int64, error) {
	var teams []*model.Team
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Team{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&teams).Error

	return teams, total, err
}

func (r *teamRepository) AddMember(ctx context.Context, member *model.TeamMember) error {
	err := r.db.WithContext(ctx).Create(member).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflictf("user is already a member of this team")
	}
	return err
}

func (r *teamRepository) ListMembers(ctx context.Context, teamID string) ([]*model.TeamMember, error) {
	var members []*model.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

func (r *teamRepository) GetMember(ctx context.Context, teamID, userID string) (*model.TeamMember, error) {
	var member model.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("team member not found")
		}
		return nil, err
	}
	return &member, nil
}
