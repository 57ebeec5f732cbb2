package repository

import (
	"context"
	"errors"

	"controltower/internal/apperr"
	"controltower/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WhiteLabelRepository interface {
	GetByTeam(ctx context.Context, teamID string) (*model.WhiteLabelConfig, error)
	Upsert(ctx context.Context, cfg *model.WhiteLabelConfig) error
}

type whiteLabelRepository struct {
	db *gorm.DB
}

func NewWhiteLabelRepository(db *gorm.DB) WhiteLabelRepository {
	return &whiteLabelRepository{db: db}
}

func (r *whiteLabelRepository) GetByTeam(ctx context.Context, teamID string) (*model.WhiteLabelConfig, error) {
	var cfg model.WhiteLabelConfig
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("white label config not found")
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *whiteLabelRepository) Upsert(ctx context.Context, cfg *model.WhiteLabelConfig) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "team_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"brand_name", "logo_url", "primary_color", "support_email", "custom_domain", "updated_at",
			}),
		}).
		Create(cfg).Error
}
