package service

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/mockupdesk/listing-server-go/internal/database"
	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/repository"
)

var ErrTemplateNotFound = errors.New("template not found")

// TemplateService manages reusable description sections. At most one
// section per category may be the default; setting a new default clears
// the previous one in the same transaction.
type TemplateService struct {
	db           *database.DB
	templateRepo repository.TemplateRepository
}

func NewTemplateService(db *database.DB, templateRepo repository.TemplateRepository) *TemplateService {
	return &TemplateService{db: db, templateRepo: templateRepo}
}

func (s *TemplateService) List(ctx context.Context, userID string) ([]*model.TemplateSection, error) {
	return s.templateRepo.FindByUserID(ctx, userID)
}

func (s *TemplateService) ListDefaults(ctx context.Context, userID string) ([]*model.TemplateSection, error) {
	return s.templateRepo.FindDefaults(ctx, userID)
}

func (s *TemplateService) Get(ctx context.Context, id, userID string) (*model.TemplateSection, error) {
	section, err := s.templateRepo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if section == nil {
		return nil, ErrTemplateNotFound
	}
	return section, nil
}

func (s *TemplateService) Create(ctx context.Context, params model.CreateTemplateParams) (*model.TemplateSection, error) {
	if params.Category == "" {
		params.Category = model.TemplateCategorySection
	}

	if !params.IsDefault {
		return s.templateRepo.Create(ctx, params)
	}

	var section *model.TemplateSection
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.templateRepo.WithTx(tx)
		created, err := repo.Create(ctx, params)
		if err != nil {
			return err
		}
		if err := repo.ClearDefaults(ctx, params.UserID, created.Category, created.ID); err != nil {
			return err
		}
		section = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

func (s *TemplateService) Update(ctx context.Context, id, userID string, params model.UpdateTemplateParams) (*model.TemplateSection, error) {
	if params.IsDefault == nil || !*params.IsDefault {
		section, err := s.templateRepo.Update(ctx, id, userID, params)
		if err != nil {
			return nil, err
		}
		if section == nil {
			return nil, ErrTemplateNotFound
		}
		return section, nil
	}

	var section *model.TemplateSection
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.templateRepo.WithTx(tx)
		updated, err := repo.Update(ctx, id, userID, params)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrTemplateNotFound
		}
		if err := repo.ClearDefaults(ctx, userID, updated.Category, updated.ID); err != nil {
			return err
		}
		section = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

func (s *TemplateService) Delete(ctx context.Context, id, userID string) error {
	deleted, err := s.templateRepo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTemplateNotFound
	}
	return nil
}
