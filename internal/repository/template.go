package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/mockupdesk/listing-server-go/internal/model"
)

type TemplateRepository interface {
	FindByID(ctx context.Context, id string, userID string) (*model.TemplateSection, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.TemplateSection, error)
	FindDefaults(ctx context.Context, userID string) ([]*model.TemplateSection, error)
	Create(ctx context.Context, params model.CreateTemplateParams) (*model.TemplateSection, error)
	Update(ctx context.Context, id string, userID string, params model.UpdateTemplateParams) (*model.TemplateSection, error)
	// ClearDefaults unsets is_default for every section of the user in the
	// given category, optionally excluding one id.
	ClearDefaults(ctx context.Context, userID, category string, excludeID string) error
	Delete(ctx context.Context, id string, userID string) (bool, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) TemplateRepository
}

// templateDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type templateDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type templateRepo struct {
	db templateDB
}

func NewTemplateRepository(db *sqlx.DB) TemplateRepository {
	return &templateRepo{db: db}
}

func (r *templateRepo) WithTx(tx *sqlx.Tx) TemplateRepository {
	return &templateRepo{db: tx}
}

func (r *templateRepo) FindByID(ctx context.Context, id string, userID string) (*model.TemplateSection, error) {
	var section model.TemplateSection
	err := r.db.GetContext(ctx, &section, `
		SELECT * FROM templates WHERE id = $1 AND user_id = $2
	`, id, userID)
	return HandleNotFound(&section, err)
}

func (r *templateRepo) FindByUserID(ctx context.Context, userID string) ([]*model.TemplateSection, error) {
	var sections []*model.TemplateSection
	err := r.db.SelectContext(ctx, &sections, `
		SELECT * FROM templates
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return sections, nil
}

func (r *templateRepo) FindDefaults(ctx context.Context, userID string) ([]*model.TemplateSection, error) {
	var sections []*model.TemplateSection
	err := r.db.SelectContext(ctx, &sections, `
		SELECT * FROM templates
		WHERE user_id = $1 AND is_default = true
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return sections, nil
}

func (r *templateRepo) Create(ctx context.Context, params model.CreateTemplateParams) (*model.TemplateSection, error) {
	var section model.TemplateSection
	err := r.db.GetContext(ctx, &section, `
		INSERT INTO templates (user_id, name, content, category, is_default)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.UserID, params.Name, params.Content, params.Category, params.IsDefault)
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *templateRepo) Update(ctx context.Context, id string, userID string, params model.UpdateTemplateParams) (*model.TemplateSection, error) {
	var section model.TemplateSection
	err := r.db.GetContext(ctx, &section, `
		UPDATE templates
		SET name = COALESCE($3, name),
		    content = COALESCE($4, content),
		    category = COALESCE($5, category),
		    is_default = COALESCE($6, is_default),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING *
	`, id, userID, params.Name, params.Content, params.Category, params.IsDefault)
	return HandleNotFound(&section, err)
}

func (r *templateRepo) ClearDefaults(ctx context.Context, userID, category string, excludeID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE templates
		SET is_default = false, updated_at = NOW()
		WHERE user_id = $1 AND category = $2 AND is_default = true AND id != $3
	`, userID, category, excludeID)
	return err
}

func (r *templateRepo) Delete(ctx context.Context, id string, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM templates WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
