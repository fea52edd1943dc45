package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/repository"
)

type memTemplateRepo struct {
	mu       sync.Mutex
	sections map[string]*model.TemplateSection
	seq      int
}

func newMemTemplateRepo() *memTemplateRepo {
	return &memTemplateRepo{sections: make(map[string]*model.TemplateSection)}
}

func (r *memTemplateRepo) FindByID(ctx context.Context, id string, userID string) (*model.TemplateSection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	section := r.sections[id]
	if section == nil || section.UserID != userID {
		return nil, nil
	}
	return section, nil
}

func (r *memTemplateRepo) FindByUserID(ctx context.Context, userID string) ([]*model.TemplateSection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.TemplateSection
	for _, section := range r.sections {
		if section.UserID == userID {
			out = append(out, section)
		}
	}
	return out, nil
}

func (r *memTemplateRepo) FindDefaults(ctx context.Context, userID string) ([]*model.TemplateSection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.TemplateSection
	for _, section := range r.sections {
		if section.UserID == userID && section.IsDefault {
			out = append(out, section)
		}
	}
	return out, nil
}

func (r *memTemplateRepo) Create(ctx context.Context, params model.CreateTemplateParams) (*model.TemplateSection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	section := &model.TemplateSection{
		ID:        "tpl-" + strconv.Itoa(r.seq),
		UserID:    params.UserID,
		Name:      params.Name,
		Content:   params.Content,
		Category:  params.Category,
		IsDefault: params.IsDefault,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.sections[section.ID] = section
	return section, nil
}

func (r *memTemplateRepo) Update(ctx context.Context, id string, userID string, params model.UpdateTemplateParams) (*model.TemplateSection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	section := r.sections[id]
	if section == nil || section.UserID != userID {
		return nil, nil
	}
	if params.Name != nil {
		section.Name = *params.Name
	}
	if params.Content != nil {
		section.Content = *params.Content
	}
	if params.Category != nil {
		section.Category = *params.Category
	}
	if params.IsDefault != nil {
		section.IsDefault = *params.IsDefault
	}
	return section, nil
}

func (r *memTemplateRepo) ClearDefaults(ctx context.Context, userID, category string, excludeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, section := range r.sections {
		if section.UserID == userID && section.Category == category && section.ID != excludeID {
			section.IsDefault = false
		}
	}
	return nil
}

func (r *memTemplateRepo) Delete(ctx context.Context, id string, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	section := r.sections[id]
	if section == nil || section.UserID != userID {
		return false, nil
	}
	delete(r.sections, id)
	return true, nil
}

func (r *memTemplateRepo) WithTx(tx *sqlx.Tx) repository.TemplateRepository { return r }

// Default-setting paths run inside db.WithTx and are covered against a
// real database; these tests cover the plain CRUD behavior.

func TestTemplateCreateFillsCategory(t *testing.T) {
	repo := newMemTemplateRepo()
	svc := NewTemplateService(nil, repo)

	section, err := svc.Create(context.Background(), model.CreateTemplateParams{
		UserID:  "user-1",
		Name:    "Care instructions",
		Content: "Wipe with a dry cloth.",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TemplateCategorySection, section.Category)
	assert.False(t, section.IsDefault)
}

func TestTemplateGetScopedToOwner(t *testing.T) {
	repo := newMemTemplateRepo()
	svc := NewTemplateService(nil, repo)
	ctx := context.Background()

	section, err := svc.Create(ctx, model.CreateTemplateParams{UserID: "user-1", Name: "Shipping", Content: "Ships in 2 days."})
	require.NoError(t, err)

	got, err := svc.Get(ctx, section.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, section.ID, got.ID)

	_, err = svc.Get(ctx, section.ID, "user-2")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplateUpdatePartial(t *testing.T) {
	repo := newMemTemplateRepo()
	svc := NewTemplateService(nil, repo)
	ctx := context.Background()

	section, err := svc.Create(ctx, model.CreateTemplateParams{UserID: "user-1", Name: "Returns", Content: "30 days."})
	require.NoError(t, err)

	content := "60 days."
	updated, err := svc.Update(ctx, section.ID, "user-1", model.UpdateTemplateParams{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "Returns", updated.Name)
	assert.Equal(t, "60 days.", updated.Content)

	_, err = svc.Update(ctx, "tpl-missing", "user-1", model.UpdateTemplateParams{Content: &content})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplateDelete(t *testing.T) {
	repo := newMemTemplateRepo()
	svc := NewTemplateService(nil, repo)
	ctx := context.Background()

	section, err := svc.Create(ctx, model.CreateTemplateParams{UserID: "user-1", Name: "About", Content: "Hand made."})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, section.ID, "user-1"))
	assert.ErrorIs(t, svc.Delete(ctx, section.ID, "user-1"), ErrTemplateNotFound)
}
