package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/mockupdesk/listing-server-go/internal/config"
	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/provider"
	"github.com/mockupdesk/listing-server-go/internal/repository"
)

var (
	ErrGeneratorDisabled = errors.New("content generation is not configured")
	ErrMockupNotFound    = errors.New("mockup not found")
)

// MockupService browses the user's Drive mockups and drives content
// generation off a selected image.
type MockupService struct {
	cfg          *config.Config
	factory      *ProviderFactory
	generator    *ContentGenerator
	templateRepo repository.TemplateRepository
}

func NewMockupService(cfg *config.Config, factory *ProviderFactory, generator *ContentGenerator, templateRepo repository.TemplateRepository) *MockupService {
	return &MockupService{
		cfg:          cfg,
		factory:      factory,
		generator:    generator,
		templateRepo: templateRepo,
	}
}

// List returns the image files in the given Drive folder, newest first.
// An empty folderID falls back to the configured default folder, and to
// the whole drive when none is configured.
func (s *MockupService) List(ctx context.Context, userID, folderID string) ([]model.Mockup, error) {
	drive, err := s.factory.DriveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if folderID == "" {
		folderID = s.cfg.DriveFolderID
	}
	files, err := drive.ListImages(ctx, folderID)
	if err != nil {
		return nil, s.factory.MapError(ctx, userID, err)
	}

	mockups := make([]model.Mockup, 0, len(files))
	for _, f := range files {
		mockups = append(mockups, toMockup(&f))
	}
	return mockups, nil
}

// Get resolves a single mockup's metadata.
func (s *MockupService) Get(ctx context.Context, userID, fileID string) (*model.Mockup, error) {
	drive, err := s.factory.DriveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	file, err := drive.GetMetadata(ctx, fileID)
	if err != nil {
		var reqErr *provider.RequestError
		if errors.As(err, &reqErr) && reqErr.Status == http.StatusNotFound {
			return nil, ErrMockupNotFound
		}
		return nil, s.factory.MapError(ctx, userID, err)
	}
	mockup := toMockup(file)
	return &mockup, nil
}

func toMockup(f *provider.DriveFile) model.Mockup {
	return model.Mockup{
		ID:           f.ID,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ThumbnailURL: f.ThumbnailLink,
		WebViewLink:  f.WebViewLink,
		Size:         f.Size,
		ModifiedAt:   f.ModifiedTime,
	}
}

// Generate downloads the selected mockup and runs one inference pass over
// it. Custom sections supplied by the caller take precedence; otherwise
// the user's default template sections are used. Either way the sections
// are appended to the generated description.
func (s *MockupService) Generate(ctx context.Context, userID, fileID string, custom []*model.TemplateSection) (*GeneratedContent, error) {
	if s.generator == nil {
		return nil, ErrGeneratorDisabled
	}

	drive, err := s.factory.DriveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	image, err := drive.DownloadBytes(ctx, fileID)
	if err != nil {
		return nil, s.factory.MapError(ctx, userID, err)
	}

	sections := custom
	if len(sections) == 0 {
		sections, err = s.templateRepo.FindDefaults(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	content, err := s.generator.Analyze(ctx, image, sections)
	if err != nil {
		return nil, err
	}
	content.Description = AppendSections(content.Description, sections)
	return content, nil
}
