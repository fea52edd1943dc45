package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockupdesk/listing-server-go/internal/artifact"
	apperrors "github.com/mockupdesk/listing-server-go/internal/errors"
	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/provider"
)

type fakeDrive struct {
	metadataErr error
	downloadErr map[string]error
	downloads   []string
}

func (d *fakeDrive) GetMetadata(ctx context.Context, fileID string) (*provider.DriveFile, error) {
	if d.metadataErr != nil {
		return nil, d.metadataErr
	}
	return &provider.DriveFile{ID: fileID, Name: "mockup-" + fileID + ".jpg"}, nil
}

func (d *fakeDrive) CreateShareableLink(ctx context.Context, fileID string) (string, error) {
	return "https://drive.example.com/view/" + fileID, nil
}

func (d *fakeDrive) DownloadBytes(ctx context.Context, fileID string) ([]byte, error) {
	d.downloads = append(d.downloads, fileID)
	if err := d.downloadErr[fileID]; err != nil {
		return nil, err
	}
	return []byte("image-" + fileID), nil
}

type fakeMarketplace struct {
	draftFields    *provider.DraftListingFields
	draftErr       error
	imageUploads   []int
	imageUploadErr map[int]error
	digitalUploads []string
	digitalErr     error
	profiles       []provider.ShippingProfile
	profilesErr    error
	policies       []provider.ReturnPolicy
	policiesErr    error
}

func (m *fakeMarketplace) CreateDraftListing(ctx context.Context, shopID string, fields provider.DraftListingFields) (int64, error) {
	if m.draftErr != nil {
		return 0, m.draftErr
	}
	m.draftFields = &fields
	return 777, nil
}

func (m *fakeMarketplace) UploadListingImage(ctx context.Context, shopID string, listingID int64, image []byte, rank int) error {
	if err := m.imageUploadErr[rank]; err != nil {
		return err
	}
	m.imageUploads = append(m.imageUploads, rank)
	return nil
}

func (m *fakeMarketplace) UploadDigitalFile(ctx context.Context, shopID string, listingID int64, file []byte, fileName string) error {
	if m.digitalErr != nil {
		return m.digitalErr
	}
	m.digitalUploads = append(m.digitalUploads, fileName)
	return nil
}

func (m *fakeMarketplace) GetShippingProfiles(ctx context.Context, shopID string) ([]provider.ShippingProfile, error) {
	return m.profiles, m.profilesErr
}

func (m *fakeMarketplace) GetReturnPolicies(ctx context.Context, shopID string) ([]provider.ReturnPolicy, error) {
	return m.policies, m.policiesErr
}

type memArtifactStore struct {
	files map[string][]byte
}

func newMemArtifactStore() *memArtifactStore {
	return &memArtifactStore{files: make(map[string][]byte)}
}

func (s *memArtifactStore) Save(name string, data []byte) (string, error) {
	s.files[name] = data
	return name, nil
}

func (s *memArtifactStore) Open(path string) ([]byte, error) {
	return s.files[path], nil
}

func validRequest(mode PublishMode) PublishRequest {
	return PublishRequest{
		UserID:      "user-1",
		ShopID:      "shop-1",
		Mode:        mode,
		FileIDs:     []string{"f1", "f2", "f3"},
		Title:       "Framed poster mockup bundle",
		Description: "Three styled mockups.",
		Price:       4.99,
		Tags:        []string{"Mockup", "POSTER"},
	}
}

func artifactTestBuilder() artifact.Builder {
	b := artifact.NewTextBuilder()
	b.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

func newPipeline() (*PublishPipeline, *memListingRepo, *memArtifactStore) {
	listingRepo := newMemListingRepo()
	store := newMemArtifactStore()
	return NewPublishPipeline(listingRepo, artifactTestBuilder(), store), listingRepo, store
}

func TestPublishMarketplaceHappyPath(t *testing.T) {
	pipeline, _, _ := newPipeline()
	drive := &fakeDrive{}
	market := &fakeMarketplace{
		profiles: []provider.ShippingProfile{{ShippingProfileID: 11}},
		policies: []provider.ReturnPolicy{{ReturnPolicyID: 22}},
	}

	result, err := pipeline.Run(context.Background(), drive, market, validRequest(PublishModeMarketplace))
	require.NoError(t, err)

	require.NotNil(t, result.MarketplaceListingID)
	assert.Equal(t, int64(777), *result.MarketplaceListingID)
	assert.False(t, result.Partial)
	assert.Empty(t, result.FailedUploads)

	require.NotNil(t, result.Listing)
	assert.Equal(t, model.ListingStatusDraft, result.Listing.Status)
	assert.Nil(t, result.Listing.ArtifactPath)

	require.NotNil(t, market.draftFields)
	assert.Equal(t, int64(11), *market.draftFields.ShippingProfileID)
	assert.Equal(t, int64(22), *market.draftFields.ReturnPolicyID)
	assert.Equal(t, []string{"mockup", "poster"}, market.draftFields.Tags)

	assert.Equal(t, []int{1, 2, 3}, market.imageUploads)
	assert.Len(t, market.digitalUploads, 1)

	var assets []model.PreparedAsset
	require.NoError(t, json.Unmarshal(result.Listing.MockupFiles, &assets))
	assert.Len(t, assets, 3)
}

func TestPublishStandaloneStoresArtifact(t *testing.T) {
	pipeline, _, store := newPipeline()
	drive := &fakeDrive{}

	result, err := pipeline.Run(context.Background(), drive, nil, validRequest(PublishModeStandalone))
	require.NoError(t, err)

	assert.Nil(t, result.MarketplaceListingID)
	require.NotNil(t, result.Listing)
	assert.Equal(t, model.ListingStatusReady, result.Listing.Status)
	require.NotNil(t, result.Listing.ArtifactPath)

	doc := store.files[*result.Listing.ArtifactPath]
	require.NotEmpty(t, doc)
	assert.Contains(t, string(doc), "https://drive.example.com/view/f1")
	assert.Contains(t, string(doc), "https://drive.example.com/view/f3")

	// Marketplace stages are skipped, not failed.
	stages := map[string]StageStatus{}
	for _, s := range result.Stages {
		stages[s.Stage] = s.Status
	}
	assert.Equal(t, StageSkipped, stages[StageCreateDraft])
	assert.Equal(t, StageSkipped, stages[StageUploadImages])
	assert.Equal(t, StageOK, stages[StageAttach])
	assert.Empty(t, drive.downloads, "standalone mode never downloads image bytes")
}

func TestPublishValidationFailsBeforeAnyCall(t *testing.T) {
	pipeline, listingRepo, _ := newPipeline()
	drive := &fakeDrive{}
	market := &fakeMarketplace{}

	cases := []struct {
		name   string
		mutate func(*PublishRequest)
	}{
		{"no assets", func(r *PublishRequest) { r.FileIDs = nil }},
		{"no title", func(r *PublishRequest) { r.Title = "" }},
		{"no description", func(r *PublishRequest) { r.Description = "" }},
		{"zero price", func(r *PublishRequest) { r.Price = 0 }},
		{"no shop in marketplace mode", func(r *PublishRequest) { r.ShopID = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest(PublishModeMarketplace)
			tc.mutate(&req)

			result, err := pipeline.Run(context.Background(), drive, market, req)
			require.Error(t, err)
			assert.True(t, apperrors.IsAppError(err))
			require.Len(t, result.Stages, 1)
			assert.Equal(t, StageFailed, result.Stages[0].Status)
		})
	}

	assert.Nil(t, market.draftFields, "no draft may be created for invalid input")
	assert.Empty(t, listingRepo.listings)
}

func TestPublishTruncatesTitleAndTags(t *testing.T) {
	pipeline, _, _ := newPipeline()
	market := &fakeMarketplace{}

	req := validRequest(PublishModeMarketplace)
	req.Title = strings.Repeat("x", 200)
	req.Tags = []string{"one", "two", "three", "four", "five", "six", "seven",
		"eight", "nine", "ten", "eleven", "twelve", "thirteen", "fourteen"}

	result, err := pipeline.Run(context.Background(), &fakeDrive{}, market, req)
	require.NoError(t, err)

	assert.Len(t, result.Listing.Title, 140)
	assert.Len(t, market.draftFields.Tags, 13)
}

func TestPublishImageUploadFailureIsTolerated(t *testing.T) {
	pipeline, _, _ := newPipeline()
	drive := &fakeDrive{}
	market := &fakeMarketplace{
		imageUploadErr: map[int]error{2: assert.AnError},
	}

	result, err := pipeline.Run(context.Background(), drive, market, validRequest(PublishModeMarketplace))
	require.NoError(t, err)

	assert.True(t, result.Partial)
	assert.Equal(t, []string{"f2"}, result.FailedUploads)
	assert.Equal(t, []int{1, 3}, market.imageUploads)

	// The digital file still ships, and the artifact references all three
	// assets regardless of the failed slot.
	assert.Len(t, market.digitalUploads, 1)
	var assets []model.PreparedAsset
	require.NoError(t, json.Unmarshal(result.Listing.MockupFiles, &assets))
	assert.Len(t, assets, 3)
}

func TestPublishDraftCreationFailureAborts(t *testing.T) {
	pipeline, listingRepo, _ := newPipeline()
	market := &fakeMarketplace{draftErr: &provider.RequestError{Provider: "etsy", Status: 503, Body: "down"}}

	result, err := pipeline.Run(context.Background(), &fakeDrive{}, market, validRequest(PublishModeMarketplace))
	require.Error(t, err)

	var reqErr *provider.RequestError
	assert.ErrorAs(t, err, &reqErr)
	assert.Empty(t, market.imageUploads)
	assert.Empty(t, listingRepo.listings)

	last := result.Stages[len(result.Stages)-1]
	assert.Equal(t, StageCreateDraft, last.Stage)
	assert.Equal(t, StageFailed, last.Status)
}

func TestPublishDigitalUploadFailureKeepsDraftID(t *testing.T) {
	pipeline, listingRepo, _ := newPipeline()
	market := &fakeMarketplace{digitalErr: assert.AnError}

	result, err := pipeline.Run(context.Background(), &fakeDrive{}, market, validRequest(PublishModeMarketplace))
	require.Error(t, err)

	// The orphaned draft id is surfaced so the caller can reconcile.
	require.NotNil(t, result.MarketplaceListingID)
	assert.Equal(t, int64(777), *result.MarketplaceListingID)
	assert.Empty(t, listingRepo.listings)
}

func TestPublishPolicyLookupFailureIsBestEffort(t *testing.T) {
	pipeline, _, _ := newPipeline()
	market := &fakeMarketplace{
		profilesErr: assert.AnError,
		policiesErr: assert.AnError,
	}

	result, err := pipeline.Run(context.Background(), &fakeDrive{}, market, validRequest(PublishModeMarketplace))
	require.NoError(t, err)

	require.NotNil(t, market.draftFields)
	assert.Nil(t, market.draftFields.ShippingProfileID)
	assert.Nil(t, market.draftFields.ReturnPolicyID)
	assert.False(t, result.Partial)
}
