package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mockupdesk/listing-server-go/internal/artifact"
	"github.com/mockupdesk/listing-server-go/internal/audit"
	apperrors "github.com/mockupdesk/listing-server-go/internal/errors"
	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/provider"
	"github.com/mockupdesk/listing-server-go/internal/repository"
)

type PublishMode string

const (
	// PublishModeMarketplace creates a marketplace draft and uploads the
	// artifact as its digital file.
	PublishModeMarketplace PublishMode = "marketplace"
	// PublishModeStandalone stores the artifact server-side for the
	// copy-paste workflow; no marketplace calls.
	PublishModeStandalone PublishMode = "standalone"
)

// DriveAPI is the slice of the storage provider the pipeline needs.
type DriveAPI interface {
	GetMetadata(ctx context.Context, fileID string) (*provider.DriveFile, error)
	CreateShareableLink(ctx context.Context, fileID string) (string, error)
	DownloadBytes(ctx context.Context, fileID string) ([]byte, error)
}

// MarketplaceAPI is the slice of the marketplace provider the pipeline needs.
type MarketplaceAPI interface {
	CreateDraftListing(ctx context.Context, shopID string, fields provider.DraftListingFields) (int64, error)
	UploadListingImage(ctx context.Context, shopID string, listingID int64, image []byte, rank int) error
	UploadDigitalFile(ctx context.Context, shopID string, listingID int64, file []byte, fileName string) error
	GetShippingProfiles(ctx context.Context, shopID string) ([]provider.ShippingProfile, error)
	GetReturnPolicies(ctx context.Context, shopID string) ([]provider.ReturnPolicy, error)
}

var _ DriveAPI = (*provider.DriveClient)(nil)
var _ MarketplaceAPI = (*provider.MarketplaceClient)(nil)

type PublishRequest struct {
	UserID      string
	ShopID      string
	Mode        PublishMode
	FileIDs     []string
	Title       string
	Description string
	Price       float64
	Tags        []string
	TaxonomyID  int64
}

type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

type StageResult struct {
	Stage  string      `json:"stage"`
	Status StageStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// Stage names, in execution order.
const (
	StageValidate      = "validate"
	StagePrepareAssets = "prepare_assets"
	StageCreateDraft   = "create_draft"
	StageUploadImages  = "upload_images"
	StageBuildArtifact = "build_artifact"
	StageAttach        = "attach"
)

// PublishResult reports the outcome of one publish attempt. On a hard
// failure after draft creation, MarketplaceListingID still carries the
// orphaned draft id: no compensating deletion is attempted.
type PublishResult struct {
	Listing              *model.Listing        `json:"listing,omitempty"`
	MarketplaceListingID *int64                `json:"marketplaceListingId,omitempty"`
	Assets               []model.PreparedAsset `json:"assets,omitempty"`
	Stages               []StageResult         `json:"stages"`
	FailedUploads        []string              `json:"failedUploads,omitempty"`
	Partial              bool                  `json:"partial"`
}

func (r *PublishResult) record(stage string, status StageStatus, err error) {
	res := StageResult{Stage: stage, Status: status}
	if err != nil {
		res.Error = err.Error()
	}
	r.Stages = append(r.Stages, res)
}

// PublishPipeline sequences one publish attempt: validate, prepare assets,
// create the marketplace draft, upload images, build the artifact, attach
// and persist. Stages run strictly in order; a stage failure aborts the
// rest but never rolls back what already happened.
type PublishPipeline struct {
	listingRepo repository.ListingRepository
	builder     artifact.Builder
	store       artifact.Store
}

func NewPublishPipeline(listingRepo repository.ListingRepository, builder artifact.Builder, store artifact.Store) *PublishPipeline {
	return &PublishPipeline{
		listingRepo: listingRepo,
		builder:     builder,
		store:       store,
	}
}

func (p *PublishPipeline) Run(ctx context.Context, drive DriveAPI, market MarketplaceAPI, req PublishRequest) (*PublishResult, error) {
	result := &PublishResult{}
	audit.Log(audit.Event{Type: audit.EventPublishStarted, UserID: req.UserID,
		Details: map[string]interface{}{"mode": string(req.Mode), "assets": len(req.FileIDs)}})

	// 1. Validate. Fails fast before any network call.
	if err := p.validate(&req); err != nil {
		result.record(StageValidate, StageFailed, err)
		return result, err
	}
	result.record(StageValidate, StageOK, nil)

	// 2. Prepare assets. Required downstream, so any failure is fatal.
	assets, err := p.prepareAssets(ctx, drive, req.FileIDs)
	if err != nil {
		result.record(StagePrepareAssets, StageFailed, err)
		return result, p.fail(req, err)
	}
	result.Assets = assets
	result.record(StagePrepareAssets, StageOK, nil)

	// 3 + 4. Marketplace draft and image uploads.
	if req.Mode == PublishModeMarketplace {
		listingID, err := p.createDraft(ctx, market, req)
		if err != nil {
			result.record(StageCreateDraft, StageFailed, err)
			return result, p.fail(req, err)
		}
		result.MarketplaceListingID = &listingID
		result.record(StageCreateDraft, StageOK, nil)

		// Image slots are not essential to the downloadable package:
		// individual upload failures are logged and skipped.
		result.FailedUploads = p.uploadImages(ctx, drive, market, req.ShopID, listingID, assets)
		result.record(StageUploadImages, StageOK, nil)
	} else {
		result.record(StageCreateDraft, StageSkipped, nil)
		result.record(StageUploadImages, StageSkipped, nil)
	}

	// 5. Build the downloadable artifact; it references every prepared
	// asset regardless of upload failures.
	doc, err := p.builder.Build(assets, req.Title)
	if err != nil {
		result.record(StageBuildArtifact, StageFailed, err)
		return result, p.fail(req, err)
	}
	result.record(StageBuildArtifact, StageOK, nil)

	// 6. Attach the artifact and persist the listing row. Failures here
	// leave an orphaned draft or stored artifact, surfaced via the result.
	listing, err := p.attach(ctx, market, req, assets, doc, result.MarketplaceListingID)
	if err != nil {
		result.record(StageAttach, StageFailed, err)
		return result, p.fail(req, err)
	}
	result.Listing = listing
	result.record(StageAttach, StageOK, nil)

	result.Partial = len(result.FailedUploads) > 0
	if result.Partial {
		audit.Log(audit.Event{Type: audit.EventPublishPartial, UserID: req.UserID,
			Details: map[string]interface{}{"failedUploads": len(result.FailedUploads)}})
	} else {
		audit.Log(audit.Event{Type: audit.EventPublishCompleted, UserID: req.UserID,
			Details: map[string]interface{}{"listingId": listing.ID}})
	}
	return result, nil
}

func (p *PublishPipeline) fail(req PublishRequest, err error) error {
	audit.Log(audit.Event{Type: audit.EventPublishFailed, UserID: req.UserID,
		Details: map[string]interface{}{"error": err.Error()}})
	return err
}

// validate normalizes the request in place: title truncated to 140, tags
// capped at 13, each lower-cased and truncated to 20.
func (p *PublishPipeline) validate(req *PublishRequest) error {
	if len(req.FileIDs) == 0 {
		return apperrors.MissingRequired("fileIds")
	}
	if req.Title == "" {
		return apperrors.MissingRequired("title")
	}
	if req.Description == "" {
		return apperrors.MissingRequired("description")
	}
	if req.Price <= 0 {
		return apperrors.InvalidInput("price", "must be greater than zero")
	}
	if req.Mode == PublishModeMarketplace && req.ShopID == "" {
		return apperrors.ValidationError("marketplace shop not connected")
	}

	req.Title = TruncateTitle(req.Title)
	req.Tags = NormalizeTags(req.Tags)
	return nil
}

func (p *PublishPipeline) prepareAssets(ctx context.Context, drive DriveAPI, fileIDs []string) ([]model.PreparedAsset, error) {
	assets := make([]model.PreparedAsset, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		meta, err := drive.GetMetadata(ctx, fileID)
		if err != nil {
			return nil, fmt.Errorf("asset %s metadata: %w", fileID, err)
		}
		link, err := drive.CreateShareableLink(ctx, fileID)
		if err != nil {
			return nil, fmt.Errorf("asset %s share link: %w", fileID, err)
		}
		assets = append(assets, model.PreparedAsset{ID: fileID, Name: meta.Name, ShareLink: link})
	}
	return assets, nil
}

func (p *PublishPipeline) createDraft(ctx context.Context, market MarketplaceAPI, req PublishRequest) (int64, error) {
	fields := provider.DraftListingFields{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Tags:        req.Tags,
		TaxonomyID:  req.TaxonomyID,
	}

	// Policy lookups are best-effort: a shop without profiles still gets
	// a draft, with the ids left unset.
	if profiles, err := market.GetShippingProfiles(ctx, req.ShopID); err != nil {
		log.Warn().Err(err).Str("shopId", req.ShopID).Msg("shipping profile lookup failed")
	} else if len(profiles) > 0 {
		fields.ShippingProfileID = &profiles[0].ShippingProfileID
	}
	if policies, err := market.GetReturnPolicies(ctx, req.ShopID); err != nil {
		log.Warn().Err(err).Str("shopId", req.ShopID).Msg("return policy lookup failed")
	} else if len(policies) > 0 {
		fields.ReturnPolicyID = &policies[0].ReturnPolicyID
	}

	return market.CreateDraftListing(ctx, req.ShopID, fields)
}

func (p *PublishPipeline) uploadImages(ctx context.Context, drive DriveAPI, market MarketplaceAPI, shopID string, listingID int64, assets []model.PreparedAsset) []string {
	var failed []string
	for i, asset := range assets {
		image, err := drive.DownloadBytes(ctx, asset.ID)
		if err == nil {
			err = market.UploadListingImage(ctx, shopID, listingID, image, i+1)
		}
		if err != nil {
			log.Warn().Err(err).Str("assetId", asset.ID).Int64("listingId", listingID).
				Msg("image upload skipped")
			failed = append(failed, asset.ID)
		}
	}
	return failed
}

func (p *PublishPipeline) attach(ctx context.Context, market MarketplaceAPI, req PublishRequest, assets []model.PreparedAsset, doc []byte, marketplaceListingID *int64) (*model.Listing, error) {
	params := model.CreateListingParams{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Tags:        req.Tags,
	}

	files, err := json.Marshal(assets)
	if err != nil {
		return nil, err
	}
	params.MockupFiles = files

	if req.Mode == PublishModeMarketplace {
		if err := market.UploadDigitalFile(ctx, req.ShopID, *marketplaceListingID, doc, p.builder.FileName()); err != nil {
			return nil, fmt.Errorf("digital file upload: %w", err)
		}
		params.MarketplaceListingID = marketplaceListingID
		params.Status = model.ListingStatusDraft
	} else {
		path, err := p.store.Save(artifactName(req.UserID, p.builder.FileName()), doc)
		if err != nil {
			return nil, err
		}
		params.ArtifactPath = &path
		params.Status = model.ListingStatusReady
	}

	listing, err := p.listingRepo.Create(ctx, params)
	if err != nil {
		// The draft (or stored artifact) is orphaned at this point; the
		// result carries its id so the caller can reconcile.
		return nil, fmt.Errorf("persist listing: %w", err)
	}
	return listing, nil
}

func artifactName(userID, fileName string) string {
	return fmt.Sprintf("%s-%d-%s", userID, time.Now().UnixNano(), fileName)
}
