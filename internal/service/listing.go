package service

import (
	"context"
	"errors"

	"github.com/mockupdesk/listing-server-go/internal/artifact"
	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/repository"
)

var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrNoArtifact       = errors.New("listing has no stored artifact")
	ErrNotMarketplace   = errors.New("listing is not on the marketplace")
	ErrShopNotConnected = errors.New("marketplace shop not connected")
	ErrAlreadyActive    = errors.New("listing is already active")
)

// ListingService exposes listing reads, the publish entry point, and the
// draft-to-active transition.
type ListingService struct {
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	factory     *ProviderFactory
	pipeline    *PublishPipeline
	store       artifact.Store
}

func NewListingService(listingRepo repository.ListingRepository, userRepo repository.UserRepository, factory *ProviderFactory, pipeline *PublishPipeline, store artifact.Store) *ListingService {
	return &ListingService{
		listingRepo: listingRepo,
		userRepo:    userRepo,
		factory:     factory,
		pipeline:    pipeline,
		store:       store,
	}
}

func (s *ListingService) List(ctx context.Context, userID string) ([]*model.Listing, error) {
	return s.listingRepo.FindByUserID(ctx, userID)
}

func (s *ListingService) Get(ctx context.Context, id, userID string) (*model.Listing, error) {
	listing, err := s.listingRepo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	return listing, nil
}

// Publish resolves the user's provider clients and runs the pipeline.
// Provider failures come back already mapped to API errors.
func (s *ListingService) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	drive, err := s.factory.DriveForUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	var market MarketplaceAPI
	if req.Mode == PublishModeMarketplace {
		client, err := s.factory.MarketplaceForUser(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		market = client

		if req.ShopID == "" {
			user, err := s.userRepo.FindByID(ctx, req.UserID)
			if err != nil {
				return nil, err
			}
			if user == nil || user.EtsyShopID == nil {
				return nil, ErrShopNotConnected
			}
			req.ShopID = *user.EtsyShopID
		}
	}

	result, err := s.pipeline.Run(ctx, drive, market, req)
	if err != nil {
		return result, s.factory.MapError(ctx, req.UserID, err)
	}
	return result, nil
}

// Activate flips a marketplace draft to active, then mirrors the status
// locally.
func (s *ListingService) Activate(ctx context.Context, id, userID string) (*model.Listing, error) {
	listing, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if listing.MarketplaceListingID == nil {
		return nil, ErrNotMarketplace
	}
	if listing.Status == model.ListingStatusActive {
		return nil, ErrAlreadyActive
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.EtsyShopID == nil {
		return nil, ErrShopNotConnected
	}

	market, err := s.factory.MarketplaceForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := market.ActivateListing(ctx, *user.EtsyShopID, *listing.MarketplaceListingID); err != nil {
		return nil, s.factory.MapError(ctx, userID, err)
	}

	if err := s.listingRepo.UpdateStatus(ctx, listing.ID, model.ListingStatusActive); err != nil {
		return nil, err
	}
	listing.Status = model.ListingStatusActive
	return listing, nil
}

// OpenArtifact returns the stored standalone artifact along with a
// download file name.
func (s *ListingService) OpenArtifact(ctx context.Context, id, userID string) ([]byte, string, error) {
	listing, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, "", err
	}
	if listing.ArtifactPath == nil {
		return nil, "", ErrNoArtifact
	}
	data, err := s.store.Open(*listing.ArtifactPath)
	if err != nil {
		return nil, "", err
	}
	return data, "listing-" + listing.ID + ".txt", nil
}
