package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mockupdesk/listing-server-go/internal/model"
)

type ListingRepository interface {
	FindByID(ctx context.Context, id string, userID string) (*model.Listing, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.Listing, error)
	Create(ctx context.Context, params model.CreateListingParams) (*model.Listing, error)
	UpdateStatus(ctx context.Context, id string, status model.ListingStatus) error
}

type listingRepo struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) ListingRepository {
	return &listingRepo{db: db}
}

func (r *listingRepo) FindByID(ctx context.Context, id string, userID string) (*model.Listing, error) {
	var listing model.Listing
	err := r.db.GetContext(ctx, &listing, `
		SELECT * FROM listings WHERE id = $1 AND user_id = $2
	`, id, userID)
	return HandleNotFound(&listing, err)
}

func (r *listingRepo) FindByUserID(ctx context.Context, userID string) ([]*model.Listing, error) {
	var listings []*model.Listing
	err := r.db.SelectContext(ctx, &listings, `
		SELECT * FROM listings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepo) Create(ctx context.Context, params model.CreateListingParams) (*model.Listing, error) {
	var listing model.Listing
	err := r.db.GetContext(ctx, &listing, `
		INSERT INTO listings
			(user_id, marketplace_listing_id, title, description, price, tags, mockup_files, artifact_path, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *
	`, params.UserID, params.MarketplaceListingID, params.Title, params.Description,
		params.Price, pq.StringArray(params.Tags), params.MockupFiles, params.ArtifactPath, params.Status)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepo) UpdateStatus(ctx context.Context, id string, status model.ListingStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, status)
	return err
}
