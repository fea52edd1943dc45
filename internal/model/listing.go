package model

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

type ListingStatus string

const (
	// ListingStatusDraft: created on the marketplace, pending manual activation.
	ListingStatusDraft ListingStatus = "draft"
	// ListingStatusReady: standalone listing with a downloadable artifact.
	ListingStatusReady ListingStatus = "ready"
	// ListingStatusActive: visible to buyers on the marketplace.
	ListingStatusActive ListingStatus = "active"
)

// Listing is immutable once created except for status transitions driven
// by the marketplace.
type Listing struct {
	ID                   string          `db:"id" json:"id"`
	UserID               string          `db:"user_id" json:"userId"`
	MarketplaceListingID *int64          `db:"marketplace_listing_id" json:"marketplaceListingId,omitempty"`
	Title                string          `db:"title" json:"title"`
	Description          string          `db:"description" json:"description"`
	Price                float64         `db:"price" json:"price"`
	Tags                 pq.StringArray  `db:"tags" json:"tags"`
	MockupFiles          json.RawMessage `db:"mockup_files" json:"mockupFiles"`
	ArtifactPath         *string         `db:"artifact_path" json:"-"`
	Status               ListingStatus   `db:"status" json:"status"`
	CreatedAt            time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updatedAt"`
}

type CreateListingParams struct {
	UserID               string
	MarketplaceListingID *int64
	Title                string
	Description          string
	Price                float64
	Tags                 []string
	MockupFiles          json.RawMessage
	ArtifactPath         *string
	Status               ListingStatus
}
