package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultMarketplaceAPIBase  = "https://openapi.etsy.com/v3"
	defaultMarketplaceTokenURL = "https://api.etsy.com/v3/public/oauth/token"

	// Digital prints category, used when the caller supplies no taxonomy.
	DefaultTaxonomyID = 2322
)

// MarketplaceConfig carries the static marketplace client configuration.
// The API key doubles as the OAuth client id.
type MarketplaceConfig struct {
	APIKey     string
	APIBaseURL string
	TokenURL   string
}

func (c *MarketplaceConfig) fill() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultMarketplaceAPIBase
	}
	if c.TokenURL == "" {
		c.TokenURL = defaultMarketplaceTokenURL
	}
}

type Shop struct {
	ShopID   int64  `json:"shop_id"`
	ShopName string `json:"shop_name"`
}

type ShippingProfile struct {
	ShippingProfileID int64  `json:"shipping_profile_id"`
	Title             string `json:"title"`
}

type ReturnPolicy struct {
	ReturnPolicyID int64 `json:"return_policy_id"`
}

// DraftListingFields is the payload for a digital-download draft listing.
type DraftListingFields struct {
	Title             string
	Description       string
	Price             float64
	Tags              []string
	TaxonomyID        int64
	ShippingProfileID *int64
	ReturnPolicyID    *int64
}

// MarketplaceClient is the authenticated client for the Etsy-style
// marketplace provider.
type MarketplaceClient struct {
	cfg    MarketplaceConfig
	client *Client
}

func NewMarketplaceClient(cfg MarketplaceConfig, creds Credentials, store TokenStore, httpClient *http.Client) *MarketplaceClient {
	cfg.fill()
	m := &MarketplaceClient{cfg: cfg}
	m.client = newClient("etsy", cfg.APIKey, creds, store, m.refreshToken, httpClient)
	return m
}

func (m *MarketplaceClient) refreshToken(ctx context.Context, refreshToken string) (*Credentials, error) {
	payload, err := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     m.cfg.APIKey,
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("etsy token refresh failed with status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, err
	}

	creds := &Credentials{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}
	if tokenResp.ExpiresIn > 0 {
		expiry := time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
		creds.ExpiresAt = &expiry
	}
	return creds, nil
}

func (m *MarketplaceClient) ListShops(ctx context.Context) ([]Shop, error) {
	var shopsResp struct {
		Results []Shop `json:"results"`
	}
	if err := m.client.DoJSON(ctx, http.MethodGet, m.cfg.APIBaseURL+"/application/shops", nil, &shopsResp); err != nil {
		return nil, err
	}
	return shopsResp.Results, nil
}

// CreateDraftListing creates the digital-download draft. Fixed fields
// follow the marketplace requirements for download-type listings.
func (m *MarketplaceClient) CreateDraftListing(ctx context.Context, shopID string, fields DraftListingFields) (int64, error) {
	taxonomyID := fields.TaxonomyID
	if taxonomyID == 0 {
		taxonomyID = DefaultTaxonomyID
	}

	payload := map[string]any{
		"quantity":            999,
		"title":               fields.Title,
		"description":         fields.Description,
		"price":               fields.Price,
		"who_made":            "i_did",
		"when_made":           "2020_2024",
		"taxonomy_id":         taxonomyID,
		"shipping_profile_id": fields.ShippingProfileID,
		"return_policy_id":    fields.ReturnPolicyID,
		"type":                "download",
		"is_supply":           false,
		"tags":                fields.Tags,
		"state":               "draft",
	}

	var created struct {
		ListingID int64 `json:"listing_id"`
	}
	err := m.client.DoJSON(ctx, http.MethodPost,
		m.cfg.APIBaseURL+"/application/shops/"+shopID+"/listings", payload, &created)
	if err != nil {
		return 0, err
	}
	return created.ListingID, nil
}

// UploadListingImage attaches a mockup image at the given rank.
func (m *MarketplaceClient) UploadListingImage(ctx context.Context, shopID string, listingID int64, image []byte, rank int) error {
	url := fmt.Sprintf("%s/application/shops/%s/listings/%d/images", m.cfg.APIBaseURL, shopID, listingID)
	fields := map[string]string{"rank": strconv.Itoa(rank)}
	return m.client.DoMultipart(ctx, url, fields, "image", "mockup.jpg", image, nil)
}

// UploadDigitalFile attaches the downloadable artifact to the listing.
func (m *MarketplaceClient) UploadDigitalFile(ctx context.Context, shopID string, listingID int64, file []byte, fileName string) error {
	url := fmt.Sprintf("%s/application/shops/%s/listings/%d/files", m.cfg.APIBaseURL, shopID, listingID)
	return m.client.DoMultipart(ctx, url, map[string]string{"name": fileName}, "file", fileName, file, nil)
}

func (m *MarketplaceClient) GetShippingProfiles(ctx context.Context, shopID string) ([]ShippingProfile, error) {
	var profilesResp struct {
		Results []ShippingProfile `json:"results"`
	}
	err := m.client.DoJSON(ctx, http.MethodGet,
		m.cfg.APIBaseURL+"/application/shops/"+shopID+"/shipping-profiles", nil, &profilesResp)
	if err != nil {
		return nil, err
	}
	return profilesResp.Results, nil
}

func (m *MarketplaceClient) GetReturnPolicies(ctx context.Context, shopID string) ([]ReturnPolicy, error) {
	var policiesResp struct {
		Results []ReturnPolicy `json:"results"`
	}
	err := m.client.DoJSON(ctx, http.MethodGet,
		m.cfg.APIBaseURL+"/application/shops/"+shopID+"/policies/return", nil, &policiesResp)
	if err != nil {
		return nil, err
	}
	return policiesResp.Results, nil
}

// ActivateListing makes a draft visible to buyers.
func (m *MarketplaceClient) ActivateListing(ctx context.Context, shopID string, listingID int64) error {
	url := fmt.Sprintf("%s/application/shops/%s/listings/%d", m.cfg.APIBaseURL, shopID, listingID)
	return m.client.DoJSON(ctx, http.MethodPut, url, map[string]string{"state": "active"}, nil)
}
