package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultDriveAPIBase   = "https://www.googleapis.com/drive/v3"
	defaultGoogleTokenURL = "https://oauth2.googleapis.com/token"
	defaultUserinfoURL    = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// DriveConfig carries the static Google client configuration. The URL
// fields default to the public Google endpoints and exist for tests.
type DriveConfig struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string
	TokenURL     string
	UserinfoURL  string
}

func (c *DriveConfig) fill() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultDriveAPIBase
	}
	if c.TokenURL == "" {
		c.TokenURL = defaultGoogleTokenURL
	}
	if c.UserinfoURL == "" {
		c.UserinfoURL = defaultUserinfoURL
	}
}

// DriveFile mirrors the Drive v3 file resource fields this service reads.
type DriveFile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MimeType       string `json:"mimeType"`
	ThumbnailLink  string `json:"thumbnailLink,omitempty"`
	WebViewLink    string `json:"webViewLink,omitempty"`
	WebContentLink string `json:"webContentLink,omitempty"`
	Size           string `json:"size,omitempty"`
	ModifiedTime   string `json:"modifiedTime,omitempty"`
}

const driveFileFields = "id, name, mimeType, thumbnailLink, webViewLink, webContentLink, size, modifiedTime"

// DriveClient is the authenticated client for the Drive-like storage
// provider.
type DriveClient struct {
	cfg    DriveConfig
	client *Client
}

func NewDriveClient(cfg DriveConfig, creds Credentials, store TokenStore, httpClient *http.Client) *DriveClient {
	cfg.fill()
	d := &DriveClient{cfg: cfg}
	d.client = newClient("google", "", creds, store, d.refreshToken, httpClient)
	return d
}

func (d *DriveClient) refreshToken(ctx context.Context, refreshToken string) (*Credentials, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {d.cfg.ClientID},
		"client_secret": {d.cfg.ClientSecret},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google token refresh failed with status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
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
	if tokenResp.Scope != "" {
		creds.Scope = &tokenResp.Scope
	}
	return creds, nil
}

// UserEmail fetches the email of the account the tokens belong to.
func (d *DriveClient) UserEmail(ctx context.Context) (string, error) {
	var userInfo struct {
		Email string `json:"email"`
	}
	if err := d.client.DoJSON(ctx, http.MethodGet, d.cfg.UserinfoURL, nil, &userInfo); err != nil {
		return "", err
	}
	return userInfo.Email, nil
}

// ListImages lists non-trashed image files, newest first, optionally
// limited to one folder.
func (d *DriveClient) ListImages(ctx context.Context, folderID string) ([]DriveFile, error) {
	query := "mimeType contains 'image/' and trashed = false"
	if folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", folderID)
	}

	params := url.Values{
		"q":        {query},
		"fields":   {"files(" + driveFileFields + ")"},
		"orderBy":  {"modifiedTime desc"},
		"pageSize": {"100"},
	}

	var listResp struct {
		Files []DriveFile `json:"files"`
	}
	if err := d.client.DoJSON(ctx, http.MethodGet, d.cfg.APIBaseURL+"/files?"+params.Encode(), nil, &listResp); err != nil {
		return nil, err
	}
	return listResp.Files, nil
}

func (d *DriveClient) GetMetadata(ctx context.Context, fileID string) (*DriveFile, error) {
	params := url.Values{"fields": {driveFileFields}}
	var file DriveFile
	if err := d.client.DoJSON(ctx, http.MethodGet, d.cfg.APIBaseURL+"/files/"+fileID+"?"+params.Encode(), nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// CreateShareableLink grants anyone-with-link read access and returns the
// web view link. Creating the permission again is a no-op on the provider
// side, so the call is safe to repeat.
func (d *DriveClient) CreateShareableLink(ctx context.Context, fileID string) (string, error) {
	permission := map[string]string{
		"role": "reader",
		"type": "anyone",
	}
	if err := d.client.DoJSON(ctx, http.MethodPost, d.cfg.APIBaseURL+"/files/"+fileID+"/permissions", permission, nil); err != nil {
		return "", err
	}

	params := url.Values{"fields": {"webViewLink, webContentLink"}}
	var file DriveFile
	if err := d.client.DoJSON(ctx, http.MethodGet, d.cfg.APIBaseURL+"/files/"+fileID+"?"+params.Encode(), nil, &file); err != nil {
		return "", err
	}
	return file.WebViewLink, nil
}

// DownloadBytes fetches the file content (alt=media).
func (d *DriveClient) DownloadBytes(ctx context.Context, fileID string) ([]byte, error) {
	return d.client.DoBytes(ctx, d.cfg.APIBaseURL+"/files/"+fileID+"?alt=media")
}
