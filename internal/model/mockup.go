package model

// Mockup is a Drive-hosted image the shop owner can fold into a listing.
type Mockup struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	WebViewLink  string `json:"webViewLink,omitempty"`
	Size         string `json:"size,omitempty"`
	ModifiedAt   string `json:"modifiedAt,omitempty"`
}

// PreparedAsset is a mockup resolved to a public shareable link, ready for
// the downloadable package.
type PreparedAsset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShareLink string `json:"shareLink"`
}
