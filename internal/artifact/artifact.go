// Package artifact builds and stores the downloadable document delivered
// to the end buyer: a file listing every mockup's name and shareable link.
package artifact

import (
	"fmt"
	"strings"
	"time"

	"github.com/mockupdesk/listing-server-go/internal/model"
)

// Builder renders the download document for a set of prepared assets.
// The shipped implementation renders plain text; a PDF renderer can be
// swapped in without touching the publish pipeline.
type Builder interface {
	Build(assets []model.PreparedAsset, listingTitle string) ([]byte, error)
	FileName() string
}

type TextBuilder struct {
	// Now is injected for deterministic output in tests.
	Now func() time.Time
}

func NewTextBuilder() *TextBuilder {
	return &TextBuilder{Now: time.Now}
}

func (b *TextBuilder) FileName() string {
	return "mockup-download-links.txt"
}

func (b *TextBuilder) Build(assets []model.PreparedAsset, listingTitle string) ([]byte, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("artifact requires at least one asset")
	}

	var doc strings.Builder
	doc.WriteString("YOUR DIGITAL MOCKUP FILES\n")
	doc.WriteString(strings.Repeat("=", 50) + "\n\n")
	doc.WriteString("Thank you for your purchase!\n\n")
	doc.WriteString("How to download your files:\n")
	doc.WriteString("1. Click on the link(s) below\n")
	doc.WriteString("2. Sign in to your Google account if prompted\n")
	doc.WriteString("3. Click the Download button\n")
	doc.WriteString("4. Save the file(s) to your computer\n\n")
	doc.WriteString("Download Links:\n")
	doc.WriteString(strings.Repeat("-", 50) + "\n\n")

	for i, asset := range assets {
		doc.WriteString(fmt.Sprintf("File %d: %s\n", i+1, asset.Name))
		doc.WriteString(fmt.Sprintf("Link: %s\n\n", asset.ShareLink))
	}

	doc.WriteString("These links remain active; you can download anytime.\n")
	doc.WriteString("Save this file for future reference.\n\n")
	if listingTitle != "" {
		doc.WriteString(fmt.Sprintf("Product: %s\n", listingTitle))
	}
	doc.WriteString(strings.Repeat("=", 50) + "\n")
	doc.WriteString(fmt.Sprintf("Generated on %s\n", b.Now().Format("2006-01-02 15:04")))

	return []byte(doc.String()), nil
}
