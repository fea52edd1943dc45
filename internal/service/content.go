package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mockupdesk/listing-server-go/internal/model"
)

const (
	maxTitleLength = 140
	maxTags        = 13
	maxTagLength   = 20

	defaultTitle    = "Digital Mockup"
	defaultCategory = "Art & Collectibles"
)

// GeneratedContent is the normalized result of one inference call.
// UsedDefaults names every field the model left blank, so callers can see
// which values were substituted rather than generated.
type GeneratedContent struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Category     string   `json:"suggestedCategory"`
	Analysis     string   `json:"imageAnalysis"`
	UsedDefaults []string `json:"usedDefaults,omitempty"`
}

// chatClient is the slice of the OpenAI client the generator needs.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ContentGenerator produces listing copy from a mockup image via one
// multimodal completion call.
type ContentGenerator struct {
	client chatClient
	model  string
}

func NewContentGenerator(apiKey string) *ContentGenerator {
	return &ContentGenerator{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
	}
}

// NewContentGeneratorWithClient is used by tests to stub the completion call.
func NewContentGeneratorWithClient(client chatClient) *ContentGenerator {
	return &ContentGenerator{client: client, model: openai.GPT4o}
}

// Analyze embeds the image and the field constraints in a single request
// and normalizes whatever comes back. Missing fields get fixed defaults
// instead of failing the request.
func (g *ContentGenerator) Analyze(ctx context.Context, image []byte, sections []*model.TemplateSection) (*GeneratedContent, error) {
	prompt := buildPrompt(sections)
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		MaxTokens: 2000,
	})
	if err != nil {
		return nil, fmt.Errorf("content generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("content generation: empty completion")
	}

	var raw GeneratedContent
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &raw); err != nil {
		return nil, fmt.Errorf("content generation: malformed completion: %w", err)
	}

	return NormalizeContent(&raw), nil
}

// NormalizeContent enforces the field constraints defensively, recording
// which fields fell back to defaults. Safe to apply more than once.
func NormalizeContent(raw *GeneratedContent) *GeneratedContent {
	out := &GeneratedContent{
		Title:       TruncateTitle(raw.Title),
		Description: raw.Description,
		Tags:        NormalizeTags(raw.Tags),
		Category:    raw.Category,
		Analysis:    raw.Analysis,
	}

	if out.Title == "" {
		out.Title = defaultTitle
		out.UsedDefaults = append(out.UsedDefaults, "title")
	}
	if out.Description == "" {
		out.UsedDefaults = append(out.UsedDefaults, "description")
	}
	if out.Category == "" {
		out.Category = defaultCategory
		out.UsedDefaults = append(out.UsedDefaults, "category")
	}
	if len(out.Tags) == 0 {
		out.UsedDefaults = append(out.UsedDefaults, "tags")
	}
	return out
}

// TruncateTitle limits a title to the marketplace maximum. Limits count
// characters, not bytes, so multibyte titles keep their full length and
// never get cut mid-rune.
func TruncateTitle(title string) string {
	return truncateRunes(title, maxTitleLength)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// NormalizeTags lower-cases, truncates, and caps the tag list. Idempotent:
// a clean list passes through unchanged.
func NormalizeTags(tags []string) []string {
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = truncateRunes(strings.ToLower(strings.TrimSpace(tag)), maxTagLength)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// AppendSections mechanically appends template sections to a description:
// the section name as a banner, the content verbatim. Pure string
// composition, no inference call.
func AppendSections(description string, sections []*model.TemplateSection) string {
	if len(sections) == 0 {
		return description
	}

	banner := strings.Repeat("━", 34)
	var b strings.Builder
	b.WriteString(description)
	b.WriteString("\n\n")
	for _, section := range sections {
		b.WriteString("\n" + banner + "\n")
		b.WriteString(strings.ToUpper(section.Name) + "\n")
		b.WriteString(banner + "\n")
		b.WriteString(section.Content + "\n")
	}
	return b.String()
}

func buildPrompt(sections []*model.TemplateSection) string {
	var custom strings.Builder
	if len(sections) > 0 {
		custom.WriteString("\n\nInclude these custom sections in the description:\n")
		for i, section := range sections {
			custom.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, section.Name, section.Content))
		}
	}

	return fmt.Sprintf(`You are an expert Etsy listing creator specializing in digital mockup products. Analyze this mockup image and generate compelling listing content.

Generate the following in JSON format:
{
  "title": "A compelling, keyword-rich title (max 140 characters)",
  "description": "A detailed, engaging product description with proper formatting. Include: what the customer gets, how to use it, file details, and benefits.",
  "tags": ["13 relevant search tags (single words or 2-3 word phrases)"],
  "suggestedCategory": "Suggested category",
  "imageAnalysis": "Brief description of what you see in the mockup"
}

Requirements for the title:
- Must be under 140 characters
- Include relevant keywords for marketplace search
- Be specific about the product type (mockup, template, digital product)

Requirements for the description:
- Start with a compelling hook
- Clearly explain what the buyer receives
- Include file format and usage information
- Highlight the benefits and use cases%s

Requirements for tags:
- Exactly 13 tags
- Each tag max 20 characters
- Mix of broad and specific terms
- Use lowercase

Analyze the image carefully and create content that would help this mockup sell well.`, custom.String())
}
