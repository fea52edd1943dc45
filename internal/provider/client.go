package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog/log"
)

// refreshFunc exchanges a refresh token for a new credential pair at the
// provider's token endpoint. An error means the grant was rejected.
type refreshFunc func(ctx context.Context, refreshToken string) (*Credentials, error)

// Client wraps authenticated calls to one provider for one user. On a 401
// it performs exactly one refresh, persists the new pair, and retries the
// original request exactly once. A second 401 is fatal.
type Client struct {
	name       string
	apiKey     string
	creds      Credentials
	store      TokenStore
	refresh    refreshFunc
	httpClient *http.Client
}

func newClient(name, apiKey string, creds Credentials, store TokenStore, refresh refreshFunc, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		name:       name,
		apiKey:     apiKey,
		creds:      creds,
		store:      store,
		refresh:    refresh,
		httpClient: httpClient,
	}
}

// Credentials returns the client's current credential pair. After a
// refresh this is the persisted pair, not the one the client started with.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// buildFunc constructs the request for one attempt. It is invoked again on
// retry so the body reader and the Authorization header are fresh.
type buildFunc func(accessToken string) (*http.Request, error)

func (c *Client) do(ctx context.Context, build buildFunc) ([]byte, error) {
	body, status, err := c.attempt(build)
	if err != nil {
		return nil, err
	}
	if status != http.StatusUnauthorized {
		return c.finish(body, status)
	}

	newCreds, err := c.refresh(ctx, c.creds.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Str("provider", c.name).Msg("token refresh rejected")
		return nil, &AuthError{Provider: c.name}
	}
	if newCreds.RefreshToken == "" {
		// Providers that do not rotate omit the refresh token; keep the old one.
		newCreds.RefreshToken = c.creds.RefreshToken
	}

	// The refreshed pair must be durable before the retried call goes out.
	if err := c.store.Save(ctx, *newCreds); err != nil {
		return nil, fmt.Errorf("persist refreshed %s token: %w", c.name, err)
	}
	c.creds = *newCreds
	log.Info().Str("provider", c.name).Msg("access token refreshed")

	body, status, err = c.attempt(build)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, &AuthError{Provider: c.name}
	}
	return c.finish(body, status)
}

func (c *Client) attempt(build buildFunc) ([]byte, int, error) {
	req, err := build(c.creds.AccessToken)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s request: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s response: %w", c.name, err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) finish(body []byte, status int) ([]byte, error) {
	if status < 200 || status >= 300 {
		return nil, &RequestError{Provider: c.name, Status: status, Body: string(body)}
	}
	return body, nil
}

// DoJSON issues a JSON request and decodes the response into out (when out
// is non-nil).
func (c *Client) DoJSON(ctx context.Context, method, url string, payload any, out any) error {
	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", c.name, err)
		}
	}

	body, err := c.do(ctx, func(accessToken string) (*http.Request, error) {
		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s response: %w", c.name, err)
		}
	}
	return nil
}

// DoBytes issues a GET and returns the raw response body.
func (c *Client) DoBytes(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, func(accessToken string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}
		return req, nil
	})
}

// DoMultipart posts a multipart form with one file part plus extra fields.
func (c *Client) DoMultipart(ctx context.Context, url string, fields map[string]string, fileField, fileName string, file []byte, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return err
	}
	if _, err := part.Write(file); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	encoded := buf.Bytes()
	contentType := writer.FormDataContentType()

	body, err := c.do(ctx, func(accessToken string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", contentType)
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s response: %w", c.name, err)
		}
	}
	return nil
}
