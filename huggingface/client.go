// Package huggingface implements the small slice of the Hugging Face
// Hub API needed to fetch checkpoints: model metadata lookup and file
// downloads with resume.
package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/strata-ml/strata/version"
)

const defaultEndpoint = "https://huggingface.co"

var (
	ErrModelNotFound  = errors.New("model not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidModelID = errors.New("invalid model id")
)

// ModelInfo is the hub's metadata for one model repository.
type ModelInfo struct {
	ID           string    `json:"id"`
	SHA          string    `json:"sha"`
	LastModified time.Time `json:"lastModified"`
	Private      bool      `json:"private"`

	// Gated is false, "auto" or "manual" depending on how access to
	// the repository is granted.
	Gated any `json:"gated"`

	Siblings []Sibling `json:"siblings"`
}

// IsGated reports whether downloading requires an access token.
func (m *ModelInfo) IsGated() bool {
	switch v := m.Gated.(type) {
	case bool:
		return v
	case string:
		return v == "auto" || v == "manual"
	}

	return false
}

// Checkpoints returns the repository files holding model weights.
func (m *ModelInfo) Checkpoints() []Sibling {
	var cs []Sibling
	for _, s := range m.Siblings {
		if strings.HasSuffix(s.Filename, ".gguf") {
			cs = append(cs, s)
		}
	}

	return cs
}

// Sibling is one file in a model repository.
type Sibling struct {
	Filename string `json:"rfilename"`
	Size     int64  `json:"size"`
	LFS      *LFS   `json:"lfs,omitempty"`
}

// LFS carries the metadata of files stored through git-lfs.
type LFS struct {
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// FileSize returns the file's size in bytes, or 0 when the API did not
// report one.
func (s Sibling) FileSize() int64 {
	if s.LFS != nil && s.LFS.Size > 0 {
		return s.LFS.Size
	}

	return s.Size
}

// Client talks to a Hugging Face compatible hub.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at a different hub.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = strings.TrimSuffix(url, "/") }
}

// WithToken sets the access token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a hub client configured from the environment.
// HF_ENDPOINT overrides the hub URL and HF_TOKEN supplies credentials
// for private or gated repositories.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint: defaultEndpoint,
		token:    os.Getenv("HF_TOKEN"),
		http:     &http.Client{Timeout: 30 * time.Minute},
	}

	if endpoint := os.Getenv("HF_ENDPOINT"); endpoint != "" {
		c.endpoint = strings.TrimSuffix(endpoint, "/")
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ModelInfo fetches the metadata for modelID, which must name a
// repository as "owner/model".
func (c *Client) ModelInfo(ctx context.Context, modelID string) (*ModelInfo, error) {
	if err := validateModelID(modelID); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/models/%s", c.endpoint, modelID), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := statusError(resp, modelID); err != nil {
		return nil, err
	}

	var info ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode model info: %w", err)
	}

	return &info, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "strata/"+version.Version)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func statusError(resp *http.Response, modelID string) error {
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, modelID)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("hub returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

func validateModelID(modelID string) error {
	owner, name, ok := strings.Cut(modelID, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q, expected \"owner/model\"", ErrInvalidModelID, modelID)
	}

	return nil
}
