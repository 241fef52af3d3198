package update

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultReleaseURL is the latest-release endpoint of the application.
	DefaultReleaseURL = "https://api.github.com/repos/StingerFingersinmyass/TRXUI.INSIDES/releases/latest"
	// DefaultUserAgent is sent with every request; GitHub rejects requests without one.
	DefaultUserAgent = "request"
	// DefaultRequestTimeout bounds each metadata request.
	DefaultRequestTimeout = 60 * time.Second

	// metadataLimit caps how much of a metadata response is read.
	metadataLimit = 10 << 20
)

// ReleaseClient resolves the latest release via a GitHub-style API
type ReleaseClient struct {
	releaseURL string
	userAgent  string
	token      string // Optional, for rate limiting
	client     *http.Client
}

// releaseJSON holds the fields of the latest-release response that matter.
// Everything else in the document is ignored.
type releaseJSON struct {
	TagName   string `json:"tag_name"`
	AssetsURL string `json:"assets_url"`
}

// assetJSON holds the field of an asset that matters.
type assetJSON struct {
	BrowserDownloadURL string `json:"browser_download_url"`
}

// NewReleaseClient creates a client for the given latest-release endpoint
func NewReleaseClient(releaseURL string) *ReleaseClient {
	if releaseURL == "" {
		releaseURL = DefaultReleaseURL
	}
	return &ReleaseClient{
		releaseURL: releaseURL,
		userAgent:  DefaultUserAgent,
		client: &http.Client{
			Timeout: DefaultRequestTimeout,
		},
	}
}

// WithToken sets an optional API token for authentication
func (c *ReleaseClient) WithToken(token string) *ReleaseClient {
	c.token = token
	return c
}

// WithUserAgent overrides the User-Agent header
func (c *ReleaseClient) WithUserAgent(ua string) *ReleaseClient {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// WithTimeout sets the per-request timeout
func (c *ReleaseClient) WithTimeout(d time.Duration) *ReleaseClient {
	if d > 0 {
		c.client.Timeout = d
	}
	return c
}

// GetLatest fetches the latest release metadata, then its assets, and returns
// the release version with the download URL of its first asset.
func (c *ReleaseClient) GetLatest(ctx context.Context) (*Release, error) {
	body, err := c.get(ctx, c.releaseURL)
	if err != nil {
		return nil, &ReleaseResolutionError{Stage: StageMetadataFetch, URL: c.releaseURL, Err: err}
	}

	var meta releaseJSON
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, &ReleaseResolutionError{
			Stage: StageMetadataFetch,
			URL:   c.releaseURL,
			Err:   fmt.Errorf("failed to decode response: %w", err),
		}
	}
	if meta.TagName == "" {
		return nil, &ReleaseResolutionError{Stage: StageFieldMissing, Field: "tag_name", URL: c.releaseURL}
	}
	if meta.AssetsURL == "" {
		return nil, &ReleaseResolutionError{Stage: StageFieldMissing, Field: "assets_url", URL: c.releaseURL}
	}
	log.Debugf("latest release is %s", meta.TagName)

	body, err = c.get(ctx, meta.AssetsURL)
	if err != nil {
		return nil, &ReleaseResolutionError{Stage: StageAssetsFetch, URL: meta.AssetsURL, Err: err}
	}

	downloadURL, err := firstDownloadURL(body)
	if err != nil {
		return nil, &ReleaseResolutionError{
			Stage: StageAssetsFetch,
			URL:   meta.AssetsURL,
			Err:   fmt.Errorf("failed to decode response: %w", err),
		}
	}
	if downloadURL == "" {
		return nil, &ReleaseResolutionError{Stage: StageFieldMissing, Field: "browser_download_url", URL: meta.AssetsURL}
	}

	return &Release{
		Version:     Version(meta.TagName),
		AssetsURL:   meta.AssetsURL,
		DownloadURL: downloadURL,
	}, nil
}

// firstDownloadURL extracts the first non-empty browser_download_url from an
// assets document. GitHub serves a JSON array of assets; a single asset
// object, or an object carrying an "assets" array, is accepted as well.
func firstDownloadURL(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)

	if bytes.HasPrefix(trimmed, []byte("[")) {
		var assets []assetJSON
		if err := json.Unmarshal(trimmed, &assets); err != nil {
			return "", err
		}
		return pickDownloadURL(assets), nil
	}

	var doc struct {
		assetJSON
		Assets []assetJSON `json:"assets"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return "", err
	}
	if doc.BrowserDownloadURL != "" {
		return doc.BrowserDownloadURL, nil
	}
	return pickDownloadURL(doc.Assets), nil
}

func pickDownloadURL(assets []assetJSON) string {
	for _, a := range assets {
		if a.BrowserDownloadURL != "" {
			return a.BrowserDownloadURL
		}
	}
	return ""
}

// get performs a single GET and returns the body of a 2xx response.
func (c *ReleaseClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	// Set headers
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, metadataLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
