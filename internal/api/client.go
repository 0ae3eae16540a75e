package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

const (
	UploadPath  = "/api/images/upload"
	AnalyzePath = "/api/images/{imageId}/analyze"
	StatsPath   = "/api/results/stats"
)

// Client talks to the image recognition backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Close closes the HTTP client's connection pool
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// UploadResult is returned by the upload endpoint
type UploadResult struct {
	ImageID string `json:"imageId"`
}

// Upload sends an image as the multipart form field "image"
func (c *Client) Upload(ctx context.Context, filename string, image io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	data, err := c.do(req, "Upload")
	if err != nil {
		return nil, err
	}

	var result UploadResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.ImageID == "" {
		return nil, fmt.Errorf("upload response did not include an imageId")
	}

	return &result, nil
}

// Analyze runs image analysis on a previously uploaded image
func (c *Client) Analyze(ctx context.Context, imageID string) (*Analysis, error) {
	endpoint := strings.Replace(AnalyzePath, "{imageId}", url.PathEscape(imageID), 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := c.do(req, "Analysis")
	if err != nil {
		return nil, err
	}

	return ParseAnalysis(data)
}

// Stats fetches usage statistics for the last daysBack days
func (c *Client) Stats(ctx context.Context, daysBack int) (*Stats, error) {
	q := url.Values{}
	q.Set("days_back", fmt.Sprintf("%d", daysBack))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+StatsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	data, err := c.do(req, "Stats")
	if err != nil {
		return nil, err
	}

	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats response: %w", err)
	}
	stats.DaysBack = daysBack

	return &stats, nil
}

// do performs the request and returns the body of a 2xx response
func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s failed: failed to read response body: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Operation: operation, StatusCode: resp.StatusCode}
	}

	return data, nil
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Operation  string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Operation, http.StatusText(e.StatusCode))
}
