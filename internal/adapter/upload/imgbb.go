package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

const DefaultEndpoint = "https://api.imgbb.com/1/upload"

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

type hostResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client posts images to an imgbb compatible host as the multipart field
// "image" and returns the hosted URL.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(endpoint, apiKey string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: endpoint, apiKey: apiKey, http: httpClient}
}

func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	if content == nil {
		return "", &domain.UploadError{Err: errors.New("empty image")}
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", sanitizeFilename(filename))
	if err != nil {
		return "", &domain.UploadError{Err: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", &domain.UploadError{Err: fmt.Errorf("read image: %w", err)}
	}
	if err := form.Close(); err != nil {
		return "", &domain.UploadError{Err: err}
	}

	target := c.endpoint
	if c.apiKey != "" {
		target += "?key=" + url.QueryEscape(c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return "", &domain.UploadError{Err: err}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &domain.UploadError{Err: err}
	}
	defer resp.Body.Close()

	var out hostResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return "", &domain.UploadError{Err: fmt.Errorf("image host returned %d: %s", resp.StatusCode, msg)}
	}
	if decodeErr != nil {
		return "", &domain.UploadError{Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if !out.Success || out.Data.URL == "" {
		return "", &domain.UploadError{Err: errors.New("image host reported failure")}
	}

	return out.Data.URL, nil
}

// sanitizeFilename keeps the base name, replaces anything outside
// [a-zA-Z0-9._-] and prefixes a uuid.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "image"
	}
	return uuid.NewString() + "-" + base
}
