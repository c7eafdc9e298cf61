// Package pinata publishes token metadata documents to Pinata and returns
// their IPFS content identifier.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cardmint/internal/card"
	"cardmint/internal/fileutil"
	"cardmint/internal/services"
	"cardmint/internal/textutil"
)

const (
	defaultBaseURL = "https://uploads.pinata.cloud/v3"
	defaultNetwork = "public"
	defaultTimeout = 60 * time.Second
	uploadName     = "metadata.json"
	stageName      = "publish"
)

// Config captures the runtime settings for the pinning service.
type Config struct {
	Token          string
	BaseURL        string
	Network        string
	TimeoutSeconds int
	// TempDir holds the per-upload metadata file. Empty uses os.TempDir.
	TempDir string
}

// Client uploads files to the Pinata v3 files API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a pinning client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			Token:          strings.TrimSpace(cfg.Token),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Network:        strings.TrimSpace(cfg.Network),
			TimeoutSeconds: cfg.TimeoutSeconds,
			TempDir:        cfg.TempDir,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Network == "" {
		client.cfg.Network = defaultNetwork
	}
	return client
}

type uploadResponse struct {
	Data struct {
		ID  string `json:"id"`
		CID string `json:"cid"`
	} `json:"data"`
}

// Publish writes md to a uniquely named temporary file, uploads it, and
// returns the pinned CID. The temporary file is removed before returning.
func (c *Client) Publish(ctx context.Context, md card.Metadata) (card.ContentID, error) {
	if c.cfg.Token == "" {
		return "", services.Wrap(services.ErrConfiguration, stageName, "pin", "pinning token required", nil)
	}
	encoded, err := md.Encode()
	if err != nil {
		return "", services.Wrap(services.ErrValidation, stageName, "pin", "", err)
	}
	tmp, err := fileutil.WriteTemp(c.cfg.TempDir, "metadata-"+textutil.SanitizeToken(md.Name)+"-*.json", encoded)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, stageName, "pin", "stage metadata file", err)
	}
	defer tmp.Remove()

	return c.upload(ctx, tmp.Path)
}

func (c *Client) upload(ctx context.Context, path string) (card.ContentID, error) {
	body, contentType, err := c.encodeForm(path)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, stageName, "pin", "", err)
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "files")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "pin", "build url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, stageName, "pin", "new request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start).Round(time.Millisecond)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, stageName, "pin", fmt.Sprintf("http error (timeout=%s, latency=%s)", c.httpClient.Timeout, latency), err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, stageName, "pin", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.Wrap(services.ErrRemote, stageName, "pin", fmt.Sprintf("http %d (latency=%s): %s", resp.StatusCode, latency, textutil.Snippet(string(raw), 160)), nil)
	}

	var parsed uploadResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", services.Wrap(services.ErrRemote, stageName, "pin", "decode response", err)
	}
	cid := strings.TrimSpace(parsed.Data.CID)
	if cid == "" {
		return "", services.Wrap(services.ErrRemote, stageName, "pin", "response missing data.cid: "+textutil.Snippet(string(raw), 160), nil)
	}
	return card.ContentID(cid), nil
}

func (c *Client) encodeForm(path string) (io.Reader, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open metadata file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", uploadName)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy metadata file: %w", err)
	}
	if err := writer.WriteField("network", c.cfg.Network); err != nil {
		return nil, "", fmt.Errorf("write network field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
