// Package imgur uploads card photos to Imgur and returns their public link.
package imgur

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardmint/internal/capture"
	"cardmint/internal/services"
	"cardmint/internal/textutil"
)

const (
	defaultBaseURL = "https://api.imgur.com/3"
	defaultTimeout = 30 * time.Second
)

// Config captures the runtime settings for the image host.
type Config struct {
	ClientID       string
	BaseURL        string
	TimeoutSeconds int
}

// Client uploads images anonymously under an application client id.
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

// NewClient constructs an image host client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			ClientID:       strings.TrimSpace(cfg.ClientID),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// StatusError reports a non-success upload envelope or HTTP status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("imgur upload: http %d: %s", e.StatusCode, e.Message)
}

type uploadResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		Link  string          `json:"link"`
		Error json.RawMessage `json:"error"`
	} `json:"data"`
}

// Upload posts img as multipart field "image" and returns the public link.
// Failures carry services.ErrRemote for rejected uploads and
// services.ErrTransport when the host could not be reached.
func (c *Client) Upload(ctx context.Context, img capture.Image) (string, error) {
	if c.cfg.ClientID == "" {
		return "", services.Wrap(services.ErrConfiguration, "image_host", "upload", "client id required", nil)
	}
	link, err := c.upload(ctx, img)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return "", services.Wrap(services.ErrRemote, "image_host", "upload", "", err)
		}
		return "", services.Wrap(services.ErrTransport, "image_host", "upload", "", err)
	}
	return link, nil
}

func (c *Client) upload(ctx context.Context, img capture.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", errors.New("imgur upload: image is empty")
	}

	body, contentType, err := encodeImage(img)
	if err != nil {
		return "", err
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "upload")
	if err != nil {
		return "", fmt.Errorf("imgur upload: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("imgur upload: new request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.cfg.ClientID)
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgur upload: http error (timeout=%s, latency=%s): %w", c.httpClient.Timeout, time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("imgur upload: read body: %w", err)
	}

	var parsed uploadResponse
	decodeErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode >= http.StatusMultipleChoices || (decodeErr == nil && !parsed.Success) {
		return "", &StatusError{StatusCode: resp.StatusCode, Message: envelopeMessage(parsed, raw)}
	}
	if decodeErr != nil {
		return "", &StatusError{StatusCode: resp.StatusCode, Message: "undecodable response: " + textutil.Snippet(string(raw), 160)}
	}
	link := strings.TrimSpace(parsed.Data.Link)
	if link == "" {
		return "", &StatusError{StatusCode: resp.StatusCode, Message: "response missing data.link"}
	}
	return link, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeImage(img capture.Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	name := img.Name
	if name == "" {
		name = "card.jpg"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(name)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("imgur upload: create form file: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("imgur upload: write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("imgur upload: close form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// envelopeMessage extracts data.error, which Imgur sends as a string or as an
// object with a message field.
func envelopeMessage(parsed uploadResponse, raw []byte) string {
	if len(parsed.Data.Error) > 0 {
		var text string
		if err := json.Unmarshal(parsed.Data.Error, &text); err == nil && text != "" {
			return text
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(parsed.Data.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return textutil.Snippet(string(raw), 160)
}
