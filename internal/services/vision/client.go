package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardmint/internal/card"
	"cardmint/internal/services"
	"cardmint/internal/textutil"
)

const (
	defaultBaseURL     = "https://api.mistral.ai/v1/chat/completions"
	defaultModel       = "pixtral-12b"
	defaultHTTPTimeout = 60 * time.Second
	snippetLimit       = 160
	stageName          = "vision"
)

// IdentityPrompt is the instruction sent alongside every card photo.
const IdentityPrompt = "What is the name of this Pokémon card and what is its number? " +
	"The number is printed at the bottom of the card as N/Total; return only N, the part before the slash. " +
	"Respond with JSON only, in the form {\"name\": \"<card name>\", \"number\": \"<N>\"}."

// Config captures the runtime settings required to talk to the model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	// StrictNumber rejects numbers that are not plain positive integers.
	StrictNumber bool
}

// Client wraps an OpenAI-compatible chat completion API with image input.
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

// NewClient constructs a vision client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
			StrictNumber:   cfg.StrictNumber,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("vision request: http %d: %s", e.StatusCode, textutil.Snippet(e.Body, snippetLimit))
}

// ExtractIdentity asks the model for the card identity shown at imageURL.
func (c *Client) ExtractIdentity(ctx context.Context, imageURL string) (card.Identity, error) {
	var empty card.Identity
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return empty, services.Wrap(services.ErrValidation, stageName, "extract", "image url required", nil)
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, stageName, "extract", "api key required", nil)
	}

	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: IdentityPrompt},
				{Type: "image_url", ImageURL: imageURL},
			},
		}},
	}
	completion, err := c.send(ctx, payload)
	if err != nil {
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) {
			return empty, services.Wrap(services.ErrRemote, stageName, "extract", "", err)
		}
		return empty, services.Wrap(services.ErrTransport, stageName, "extract", "", err)
	}
	content := extractCompletionContent(completion)
	if content == "" {
		return empty, services.Wrap(services.ErrMalformedOutput, stageName, "extract", "empty completion content", nil)
	}

	identity, err := ParseIdentity(content)
	if err != nil {
		return empty, services.Wrap(services.ErrMalformedOutput, stageName, "parse", "", err)
	}
	if c.cfg.StrictNumber {
		if err := identity.ValidateNumber(); err != nil {
			return empty, services.Wrap(services.ErrValidation, stageName, "validate number", "", err)
		}
	}
	return identity, nil
}

// Sanitize removes every backtick, then a leading "json" language tag, and
// trims surrounding whitespace.
func Sanitize(content string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(content, "`", ""))
	if strings.HasPrefix(cleaned, "json") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "json"))
	}
	return cleaned
}

// ParseIdentity sanitizes model output and decodes it as an identity.
func ParseIdentity(content string) (card.Identity, error) {
	var identity card.Identity
	sanitized := Sanitize(content)
	if sanitized == "" {
		return identity, errors.New("empty payload")
	}
	if err := json.Unmarshal([]byte(sanitized), &identity); err != nil {
		return card.Identity{}, fmt.Errorf("%w (payload snippet: %s)", err, textutil.Snippet(sanitized, snippetLimit))
	}
	return identity, nil
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		// Legacy "text" field (completion-style responses).
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func extractCompletionContent(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content
		}
		if text := strings.TrimSpace(choice.Text); text != "" {
			return text
		}
	}
	return ""
}

func (c *Client) send(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, error) {
	var completion chatCompletionResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, fmt.Errorf("vision request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return completion, fmt.Errorf("vision request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, fmt.Errorf("vision request: http error (timeout=%s, latency=%s): %w", c.httpClient.Timeout, time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, fmt.Errorf("vision request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return completion, &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, &httpStatusError{StatusCode: resp.StatusCode, Body: "undecodable response: " + string(body)}
	}
	if completion.Error != nil {
		return completion, &httpStatusError{StatusCode: resp.StatusCode, Body: completion.Error.Message}
	}
	return completion, nil
}
