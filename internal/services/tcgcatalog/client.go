// Package tcgcatalog resolves a card identity against the Pokémon TCG API.
package tcgcatalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardmint/internal/card"
	"cardmint/internal/services"
	"cardmint/internal/textutil"
)

const (
	defaultBaseURL = "https://api.pokemontcg.io/v2"
	defaultTimeout = 30 * time.Second
	stageName      = "catalog"
)

// Config captures the runtime settings for the catalog API.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// Client queries the cards endpoint of the catalog.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a catalog client. The API key is optional; without it the
// catalog applies its anonymous rate limit.
func New(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type searchResponse struct {
	Data       []json.RawMessage `json:"data"`
	TotalCount int               `json:"totalCount"`
}

// Query builds the catalog search expression for a name and number. Names
// containing whitespace are quoted; an empty number is left out.
func Query(name, number string) string {
	name = strings.ReplaceAll(textutil.NormalizeName(name), `"`, "")
	if strings.ContainsAny(name, " \t") {
		name = `"` + name + `"`
	}
	query := "name:" + name
	if number = strings.TrimSpace(number); number != "" {
		query += " number:" + number
	}
	return query
}

// Resolve returns the first catalog card matching name and number. Ties are
// not disambiguated. An empty result reports services.ErrNoMatch.
func (c *Client) Resolve(ctx context.Context, name, number string) (card.Record, error) {
	if strings.TrimSpace(name) == "" {
		return card.Record{}, services.Wrap(services.ErrValidation, stageName, "resolve", "card name required", nil)
	}
	query := Query(name, number)

	endpoint, err := url.Parse(c.baseURL + "/cards")
	if err != nil {
		return card.Record{}, services.Wrap(services.ErrConfiguration, stageName, "resolve", "parse catalog url", err)
	}
	params := url.Values{}
	params.Set("q", query)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return card.Record{}, services.Wrap(services.ErrTransport, stageName, "resolve", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return card.Record{}, services.Wrap(services.ErrTransport, stageName, "resolve", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return card.Record{}, services.Wrap(services.ErrRemote, stageName, "resolve", fmt.Sprintf("catalog search returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return card.Record{}, services.Wrap(services.ErrRemote, stageName, "resolve", "decode catalog response", err)
	}
	if len(payload.Data) == 0 {
		return card.Record{}, services.Wrap(services.ErrNoMatch, stageName, "resolve", fmt.Sprintf("no cards for %q", query), nil)
	}
	record, err := card.ParseRecord(payload.Data[0])
	if err != nil {
		return card.Record{}, services.Wrap(services.ErrRemote, stageName, "resolve", "", err)
	}
	if record.Name == "" {
		return card.Record{}, services.Wrap(services.ErrRemote, stageName, "resolve", "first match has no name", errors.New(textutil.Snippet(string(payload.Data[0]), 160)))
	}
	return record, nil
}
