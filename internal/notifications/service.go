package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cardmint/internal/config"
)

const (
	userAgent        = "cardmint/0.1.0"
	defaultNtfyHost  = "https://ntfy.sh/"
	defaultTimeout   = 10 * time.Second
	maxErrorBodySize = 2048
)

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyMinted(ctx context.Context, cardName, tokenID string, serials []int64) error
	NotifyRunFailed(ctx context.Context, stage string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned. A bare
// topic name is published to ntfy.sh.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	endpoint := topic
	if !strings.Contains(topic, "://") {
		endpoint = defaultNtfyHost + strings.TrimPrefix(topic, "/")
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &ntfyService{
		endpoint:      endpoint,
		client:        &http.Client{Timeout: timeout},
		mintCompleted: cfg.Notifications.MintCompleted,
		errors:        cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	mintCompleted bool
	errors        bool
}

func (n *ntfyService) NotifyMinted(ctx context.Context, cardName, tokenID string, serials []int64) error {
	if !n.mintCompleted {
		return nil
	}
	cardName = strings.TrimSpace(cardName)
	if cardName == "" {
		cardName = "unknown card"
	}
	message := fmt.Sprintf("🃏 Minted %s as %s", cardName, strings.TrimSpace(tokenID))
	if len(serials) > 0 {
		parts := make([]string, 0, len(serials))
		for _, serial := range serials {
			parts = append(parts, strconv.FormatInt(serial, 10))
		}
		message = fmt.Sprintf("%s (serial %s)", message, strings.Join(parts, ", "))
	}
	return n.send(ctx, payload{
		title:   "cardmint - Minted",
		message: message,
		tags:    []string{"cardmint", "mint", "completed"},
	})
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, stage string, err error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Run failed")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" at ")
		builder.WriteString(stage)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "cardmint - Error",
		message:  builder.String(),
		tags:     []string{"cardmint", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "cardmint - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"cardmint", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyMinted(context.Context, string, string, []int64) error { return nil }
func (noopService) NotifyRunFailed(context.Context, string, error) error        { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
