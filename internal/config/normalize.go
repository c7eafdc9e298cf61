package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeImageHost()
	c.normalizeVision()
	c.normalizeCatalog()
	c.normalizeMetadata()
	if err := c.normalizePublish(); err != nil {
		return err
	}
	c.normalizeLedger()
	c.normalizeNotifications()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeImageHost() {
	c.ImageHost.ClientID = firstEnv(c.ImageHost.ClientID, "IMAGE_HOST_CLIENT_ID", "IMGUR_CLIENT_ID")
	c.ImageHost.BaseURL = strings.TrimSpace(c.ImageHost.BaseURL)
	if c.ImageHost.BaseURL == "" {
		c.ImageHost.BaseURL = defaultImageHostBaseURL
	}
}

func (c *Config) normalizeVision() {
	c.Vision.APIKey = firstEnv(c.Vision.APIKey, "VISION_API_KEY", "MISTRAL_API_KEY")
	c.Vision.BaseURL = strings.TrimSpace(c.Vision.BaseURL)
	if c.Vision.BaseURL == "" {
		c.Vision.BaseURL = defaultVisionBaseURL
	}
	c.Vision.Model = strings.TrimSpace(c.Vision.Model)
	if c.Vision.Model == "" {
		c.Vision.Model = defaultVisionModel
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.APIKey = firstEnv(c.Catalog.APIKey, "CATALOG_API_KEY", "POKEMONTCG_API_KEY")
	c.Catalog.BaseURL = strings.TrimSpace(c.Catalog.BaseURL)
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
}

func (c *Config) normalizeMetadata() {
	c.Metadata.Description = strings.TrimSpace(c.Metadata.Description)
	if c.Metadata.Description == "" {
		c.Metadata.Description = defaultMetadataDescription
	}
}

func (c *Config) normalizePublish() error {
	c.Publish.Backend = strings.ToLower(strings.TrimSpace(c.Publish.Backend))
	if c.Publish.Backend == "" {
		c.Publish.Backend = PublishBackendPinata
	}
	if strings.TrimSpace(c.Publish.LocalDir) == "" {
		c.Publish.LocalDir = filepath.Join(c.Paths.StateDir, defaultLocalPublishDirName)
	}
	var err error
	if c.Publish.LocalDir, err = expandPath(c.Publish.LocalDir); err != nil {
		return fmt.Errorf("publish.local_dir: %w", err)
	}

	c.Pinning.Token = firstEnv(c.Pinning.Token, "PINNING_SERVICE_TOKEN", "PINATA_JWT")
	c.Pinning.BaseURL = strings.TrimSpace(c.Pinning.BaseURL)
	if c.Pinning.BaseURL == "" {
		c.Pinning.BaseURL = defaultPinningBaseURL
	}
	c.Pinning.Network = strings.ToLower(strings.TrimSpace(c.Pinning.Network))
	if c.Pinning.Network == "" {
		c.Pinning.Network = defaultPinningNetwork
	}
	return nil
}

func (c *Config) normalizeLedger() {
	c.Ledger.AccountID = firstEnv(c.Ledger.AccountID, "LEDGER_ACCOUNT_ID", "ACCOUNT_ID")
	c.Ledger.PrivateKey = firstEnv(c.Ledger.PrivateKey, "LEDGER_PRIVATE_KEY", "PRIVATE_KEY")
	c.Ledger.Network = strings.ToLower(strings.TrimSpace(c.Ledger.Network))
	if c.Ledger.Network == "" {
		c.Ledger.Network = defaultLedgerNetwork
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = firstEnv(c.Notifications.NtfyTopic, "NTFY_TOPIC")
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryFileName)
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// firstEnv keeps a configured value when present, otherwise returns the first
// non-empty environment variable among keys.
func firstEnv(current string, keys ...string) string {
	if value := strings.TrimSpace(current); value != "" {
		return value
	}
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
