package config

import (
	"errors"
	"fmt"
	"strings"
)

// Scope names the pipeline surface a command needs credentials for.
type Scope int

const (
	// ScopeIdentify covers image upload, vision extraction, and catalog lookup.
	ScopeIdentify Scope = iota
	// ScopeMint adds metadata publication and token minting.
	ScopeMint
)

var logLevels = map[string]struct{}{
	"debug":   {},
	"info":    {},
	"warn":    {},
	"warning": {},
	"error":   {},
	"fatal":   {},
}

var ledgerNetworks = map[string]struct{}{
	"mainnet":    {},
	"testnet":    {},
	"previewnet": {},
}

// Validate ensures the configuration is structurally usable. Credentials are
// checked separately by RequireCredentials because not every command needs them.
func (c *Config) Validate() error {
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireCredentials reports every missing credential for the given scope in a
// single error.
func (c *Config) RequireCredentials(scope Scope) error {
	var missing []string
	if c.ImageHost.ClientID == "" {
		missing = append(missing, "image_host.client_id (IMAGE_HOST_CLIENT_ID)")
	}
	if c.Vision.APIKey == "" {
		missing = append(missing, "vision.api_key (VISION_API_KEY)")
	}
	if scope >= ScopeMint {
		if c.Publish.Backend == PublishBackendPinata && c.Pinning.Token == "" {
			missing = append(missing, "pinning.token (PINNING_SERVICE_TOKEN)")
		}
		if c.Ledger.AccountID == "" {
			missing = append(missing, "ledger.account_id (LEDGER_ACCOUNT_ID)")
		}
		if c.Ledger.PrivateKey == "" {
			missing = append(missing, "ledger.private_key (LEDGER_PRIVATE_KEY)")
		}
	}
	if len(missing) == 0 {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("missing credentials: %s. Set the env vars or edit %s (create with 'cardmint config init')",
		strings.Join(missing, ", "), defaultPath)
}

func (c *Config) validateTimeouts() error {
	for key, value := range map[string]int{
		"image_host.timeout_seconds":    c.ImageHost.TimeoutSeconds,
		"vision.timeout_seconds":        c.Vision.TimeoutSeconds,
		"catalog.timeout_seconds":       c.Catalog.TimeoutSeconds,
		"pinning.timeout_seconds":       c.Pinning.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	} {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0 (0 disables the client timeout)", key)
		}
	}
	return nil
}

func (c *Config) validatePublish() error {
	switch c.Publish.Backend {
	case PublishBackendPinata:
		if c.Pinning.Network != "public" && c.Pinning.Network != "private" {
			return errors.New("pinning.network must be public or private")
		}
	case PublishBackendLocal:
		if strings.TrimSpace(c.Publish.LocalDir) == "" {
			return errors.New("publish.local_dir must be set when publish.backend is local")
		}
	default:
		return fmt.Errorf("publish.backend: unsupported value %q (want pinata or local)", c.Publish.Backend)
	}
	return nil
}

func (c *Config) validateLedger() error {
	if _, ok := ledgerNetworks[c.Ledger.Network]; !ok {
		return fmt.Errorf("ledger.network: unsupported value %q (want mainnet, testnet, or previewnet)", c.Ledger.Network)
	}
	if c.Ledger.MaxSupply <= 0 {
		return errors.New("ledger.max_supply must be positive")
	}
	if c.Ledger.MaxTransactionFeeHbar <= 0 {
		return errors.New("ledger.max_transaction_fee_hbar must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	if _, ok := logLevels[c.Logging.Level]; !ok {
		return fmt.Errorf("logging.level: unsupported value %q (want debug, info, warn, or error)", c.Logging.Level)
	}
	return nil
}
