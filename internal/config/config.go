package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Publication backends accepted by publish.backend.
const (
	PublishBackendPinata = "pinata"
	PublishBackendLocal  = "local"
)

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// ImageHost contains configuration for the public image host (Imgur).
type ImageHost struct {
	ClientID       string `toml:"client_id"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Vision contains configuration for the vision-capable chat completion endpoint.
type Vision struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// StrictNumber rejects extracted numbers that are not plain positive
	// integers instead of passing them to the catalog unchanged.
	StrictNumber bool `toml:"strict_number"`
}

// Catalog contains configuration for the trading card catalog API.
type Catalog struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Metadata contains the fixed fields used when packaging token metadata.
type Metadata struct {
	Description string `toml:"description"`
}

// Publish selects where token metadata is published.
type Publish struct {
	Backend  string `toml:"backend"`
	LocalDir string `toml:"local_dir"`
}

// Pinning contains configuration for the Pinata pinning service.
type Pinning struct {
	Token          string `toml:"token"`
	BaseURL        string `toml:"base_url"`
	Network        string `toml:"network"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Ledger contains configuration for the Hedera token service.
type Ledger struct {
	AccountID             string  `toml:"account_id"`
	PrivateKey            string  `toml:"private_key"`
	Network               string  `toml:"network"`
	MaxSupply             int64   `toml:"max_supply"`
	MaxTransactionFeeHbar float64 `toml:"max_transaction_fee_hbar"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	MintCompleted  bool   `toml:"mint_completed"`
	Errors         bool   `toml:"errors"`
}

// History contains configuration for the local run history database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	ToFile bool   `toml:"to_file"`
}

// Config encapsulates all configuration values for cardmint.
//
// Configuration sections by pipeline stage:
//   - ImageHost: photo upload to a public image host
//   - Vision: card identity extraction
//   - Catalog: canonical card lookup
//   - Metadata: packaged token metadata fields
//   - Publish/Pinning: metadata publication backend
//   - Ledger: token creation and minting
//   - Notifications, History, Logging: operational concerns
type Config struct {
	Paths         Paths         `toml:"paths"`
	ImageHost     ImageHost     `toml:"image_host"`
	Vision        Vision        `toml:"vision"`
	Catalog       Catalog       `toml:"catalog"`
	Metadata      Metadata      `toml:"metadata"`
	Publish       Publish       `toml:"publish"`
	Pinning       Pinning       `toml:"pinning"`
	Ledger        Ledger        `toml:"ledger"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cardmint.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, temp, and log directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.TempDir(), c.Paths.LogDir}
	if c.Publish.Backend == PublishBackendLocal {
		dirs = append(dirs, c.Publish.LocalDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TempDir returns the directory holding transient per-run artifacts.
func (c *Config) TempDir() string {
	return filepath.Join(c.Paths.StateDir, "tmp")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
