package testsupport

import (
	"path/filepath"
	"testing"

	"cardmint/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories and
// placeholder credentials per test. Logging to file is disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.History.Path = filepath.Join(cfgVal.Paths.StateDir, "history.db")
	cfgVal.Publish.LocalDir = filepath.Join(cfgVal.Paths.StateDir, "cas")
	cfgVal.ImageHost.ClientID = "test-client"
	cfgVal.Vision.APIKey = "test-vision-key"
	cfgVal.Pinning.Token = "test-pinning-token"
	cfgVal.Ledger.AccountID = "0.0.1001"
	cfgVal.Ledger.PrivateKey = "302e020100300506032b657004220420" + "00000000000000000000000000000000000000000000000000000000000000aa"
	cfgVal.Logging.ToFile = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithLocalPublisher selects the content-addressed local publish backend.
func WithLocalPublisher() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publish.Backend = config.PublishBackendLocal
	}
}

// WithoutHistory disables the run history store.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithServiceURLs points every HTTP adapter at the given base URL.
func WithServiceURLs(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ImageHost.BaseURL = baseURL
		b.cfg.Vision.BaseURL = baseURL + "/v1/chat/completions"
		b.cfg.Catalog.BaseURL = baseURL
		b.cfg.Pinning.BaseURL = baseURL
	}
}

// BaseDir returns the temp root the builder allocated.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
