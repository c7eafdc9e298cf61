package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cardmint/internal/card"
	"cardmint/internal/config"
	"cardmint/internal/history"
	"cardmint/internal/notifications"
	"cardmint/internal/services/hedera"
	"cardmint/internal/services/imgur"
	"cardmint/internal/services/pinata"
	"cardmint/internal/services/tcgcatalog"
	"cardmint/internal/services/vision"
	"cardmint/internal/storage/localcas"
)

// BuildOption customizes Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	logger     *slog.Logger
	httpClient *http.Client
	ledger     hedera.Ledger
	notifier   Notifier
}

// WithLogger sets the base logger for the runner and its adapters.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = logger }
}

// WithHTTPClient shares one HTTP client across every HTTP adapter.
func WithHTTPClient(client *http.Client) BuildOption {
	return func(o *buildOptions) { o.httpClient = client }
}

// WithLedger replaces the SDK ledger used for minting.
func WithLedger(ledger hedera.Ledger) BuildOption {
	return func(o *buildOptions) { o.ledger = ledger }
}

// WithNotifier replaces the ntfy notifier built from config.
func WithNotifier(n Notifier) BuildOption {
	return func(o *buildOptions) { o.notifier = n }
}

// Build wires production adapters from cfg for the given mode. The returned
// close function releases the history database and ledger client.
func Build(cfg *config.Config, mode Mode, opts ...BuildOption) (*Runner, func() error, error) {
	if cfg == nil {
		return nil, nil, errors.New("pipeline: config is required")
	}
	options := buildOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	scope := config.ScopeIdentify
	if mode == ModeMint {
		scope = config.ScopeMint
	}
	if err := cfg.RequireCredentials(scope); err != nil {
		return nil, nil, err
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	deps := Deps{
		ImageHost: imgur.NewClient(imgur.Config{
			ClientID:       cfg.ImageHost.ClientID,
			BaseURL:        cfg.ImageHost.BaseURL,
			TimeoutSeconds: cfg.ImageHost.TimeoutSeconds,
		}, imgur.WithHTTPClient(options.httpClient)),
		Extractor: vision.NewClient(vision.Config{
			APIKey:         cfg.Vision.APIKey,
			BaseURL:        cfg.Vision.BaseURL,
			Model:          cfg.Vision.Model,
			TimeoutSeconds: cfg.Vision.TimeoutSeconds,
			StrictNumber:   cfg.Vision.StrictNumber,
		}, vision.WithHTTPClient(options.httpClient)),
		Catalog: tcgcatalog.New(tcgcatalog.Config{
			APIKey:         cfg.Catalog.APIKey,
			BaseURL:        cfg.Catalog.BaseURL,
			TimeoutSeconds: cfg.Catalog.TimeoutSeconds,
		}, tcgcatalog.WithHTTPClient(options.httpClient)),
		Packager: card.NewPackager(cfg.Metadata.Description),
		Logger:   options.logger,
	}

	if options.notifier != nil {
		deps.Notifier = options.notifier
	} else {
		deps.Notifier = notifications.NewService(cfg)
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open run history: %w", err)
		}
		closers = append(closers, store.Close)
		deps.Recorder = store
	}

	if mode == ModeMint {
		publisher, err := buildPublisher(cfg, options)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		deps.Publisher = publisher

		ledger := options.ledger
		if ledger == nil {
			sdkLedger, err := hedera.NewSDKLedger(hedera.Config{
				AccountID:             cfg.Ledger.AccountID,
				PrivateKey:            cfg.Ledger.PrivateKey,
				Network:               cfg.Ledger.Network,
				MaxTransactionFeeHbar: cfg.Ledger.MaxTransactionFeeHbar,
			})
			if err != nil {
				_ = closeAll()
				return nil, nil, err
			}
			closers = append(closers, sdkLedger.Close)
			ledger = sdkLedger
		}
		deps.Minter = hedera.NewMinter(ledger, cfg.Ledger.MaxSupply, options.logger)
	}

	return New(deps), closeAll, nil
}

func buildPublisher(cfg *config.Config, options buildOptions) (Publisher, error) {
	switch cfg.Publish.Backend {
	case config.PublishBackendLocal:
		store, err := localcas.New(cfg.Publish.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("open local content store: %w", err)
		}
		return store, nil
	case config.PublishBackendPinata, "":
		return pinata.NewClient(pinata.Config{
			Token:          cfg.Pinning.Token,
			BaseURL:        cfg.Pinning.BaseURL,
			Network:        cfg.Pinning.Network,
			TimeoutSeconds: cfg.Pinning.TimeoutSeconds,
			TempDir:        cfg.TempDir(),
		}, pinata.WithHTTPClient(options.httpClient)), nil
	default:
		return nil, fmt.Errorf("publish.backend: unsupported value %q", cfg.Publish.Backend)
	}
}
