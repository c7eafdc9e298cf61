package config

const (
	defaultConfigPath              = "~/.config/cardmint/config.toml"
	defaultStateDir                = "~/.local/share/cardmint"
	defaultLogDir                  = "~/.local/share/cardmint/logs"
	defaultImageHostBaseURL        = "https://api.imgur.com/3"
	defaultImageHostTimeoutSeconds = 30
	defaultVisionBaseURL           = "https://api.mistral.ai/v1/chat/completions"
	defaultVisionModel             = "pixtral-12b"
	defaultVisionTimeoutSeconds    = 60
	defaultCatalogBaseURL          = "https://api.pokemontcg.io/v2"
	defaultCatalogTimeoutSeconds   = 30
	defaultMetadataDescription     = "A unique Pokémon NFT"
	defaultPinningBaseURL          = "https://uploads.pinata.cloud/v3"
	defaultPinningNetwork          = "public"
	defaultPinningTimeoutSeconds   = 60
	defaultLedgerNetwork           = "testnet"
	defaultLedgerMaxSupply         = 250
	defaultLedgerMaxTransactionFee = 20
	defaultNotifyRequestTimeout    = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultHistoryFileName         = "history.db"
	defaultLocalPublishDirName     = "cas"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		ImageHost: ImageHost{
			BaseURL:        defaultImageHostBaseURL,
			TimeoutSeconds: defaultImageHostTimeoutSeconds,
		},
		Vision: Vision{
			BaseURL:        defaultVisionBaseURL,
			Model:          defaultVisionModel,
			TimeoutSeconds: defaultVisionTimeoutSeconds,
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			TimeoutSeconds: defaultCatalogTimeoutSeconds,
		},
		Metadata: Metadata{
			Description: defaultMetadataDescription,
		},
		Publish: Publish{
			Backend: PublishBackendPinata,
		},
		Pinning: Pinning{
			BaseURL:        defaultPinningBaseURL,
			Network:        defaultPinningNetwork,
			TimeoutSeconds: defaultPinningTimeoutSeconds,
		},
		Ledger: Ledger{
			Network:               defaultLedgerNetwork,
			MaxSupply:             defaultLedgerMaxSupply,
			MaxTransactionFeeHbar: defaultLedgerMaxTransactionFee,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			MintCompleted:  true,
			Errors:         true,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			ToFile: true,
		},
	}
}
