// Package config loads, normalizes, and validates cardmint configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for every
// credential (IMAGE_HOST_CLIENT_ID, VISION_API_KEY, PINNING_SERVICE_TOKEN,
// LEDGER_ACCOUNT_ID, LEDGER_PRIVATE_KEY, plus the older IMGUR_CLIENT_ID,
// MISTRAL_API_KEY, PINATA_JWT, ACCOUNT_ID, and PRIVATE_KEY names).
//
// Configuration is read once per process and handed to adapter constructors;
// nothing below cmd/ reads the environment directly.
package config
