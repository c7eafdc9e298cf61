package hedera

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cardmint/internal/card"
	"cardmint/internal/logging"
	"cardmint/internal/services"
)

const (
	stageName        = "mint"
	defaultMaxSupply = 250
)

// OrphanedTokenError reports a token type that was created but never minted.
type OrphanedTokenError struct {
	TokenID string
	Err     error
}

func (e *OrphanedTokenError) Error() string {
	return fmt.Sprintf("token type %s created but mint failed: %v", e.TokenID, e.Err)
}

func (e *OrphanedTokenError) Unwrap() error { return e.Err }

// Minter runs token creation followed by a single mint.
type Minter struct {
	ledger    Ledger
	maxSupply int64
	logger    *slog.Logger
}

// NewMinter wraps ledger. A non-positive maxSupply selects 250.
func NewMinter(ledger Ledger, maxSupply int64, logger *slog.Logger) *Minter {
	if maxSupply <= 0 {
		maxSupply = defaultMaxSupply
	}
	return &Minter{
		ledger:    ledger,
		maxSupply: maxSupply,
		logger:    logging.NewComponentLogger(logger, "minter"),
	}
}

// Mint creates a token type from params and mints one unit pointing at cid.
func (m *Minter) Mint(ctx context.Context, cid card.ContentID, params card.TokenParams) (card.MintedToken, error) {
	if strings.TrimSpace(string(cid)) == "" {
		return card.MintedToken{}, services.Wrap(services.ErrValidation, stageName, "mint", "content id required", nil)
	}
	if params.Name == "" || params.Symbol == "" {
		return card.MintedToken{}, services.Wrap(services.ErrValidation, stageName, "create token", fmt.Sprintf("token name and symbol required (name=%q symbol=%q)", params.Name, params.Symbol), nil)
	}
	logger := logging.WithContext(ctx, m.logger)

	tokenID, err := m.ledger.CreateToken(ctx, TokenSpec{
		Name:      params.Name,
		Symbol:    params.Symbol,
		MaxSupply: m.maxSupply,
	})
	if err != nil {
		return card.MintedToken{}, services.Wrap(services.ErrLedger, stageName, "create token", "", err)
	}
	logger.Info("token type created",
		logging.String("token_id", tokenID),
		logging.String("token_name", params.Name),
		logging.String("token_symbol", params.Symbol),
		logging.Int64("max_supply", m.maxSupply),
	)

	serials, err := m.ledger.MintToken(ctx, tokenID, []byte(cid.URI()))
	if err != nil {
		logging.WarnWithContext(logger, "token type orphaned", "mint_orphaned",
			logging.String("token_id", tokenID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "an empty token type remains on the ledger"),
			logging.String(logging.FieldErrorHint, "delete the token type with the operator key or reuse it"),
		)
		orphan := &OrphanedTokenError{TokenID: tokenID, Err: err}
		return card.MintedToken{TokenID: tokenID}, services.Wrap(services.ErrLedger, stageName, "mint token", "", orphan)
	}
	logger.Info("token minted",
		logging.String("token_id", tokenID),
		logging.Any("serials", serials),
		logging.String("metadata_uri", cid.URI()),
	)
	return card.MintedToken{TokenID: tokenID, Serials: serials}, nil
}
