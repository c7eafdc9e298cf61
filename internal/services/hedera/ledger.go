package hedera

import "context"

// TokenSpec describes the token type created for one card.
type TokenSpec struct {
	Name      string
	Symbol    string
	MaxSupply int64
}

// Ledger is the token service surface Minter depends on.
type Ledger interface {
	// CreateToken creates an NFT token type with the operator as treasury
	// and supply key, and returns its id.
	CreateToken(ctx context.Context, spec TokenSpec) (string, error)
	// MintToken mints one unit carrying metadata and returns the new serials.
	MintToken(ctx context.Context, tokenID string, metadata []byte) ([]int64, error)
}
