package hedera

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/hashgraph/hedera-sdk-go/v2"

	"cardmint/internal/services"
)

const defaultMaxFeeHbar = 20

// Config holds operator credentials and network selection.
type Config struct {
	AccountID             string
	PrivateKey            string
	Network               string
	MaxTransactionFeeHbar float64
}

// SDKLedger implements Ledger with the Hedera Go SDK. The operator account is
// treasury and its key is the supply key for every token it creates.
type SDKLedger struct {
	client     *sdk.Client
	operatorID sdk.AccountID
	operator   sdk.PrivateKey
	maxFee     sdk.Hbar
}

var _ Ledger = (*SDKLedger)(nil)

// NewSDKLedger parses the operator credentials and builds a network client.
func NewSDKLedger(cfg Config) (*SDKLedger, error) {
	accountID, err := sdk.AccountIDFromString(strings.TrimSpace(cfg.AccountID))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "operator", "parse account id", err)
	}
	key, err := sdk.PrivateKeyFromString(strings.TrimSpace(cfg.PrivateKey))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "operator", "parse private key", err)
	}
	network := strings.ToLower(strings.TrimSpace(cfg.Network))
	if network == "" {
		network = "testnet"
	}
	client, err := sdk.ClientForName(network)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "operator", fmt.Sprintf("network %q", network), err)
	}
	client.SetOperator(accountID, key)

	fee := cfg.MaxTransactionFeeHbar
	if fee <= 0 {
		fee = defaultMaxFeeHbar
	}
	return &SDKLedger{
		client:     client,
		operatorID: accountID,
		operator:   key,
		maxFee:     sdk.NewHbar(fee),
	}, nil
}

// Close releases network connections.
func (l *SDKLedger) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

// CreateToken submits a TokenCreate for a finite NFT type with zero decimals
// and zero initial supply.
func (l *SDKLedger) CreateToken(ctx context.Context, spec TokenSpec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tx, err := sdk.NewTokenCreateTransaction().
		SetTokenName(spec.Name).
		SetTokenSymbol(spec.Symbol).
		SetTokenType(sdk.TokenTypeNonFungibleUnique).
		SetDecimals(0).
		SetInitialSupply(0).
		SetTreasuryAccountID(l.operatorID).
		SetSupplyType(sdk.TokenSupplyTypeFinite).
		SetMaxSupply(spec.MaxSupply).
		SetSupplyKey(l.operator.PublicKey()).
		FreezeWith(l.client)
	if err != nil {
		return "", fmt.Errorf("freeze token create: %w", err)
	}
	resp, err := tx.Sign(l.operator).Execute(l.client)
	if err != nil {
		return "", fmt.Errorf("execute token create: %w", err)
	}
	receipt, err := resp.GetReceipt(l.client)
	if err != nil {
		return "", fmt.Errorf("token create receipt: %w", err)
	}
	if receipt.TokenID == nil {
		return "", errors.New("token create receipt has no token id")
	}
	return receipt.TokenID.String(), nil
}

// MintToken submits a TokenMint of one unit carrying metadata.
func (l *SDKLedger) MintToken(ctx context.Context, tokenID string, metadata []byte) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := sdk.TokenIDFromString(tokenID)
	if err != nil {
		return nil, fmt.Errorf("parse token id: %w", err)
	}
	tx, err := sdk.NewTokenMintTransaction().
		SetTokenID(id).
		SetMetadata(metadata).
		SetMaxTransactionFee(l.maxFee).
		FreezeWith(l.client)
	if err != nil {
		return nil, fmt.Errorf("freeze token mint: %w", err)
	}
	resp, err := tx.Sign(l.operator).Execute(l.client)
	if err != nil {
		return nil, fmt.Errorf("execute token mint: %w", err)
	}
	receipt, err := resp.GetReceipt(l.client)
	if err != nil {
		return nil, fmt.Errorf("token mint receipt: %w", err)
	}
	return receipt.SerialNumbers, nil
}
