// Package hedera creates and mints non-fungible tokens that point at
// published card metadata.
//
// Minter holds the two-step flow: create a finite-supply NFT token type for
// the card's set, then mint one unit whose metadata is the ipfs:// URI of the
// published document. The ledger itself is reached through the Ledger
// interface; SDKLedger implements it with the Hedera Go SDK. A mint that
// fails after its token type was created leaves that type orphaned on the
// ledger; Minter reports it through OrphanedTokenError and does not attempt
// to delete it.
package hedera
