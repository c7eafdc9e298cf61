// Package card holds the values that flow through a mint run: the identity
// guessed from a photo, the catalog record it resolves to, the token metadata
// packaged from that record, and the minted token that records it.
//
// Nothing here performs I/O. Packaging is pure so the same record always
// encodes to the same bytes.
package card
