// Package localcas is an offline metadata publisher. Documents are stored
// under a local directory keyed by their CIDv1 (raw codec, sha2-256), the
// same identifier an IPFS node would assign to the bytes.
package localcas

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"cardmint/internal/card"
	"cardmint/internal/fileutil"
	"cardmint/internal/services"
)

var (
	ErrNotFound    = errors.New("localcas: not found")
	ErrImmutable   = errors.New("localcas: existing object differs")
	ErrCIDMismatch = errors.New("localcas: content does not match cid")
)

// Store is a filesystem content-addressable store.
type Store struct {
	root string
}

// New constructs a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localcas: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localcas: create root: %w", err)
	}
	return &Store{root: root}, nil
}

// Publish encodes md and stores it, returning its content identifier.
func (s *Store) Publish(_ context.Context, md card.Metadata) (card.ContentID, error) {
	encoded, err := md.Encode()
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "publish", "store", "", err)
	}
	id, err := s.Put(encoded)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "publish", "store", "", err)
	}
	return card.ContentID(id.String()), nil
}

// Put stores data and returns its CID. Storing identical bytes twice is a
// no-op; differing bytes under an existing CID report ErrImmutable.
func (s *Store) Put(data []byte) (cid.Cid, error) {
	id, err := Sum(data)
	if err != nil {
		return cid.Undef, err
	}
	path := s.pathFor(id)
	if _, err := os.Stat(path); err == nil {
		existing, rerr := s.Get(id.String())
		if rerr != nil || string(existing) != string(data) {
			return cid.Undef, ErrImmutable
		}
		return id, nil
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o444); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

// Get returns the bytes stored under id after verifying they hash to it.
func (s *Store) Get(id string) ([]byte, error) {
	parsed, err := cid.Decode(id)
	if err != nil {
		return nil, fmt.Errorf("localcas: decode cid: %w", err)
	}
	b, err := os.ReadFile(s.pathFor(parsed))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	got, err := Sum(b)
	if err != nil {
		return nil, err
	}
	if !got.Equals(parsed) {
		return nil, ErrCIDMismatch
	}
	return b, nil
}

func (s *Store) pathFor(id cid.Cid) string {
	str := id.String()
	if len(str) < 2 {
		return filepath.Join(s.root, str)
	}
	return filepath.Join(s.root, str[len(str)-2:], str)
}
