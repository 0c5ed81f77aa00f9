package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ComputeCID returns the CIDv1 (raw codec, sha2-256 multihash) of data.
// Backends without native content addressing key objects by it.
func ComputeCID(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("computing multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// ValidateCID reports whether s decodes as a CID of any version.
func ValidateCID(s string) error {
	if _, err := cid.Decode(s); err != nil {
		return fmt.Errorf("invalid CID %q: %w", s, err)
	}
	return nil
}
