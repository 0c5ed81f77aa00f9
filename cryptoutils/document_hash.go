package cryptoutils

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DocumentHashLength is the width of a document fingerprint as passed to the
// transcript registry (a Solidity bytes32).
const DocumentHashLength = 32

// DocumentHash is the SHA-256 fingerprint of a document's raw bytes,
// left-padded to the canonical bytes32 width.
type DocumentHash [DocumentHashLength]byte

// HashError is returned when a document cannot be read to completion.
type HashError struct {
	Err error
}

func (e *HashError) Error() string {
	return fmt.Sprintf("could not hash document: %v", e.Err)
}

func (e *HashError) Unwrap() error {
	return e.Err
}

// ErrInvalidDocumentHash is returned when parsing a malformed hex digest.
var ErrInvalidDocumentHash = errors.New("invalid document hash")

// HashDocument computes the document fingerprint over everything readable from r.
// File names and other metadata never enter the digest.
func HashDocument(r io.Reader) (DocumentHash, error) {
	if r == nil {
		return DocumentHash{}, &HashError{Err: errors.New("nil reader")}
	}

	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return DocumentHash{}, &HashError{Err: err}
	}

	var res DocumentHash
	copy(res[:], common.LeftPadBytes(h.Sum(nil), DocumentHashLength))
	return res, nil
}

// HashDocumentBytes is HashDocument over an in-memory document.
func HashDocumentBytes(data []byte) DocumentHash {
	// reading from a bytes.Reader cannot fail
	res, _ := HashDocument(bytes.NewReader(data))
	return res
}

// ParseDocumentHash parses a 0x-prefixed (or bare) 64-char hex digest.
func ParseDocumentHash(s string) (DocumentHash, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(clean) != 2*DocumentHashLength {
		return DocumentHash{}, fmt.Errorf("%w: hex string must be 64 characters", ErrInvalidDocumentHash)
	}

	raw, err := hexutil.Decode("0x" + clean)
	if err != nil {
		return DocumentHash{}, fmt.Errorf("%w: %v", ErrInvalidDocumentHash, err)
	}

	var res DocumentHash
	copy(res[:], raw)
	return res, nil
}

// Hex returns the 0x-prefixed lowercase hex form used on the wire and in the metadata store.
func (h DocumentHash) Hex() string {
	return hexutil.Encode(h[:])
}

func (h DocumentHash) String() string {
	return h.Hex()
}

// Bytes32 returns the digest as a fixed-width contract parameter.
func (h DocumentHash) Bytes32() [32]byte {
	return [32]byte(h)
}

// IsZero reports whether the digest is unset.
func (h DocumentHash) IsZero() bool {
	return h == DocumentHash{}
}

func (h DocumentHash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *DocumentHash) UnmarshalText(text []byte) error {
	parsed, err := ParseDocumentHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
