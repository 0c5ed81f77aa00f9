package interfaces

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainCallError_IsKind(t *testing.T) {
	err := fmt.Errorf("issuing: %w", NewChainCallError("issueTranscripts", ChainErrDuplicateCID, errors.New("execution reverted")))

	assert.ErrorIs(t, err, ErrDuplicateCID)
	assert.NotErrorIs(t, err, ErrDoesNotExist)

	kind, ok := ChainErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, ChainErrDuplicateCID, kind)
	assert.Contains(t, err.Error(), "DuplicateCID")
}

func TestChainCallError_NotFoundDistinctFromTransport(t *testing.T) {
	notFound := NewChainCallError("verifyTranscript", ChainErrDoesNotExist, nil)
	transport := NewChainCallError("verifyTranscript", ChainErrTransport, errors.New("dial tcp: connection refused"))

	assert.True(t, IsChainNotFound(notFound))
	assert.False(t, IsChainNotFound(transport))
	assert.ErrorIs(t, transport, ErrChainTransport)
}

func TestChainCallError_TxHash(t *testing.T) {
	h := common.HexToHash("0xabc")
	err := &ChainCallError{Kind: ChainErrReverted, Method: "inValidateTranscript", TxHash: &h}
	assert.Contains(t, err.Error(), h.Hex())
}

func TestSentinelWrapping(t *testing.T) {
	err := fmt.Errorf("%w: signer is not admin", ErrNotAuthorized)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, ok := ChainErrorKindOf(err)
	assert.False(t, ok)
}

func TestMetadataStoreError(t *testing.T) {
	err := &MetadataStoreError{Op: "find credential", Err: ErrRecordNotFound}
	assert.True(t, IsRecordNotFound(err))

	other := &MetadataStoreError{Op: "create credential", Err: errors.New("disk full")}
	assert.False(t, IsRecordNotFound(other))
}

func TestParseDegreeType(t *testing.T) {
	d, err := ParseDegreeType("master")
	require.NoError(t, err)
	assert.Equal(t, DegreeMaster, d)

	d, err = ParseDegreeType("6")
	require.NoError(t, err)
	assert.Equal(t, DegreePostdoctorate, d)
	assert.Equal(t, "Post-Doctorate", d.Label())

	_, err = ParseDegreeType("7")
	assert.ErrorIs(t, err, ErrInvalidDegreeType)
	_, err = ParseDegreeType("bogus")
	assert.ErrorIs(t, err, ErrInvalidDegreeType)
	assert.Equal(t, "UNKNOWN", DegreeType(42).String())
}

func TestParseTranscriptStatus(t *testing.T) {
	s, err := ParseTranscriptStatus("Revoked")
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, s)

	s, err = ParseTranscriptStatus("0")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, s)

	_, err = ParseTranscriptStatus("expired")
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x00000000000000000000000000000000000000A1")
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000a1", NormalizeAddress(addr))

	_, err = ParseAddress("0xA1")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestOutcome(t *testing.T) {
	assert.True(t, Succeeded().Committed())
	partial := PartiallySucceeded(StagePersisting, errors.New("store down"))
	assert.True(t, partial.Committed())
	assert.Contains(t, partial.String(), "Persisting")
	failed := Failed(StageChainConfirming, errors.New("reverted"))
	assert.False(t, failed.Committed())
	assert.Equal(t, "reverted", failed.ErrorMessage())
	assert.Empty(t, Succeeded().ErrorMessage())
}

func TestIsChainUnavailable(t *testing.T) {
	assert.False(t, IsChainUnavailable(nil))
	assert.True(t, IsChainUnavailable(errors.New("context deadline exceeded")))
	assert.True(t, IsChainUnavailable(NewChainCallError("verifyTranscript", ChainErrTransport, errors.New("eof"))))
	assert.True(t, IsChainUnavailable(fmt.Errorf("lookup: %w", NewChainCallError("verifyTranscript", ChainErrTransport, nil))))
	assert.False(t, IsChainUnavailable(NewChainCallError("verifyTranscript", ChainErrReverted, errors.New("execution reverted: Invalid CID"))))
	assert.False(t, IsChainUnavailable(NewChainCallError("verifyTranscript", ChainErrDoesNotExist, nil)))
}
