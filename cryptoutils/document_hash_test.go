package cryptoutils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestHashDocument_Deterministic(t *testing.T) {
	content := []byte("%PDF-1.7 transcript of records")

	first, err := HashDocument(bytes.NewReader(content))
	require.NoError(t, err)
	second, err := HashDocument(bytes.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, first, second)

	expected := sha256.Sum256(content)
	assert.Equal(t, "0x"+hex.EncodeToString(expected[:]), first.Hex())
}

func TestHashDocument_IndependentOfFileName(t *testing.T) {
	dir := t.TempDir()
	content := []byte("same bytes, different names")

	pathA := filepath.Join(dir, "transcript-a.pdf")
	pathB := filepath.Join(dir, "renamed.bin")
	require.NoError(t, os.WriteFile(pathA, content, 0644))
	require.NoError(t, os.WriteFile(pathB, content, 0600))

	fa, err := os.Open(pathA)
	require.NoError(t, err)
	defer fa.Close()
	fb, err := os.Open(pathB)
	require.NoError(t, err)
	defer fb.Close()

	ha, err := HashDocument(fa)
	require.NoError(t, err)
	hb, err := HashDocument(fb)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Equal(t, HashDocumentBytes(content), ha)
}

func TestHashDocument_DifferentContent(t *testing.T) {
	assert.NotEqual(t, HashDocumentBytes([]byte("a")), HashDocumentBytes([]byte("b")))
}

func TestHashDocument_ReadFailure(t *testing.T) {
	_, err := HashDocument(failingReader{})
	require.Error(t, err)

	var hashErr *HashError
	assert.True(t, errors.As(err, &hashErr))
	assert.Contains(t, err.Error(), "disk on fire")

	_, err = HashDocument(nil)
	assert.True(t, errors.As(err, &hashErr))
}

func TestDocumentHash_Width(t *testing.T) {
	h := HashDocumentBytes(nil)
	assert.Len(t, h.Hex(), 2+2*DocumentHashLength)
	assert.False(t, h.IsZero())
	assert.True(t, DocumentHash{}.IsZero())
}

func TestParseDocumentHash(t *testing.T) {
	h := HashDocumentBytes([]byte("roundtrip"))

	parsed, err := ParseDocumentHash(h.Hex())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	bare, err := ParseDocumentHash(h.Hex()[2:])
	require.NoError(t, err)
	assert.Equal(t, h, bare)

	_, err = ParseDocumentHash("0x1234")
	assert.ErrorIs(t, err, ErrInvalidDocumentHash)

	_, err = ParseDocumentHash("0x" + string(bytes.Repeat([]byte("zz"), 32)))
	assert.ErrorIs(t, err, ErrInvalidDocumentHash)
}

func TestDocumentHash_JSON(t *testing.T) {
	h := HashDocumentBytes([]byte("json"))

	encoded, err := json.Marshal(struct {
		Hash DocumentHash `json:"hash"`
	}{h})
	require.NoError(t, err)
	assert.Contains(t, string(encoded), h.Hex())

	var decoded struct {
		Hash DocumentHash `json:"hash"`
	}
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, h, decoded.Hash)
}
