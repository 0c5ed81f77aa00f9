package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ruteri/transcript-registry-backend/interfaces"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type queriedRange struct{ from, to uint64 }

// fakeLogSource serves InstitutionRegistered logs and fails selected ranges.
type fakeLogSource struct {
	mu      sync.Mutex
	head    uint64
	logs    []types.Log
	failing map[uint64]bool // keyed by range start
	queried []queriedRange
}

func (f *fakeLogSource) BlockNumber(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeLogSource) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	f.queried = append(f.queried, queriedRange{from, to})
	if f.failing[from] {
		return nil, errors.New("query returned more than 10000 results")
	}
	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber >= from && l.BlockNumber <= to {
			out = append(out, l)
		}
	}
	return out, nil
}

func registeredLog(addr common.Address, block uint64) types.Log {
	return types.Log{
		Topics:      []common.Hash{institutionRegisteredTopic, common.BytesToHash(addr.Bytes())},
		BlockNumber: block,
	}
}

type mockDetails struct {
	mock.Mock
}

func (m *mockDetails) GetInstitutionDetails(ctx context.Context, addr common.Address) (*interfaces.InstitutionRecord, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.InstitutionRecord), args.Error(1)
}

func TestEventScanDirectory_ChunksDedupeAndHydration(t *testing.T) {
	defer goleak.VerifyNone(t)

	a1 := common.HexToAddress("0x00000000000000000000000000000000000000A1")
	a2 := common.HexToAddress("0x00000000000000000000000000000000000000A2")
	a3 := common.HexToAddress("0x00000000000000000000000000000000000000A3")

	src := &fakeLogSource{
		head: 12000,
		logs: []types.Log{
			registeredLog(a1, 100),
			registeredLog(a1, 4999),
			registeredLog(a2, 6000),
			registeredLog(a3, 11000),
			{Topics: []common.Hash{common.HexToHash("0x01")}, BlockNumber: 200},
		},
		failing: map[uint64]bool{},
	}

	details := &mockDetails{}
	details.On("GetInstitutionDetails", mock.Anything, a1).Return(&interfaces.InstitutionRecord{WalletAddress: a1, Name: "One"}, nil)
	details.On("GetInstitutionDetails", mock.Anything, a2).Return(nil, errors.New("rpc timeout"))
	details.On("GetInstitutionDetails", mock.Anything, a3).Return(&interfaces.InstitutionRecord{WalletAddress: a3, Name: "Three"}, nil)

	dir := NewEventScanDirectory(src, details, common.Address{}, 0, 0, discardLogger())
	entries, err := dir.ListInstitutions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []queriedRange{{0, 4999}, {5000, 9999}, {10000, 12000}}, src.queried)

	require.Len(t, entries, 3)
	assert.Equal(t, a1, entries[0].Address)
	assert.Equal(t, "One", entries[0].Details.Name)
	assert.Equal(t, a2, entries[1].Address)
	assert.Nil(t, entries[1].Details, "hydration failure yields an address-only entry")
	assert.Equal(t, "Three", entries[2].Details.Name)
	details.AssertExpectations(t)
}

func TestEventScanDirectory_SkipsFailedChunks(t *testing.T) {
	a1 := common.HexToAddress("0x00000000000000000000000000000000000000A1")
	a2 := common.HexToAddress("0x00000000000000000000000000000000000000A2")

	src := &fakeLogSource{
		head:    25,
		logs:    []types.Log{registeredLog(a1, 5), registeredLog(a2, 22)},
		failing: map[uint64]bool{0: true},
	}
	details := &mockDetails{}
	details.On("GetInstitutionDetails", mock.Anything, a2).Return(&interfaces.InstitutionRecord{WalletAddress: a2}, nil)

	dir := NewEventScanDirectory(src, details, common.Address{}, 0, 10, discardLogger())
	entries, err := dir.ListInstitutions(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, a2, entries[0].Address)

	res := dir.scan(context.Background(), 0, 25)
	assert.False(t, res.complete)
	assert.Equal(t, uint64(0), res.resumeFrom)
}

func TestEventScanDirectory_StartBlockAfterHead(t *testing.T) {
	src := &fakeLogSource{head: 10}
	dir := NewEventScanDirectory(src, &mockDetails{}, common.Address{}, 100, 0, discardLogger())
	entries, err := dir.ListInstitutions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, src.queried)
}

func TestEventScanDirectory_WithMockRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewMockRegistryClient(testAdmin)
	registerVerified(t, reg, testInstitution)
	other := common.HexToAddress("0x00000000000000000000000000000000000000B2")
	_, err := reg.As(other).RegisterInstitution(ctx, "Other College", "UG", "", "")
	require.NoError(t, err)

	dir := NewEventScanDirectory(reg, reg, common.Address{}, 0, 1, discardLogger())
	entries, err := dir.ListInstitutions(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Details.IsVerified)
	assert.Equal(t, "Other College", entries[1].Details.Name)
}

func TestCachedDirectory_IncrementalScan(t *testing.T) {
	a1 := common.HexToAddress("0x00000000000000000000000000000000000000A1")
	a2 := common.HexToAddress("0x00000000000000000000000000000000000000A2")

	src := &fakeLogSource{
		head:    19,
		logs:    []types.Log{registeredLog(a1, 3)},
		failing: map[uint64]bool{},
	}
	details := &mockDetails{}
	details.On("GetInstitutionDetails", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))

	scanner := NewEventScanDirectory(src, details, common.Address{}, 0, 10, discardLogger())
	cache, err := OpenCachedDirectory("", scanner, discardLogger())
	require.NoError(t, err)
	defer cache.Close()

	entries, err := cache.ListInstitutions(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []queriedRange{{0, 9}, {10, 19}}, src.queried)

	// New block range with a failing first chunk: cursor must stay put.
	src.queried = nil
	src.head = 39
	src.logs = append(src.logs, registeredLog(a2, 35))
	src.failing[20] = true

	entries, err = cache.ListInstitutions(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2, "addresses from chunks after a gap are still indexed")
	assert.Equal(t, []queriedRange{{20, 29}, {30, 39}}, src.queried)

	next, err := cache.nextBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(20), next)

	// Recovery rescans from the cursor only.
	src.queried = nil
	delete(src.failing, 20)
	_, err = cache.ListInstitutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []queriedRange{{20, 29}, {30, 39}}, src.queried)

	next, err = cache.nextBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(40), next)

	addrs, err := cache.Addresses()
	require.NoError(t, err)
	assert.ElementsMatch(t, []common.Address{a1, a2}, addrs)

	// Nothing new: no queries.
	src.queried = nil
	_, err = cache.ListInstitutions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, src.queried)
}

func TestCachedDirectory_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	a1 := common.HexToAddress("0x00000000000000000000000000000000000000A1")
	src := &fakeLogSource{head: 9, logs: []types.Log{registeredLog(a1, 3)}, failing: map[uint64]bool{}}
	details := &mockDetails{}
	details.On("GetInstitutionDetails", mock.Anything, a1).Return(&interfaces.InstitutionRecord{WalletAddress: a1}, nil)

	scanner := NewEventScanDirectory(src, details, common.Address{}, 0, 10, discardLogger())
	cache, err := OpenCachedDirectory(dir, scanner, discardLogger())
	require.NoError(t, err)
	_, err = cache.ListInstitutions(context.Background())
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	src.queried = nil
	cache, err = OpenCachedDirectory(dir, scanner, discardLogger())
	require.NoError(t, err)
	defer cache.Close()

	entries, err := cache.ListInstitutions(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, src.queried)
}
