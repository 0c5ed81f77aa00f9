package institutions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/metadata"
	"github.com/ruteri/transcript-registry-backend/registry"
)

var (
	testAdmin       = common.HexToAddress("0x00000000000000000000000000000000000000AD")
	testInstitution = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	otherAddress    = common.HexToAddress("0x00000000000000000000000000000000000000B2")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) *metadata.Store {
	t.Helper()
	store, err := metadata.Open(metadata.DialectSQLite, "", discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// setup returns a registry where 0xA1 has self-registered and an admin lifecycle over it.
func setup(t *testing.T, store interfaces.MetadataStore) (*registry.MockRegistryClient, *Lifecycle) {
	t.Helper()
	reg := registry.NewMockRegistryClient(testAdmin)
	_, err := reg.As(testInstitution).RegisterInstitution(context.Background(), "Test University", "KE", "https://uni.example", "registrar@uni.example")
	require.NoError(t, err)
	return reg, NewLifecycle(reg.As(testAdmin), store, nil, StaticAdmin(testAdmin), discardLogger())
}

func TestStaticAdmin(t *testing.T) {
	ctx := context.Background()
	assert.True(t, StaticAdmin(testAdmin).IsAdmin(ctx, testAdmin))
	assert.False(t, StaticAdmin(testAdmin).IsAdmin(ctx, testInstitution))
	assert.False(t, StaticAdmin(common.Address{}).IsAdmin(ctx, common.Address{}))
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	reg, lc := setup(t, store)

	res, err := lc.Verify(ctx, testAdmin, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.OutcomeSuccess, res.Outcome.Kind)
	require.NotNil(t, res.Receipt)
	require.NotNil(t, res.Institution)
	assert.True(t, res.Institution.IsVerified)

	verified, err := reg.IsInstitutionVerified(ctx, testInstitution)
	require.NoError(t, err)
	assert.True(t, verified)

	mirror, err := store.GetInstitutionByAddress(ctx, testInstitution)
	require.NoError(t, err)
	assert.True(t, mirror.IsVerified)
	assert.Equal(t, interfaces.InstitutionStatusActive, mirror.Status)
	assert.Equal(t, "Test University", mirror.Name)
	assert.NotNil(t, mirror.VerifiedAt)

	_, err = lc.Verify(ctx, testAdmin, testInstitution)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyVerified)
}

func TestVerify_RequiresAdmin(t *testing.T) {
	ctx := context.Background()
	reg, _ := setup(t, newStore(t))
	lc := NewLifecycle(reg.As(testAdmin), new(metadata.MockStore), nil, StaticAdmin(testAdmin), discardLogger())

	res, err := lc.Verify(ctx, otherAddress, testInstitution)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)
	assert.Equal(t, interfaces.StageAuthorizing, res.Outcome.Stage)

	verified, err := reg.IsInstitutionVerified(ctx, testInstitution)
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestVerify_UnregisteredAddress(t *testing.T) {
	_, lc := setup(t, newStore(t))
	res, err := lc.Verify(context.Background(), testAdmin, otherAddress)
	assert.ErrorIs(t, err, interfaces.ErrDoesNotExist)
	assert.Equal(t, interfaces.StageChainConfirming, res.Outcome.Stage)
}

func TestVerify_MirrorFailureIsPartialSuccess(t *testing.T) {
	ctx := context.Background()
	store := new(metadata.MockStore)
	store.On("UpdateInstitution", mock.Anything, testInstitution, mock.Anything).
		Return(&interfaces.MetadataStoreError{Op: "update institution", Err: errors.New("connection reset")})
	reg, lc := setup(t, store)

	res, err := lc.Verify(ctx, testAdmin, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.OutcomePartialSuccess, res.Outcome.Kind)
	assert.Equal(t, interfaces.StagePersisting, res.Outcome.Stage)
	assert.True(t, res.Outcome.Committed())

	verified, err := reg.IsInstitutionVerified(ctx, testInstitution)
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestSuspendAndReactivate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	reg, lc := setup(t, store)

	_, err := lc.Verify(ctx, testAdmin, testInstitution)
	require.NoError(t, err)

	res, err := lc.Suspend(ctx, testAdmin, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.OutcomeSuccess, res.Outcome.Kind)
	assert.False(t, res.Institution.IsVerified)

	verified, err := reg.IsInstitutionVerified(ctx, testInstitution)
	require.NoError(t, err)
	assert.False(t, verified)

	status, err := lc.Status(ctx, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.InstitutionSuspended, status.State)
	require.NotNil(t, status.Mirror)
	assert.NotNil(t, status.Mirror.SuspendedAt)
	assert.False(t, status.Mirror.IsVerified)

	res, err = lc.Reactivate(ctx, testAdmin, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.OutcomeSuccess, res.Outcome.Kind)

	status, err = lc.Status(ctx, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.InstitutionVerified, status.State)
	assert.Equal(t, interfaces.InstitutionStatusActive, status.Mirror.Status)
	assert.NotNil(t, status.Mirror.ReactivatedAt)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	reg := registry.NewMockRegistryClient(testAdmin)
	lc := NewLifecycle(reg.As(testInstitution), store, nil, StaticAdmin(testAdmin), discardLogger())

	_, err := lc.Register(ctx, testInstitution, RegisterRequest{})
	assert.ErrorIs(t, err, interfaces.ErrInvalidInput)

	res, err := lc.Register(ctx, testInstitution, RegisterRequest{Name: "Test University", Country: "KE", Email: "registrar@uni.example"})
	require.NoError(t, err)
	assert.Equal(t, interfaces.OutcomeSuccess, res.Outcome.Kind)

	mirror, err := store.GetInstitutionByAddress(ctx, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.InstitutionStatusPending, mirror.Status)
	assert.False(t, mirror.IsVerified)

	status, err := lc.Status(ctx, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.InstitutionPending, status.State)

	_, err = lc.Register(ctx, testInstitution, RegisterRequest{Name: "Again"})
	assert.ErrorIs(t, err, interfaces.ErrAlreadyRegistered)
}

func TestStatus_Unregistered(t *testing.T) {
	store := new(metadata.MockStore)
	_, lc := setup(t, store)

	status, err := lc.Status(context.Background(), otherAddress)
	require.NoError(t, err)
	assert.Equal(t, interfaces.InstitutionUnregistered, status.State)
	assert.Nil(t, status.OnChain)
	store.AssertNotCalled(t, "GetInstitutionByAddress", mock.Anything, mock.Anything)
}

func TestStatus_ChainUnavailable(t *testing.T) {
	reg, lc := setup(t, new(metadata.MockStore))
	reg.SetUnavailable(errors.New("connection refused"))

	_, err := lc.Status(context.Background(), testInstitution)
	assert.ErrorIs(t, err, interfaces.ErrChainTransport)
}

func TestMirror(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	reg, lc := setup(t, store)
	_, err := reg.As(testAdmin).VerifyInstitution(ctx, testInstitution)
	require.NoError(t, err)

	res, err := lc.Mirror(ctx, testAdmin, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.OutcomeSuccess, res.Outcome.Kind)

	mirror, err := store.GetInstitutionByAddress(ctx, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.InstitutionStatusActive, mirror.Status)
	assert.True(t, mirror.IsVerified)

	_, err = lc.Mirror(ctx, testInstitution, testInstitution)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	res, err = lc.Mirror(ctx, testAdmin, otherAddress)
	assert.ErrorIs(t, err, interfaces.ErrDoesNotExist)
	assert.Equal(t, interfaces.StageLoading, res.Outcome.Stage)
}

func TestList_MergesDirectoryAndMirror(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, err := store.CreateInstitution(ctx, &interfaces.Institution{Address: otherAddress, Name: "Mirrored Only"})
	require.NoError(t, err)
	_, err = store.CreateInstitution(ctx, &interfaces.Institution{Address: testInstitution, Name: "Test University"})
	require.NoError(t, err)

	dir := new(registry.MockDirectory)
	dir.On("ListInstitutions", mock.Anything).Return([]interfaces.DirectoryEntry{
		{Address: testInstitution, Details: &interfaces.InstitutionRecord{WalletAddress: testInstitution, Name: "Test University"}},
	}, nil)

	lc := NewLifecycle(new(registry.MockRegistry), store, dir, StaticAdmin(testAdmin), discardLogger())
	entries, err := lc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byAddr := map[common.Address]Entry{}
	for _, e := range entries {
		byAddr[e.Address] = e
	}
	assert.NotNil(t, byAddr[testInstitution].OnChain)
	assert.NotNil(t, byAddr[testInstitution].Mirror)
	assert.Nil(t, byAddr[otherAddress].OnChain)
	assert.Equal(t, "Mirrored Only", byAddr[otherAddress].Mirror.Name)
}

func TestList_PartialSources(t *testing.T) {
	ctx := context.Background()

	dir := new(registry.MockDirectory)
	dir.On("ListInstitutions", mock.Anything).Return(nil, errors.New("rpc down"))
	store := new(metadata.MockStore)
	store.On("ListInstitutions", mock.Anything).Return([]interfaces.Institution{{Address: testInstitution}}, nil)

	lc := NewLifecycle(new(registry.MockRegistry), store, dir, StaticAdmin(testAdmin), discardLogger())
	entries, err := lc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	failingStore := new(metadata.MockStore)
	failingStore.On("ListInstitutions", mock.Anything).Return(nil, errors.New("store down"))
	lc = NewLifecycle(new(registry.MockRegistry), failingStore, dir, StaticAdmin(testAdmin), discardLogger())
	_, err = lc.List(ctx)
	assert.Error(t, err)
}

func TestList_WithScanDirectory(t *testing.T) {
	ctx := context.Background()
	reg, _ := setup(t, nil)
	dir := registry.NewEventScanDirectory(reg, reg, common.Address{}, 0, 0, discardLogger())

	lc := NewLifecycle(reg, newStore(t), dir, StaticAdmin(testAdmin), discardLogger())
	entries, err := lc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testInstitution, entries[0].Address)
	require.NotNil(t, entries[0].OnChain)
	assert.Equal(t, "Test University", entries[0].OnChain.Name)
	assert.Nil(t, entries[0].Mirror)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	_, lc := setup(t, newStore(t))
	_, err := lc.Verify(ctx, testAdmin, testInstitution)
	require.NoError(t, err)

	stats, err := lc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, interfaces.InstitutionStats{TotalInstitutions: 1, VerifiedInstitutions: 1}, stats)
}
