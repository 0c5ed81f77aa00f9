package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/transcript-registry-backend/cryptoutils"
	"github.com/ruteri/transcript-registry-backend/interfaces"
)

var (
	_ interfaces.Registry = (*OnchainRegistryClient)(nil)
	_ interfaces.Registry = (*MockRegistryClient)(nil)
	_ interfaces.Registry = (*MockRegistry)(nil)

	_ interfaces.InstitutionDirectory = (*EventScanDirectory)(nil)
	_ interfaces.InstitutionDirectory = (*CachedDirectory)(nil)
)

var (
	testAdmin       = common.HexToAddress("0x00000000000000000000000000000000000000AD")
	testInstitution = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	testStudent     = common.HexToAddress("0x0000000000000000000000000000000000000051")
)

func registerVerified(t *testing.T, reg *MockRegistryClient, inst common.Address) {
	ctx := context.Background()
	_, err := reg.As(inst).RegisterInstitution(ctx, "Test University", "KE", "https://uni.example", "registrar@uni.example")
	require.NoError(t, err)
	_, err = reg.As(testAdmin).VerifyInstitution(ctx, inst)
	require.NoError(t, err)
}

func TestMockRegistry_InstitutionLifecycle(t *testing.T) {
	ctx := context.Background()
	reg := NewMockRegistryClient(testAdmin)

	state, err := reg.InstitutionState(ctx, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.InstitutionUnregistered, state)

	verified, err := reg.IsInstitutionVerified(ctx, testInstitution)
	require.NoError(t, err, "unregistered address is not an error")
	assert.False(t, verified)

	_, err = reg.GetInstitutionDetails(ctx, testInstitution)
	assert.ErrorIs(t, err, interfaces.ErrDoesNotExist)

	inst := reg.As(testInstitution)
	rcpt, err := inst.RegisterInstitution(ctx, "Test University", "KE", "https://uni.example", "registrar@uni.example")
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, rcpt.TxHash)

	_, err = inst.RegisterInstitution(ctx, "Again", "KE", "", "")
	assert.ErrorIs(t, err, interfaces.ErrAlreadyRegistered)

	state, err = reg.InstitutionState(ctx, testInstitution)
	require.NoError(t, err)
	assert.Equal(t, interfaces.InstitutionPending, state)

	_, err = inst.VerifyInstitution(ctx, testInstitution)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	admin := reg.As(testAdmin)
	_, err = admin.VerifyInstitution(ctx, common.HexToAddress("0x01"))
	assert.ErrorIs(t, err, interfaces.ErrDoesNotExist)

	_, err = admin.VerifyInstitution(ctx, testInstitution)
	require.NoError(t, err)
	_, err = admin.VerifyInstitution(ctx, testInstitution)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyVerified)

	stats, err := reg.InstitutionStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, interfaces.InstitutionStats{TotalInstitutions: 1, VerifiedInstitutions: 1}, stats)

	_, err = admin.SuspendInstitution(ctx, testInstitution)
	require.NoError(t, err)
	verified, err = reg.IsInstitutionVerified(ctx, testInstitution)
	require.NoError(t, err)
	assert.False(t, verified)

	exists, err := reg.InstitutionExists(ctx, testInstitution)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMockRegistry_Transcripts(t *testing.T) {
	ctx := context.Background()
	reg := NewMockRegistryClient(testAdmin)

	issue := interfaces.TranscriptIssue{
		StudentID:      "STU-1",
		CID:            "bafy123",
		DocumentHash:   cryptoutils.HashDocumentBytes([]byte("transcript")),
		DegreeType:     interfaces.DegreeBachelor,
		StudentAddress: testStudent,
		GraduationYear: 2024,
	}

	_, err := reg.As(testInstitution).IssueTranscript(ctx, issue)
	assert.ErrorIs(t, err, interfaces.ErrOnlyVerifiedInstitutions)

	registerVerified(t, reg, testInstitution)
	inst := reg.As(testInstitution)

	_, err = inst.IssueTranscript(ctx, issue)
	require.NoError(t, err)

	_, err = inst.IssueTranscript(ctx, issue)
	assert.ErrorIs(t, err, interfaces.ErrDuplicateCID)

	record, err := reg.VerifyTranscript(ctx, "bafy123")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), record.ID)
	assert.Equal(t, testInstitution, record.IssuedBy)
	assert.Equal(t, interfaces.StatusActive, record.Status)
	assert.Equal(t, issue.DocumentHash, record.DocumentHash)

	_, err = reg.VerifyTranscript(ctx, "bafyunknown")
	assert.ErrorIs(t, err, interfaces.ErrDoesNotExist)

	_, err = reg.As(testAdmin).InvalidateTranscript(ctx, record.ID)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	_, err = inst.InvalidateTranscript(ctx, record.ID)
	require.NoError(t, err)
	record, err = reg.GetTranscriptDetails(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, interfaces.StatusRevoked, record.Status)

	list, err := reg.GetStudentTranscripts(ctx, testStudent)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = reg.GetStudentTranscripts(ctx, common.HexToAddress("0x02"))
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	exists, err := reg.CIDExists(ctx, "bafy123")
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := reg.TranscriptCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestMockRegistry_ReadOnlyAndUnavailable(t *testing.T) {
	ctx := context.Background()
	reg := NewMockRegistryClient(testAdmin)

	_, err := reg.RegisterInstitution(ctx, "x", "y", "z", "w")
	assert.ErrorIs(t, err, ErrNoTransactOpts)

	reg.SetUnavailable(errors.New("connection refused"))
	_, err = reg.VerifyTranscript(ctx, "bafy123")
	assert.ErrorIs(t, err, interfaces.ErrChainTransport)
	assert.False(t, interfaces.IsChainNotFound(err))

	_, err = reg.IsInstitutionVerified(ctx, testInstitution)
	assert.ErrorIs(t, err, interfaces.ErrChainTransport)

	reg.SetUnavailable(nil)
	_, err = reg.VerifyTranscript(ctx, "bafy123")
	assert.ErrorIs(t, err, interfaces.ErrDoesNotExist)
}

func TestOnchainRegistryClient_RequiresTransactOpts(t *testing.T) {
	c, err := NewOnchainRegistryClient(nil, nil, testInstitution, testInstitution, discardLogger())
	require.NoError(t, err)

	_, ok := c.Signer()
	assert.False(t, ok)

	_, err = c.VerifyInstitution(context.Background(), testInstitution)
	assert.ErrorIs(t, err, ErrNoTransactOpts)

	_, err = c.IssueTranscript(context.Background(), interfaces.TranscriptIssue{DegreeType: 9})
	assert.ErrorIs(t, err, interfaces.ErrInvalidDegreeType)
}
