package verification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ruteri/transcript-registry-backend/credentials"
	"github.com/ruteri/transcript-registry-backend/cryptoutils"
	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/metadata"
	"github.com/ruteri/transcript-registry-backend/registry"
	"github.com/ruteri/transcript-registry-backend/storage"
)

var (
	testAdmin       = common.HexToAddress("0x00000000000000000000000000000000000000AD")
	testInstitution = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	testStudent     = common.HexToAddress("0x0000000000000000000000000000000000000051")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	reg      *registry.MockRegistryClient
	store    *metadata.Store
	issuer   *credentials.Issuer
	verifier *Verifier
}

// newFixture sets up a verified institution 0xA1 issuing through a pinner that returns cid.
func newFixture(t *testing.T, cid string) *fixture {
	t.Helper()
	ctx := context.Background()

	reg := registry.NewMockRegistryClient(testAdmin)
	_, err := reg.As(testInstitution).RegisterInstitution(ctx, "Test University", "KE", "https://uni.example", "registrar@uni.example")
	require.NoError(t, err)
	_, err = reg.As(testAdmin).VerifyInstitution(ctx, testInstitution)
	require.NoError(t, err)

	store, err := metadata.Open(metadata.DialectSQLite, "", discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pinner := new(storage.MockPinner)
	pinner.On("Pin", mock.Anything, mock.Anything, mock.Anything).Return(&interfaces.PinResult{CID: cid}, nil)

	return &fixture{
		reg:      reg,
		store:    store,
		issuer:   credentials.NewIssuer(reg.As(testInstitution), pinner, store, testInstitution, discardLogger()),
		verifier: NewVerifier(reg, store, VerifierOpts{PublicBaseURL: "https://verify.example/", GatewayURL: "https://gw.example"}, discardLogger()),
	}
}

func (f *fixture) issue(t *testing.T, doc string) *credentials.IssueResult {
	t.Helper()
	res, err := f.issuer.Issue(context.Background(), credentials.IssueRequest{
		Document:       strings.NewReader(doc),
		StudentAddress: testStudent,
		DegreeType:     interfaces.DegreeBachelor,
		GraduationYear: 2024,
	})
	require.NoError(t, err)
	require.Equal(t, interfaces.OutcomeSuccess, res.Outcome.Kind)
	return res
}

func TestScenario_RegisterVerifyIssueRevoke(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMockRegistryClient(testAdmin)

	_, err := reg.As(testInstitution).RegisterInstitution(ctx, "Test University", "KE", "", "")
	require.NoError(t, err)
	verified, err := reg.IsInstitutionVerified(ctx, testInstitution)
	require.NoError(t, err)
	assert.False(t, verified)

	_, err = reg.As(testAdmin).VerifyInstitution(ctx, testInstitution)
	require.NoError(t, err)
	verified, err = reg.IsInstitutionVerified(ctx, testInstitution)
	require.NoError(t, err)
	assert.True(t, verified)

	store, err := metadata.Open(metadata.DialectSQLite, "", discardLogger())
	require.NoError(t, err)
	defer store.Close()

	pinner := new(storage.MockPinner)
	pinner.On("Pin", mock.Anything, mock.Anything, mock.Anything).Return(&interfaces.PinResult{CID: "bafy123"}, nil)
	issuer := credentials.NewIssuer(reg.As(testInstitution), pinner, store, testInstitution, discardLogger())
	verifier := NewVerifier(reg, store, VerifierOpts{}, discardLogger())

	issued, err := issuer.Issue(ctx, credentials.IssueRequest{
		Document:       strings.NewReader("%PDF transcript"),
		StudentAddress: testStudent,
		DegreeType:     interfaces.DegreeBachelor,
		GraduationYear: 2024,
	})
	require.NoError(t, err)

	res, err := verifier.VerifyByCID(ctx, "bafy123")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.False(t, res.Degraded)
	assert.Equal(t, SourceChain, res.Source)

	_, err = issuer.Revoke(ctx, issued.CredentialID, "issued in error")
	require.NoError(t, err)

	res, err = verifier.VerifyByCID(ctx, "bafy123")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonRevoked, res.Reason)
	assert.Contains(t, res.Message, "revoked")
}

func TestVerifyByDocument_Valid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "bafy-doc")
	issued := f.issue(t, "diploma bytes")

	res, err := f.verifier.VerifyByDocument(ctx, strings.NewReader("diploma bytes"))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Warning)
	assert.Equal(t, "bafy-doc", res.CID)
	require.NotNil(t, res.DocumentHash)
	assert.Equal(t, issued.DocumentHash, *res.DocumentHash)
	require.NotNil(t, res.Credential)
	assert.Equal(t, issued.CredentialID, res.Credential.ID)
	require.NotNil(t, res.Transcript)
}

func TestVerifyByDocument_NotRegisteredIsTerminal(t *testing.T) {
	ctx := context.Background()
	reg := new(registry.MockRegistry)
	store := new(metadata.MockStore)
	store.On("FindCredentialByHash", mock.Anything, cryptoutils.HashDocumentBytes([]byte("unknown"))).
		Return(nil, &interfaces.MetadataStoreError{Op: "find", Err: interfaces.ErrRecordNotFound})

	verifier := NewVerifier(reg, store, VerifierOpts{}, discardLogger())
	res, err := verifier.VerifyByDocument(ctx, strings.NewReader("unknown"))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.False(t, res.Degraded)
	assert.Equal(t, ReasonNotRegistered, res.Reason)
	assert.Equal(t, SourceNone, res.Source)

	reg.AssertNotCalled(t, "VerifyTranscript", mock.Anything, mock.Anything)
}

func TestVerifyByDocument_StoreErrorIsReturned(t *testing.T) {
	store := new(metadata.MockStore)
	store.On("FindCredentialByHash", mock.Anything, mock.Anything).
		Return(nil, &interfaces.MetadataStoreError{Op: "find", Err: errors.New("connection refused")})

	verifier := NewVerifier(new(registry.MockRegistry), store, VerifierOpts{}, discardLogger())
	_, err := verifier.VerifyByDocument(context.Background(), strings.NewReader("doc"))
	var storeErr *interfaces.MetadataStoreError
	assert.ErrorAs(t, err, &storeErr)
}

func TestFallback_NoFalseNegatives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "bafy-fallback")
	f.issue(t, "fallback doc")

	f.reg.SetUnavailable(errors.New("dial tcp 127.0.0.1:8545: connection refused"))

	res, err := f.verifier.VerifyByDocument(ctx, strings.NewReader("fallback doc"))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.Degraded)
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, SourceStore, res.Source)

	res, err = f.verifier.VerifyByCID(ctx, "bafy-fallback")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.Degraded)
	assert.Equal(t, SourceStore, res.Source)
}

func TestFallback_StoredRevocationStillApplies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "bafy-revoked")
	issued := f.issue(t, "doc")
	_, err := f.issuer.Revoke(ctx, issued.CredentialID, "fraud")
	require.NoError(t, err)

	f.reg.SetUnavailable(errors.New("timeout"))
	res, err := f.verifier.VerifyByCID(ctx, "bafy-revoked")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.Degraded)
	assert.Equal(t, ReasonRevoked, res.Reason)
}

func TestVerifyByCID_FallbackWithoutRecord(t *testing.T) {
	f := newFixture(t, "bafy-x")
	f.reg.SetUnavailable(errors.New("timeout"))

	res, err := f.verifier.VerifyByCID(context.Background(), "bafy-unknown")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.Degraded)
	assert.Equal(t, ReasonNotFound, res.Reason)
}

func TestVerifyByCID_BothSourcesFail(t *testing.T) {
	reg := registry.NewMockRegistryClient(testAdmin)
	reg.SetUnavailable(errors.New("timeout"))
	store := new(metadata.MockStore)
	store.On("FindCredentialByCID", mock.Anything, "bafy123").
		Return(nil, &interfaces.MetadataStoreError{Op: "find", Err: errors.New("disk I/O error")})

	verifier := NewVerifier(reg, store, VerifierOpts{}, discardLogger())
	_, err := verifier.VerifyByCID(context.Background(), "bafy123")
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrChainTransport)
}

func TestVerifyByCID_ChainNotFoundIsTerminal(t *testing.T) {
	reg := registry.NewMockRegistryClient(testAdmin)
	store := new(metadata.MockStore)

	verifier := NewVerifier(reg, store, VerifierOpts{}, discardLogger())
	res, err := verifier.VerifyByCID(context.Background(), "bafy123")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.False(t, res.Degraded)
	assert.Equal(t, ReasonNotFound, res.Reason)
	assert.Equal(t, SourceChain, res.Source)

	store.AssertNotCalled(t, "FindCredentialByCID", mock.Anything, mock.Anything)
}

func TestVerifyByDocument_ChainNotFoundIsTerminal(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMockRegistryClient(testAdmin)
	store := new(metadata.MockStore)
	hash := cryptoutils.HashDocumentBytes([]byte("doc"))
	store.On("FindCredentialByHash", mock.Anything, hash).Return(&interfaces.Credential{
		ID: "cred-1", CID: "bafy-never-issued", DocumentHash: hash, Status: interfaces.StatusActive,
	}, nil)

	verifier := NewVerifier(reg, store, VerifierOpts{}, discardLogger())
	res, err := verifier.VerifyByDocument(ctx, strings.NewReader("doc"))
	require.NoError(t, err)
	assert.False(t, res.Valid, "a stored Active status never overrides a chain verdict")
	assert.False(t, res.Degraded)
	assert.Equal(t, ReasonNotFound, res.Reason)
}

func TestRevertedLookupIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "bafy-reverted")
	f.issue(t, "reverted doc")

	reg := new(registry.MockRegistry)
	reg.On("VerifyTranscript", mock.Anything, "bafy-reverted").
		Return(nil, interfaces.NewChainCallError("verifyTranscript", interfaces.ChainErrReverted, errors.New("execution reverted: Invalid CID")))
	verifier := NewVerifier(reg, f.store, VerifierOpts{}, discardLogger())

	res, err := verifier.VerifyByCID(ctx, "bafy-reverted")
	require.NoError(t, err)
	assert.False(t, res.Valid, "a stored Active status never overrides a revert")
	assert.False(t, res.Degraded)
	assert.Equal(t, ReasonNotFound, res.Reason)
	assert.Equal(t, SourceChain, res.Source)

	res, err = verifier.VerifyByDocument(ctx, strings.NewReader("reverted doc"))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.False(t, res.Degraded)
	assert.Equal(t, ReasonNotFound, res.Reason)
	reg.AssertExpectations(t)
}

func TestStatusPrecedence_ChainWinsAndStoreIsRepaired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "bafy-precedence")
	issued := f.issue(t, "doc")

	// Revoke on-chain only, leaving the stored status Active.
	_, err := f.reg.As(testInstitution).InvalidateTranscript(ctx, *issued.TranscriptID)
	require.NoError(t, err)
	stored, err := f.store.GetCredential(ctx, issued.CredentialID)
	require.NoError(t, err)
	require.Equal(t, interfaces.StatusActive, stored.Status)

	res, err := f.verifier.VerifyByCID(ctx, "bafy-precedence")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.NotNil(t, res.Status)
	assert.Equal(t, interfaces.StatusRevoked, *res.Status)

	stored, err = f.store.GetCredential(ctx, issued.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.StatusRevoked, stored.Status)
	assert.NotNil(t, stored.RevokedAt)
}

func TestStatusPrecedence_RepairFailureDoesNotChangeResult(t *testing.T) {
	ctx := context.Background()
	reg := new(registry.MockRegistry)
	reg.On("VerifyTranscript", mock.Anything, "bafy123").Return(&interfaces.TranscriptRecord{
		ID: 1, CID: "bafy123", Status: interfaces.StatusRevoked,
	}, nil)
	store := new(metadata.MockStore)
	store.On("FindCredentialByCID", mock.Anything, "bafy123").Return(&interfaces.Credential{
		ID: "cred-1", CID: "bafy123", Status: interfaces.StatusActive,
	}, nil)
	store.On("UpdateCredential", mock.Anything, "cred-1", mock.Anything).Return(errors.New("read-only replica"))

	verifier := NewVerifier(reg, store, VerifierOpts{}, discardLogger())
	res, err := verifier.VerifyByCID(ctx, "bafy123")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonRevoked, res.Reason)
	store.AssertExpectations(t)
}

func TestVerifyByCID_SynthesizesFromChain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "bafy-x")
	_, err := f.reg.As(testInstitution).IssueTranscript(ctx, interfaces.TranscriptIssue{
		StudentID: "STU-9", CID: "bafy-chain-only", DegreeType: interfaces.DegreeDoctorate, StudentAddress: testStudent, GraduationYear: 2019,
	})
	require.NoError(t, err)

	res, err := f.verifier.VerifyByCID(ctx, "bafy-chain-only")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	require.NotNil(t, res.Credential)
	assert.Empty(t, res.Credential.ID)
	assert.Equal(t, testInstitution, res.Credential.InstitutionAddress)
	assert.Equal(t, "https://gw.example/ipfs/bafy-chain-only", res.Credential.URL)
}

func TestVerifyByDocument_HashMismatch(t *testing.T) {
	ctx := context.Background()
	hash := cryptoutils.HashDocumentBytes([]byte("doc"))
	reg := new(registry.MockRegistry)
	reg.On("VerifyTranscript", mock.Anything, "bafy123").Return(&interfaces.TranscriptRecord{
		ID: 1, CID: "bafy123", DocumentHash: cryptoutils.HashDocumentBytes([]byte("other")), Status: interfaces.StatusActive,
	}, nil)
	store := new(metadata.MockStore)
	store.On("FindCredentialByHash", mock.Anything, hash).Return(&interfaces.Credential{
		ID: "cred-1", CID: "bafy123", DocumentHash: hash, Status: interfaces.StatusActive,
	}, nil)

	verifier := NewVerifier(reg, store, VerifierOpts{}, discardLogger())
	res, err := verifier.VerifyByDocument(ctx, strings.NewReader("doc"))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonHashMismatch, res.Reason)
}

func TestBatchVerifyCIDs(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	reg := registry.NewMockRegistryClient(testAdmin)
	_, err := reg.As(testInstitution).RegisterInstitution(ctx, "Test University", "KE", "", "")
	require.NoError(t, err)
	_, err = reg.As(testAdmin).VerifyInstitution(ctx, testInstitution)
	require.NoError(t, err)
	for _, cid := range []string{"bafy-1", "bafy-2"} {
		_, err = reg.As(testInstitution).IssueTranscript(ctx, interfaces.TranscriptIssue{CID: cid, StudentAddress: testStudent, GraduationYear: 2024})
		require.NoError(t, err)
	}

	store := new(metadata.MockStore)
	store.On("FindCredentialByCID", mock.Anything, mock.Anything).
		Return(nil, &interfaces.MetadataStoreError{Op: "find", Err: interfaces.ErrRecordNotFound})

	verifier := NewVerifier(reg, store, VerifierOpts{BatchConcurrency: 2}, discardLogger())
	items, err := verifier.BatchVerifyCIDs(ctx, []string{"bafy-1", "bafy-missing", "", "bafy-2"})
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "bafy-1", items[0].Input)
	assert.True(t, items[0].Result.Valid)
	assert.Equal(t, "bafy-missing", items[1].Input)
	assert.False(t, items[1].Result.Valid)
	assert.Nil(t, items[2].Result)
	assert.Contains(t, items[2].Error, "cid is required")
	assert.Equal(t, "bafy-2", items[3].Input)
	assert.True(t, items[3].Result.Valid)
}

func TestBatchVerifyDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "bafy-batch")
	f.issue(t, "known")

	items, err := f.verifier.BatchVerifyDocuments(ctx, []Document{
		{Name: "a.pdf", Data: []byte("known")},
		{Name: "b.pdf", Data: []byte("unknown")},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a.pdf", items[0].Input)
	assert.True(t, items[0].Result.Valid)
	assert.Equal(t, ReasonNotRegistered, items[1].Result.Reason)
}

func TestValidateBatch(t *testing.T) {
	assert.ErrorIs(t, ValidateBatch(0), interfaces.ErrInvalidInput)
	assert.ErrorIs(t, ValidateBatch(MaxBatchSize+1), interfaces.ErrInvalidInput)
	assert.NoError(t, ValidateBatch(1))

	verifier := NewVerifier(new(registry.MockRegistry), new(metadata.MockStore), VerifierOpts{}, discardLogger())
	_, err := verifier.BatchVerifyCIDs(context.Background(), nil)
	assert.ErrorIs(t, err, interfaces.ErrInvalidInput)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "bafy-stats")
	f.issue(t, "doc")

	stats, err := f.verifier.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalCredentials)
	assert.Equal(t, int64(1), stats.ActiveCredentials)
	assert.Equal(t, int64(1), stats.InstitutionCount)
	require.NotNil(t, stats.Institutions)
	assert.Equal(t, uint64(1), stats.Institutions.VerifiedInstitutions)

	f.reg.SetUnavailable(errors.New("timeout"))
	stats, err = f.verifier.Stats(ctx)
	require.NoError(t, err)
	assert.Nil(t, stats.Institutions)
}

func TestVerificationLinkAndQR(t *testing.T) {
	verifier := NewVerifier(new(registry.MockRegistry), new(metadata.MockStore), VerifierOpts{PublicBaseURL: "https://verify.example/"}, discardLogger())
	verifier.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	assert.Equal(t, "https://verify.example/verify?id=abc-123", verifier.VerificationLink("abc-123"))

	qr := verifier.VerificationQR("bafy123")
	raw, err := json.Marshal(qr)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "credential-verification",
		"ipfsCid": "bafy123",
		"verifyUrl": "https://verify.example/verifier?cid=bafy123",
		"timestamp": "2024-05-01T10:00:00.000Z"
	}`, string(raw))
}
