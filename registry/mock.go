package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/ruteri/transcript-registry-backend/interfaces"
)

// MockRegistry mocks the interfaces.Registry interface
type MockRegistry struct {
	mock.Mock
}

func receipt(v interface{}) *interfaces.TxReceipt {
	if v == nil {
		return nil
	}
	return v.(*interfaces.TxReceipt)
}

// RegisterInstitution mocks the RegisterInstitution method
func (m *MockRegistry) RegisterInstitution(ctx context.Context, name, country, accreditedURL, email string) (*interfaces.TxReceipt, error) {
	args := m.Called(ctx, name, country, accreditedURL, email)
	return receipt(args.Get(0)), args.Error(1)
}

// VerifyInstitution mocks the VerifyInstitution method
func (m *MockRegistry) VerifyInstitution(ctx context.Context, addr common.Address) (*interfaces.TxReceipt, error) {
	args := m.Called(ctx, addr)
	return receipt(args.Get(0)), args.Error(1)
}

// SuspendInstitution mocks the SuspendInstitution method
func (m *MockRegistry) SuspendInstitution(ctx context.Context, addr common.Address) (*interfaces.TxReceipt, error) {
	args := m.Called(ctx, addr)
	return receipt(args.Get(0)), args.Error(1)
}

// IsInstitutionVerified mocks the IsInstitutionVerified method
func (m *MockRegistry) IsInstitutionVerified(ctx context.Context, addr common.Address) (bool, error) {
	args := m.Called(ctx, addr)
	return args.Bool(0), args.Error(1)
}

// InstitutionExists mocks the InstitutionExists method
func (m *MockRegistry) InstitutionExists(ctx context.Context, addr common.Address) (bool, error) {
	args := m.Called(ctx, addr)
	return args.Bool(0), args.Error(1)
}

// InstitutionState mocks the InstitutionState method
func (m *MockRegistry) InstitutionState(ctx context.Context, addr common.Address) (interfaces.InstitutionState, error) {
	args := m.Called(ctx, addr)
	return args.Get(0).(interfaces.InstitutionState), args.Error(1)
}

// GetInstitutionDetails mocks the GetInstitutionDetails method
func (m *MockRegistry) GetInstitutionDetails(ctx context.Context, addr common.Address) (*interfaces.InstitutionRecord, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.InstitutionRecord), args.Error(1)
}

// InstitutionStats mocks the InstitutionStats method
func (m *MockRegistry) InstitutionStats(ctx context.Context) (interfaces.InstitutionStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(interfaces.InstitutionStats), args.Error(1)
}

// IssueTranscript mocks the IssueTranscript method
func (m *MockRegistry) IssueTranscript(ctx context.Context, issue interfaces.TranscriptIssue) (*interfaces.TxReceipt, error) {
	args := m.Called(ctx, issue)
	return receipt(args.Get(0)), args.Error(1)
}

// VerifyTranscript mocks the VerifyTranscript method
func (m *MockRegistry) VerifyTranscript(ctx context.Context, cid string) (*interfaces.TranscriptRecord, error) {
	args := m.Called(ctx, cid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.TranscriptRecord), args.Error(1)
}

// GetTranscriptDetails mocks the GetTranscriptDetails method
func (m *MockRegistry) GetTranscriptDetails(ctx context.Context, id uint64) (*interfaces.TranscriptRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.TranscriptRecord), args.Error(1)
}

// InvalidateTranscript mocks the InvalidateTranscript method
func (m *MockRegistry) InvalidateTranscript(ctx context.Context, id uint64) (*interfaces.TxReceipt, error) {
	args := m.Called(ctx, id)
	return receipt(args.Get(0)), args.Error(1)
}

// GetStudentTranscripts mocks the GetStudentTranscripts method
func (m *MockRegistry) GetStudentTranscripts(ctx context.Context, student common.Address) ([]interfaces.TranscriptRecord, error) {
	args := m.Called(ctx, student)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.TranscriptRecord), args.Error(1)
}

// CIDExists mocks the CIDExists method
func (m *MockRegistry) CIDExists(ctx context.Context, cid string) (bool, error) {
	args := m.Called(ctx, cid)
	return args.Bool(0), args.Error(1)
}

// TranscriptCount mocks the TranscriptCount method
func (m *MockRegistry) TranscriptCount(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

// MockDirectory mocks the interfaces.InstitutionDirectory interface
type MockDirectory struct {
	mock.Mock
}

// ListInstitutions mocks the ListInstitutions method
func (m *MockDirectory) ListInstitutions(ctx context.Context) ([]interfaces.DirectoryEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.DirectoryEntry), args.Error(1)
}
