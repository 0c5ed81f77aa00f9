package metadata

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/ruteri/transcript-registry-backend/interfaces"
)

// MockStore mocks the interfaces.MetadataStore interface
type MockStore struct {
	mock.Mock
}

func institution(v interface{}) *interfaces.Institution {
	if v == nil {
		return nil
	}
	return v.(*interfaces.Institution)
}

func credential(v interface{}) *interfaces.Credential {
	if v == nil {
		return nil
	}
	return v.(*interfaces.Credential)
}

func credentials(v interface{}) []interfaces.Credential {
	if v == nil {
		return nil
	}
	return v.([]interfaces.Credential)
}

// CreateInstitution mocks the CreateInstitution method
func (m *MockStore) CreateInstitution(ctx context.Context, inst *interfaces.Institution) (string, error) {
	args := m.Called(ctx, inst)
	return args.String(0), args.Error(1)
}

// GetInstitutionByAddress mocks the GetInstitutionByAddress method
func (m *MockStore) GetInstitutionByAddress(ctx context.Context, addr common.Address) (*interfaces.Institution, error) {
	args := m.Called(ctx, addr)
	return institution(args.Get(0)), args.Error(1)
}

// UpdateInstitution mocks the UpdateInstitution method
func (m *MockStore) UpdateInstitution(ctx context.Context, addr common.Address, patch interfaces.InstitutionPatch) error {
	args := m.Called(ctx, addr, patch)
	return args.Error(0)
}

// ListInstitutions mocks the ListInstitutions method
func (m *MockStore) ListInstitutions(ctx context.Context) ([]interfaces.Institution, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.Institution), args.Error(1)
}

// CreateCredential mocks the CreateCredential method
func (m *MockStore) CreateCredential(ctx context.Context, cred *interfaces.Credential) (string, error) {
	args := m.Called(ctx, cred)
	return args.String(0), args.Error(1)
}

// GetCredential mocks the GetCredential method
func (m *MockStore) GetCredential(ctx context.Context, id string) (*interfaces.Credential, error) {
	args := m.Called(ctx, id)
	return credential(args.Get(0)), args.Error(1)
}

// FindCredentialByHash mocks the FindCredentialByHash method
func (m *MockStore) FindCredentialByHash(ctx context.Context, hash interfaces.DocumentHash) (*interfaces.Credential, error) {
	args := m.Called(ctx, hash)
	return credential(args.Get(0)), args.Error(1)
}

// FindCredentialByCID mocks the FindCredentialByCID method
func (m *MockStore) FindCredentialByCID(ctx context.Context, cid string) (*interfaces.Credential, error) {
	args := m.Called(ctx, cid)
	return credential(args.Get(0)), args.Error(1)
}

// ListCredentialsByStudent mocks the ListCredentialsByStudent method
func (m *MockStore) ListCredentialsByStudent(ctx context.Context, student common.Address) ([]interfaces.Credential, error) {
	args := m.Called(ctx, student)
	return credentials(args.Get(0)), args.Error(1)
}

// ListCredentialsByInstitution mocks the ListCredentialsByInstitution method
func (m *MockStore) ListCredentialsByInstitution(ctx context.Context, institution common.Address) ([]interfaces.Credential, error) {
	args := m.Called(ctx, institution)
	return credentials(args.Get(0)), args.Error(1)
}

// UpdateCredential mocks the UpdateCredential method
func (m *MockStore) UpdateCredential(ctx context.Context, id string, patch interfaces.CredentialPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

// CredentialStats mocks the CredentialStats method
func (m *MockStore) CredentialStats(ctx context.Context) (interfaces.CredentialStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(interfaces.CredentialStats), args.Error(1)
}
