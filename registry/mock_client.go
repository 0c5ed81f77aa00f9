package registry

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/transcript-registry-backend/interfaces"
)

// mockChain is the state shared by every view of a MockRegistryClient.
type mockChain struct {
	mutex        sync.RWMutex
	admin        common.Address
	institutions map[common.Address]*interfaces.InstitutionRecord
	verified     uint64
	transcripts  []*interfaces.TranscriptRecord
	byCID        map[string]uint64
	logs         []types.Log
	block        uint64
	nonce        uint64
	unavailable  error
	now          func() time.Time
}

// MockRegistryClient provides an in-memory implementation of interfaces.Registry
// for testing purposes without requiring a blockchain connection.
// It enforces the same rules as the deployed contracts and reports violations
// as *interfaces.ChainCallError of the matching kind.
type MockRegistryClient struct {
	chain            *mockChain
	sender           common.Address
	allowTransacting bool
}

// NewMockRegistryClient creates a new mock registry with admin as the contract administrator.
// The client starts in a read-only state - call SetTransactOpts to enable transaction operations.
func NewMockRegistryClient(admin common.Address) *MockRegistryClient {
	return &MockRegistryClient{
		chain: &mockChain{
			admin:        admin,
			institutions: make(map[common.Address]*interfaces.InstitutionRecord),
			byCID:        make(map[string]uint64),
			now:          func() time.Time { return time.Now().UTC().Truncate(time.Second) },
		},
	}
}

// SetTransactOpts enables transaction operations, sent from the given address.
func (m *MockRegistryClient) SetTransactOpts(from common.Address) {
	m.sender = from
	m.allowTransacting = true
}

// As returns a client sharing this registry's state that transacts as from.
func (m *MockRegistryClient) As(from common.Address) *MockRegistryClient {
	return &MockRegistryClient{chain: m.chain, sender: from, allowTransacting: true}
}

// SetUnavailable makes every subsequent call fail with a transport error. Pass nil to restore.
func (m *MockRegistryClient) SetUnavailable(err error) {
	m.chain.mutex.Lock()
	defer m.chain.mutex.Unlock()
	m.chain.unavailable = err
}

// SetClock overrides the timestamp source for registrations and issuances.
func (m *MockRegistryClient) SetClock(now func() time.Time) {
	m.chain.mutex.Lock()
	defer m.chain.mutex.Unlock()
	m.chain.now = now
}

func (m *MockRegistryClient) Signer() (common.Address, bool) {
	return m.sender, m.allowTransacting
}

func (c *mockChain) check(method string) error {
	if c.unavailable != nil {
		return interfaces.NewChainCallError(method, interfaces.ChainErrTransport, c.unavailable)
	}
	return nil
}

func chainErr(method string, kind interfaces.ChainErrorKind) error {
	return interfaces.NewChainCallError(method, kind, errors.New("execution reverted: "+kind.String()))
}

// write runs fn under the write lock and mines a block for it.
func (m *MockRegistryClient) write(method string, fn func(c *mockChain) error) (*interfaces.TxReceipt, error) {
	if !m.allowTransacting {
		return nil, ErrNoTransactOpts
	}

	c := m.chain
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.check(method); err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}

	c.block++
	c.nonce++
	return &interfaces.TxReceipt{
		TxHash:      crypto.Keccak256Hash(m.sender.Bytes(), new(big.Int).SetUint64(c.nonce).Bytes()),
		BlockNumber: c.block,
		GasUsed:     21000,
	}, nil
}

func (m *MockRegistryClient) RegisterInstitution(ctx context.Context, name, country, accreditedURL, email string) (*interfaces.TxReceipt, error) {
	sender := m.sender
	return m.write("registerInstitution", func(c *mockChain) error {
		if _, exists := c.institutions[sender]; exists {
			return chainErr("registerInstitution", interfaces.ChainErrAlreadyRegistered)
		}
		id := uint64(len(c.institutions) + 1)
		c.institutions[sender] = &interfaces.InstitutionRecord{
			ID:             id,
			WalletAddress:  sender,
			Name:           name,
			Country:        country,
			AccreditedURL:  accreditedURL,
			Email:          email,
			DateRegistered: c.now(),
		}
		c.logs = append(c.logs, types.Log{
			Topics:      []common.Hash{institutionRegisteredTopic, common.BytesToHash(sender.Bytes())},
			Data:        common.LeftPadBytes(new(big.Int).SetUint64(id).Bytes(), 32),
			BlockNumber: c.block + 1,
		})
		return nil
	})
}

func (m *MockRegistryClient) VerifyInstitution(ctx context.Context, addr common.Address) (*interfaces.TxReceipt, error) {
	sender := m.sender
	return m.write("verifyInstitution", func(c *mockChain) error {
		if sender != c.admin {
			return chainErr("verifyInstitution", interfaces.ChainErrNotAuthorized)
		}
		inst, exists := c.institutions[addr]
		if !exists {
			return chainErr("verifyInstitution", interfaces.ChainErrDoesNotExist)
		}
		if inst.IsVerified {
			return chainErr("verifyInstitution", interfaces.ChainErrAlreadyVerified)
		}
		inst.IsVerified = true
		c.verified++
		return nil
	})
}

func (m *MockRegistryClient) SuspendInstitution(ctx context.Context, addr common.Address) (*interfaces.TxReceipt, error) {
	sender := m.sender
	return m.write("suspendInstitution", func(c *mockChain) error {
		if sender != c.admin {
			return chainErr("suspendInstitution", interfaces.ChainErrNotAuthorized)
		}
		inst, exists := c.institutions[addr]
		if !exists {
			return chainErr("suspendInstitution", interfaces.ChainErrDoesNotExist)
		}
		if inst.IsVerified {
			inst.IsVerified = false
			c.verified--
		}
		return nil
	})
}

func (m *MockRegistryClient) IsInstitutionVerified(ctx context.Context, addr common.Address) (bool, error) {
	c := m.chain
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if err := c.check("isInstitutionVerified"); err != nil {
		return false, err
	}
	inst, exists := c.institutions[addr]
	return exists && inst.IsVerified, nil
}

func (m *MockRegistryClient) InstitutionExists(ctx context.Context, addr common.Address) (bool, error) {
	_, err := m.GetInstitutionDetails(ctx, addr)
	if interfaces.IsChainNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (m *MockRegistryClient) InstitutionState(ctx context.Context, addr common.Address) (interfaces.InstitutionState, error) {
	inst, err := m.GetInstitutionDetails(ctx, addr)
	switch {
	case interfaces.IsChainNotFound(err):
		return interfaces.InstitutionUnregistered, nil
	case err != nil:
		return interfaces.InstitutionUnregistered, err
	case inst.IsVerified:
		return interfaces.InstitutionVerified, nil
	default:
		return interfaces.InstitutionPending, nil
	}
}

func (m *MockRegistryClient) GetInstitutionDetails(ctx context.Context, addr common.Address) (*interfaces.InstitutionRecord, error) {
	c := m.chain
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if err := c.check("getInstitutionDetails"); err != nil {
		return nil, err
	}
	inst, exists := c.institutions[addr]
	if !exists {
		return nil, chainErr("getInstitutionDetails", interfaces.ChainErrDoesNotExist)
	}
	cp := *inst
	return &cp, nil
}

func (m *MockRegistryClient) InstitutionStats(ctx context.Context) (interfaces.InstitutionStats, error) {
	c := m.chain
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if err := c.check("numberOfInstitutions"); err != nil {
		return interfaces.InstitutionStats{}, err
	}
	return interfaces.InstitutionStats{
		TotalInstitutions:    uint64(len(c.institutions)),
		VerifiedInstitutions: c.verified,
	}, nil
}

func (m *MockRegistryClient) IssueTranscript(ctx context.Context, issue interfaces.TranscriptIssue) (*interfaces.TxReceipt, error) {
	sender := m.sender
	return m.write("issueTranscripts", func(c *mockChain) error {
		if inst, ok := c.institutions[sender]; !ok || !inst.IsVerified {
			return chainErr("issueTranscripts", interfaces.ChainErrOnlyVerifiedInstitutions)
		}
		if _, dup := c.byCID[issue.CID]; dup {
			return chainErr("issueTranscripts", interfaces.ChainErrDuplicateCID)
		}
		id := uint64(len(c.transcripts) + 1)
		c.transcripts = append(c.transcripts, &interfaces.TranscriptRecord{
			ID:             id,
			StudentID:      issue.StudentID,
			IssuedBy:       sender,
			DocumentHash:   issue.DocumentHash,
			DegreeType:     issue.DegreeType,
			DateIssued:     c.now(),
			CID:            issue.CID,
			StudentAddress: issue.StudentAddress,
			Status:         interfaces.StatusActive,
			GraduationYear: issue.GraduationYear,
		})
		c.byCID[issue.CID] = id
		return nil
	})
}

func (m *MockRegistryClient) VerifyTranscript(ctx context.Context, cid string) (*interfaces.TranscriptRecord, error) {
	c := m.chain
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if err := c.check("verifyTranscript"); err != nil {
		return nil, err
	}
	id, ok := c.byCID[cid]
	if !ok {
		return nil, chainErr("verifyTranscript", interfaces.ChainErrDoesNotExist)
	}
	cp := *c.transcripts[id-1]
	return &cp, nil
}

func (m *MockRegistryClient) GetTranscriptDetails(ctx context.Context, id uint64) (*interfaces.TranscriptRecord, error) {
	c := m.chain
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if err := c.check("getTranscriptDetails"); err != nil {
		return nil, err
	}
	if id == 0 || id > uint64(len(c.transcripts)) {
		return nil, chainErr("getTranscriptDetails", interfaces.ChainErrDoesNotExist)
	}
	cp := *c.transcripts[id-1]
	return &cp, nil
}

func (m *MockRegistryClient) InvalidateTranscript(ctx context.Context, id uint64) (*interfaces.TxReceipt, error) {
	sender := m.sender
	return m.write("inValidateTranscript", func(c *mockChain) error {
		if id == 0 || id > uint64(len(c.transcripts)) {
			return chainErr("inValidateTranscript", interfaces.ChainErrDoesNotExist)
		}
		t := c.transcripts[id-1]
		if t.IssuedBy != sender {
			return chainErr("inValidateTranscript", interfaces.ChainErrNotAuthorized)
		}
		if t.Status == interfaces.StatusRevoked {
			return chainErr("inValidateTranscript", interfaces.ChainErrReverted)
		}
		t.Status = interfaces.StatusRevoked
		return nil
	})
}

func (m *MockRegistryClient) GetStudentTranscripts(ctx context.Context, student common.Address) ([]interfaces.TranscriptRecord, error) {
	c := m.chain
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if err := c.check("getStudentTranscripts"); err != nil {
		return nil, err
	}
	records := []interfaces.TranscriptRecord{}
	for _, t := range c.transcripts {
		if t.StudentAddress == student {
			records = append(records, *t)
		}
	}
	return records, nil
}

func (m *MockRegistryClient) CIDExists(ctx context.Context, cid string) (bool, error) {
	c := m.chain
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if err := c.check("existingCIDs"); err != nil {
		return false, err
	}
	_, ok := c.byCID[cid]
	return ok, nil
}

func (m *MockRegistryClient) TranscriptCount(ctx context.Context) (uint64, error) {
	c := m.chain
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if err := c.check("transcriptCount"); err != nil {
		return 0, err
	}
	return uint64(len(c.transcripts)), nil
}

// BlockNumber implements LogSource.
func (m *MockRegistryClient) BlockNumber(ctx context.Context) (uint64, error) {
	c := m.chain
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if err := c.check("eth_blockNumber"); err != nil {
		return 0, err
	}
	return c.block, nil
}

// FilterLogs implements LogSource over the InstitutionRegistered events emitted so far.
// Address filters are ignored.
func (m *MockRegistryClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c := m.chain
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if err := c.check("eth_getLogs"); err != nil {
		return nil, err
	}
	var out []types.Log
	for _, l := range c.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
