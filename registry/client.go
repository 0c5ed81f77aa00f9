// Package registry provides an interface to interact with the on-chain
// institution and transcript registry contracts.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ruteri/transcript-registry-backend/bindings/registry"
	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/metrics"
)

// OnchainRegistryClient implements interfaces.Registry over the deployed
// InstitutionRegistry and TranscriptVerification contracts.
type OnchainRegistryClient struct {
	institutions *registry.InstitutionRegistry
	transcripts  *registry.TranscriptVerification
	client       bind.ContractBackend
	backend      bind.DeployBackend
	auth         *bind.TransactOpts
	metrics      *metrics.Metrics
	log          *slog.Logger
}

// NewOnchainRegistryClient creates a client for the two registry contracts. It requires
// a ContractBackend for reading from the blockchain and a DeployBackend for waiting on receipts.
func NewOnchainRegistryClient(client bind.ContractBackend, backend bind.DeployBackend, institutionAddr, transcriptAddr common.Address, log *slog.Logger) (*OnchainRegistryClient, error) {
	institutions, err := registry.NewInstitutionRegistry(institutionAddr, client)
	if err != nil {
		return nil, fmt.Errorf("binding institution registry: %w", err)
	}
	transcripts, err := registry.NewTranscriptVerification(transcriptAddr, client)
	if err != nil {
		return nil, fmt.Errorf("binding transcript registry: %w", err)
	}

	return &OnchainRegistryClient{
		institutions: institutions,
		transcripts:  transcripts,
		client:       client,
		backend:      backend,
		log:          log,
	}, nil
}

// SetTransactOpts sets the transaction options required for functions that modify state.
// This must be called before using any methods that send transactions to the blockchain.
func (c *OnchainRegistryClient) SetTransactOpts(auth *bind.TransactOpts) {
	c.auth = auth
}

// SetMetrics enables chain write latency reporting.
func (c *OnchainRegistryClient) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Signer returns the address transactions are sent from, if a transactor is configured.
func (c *OnchainRegistryClient) Signer() (common.Address, bool) {
	if c.auth == nil {
		return common.Address{}, false
	}
	return c.auth.From, true
}

func (c *OnchainRegistryClient) callOpts(ctx context.Context) *bind.CallOpts {
	opts := &bind.CallOpts{Context: ctx}
	if c.auth != nil {
		opts.From = c.auth.From
	}
	return opts
}

// transact sends a transaction and blocks until it has one confirmation.
// A mined transaction with a failed status is replayed as a call to recover the revert reason.
func (c *OnchainRegistryClient) transact(ctx context.Context, method string, send func(*bind.TransactOpts) (*types.Transaction, error)) (*interfaces.TxReceipt, error) {
	if c.auth == nil {
		return nil, ErrNoTransactOpts
	}

	opts := *c.auth
	opts.Context = ctx

	start := time.Now()
	tx, err := send(&opts)
	if err != nil {
		cerr := ClassifyError(method, err)
		c.observe(method, cerr, start)
		return nil, cerr
	}

	txHash := tx.Hash()
	c.log.Debug("transaction sent", "method", method, "tx", txHash.Hex())

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		cerr := &interfaces.ChainCallError{Kind: interfaces.ChainErrTransport, Method: method, TxHash: &txHash, Err: err}
		c.observe(method, cerr, start)
		return nil, cerr
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		kind := interfaces.ChainErrReverted
		reason := errors.New("transaction reverted")
		if replayErr := c.replay(ctx, &opts, tx, receipt.BlockNumber); replayErr != nil {
			if k := classify(replayErr); k != interfaces.ChainErrTransport {
				kind = k
			}
			reason = fmt.Errorf("transaction reverted: %w", replayErr)
		}
		cerr := &interfaces.ChainCallError{Kind: kind, Method: method, TxHash: &txHash, Err: reason}
		c.observe(method, cerr, start)
		return nil, cerr
	}

	c.observe(method, nil, start)
	return &interfaces.TxReceipt{
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

func (c *OnchainRegistryClient) replay(ctx context.Context, opts *bind.TransactOpts, tx *types.Transaction, block *big.Int) error {
	_, err := c.client.CallContract(ctx, ethereum.CallMsg{
		From:  opts.From,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}, block)
	return err
}

func (c *OnchainRegistryClient) observe(method string, err error, start time.Time) {
	result := "ok"
	if err != nil {
		result = "error"
		if kind, ok := interfaces.ChainErrorKindOf(err); ok {
			result = kind.String()
		}
	}
	c.metrics.ObserveChainWrite(method, result, time.Since(start))
}

// RegisterInstitution self-registers the configured signer as an institution.
func (c *OnchainRegistryClient) RegisterInstitution(ctx context.Context, name, country, accreditedURL, email string) (*interfaces.TxReceipt, error) {
	return c.transact(ctx, "registerInstitution", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.institutions.RegisterInstitution(opts, name, country, accreditedURL, email)
	})
}

// VerifyInstitution marks an institution verified. Admin only.
func (c *OnchainRegistryClient) VerifyInstitution(ctx context.Context, addr common.Address) (*interfaces.TxReceipt, error) {
	return c.transact(ctx, "verifyInstitution", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.institutions.VerifyInstitution(opts, addr)
	})
}

// SuspendInstitution clears an institution's verification flag. Admin only.
func (c *OnchainRegistryClient) SuspendInstitution(ctx context.Context, addr common.Address) (*interfaces.TxReceipt, error) {
	return c.transact(ctx, "suspendInstitution", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.institutions.SuspendInstitution(opts, addr)
	})
}

func (c *OnchainRegistryClient) IsInstitutionVerified(ctx context.Context, addr common.Address) (bool, error) {
	verified, err := c.institutions.IsInstitutionVerified(c.callOpts(ctx), addr)
	if err != nil {
		err = ClassifyError("isInstitutionVerified", err)
		if interfaces.IsChainNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return verified, nil
}

func (c *OnchainRegistryClient) GetInstitutionDetails(ctx context.Context, addr common.Address) (*interfaces.InstitutionRecord, error) {
	inst, err := c.institutions.GetInstitutionDetails(c.callOpts(ctx), addr)
	if err != nil {
		return nil, ClassifyError("getInstitutionDetails", err)
	}
	if inst.WalletAddress == (common.Address{}) {
		return nil, interfaces.NewChainCallError("getInstitutionDetails", interfaces.ChainErrDoesNotExist, nil)
	}
	return institutionFromBinding(inst), nil
}

func (c *OnchainRegistryClient) InstitutionExists(ctx context.Context, addr common.Address) (bool, error) {
	_, err := c.GetInstitutionDetails(ctx, addr)
	if interfaces.IsChainNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *OnchainRegistryClient) InstitutionState(ctx context.Context, addr common.Address) (interfaces.InstitutionState, error) {
	inst, err := c.GetInstitutionDetails(ctx, addr)
	if interfaces.IsChainNotFound(err) {
		return interfaces.InstitutionUnregistered, nil
	}
	if err != nil {
		return interfaces.InstitutionUnregistered, err
	}
	if inst.IsVerified {
		return interfaces.InstitutionVerified, nil
	}
	return interfaces.InstitutionPending, nil
}

func (c *OnchainRegistryClient) InstitutionStats(ctx context.Context) (interfaces.InstitutionStats, error) {
	total, err := c.institutions.NumberOfInstitutions(c.callOpts(ctx))
	if err != nil {
		return interfaces.InstitutionStats{}, ClassifyError("numberOfInstitutions", err)
	}
	verified, err := c.institutions.NumberOfVerifiedInstitutions(c.callOpts(ctx))
	if err != nil {
		return interfaces.InstitutionStats{}, ClassifyError("numberOfVerifiedInstitutions", err)
	}
	return interfaces.InstitutionStats{
		TotalInstitutions:    total.Uint64(),
		VerifiedInstitutions: verified.Uint64(),
	}, nil
}

// IssueTranscript records a transcript on-chain. The CID is passed through unmodified.
func (c *OnchainRegistryClient) IssueTranscript(ctx context.Context, issue interfaces.TranscriptIssue) (*interfaces.TxReceipt, error) {
	if !issue.DegreeType.Valid() {
		return nil, fmt.Errorf("%w: %d", interfaces.ErrInvalidDegreeType, issue.DegreeType)
	}
	return c.transact(ctx, "issueTranscripts", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.transcripts.IssueTranscripts(opts,
			issue.StudentID,
			issue.CID,
			issue.DocumentHash.Bytes32(),
			uint8(issue.DegreeType),
			issue.StudentAddress,
			new(big.Int).SetUint64(issue.GraduationYear),
		)
	})
}

func (c *OnchainRegistryClient) VerifyTranscript(ctx context.Context, cid string) (*interfaces.TranscriptRecord, error) {
	t, err := c.transcripts.VerifyTranscript(c.callOpts(ctx), cid)
	if err != nil {
		return nil, ClassifyError("verifyTranscript", err)
	}
	if t.Ipfscid == "" {
		return nil, interfaces.NewChainCallError("verifyTranscript", interfaces.ChainErrDoesNotExist, nil)
	}
	return transcriptFromBinding(t), nil
}

func (c *OnchainRegistryClient) GetTranscriptDetails(ctx context.Context, id uint64) (*interfaces.TranscriptRecord, error) {
	t, err := c.transcripts.GetTranscriptDetails(c.callOpts(ctx), new(big.Int).SetUint64(id))
	if err != nil {
		return nil, ClassifyError("getTranscriptDetails", err)
	}
	if t.Ipfscid == "" {
		return nil, interfaces.NewChainCallError("getTranscriptDetails", interfaces.ChainErrDoesNotExist, nil)
	}
	return transcriptFromBinding(t), nil
}

// InvalidateTranscript revokes a transcript. Only its issuer may call this.
func (c *OnchainRegistryClient) InvalidateTranscript(ctx context.Context, id uint64) (*interfaces.TxReceipt, error) {
	return c.transact(ctx, "inValidateTranscript", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.transcripts.InValidateTranscript(opts, new(big.Int).SetUint64(id))
	})
}

func (c *OnchainRegistryClient) GetStudentTranscripts(ctx context.Context, student common.Address) ([]interfaces.TranscriptRecord, error) {
	ts, err := c.transcripts.GetStudentTranscripts(c.callOpts(ctx), student)
	if err != nil {
		err = ClassifyError("getStudentTranscripts", err)
		if interfaces.IsChainNotFound(err) {
			return []interfaces.TranscriptRecord{}, nil
		}
		return nil, err
	}

	records := make([]interfaces.TranscriptRecord, 0, len(ts))
	for _, t := range ts {
		records = append(records, *transcriptFromBinding(t))
	}
	return records, nil
}

func (c *OnchainRegistryClient) CIDExists(ctx context.Context, cid string) (bool, error) {
	exists, err := c.transcripts.ExistingCIDs(c.callOpts(ctx), cid)
	if err != nil {
		return false, ClassifyError("existingCIDs", err)
	}
	return exists, nil
}

func (c *OnchainRegistryClient) TranscriptCount(ctx context.Context) (uint64, error) {
	count, err := c.transcripts.TranscriptCount(c.callOpts(ctx))
	if err != nil {
		return 0, ClassifyError("transcriptCount", err)
	}
	return count.Uint64(), nil
}

func institutionFromBinding(inst registry.InstitutionRegistryInstitution) *interfaces.InstitutionRecord {
	return &interfaces.InstitutionRecord{
		ID:             bigToUint64(inst.Id),
		WalletAddress:  inst.WalletAddress,
		Name:           inst.Name,
		Country:        inst.Country,
		AccreditedURL:  inst.AccreditedURL,
		Email:          inst.Email,
		IsVerified:     inst.IsVerified,
		DateRegistered: unixTime(inst.DateRegistered),
	}
}

func transcriptFromBinding(t registry.TranscriptVerificationTranscript) *interfaces.TranscriptRecord {
	return &interfaces.TranscriptRecord{
		ID:             bigToUint64(t.Id),
		StudentID:      t.StudentId,
		IssuedBy:       t.IssuedBy,
		DocumentHash:   interfaces.DocumentHash(t.Documenthash),
		DegreeType:     interfaces.DegreeType(t.DegreeType),
		DateIssued:     unixTime(t.DateIssued),
		CID:            t.Ipfscid,
		StudentAddress: t.StudentAddress,
		Status:         interfaces.TranscriptStatus(t.Status),
		GraduationYear: bigToUint64(t.Graduationyear),
	}
}

func bigToUint64(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}

func unixTime(v *big.Int) time.Time {
	if v == nil || !v.IsInt64() {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}
