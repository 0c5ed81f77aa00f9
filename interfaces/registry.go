package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// InstitutionRegistry covers the Institution Registry contract entry points.
type InstitutionRegistry interface {
	// RegisterInstitution self-registers the signer. Fails with ErrAlreadyRegistered.
	RegisterInstitution(ctx context.Context, name, country, accreditedURL, email string) (*TxReceipt, error)

	// VerifyInstitution is admin-only. Fails with ErrNotAuthorized, ErrDoesNotExist or ErrAlreadyVerified.
	VerifyInstitution(ctx context.Context, addr common.Address) (*TxReceipt, error)

	// SuspendInstitution is admin-only and clears the verification flag.
	SuspendInstitution(ctx context.Context, addr common.Address) (*TxReceipt, error)

	// IsInstitutionVerified returns false, not an error, for unregistered addresses.
	IsInstitutionVerified(ctx context.Context, addr common.Address) (bool, error)

	// InstitutionExists distinguishes unregistered addresses from unverified ones.
	InstitutionExists(ctx context.Context, addr common.Address) (bool, error)

	// InstitutionState returns Unregistered, Pending or Verified.
	InstitutionState(ctx context.Context, addr common.Address) (InstitutionState, error)

	// GetInstitutionDetails fails with ErrDoesNotExist for unregistered addresses.
	GetInstitutionDetails(ctx context.Context, addr common.Address) (*InstitutionRecord, error)

	InstitutionStats(ctx context.Context) (InstitutionStats, error)
}

// TranscriptRegistry covers the Transcript Registry contract entry points.
type TranscriptRegistry interface {
	// IssueTranscript fails with ErrOnlyVerifiedInstitutions or ErrDuplicateCID.
	IssueTranscript(ctx context.Context, issue TranscriptIssue) (*TxReceipt, error)

	// VerifyTranscript fails with ErrDoesNotExist for unknown CIDs.
	VerifyTranscript(ctx context.Context, cid string) (*TranscriptRecord, error)

	GetTranscriptDetails(ctx context.Context, id uint64) (*TranscriptRecord, error)

	// InvalidateTranscript may only be called by the issuer. Fails with ErrNotAuthorized.
	InvalidateTranscript(ctx context.Context, id uint64) (*TxReceipt, error)

	// GetStudentTranscripts returns an empty list for students without transcripts.
	GetStudentTranscripts(ctx context.Context, student common.Address) ([]TranscriptRecord, error)

	CIDExists(ctx context.Context, cid string) (bool, error)

	TranscriptCount(ctx context.Context) (uint64, error)
}

// Registry is the complete on-chain surface. All write operations block until
// the transaction has one confirmation.
type Registry interface {
	InstitutionRegistry
	TranscriptRegistry
}

// InstitutionDirectory discovers registered institutions. Results are best-effort:
// callers must not assume completeness.
type InstitutionDirectory interface {
	ListInstitutions(ctx context.Context) ([]DirectoryEntry, error)
}
