package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/transcript-registry-backend/cryptoutils"
	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/metrics"
)

var (
	ErrEmptyDocument  = errors.New("document is empty")
	ErrAlreadyRevoked = errors.New("credential already revoked")
)

// IssueRequest describes one transcript to issue on behalf of the configured institution.
type IssueRequest struct {
	Document io.Reader
	FileName string
	// StudentID defaults to STU-<unix millis> when empty.
	StudentID      string
	StudentAddress common.Address
	DegreeType     interfaces.DegreeType
	GraduationYear uint64
}

// IssueResult is returned for every issuance attempt, including failed ones.
type IssueResult struct {
	Outcome      interfaces.Outcome      `json:"outcome"`
	CredentialID string                  `json:"credentialId,omitempty"`
	TranscriptID *uint64                 `json:"transcriptId,omitempty"`
	StudentID    string                  `json:"studentId"`
	DocumentHash interfaces.DocumentHash `json:"documentHash"`
	CID          string                  `json:"ipfsCid,omitempty"`
	URL          string                  `json:"ipfsUrl,omitempty"`
	Receipt      *interfaces.TxReceipt   `json:"receipt,omitempty"`
	// OrphanedCID is set when the document was pinned but never recorded on-chain.
	OrphanedCID string `json:"orphanedCid,omitempty"`
}

// RevokeResult is returned for every revocation attempt.
type RevokeResult struct {
	Outcome      interfaces.Outcome    `json:"outcome"`
	CredentialID string                `json:"credentialId"`
	TranscriptID uint64                `json:"transcriptId,omitempty"`
	Receipt      *interfaces.TxReceipt `json:"receipt,omitempty"`
}

// Issuer runs the issuance and revocation sequences for a single institution signer.
type Issuer struct {
	registry    interfaces.TranscriptRegistry
	pinner      interfaces.Pinner
	store       interfaces.MetadataStore
	institution common.Address
	metrics     *metrics.Metrics
	now         func() time.Time
	log         *slog.Logger
}

// NewIssuer creates an issuer. institution is the address transactions are signed with.
func NewIssuer(registry interfaces.TranscriptRegistry, pinner interfaces.Pinner, store interfaces.MetadataStore, institution common.Address, log *slog.Logger) *Issuer {
	return &Issuer{
		registry:    registry,
		pinner:      pinner,
		store:       store,
		institution: institution,
		now:         time.Now,
		log:         log,
	}
}

func (i *Issuer) SetMetrics(m *metrics.Metrics) {
	i.metrics = m
}

// Institution returns the issuing address.
func (i *Issuer) Institution() common.Address {
	return i.institution
}

func (i *Issuer) validate(req *IssueRequest) error {
	if req.StudentAddress == (common.Address{}) {
		return fmt.Errorf("%w: student address is required", interfaces.ErrInvalidInput)
	}
	if !req.DegreeType.Valid() {
		return fmt.Errorf("%w: %w", interfaces.ErrInvalidInput, interfaces.ErrInvalidDegreeType)
	}
	if req.GraduationYear == 0 {
		return fmt.Errorf("%w: graduation year is required", interfaces.ErrInvalidInput)
	}
	return nil
}

// Issue hashes, pins, records on-chain and persists a transcript, in that order.
//
// The returned error is non-nil only when the outcome is a failure. A metadata
// write failing after the chain confirmed yields a PartialSuccess with a nil
// error; re-submitting in that state is rejected on-chain with DuplicateCID.
func (i *Issuer) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	res := &IssueResult{StudentID: req.StudentID}
	if res.StudentID == "" {
		res.StudentID = "STU-" + strconv.FormatInt(i.now().UnixMilli(), 10)
	}

	fail := func(stage interfaces.Stage, err error) (*IssueResult, error) {
		res.Outcome = interfaces.Failed(stage, err)
		i.metrics.IssuanceOutcome(res.Outcome.Kind.String(), string(stage))
		return res, err
	}

	if err := i.validate(&req); err != nil {
		return fail(interfaces.StageValidating, err)
	}

	// Hashing
	if req.Document == nil {
		return fail(interfaces.StageHashing, &interfaces.HashError{Err: errors.New("no document")})
	}
	data, err := io.ReadAll(req.Document)
	if err != nil {
		return fail(interfaces.StageHashing, &interfaces.HashError{Err: err})
	}
	if len(data) == 0 {
		return fail(interfaces.StageHashing, fmt.Errorf("%w: %w", interfaces.ErrInvalidInput, ErrEmptyDocument))
	}
	res.DocumentHash = cryptoutils.HashDocumentBytes(data)

	// Uploading
	pin, err := i.pinner.Pin(ctx, data, interfaces.PinMetadata{
		Name: pinName(req.FileName, res.StudentID),
		KeyValues: map[string]string{
			"studentId":          res.StudentID,
			"studentAddress":     interfaces.NormalizeAddress(req.StudentAddress),
			"institutionAddress": interfaces.NormalizeAddress(i.institution),
			"degreeType":         req.DegreeType.String(),
			"graduationYear":     strconv.FormatUint(req.GraduationYear, 10),
			"documentHash":       res.DocumentHash.Hex(),
		},
	})
	if err != nil {
		var pinErr *interfaces.PinningError
		if !errors.As(err, &pinErr) {
			err = &interfaces.PinningError{Backend: i.pinner.Name(), Err: err}
		}
		return fail(interfaces.StageUploading, err)
	}
	i.metrics.AddPinnedBytes(int64(len(data)))
	res.CID = pin.CID
	res.URL = pin.URL
	if res.URL == "" {
		res.URL = i.pinner.GatewayURL(pin.CID)
	}
	i.log.Debug("document pinned", "cid", res.CID, "backend", i.pinner.Name(), "size", len(data))

	// ChainConfirming
	receipt, err := i.registry.IssueTranscript(ctx, interfaces.TranscriptIssue{
		StudentID:      res.StudentID,
		CID:            pin.CID,
		DocumentHash:   res.DocumentHash,
		DegreeType:     req.DegreeType,
		StudentAddress: req.StudentAddress,
		GraduationYear: req.GraduationYear,
	})
	if err != nil {
		res.OrphanedCID = pin.CID
		i.log.Warn("transcript not recorded on-chain, pinned document is orphaned", "cid", pin.CID, "err", err)
		return fail(interfaces.StageChainConfirming, err)
	}
	res.Receipt = receipt

	if record, err := i.registry.VerifyTranscript(ctx, pin.CID); err != nil {
		i.log.Warn("could not resolve transcript id after issuance", "cid", pin.CID, "err", err)
	} else {
		id := record.ID
		res.TranscriptID = &id
	}

	// Persisting
	credentialID, err := i.store.CreateCredential(ctx, &interfaces.Credential{
		TranscriptID:       res.TranscriptID,
		StudentID:          res.StudentID,
		StudentAddress:     req.StudentAddress,
		InstitutionAddress: i.institution,
		DegreeType:         req.DegreeType,
		GraduationYear:     req.GraduationYear,
		DocumentHash:       res.DocumentHash,
		CID:                pin.CID,
		URL:                res.URL,
		TransactionHash:    receipt.TxHash,
		BlockNumber:        receipt.BlockNumber,
		Status:             interfaces.StatusActive,
		CreatedAt:          i.now(),
	})
	if err != nil {
		res.Outcome = interfaces.PartiallySucceeded(interfaces.StagePersisting, err)
		i.metrics.IssuanceOutcome(res.Outcome.Kind.String(), string(interfaces.StagePersisting))
		i.log.Error("transcript issued on-chain but metadata is pending", "cid", pin.CID, "tx", receipt.TxHash.Hex(), "err", err)
		return res, nil
	}
	res.CredentialID = credentialID
	res.Outcome = interfaces.Succeeded()
	i.metrics.IssuanceOutcome(res.Outcome.Kind.String(), string(interfaces.StageDone))
	i.log.Info("transcript issued", "credential", credentialID, "cid", pin.CID, "tx", receipt.TxHash.Hex())
	return res, nil
}

func pinName(fileName, studentID string) string {
	if fileName != "" {
		return fileName
	}
	return "transcript-" + studentID
}

// Revoke invalidates a credential on-chain and marks it revoked in the metadata store.
// The returned error follows the same convention as Issue.
func (i *Issuer) Revoke(ctx context.Context, credentialID, reason string) (*RevokeResult, error) {
	res := &RevokeResult{CredentialID: credentialID}

	fail := func(stage interfaces.Stage, err error) (*RevokeResult, error) {
		res.Outcome = interfaces.Failed(stage, err)
		i.metrics.RevocationOutcome(res.Outcome.Kind.String())
		return res, err
	}

	cred, err := i.store.GetCredential(ctx, credentialID)
	if err != nil {
		return fail(interfaces.StageLoading, err)
	}
	if cred.Status == interfaces.StatusRevoked {
		return fail(interfaces.StageLoading, ErrAlreadyRevoked)
	}

	transcriptID, err := i.resolveTranscriptID(ctx, cred)
	if err != nil {
		return fail(interfaces.StageLoading, err)
	}
	res.TranscriptID = transcriptID

	receipt, err := i.registry.InvalidateTranscript(ctx, transcriptID)
	if err != nil {
		return fail(interfaces.StageChainConfirming, err)
	}
	res.Receipt = receipt

	revoked := interfaces.StatusRevoked
	revokedAt := i.now()
	err = i.store.UpdateCredential(ctx, credentialID, interfaces.CredentialPatch{
		TranscriptID:     &transcriptID,
		Status:           &revoked,
		RevocationReason: &reason,
		RevokedAt:        &revokedAt,
	})
	if err != nil {
		res.Outcome = interfaces.PartiallySucceeded(interfaces.StagePersisting, err)
		i.metrics.RevocationOutcome(res.Outcome.Kind.String())
		i.log.Error("transcript revoked on-chain but metadata is stale", "credential", credentialID, "transcript", transcriptID, "err", err)
		return res, nil
	}

	res.Outcome = interfaces.Succeeded()
	i.metrics.RevocationOutcome(res.Outcome.Kind.String())
	i.log.Info("transcript revoked", "credential", credentialID, "transcript", transcriptID, "tx", receipt.TxHash.Hex())
	return res, nil
}

func (i *Issuer) resolveTranscriptID(ctx context.Context, cred *interfaces.Credential) (uint64, error) {
	if cred.TranscriptID != nil {
		return *cred.TranscriptID, nil
	}
	record, err := i.registry.VerifyTranscript(ctx, cred.CID)
	if err != nil {
		return 0, fmt.Errorf("resolve transcript id for %s: %w", cred.CID, err)
	}
	return record.ID, nil
}

// ListByStudent returns the student's credentials from the metadata store, or
// the on-chain transcripts when the store has none.
func (i *Issuer) ListByStudent(ctx context.Context, student common.Address) ([]interfaces.Credential, error) {
	creds, err := i.store.ListCredentialsByStudent(ctx, student)
	if err != nil {
		i.log.Warn("metadata store unavailable, listing on-chain transcripts", "student", student.Hex(), "err", err)
	} else if len(creds) > 0 {
		return creds, nil
	}

	records, chainErr := i.registry.GetStudentTranscripts(ctx, student)
	if chainErr != nil {
		if err != nil {
			return nil, errors.Join(err, chainErr)
		}
		return nil, chainErr
	}
	res := make([]interfaces.Credential, 0, len(records))
	for _, r := range records {
		res = append(res, CredentialFromRecord(&r, i.pinner.GatewayURL(r.CID)))
	}
	return res, nil
}

// ListByInstitution returns the credentials an institution issued, newest first.
func (i *Issuer) ListByInstitution(ctx context.Context, institution common.Address) ([]interfaces.Credential, error) {
	return i.store.ListCredentialsByInstitution(ctx, institution)
}

// CredentialFromRecord synthesizes a credential view from on-chain data only.
func CredentialFromRecord(r *interfaces.TranscriptRecord, url string) interfaces.Credential {
	id := r.ID
	return interfaces.Credential{
		TranscriptID:       &id,
		StudentID:          r.StudentID,
		StudentAddress:     r.StudentAddress,
		InstitutionAddress: r.IssuedBy,
		DegreeType:         r.DegreeType,
		GraduationYear:     r.GraduationYear,
		DocumentHash:       r.DocumentHash,
		CID:                r.CID,
		URL:                url,
		Status:             r.Status,
		CreatedAt:          r.DateIssued,
	}
}
