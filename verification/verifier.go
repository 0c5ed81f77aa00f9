package verification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ruteri/transcript-registry-backend/credentials"
	"github.com/ruteri/transcript-registry-backend/cryptoutils"
	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/metrics"
)

const (
	// DefaultBatchConcurrency bounds concurrent lookups in a batch.
	DefaultBatchConcurrency = 8
	// MaxBatchSize is the largest batch accepted by BatchVerifyDocuments and BatchVerifyCIDs.
	MaxBatchSize = 100
)

// Reason explains an invalid result.
type Reason string

const (
	ReasonNotRegistered Reason = "not_registered"
	ReasonNotFound      Reason = "not_found"
	ReasonRevoked       Reason = "revoked"
	ReasonHashMismatch  Reason = "hash_mismatch"
)

// Source names where the reported status came from.
type Source string

const (
	SourceNone  Source = "none"
	SourceChain Source = "chain"
	SourceStore Source = "store"
)

const (
	msgNotRegistered = "Credential not found in database. This document may not be registered on the blockchain."
	msgNotFound      = "Credential not found. Please check the IPFS CID and try again."
	msgRevoked       = "This credential has been revoked by the issuing institution."
	msgRevokedStored = "This credential has been revoked."
	msgHashMismatch  = "Document does not match the fingerprint recorded on the blockchain."
	msgValid         = "Credential is valid."
	warnDegraded     = "Verified from database (blockchain query failed)"
)

// Result is the outcome of a single verification.
// Degraded results are based on the metadata store only and carry a Warning.
type Result struct {
	Valid        bool                         `json:"valid"`
	Reason       Reason                       `json:"reason,omitempty"`
	Message      string                       `json:"message"`
	Degraded     bool                         `json:"degraded"`
	Warning      string                       `json:"warning,omitempty"`
	Source       Source                       `json:"source"`
	Status       *interfaces.TranscriptStatus `json:"status,omitempty"`
	CID          string                       `json:"ipfsCid,omitempty"`
	DocumentHash *interfaces.DocumentHash     `json:"documentHash,omitempty"`
	Credential   *interfaces.Credential       `json:"credential,omitempty"`
	Transcript   *interfaces.TranscriptRecord `json:"blockchainData,omitempty"`
}

// Document is one input to BatchVerifyDocuments.
type Document struct {
	Name string
	Data []byte
}

// BatchItem is one slot of a batch result. Error is set when the item could not be verified at all.
type BatchItem struct {
	Input  string  `json:"input"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Stats are the dashboard counters.
type Stats struct {
	interfaces.CredentialStats
	Institutions *interfaces.InstitutionStats `json:"institutions,omitempty"`
}

// QRPayload is the content encoded into a verification QR code.
type QRPayload struct {
	Type      string `json:"type"`
	CID       string `json:"ipfsCid"`
	VerifyURL string `json:"verifyUrl"`
	Timestamp string `json:"timestamp"`
}

// VerifierOpts configures a Verifier.
type VerifierOpts struct {
	// PublicBaseURL prefixes verification links, e.g. https://verify.example.edu
	PublicBaseURL string
	// GatewayURL is used to build retrieval URLs for credentials known only on-chain.
	GatewayURL       string
	BatchConcurrency int
}

// Verifier reconciles on-chain transcript state with the metadata store.
// The chain is authoritative whenever it answers; the store only fills in when it does not.
type Verifier struct {
	registry interfaces.Registry
	store    interfaces.MetadataStore
	opts     VerifierOpts
	metrics  *metrics.Metrics
	now      func() time.Time
	log      *slog.Logger
}

func NewVerifier(registry interfaces.Registry, store interfaces.MetadataStore, opts VerifierOpts, log *slog.Logger) *Verifier {
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = DefaultBatchConcurrency
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	opts.GatewayURL = strings.TrimRight(opts.GatewayURL, "/")
	return &Verifier{
		registry: registry,
		store:    store,
		opts:     opts,
		now:      time.Now,
		log:      log,
	}
}

func (v *Verifier) SetMetrics(m *metrics.Metrics) {
	v.metrics = m
}

func (v *Verifier) record(method string, res *Result) *Result {
	v.metrics.VerificationResult(method, res.Valid, res.Degraded)
	return res
}

// VerifyByDocument fingerprints the document and verifies the credential registered for it.
// A document unknown to the metadata store is invalid without consulting the chain.
func (v *Verifier) VerifyByDocument(ctx context.Context, r io.Reader) (*Result, error) {
	hash, err := cryptoutils.HashDocument(r)
	if err != nil {
		return nil, err
	}

	cred, err := v.store.FindCredentialByHash(ctx, hash)
	if interfaces.IsRecordNotFound(err) {
		return v.record("document", &Result{
			Reason:       ReasonNotRegistered,
			Message:      msgNotRegistered,
			Source:       SourceNone,
			DocumentHash: &hash,
		}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up document %s: %w", hash.Hex(), err)
	}

	transcript, err := v.registry.VerifyTranscript(ctx, cred.CID)
	switch {
	case err == nil:
		res := v.fromChain(ctx, transcript, cred)
		if transcript.DocumentHash != hash {
			res.Valid = false
			res.Reason = ReasonHashMismatch
			res.Message = msgHashMismatch
		}
		res.DocumentHash = &hash
		return v.record("document", res), nil
	case !interfaces.IsChainUnavailable(err):
		if !interfaces.IsChainNotFound(err) {
			v.log.Warn("registry rejected transcript lookup", "cid", cred.CID, "err", err)
		}
		return v.record("document", &Result{
			Reason:       ReasonNotFound,
			Message:      msgNotFound,
			Source:       SourceChain,
			CID:          cred.CID,
			DocumentHash: &hash,
			Credential:   cred,
		}), nil
	default:
		v.log.Warn("chain verification failed, using stored status", "cid", cred.CID, "err", err)
		res := fromStore(cred)
		res.DocumentHash = &hash
		return v.record("document", res), nil
	}
}

// VerifyByCID verifies a credential by its content identifier, chain first.
func (v *Verifier) VerifyByCID(ctx context.Context, cid string) (*Result, error) {
	if cid == "" {
		return nil, fmt.Errorf("%w: cid is required", interfaces.ErrInvalidInput)
	}

	transcript, err := v.registry.VerifyTranscript(ctx, cid)
	switch {
	case err == nil:
		cred, storeErr := v.store.FindCredentialByCID(ctx, cid)
		if storeErr != nil {
			if !interfaces.IsRecordNotFound(storeErr) {
				v.log.Warn("metadata store lookup failed, using on-chain data only", "cid", cid, "err", storeErr)
			}
			synth := credentials.CredentialFromRecord(transcript, v.gatewayURL(cid))
			cred = &synth
		}
		return v.record("cid", v.fromChain(ctx, transcript, cred)), nil
	case !interfaces.IsChainUnavailable(err):
		if !interfaces.IsChainNotFound(err) {
			v.log.Warn("registry rejected transcript lookup", "cid", cid, "err", err)
		}
		return v.record("cid", &Result{
			Reason:  ReasonNotFound,
			Message: msgNotFound,
			Source:  SourceChain,
			CID:     cid,
		}), nil
	}

	v.log.Warn("chain verification failed, falling back to metadata store", "cid", cid, "err", err)
	cred, storeErr := v.store.FindCredentialByCID(ctx, cid)
	if interfaces.IsRecordNotFound(storeErr) {
		return v.record("cid", &Result{
			Reason:   ReasonNotFound,
			Message:  msgNotFound,
			Degraded: true,
			Warning:  warnDegraded,
			Source:   SourceStore,
			CID:      cid,
		}), nil
	}
	if storeErr != nil {
		return nil, fmt.Errorf("verify %s: chain unavailable (%w), metadata store failed: %w", cid, err, storeErr)
	}
	return v.record("cid", fromStore(cred)), nil
}

// fromChain builds an authoritative result and repairs a stale stored status.
func (v *Verifier) fromChain(ctx context.Context, t *interfaces.TranscriptRecord, cred *interfaces.Credential) *Result {
	status := t.Status
	res := &Result{
		Valid:      status == interfaces.StatusActive,
		Message:    msgValid,
		Source:     SourceChain,
		Status:     &status,
		CID:        t.CID,
		Credential: cred,
		Transcript: t,
	}
	if !res.Valid {
		res.Reason = ReasonRevoked
		res.Message = msgRevoked
	}

	if cred != nil && cred.ID != "" && cred.Status == interfaces.StatusActive && status == interfaces.StatusRevoked {
		v.repairStatus(ctx, cred)
	}
	return res
}

// repairStatus moves a stored credential to Revoked after the chain reported it so.
// The reverse direction is never written.
func (v *Verifier) repairStatus(ctx context.Context, cred *interfaces.Credential) {
	revoked := interfaces.StatusRevoked
	now := v.now()
	err := v.store.UpdateCredential(ctx, cred.ID, interfaces.CredentialPatch{
		Status:    &revoked,
		RevokedAt: &now,
	})
	if err != nil {
		v.log.Warn("could not repair stored credential status", "credential", cred.ID, "err", err)
		return
	}
	v.log.Info("repaired stored credential status", "credential", cred.ID, "status", revoked.String())
	cred.Status = revoked
	cred.RevokedAt = &now
}

func fromStore(cred *interfaces.Credential) *Result {
	status := cred.Status
	res := &Result{
		Valid:      status == interfaces.StatusActive,
		Message:    msgValid,
		Degraded:   true,
		Warning:    warnDegraded,
		Source:     SourceStore,
		Status:     &status,
		CID:        cred.CID,
		Credential: cred,
	}
	if !res.Valid {
		res.Reason = ReasonRevoked
		res.Message = msgRevokedStored
	}
	return res
}

func (v *Verifier) gatewayURL(cid string) string {
	if v.opts.GatewayURL == "" {
		return ""
	}
	return v.opts.GatewayURL + "/ipfs/" + cid
}

// BatchVerifyDocuments verifies documents concurrently. Results keep the input order.
func (v *Verifier) BatchVerifyDocuments(ctx context.Context, docs []Document) ([]BatchItem, error) {
	if err := ValidateBatch(len(docs)); err != nil {
		return nil, err
	}
	items := make([]BatchItem, len(docs))
	v.batch(len(docs), func(i int) {
		items[i].Input = docs[i].Name
		items[i].Result, items[i].Error = capture(v.VerifyByDocument(ctx, bytes.NewReader(docs[i].Data)))
	})
	return items, nil
}

// BatchVerifyCIDs verifies CIDs concurrently. Results keep the input order.
func (v *Verifier) BatchVerifyCIDs(ctx context.Context, cids []string) ([]BatchItem, error) {
	if err := ValidateBatch(len(cids)); err != nil {
		return nil, err
	}
	items := make([]BatchItem, len(cids))
	v.batch(len(cids), func(i int) {
		items[i].Input = cids[i]
		items[i].Result, items[i].Error = capture(v.VerifyByCID(ctx, cids[i]))
	})
	return items, nil
}

// batch runs fn for every index with bounded concurrency. Each call owns its slot.
func (v *Verifier) batch(n int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(v.opts.BatchConcurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

func capture(res *Result, err error) (*Result, string) {
	if err != nil {
		return nil, err.Error()
	}
	return res, ""
}

// GetCredential returns a stored credential by ID.
func (v *Verifier) GetCredential(ctx context.Context, id string) (*interfaces.Credential, error) {
	return v.store.GetCredential(ctx, id)
}

// Stats returns credential counters from the metadata store, plus the registry's
// institution counters when the chain is reachable.
func (v *Verifier) Stats(ctx context.Context) (*Stats, error) {
	creds, err := v.store.CredentialStats(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{CredentialStats: creds}

	inst, err := v.registry.InstitutionStats(ctx)
	if err != nil {
		v.log.Warn("could not read institution stats", "err", err)
	} else {
		stats.Institutions = &inst
	}
	return stats, nil
}

// VerificationLink returns the public link for a stored credential.
func (v *Verifier) VerificationLink(credentialID string) string {
	return v.opts.PublicBaseURL + "/verify?id=" + url.QueryEscape(credentialID)
}

// VerificationQR returns the QR payload pointing at the CID verifier page.
func (v *Verifier) VerificationQR(cid string) QRPayload {
	return QRPayload{
		Type:      "credential-verification",
		CID:       cid,
		VerifyURL: v.opts.PublicBaseURL + "/verifier?cid=" + url.QueryEscape(cid),
		Timestamp: v.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

var errEmptyBatch = errors.New("empty batch")

// ValidateBatch rejects empty and oversized batches before any lookup is made.
func ValidateBatch(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: %w", interfaces.ErrInvalidInput, errEmptyBatch)
	}
	if n > MaxBatchSize {
		return fmt.Errorf("%w: batch of %d exceeds %d items", interfaces.ErrInvalidInput, n, MaxBatchSize)
	}
	return nil
}
