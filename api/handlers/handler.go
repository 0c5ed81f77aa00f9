package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/ruteri/transcript-registry-backend/api"
	"github.com/ruteri/transcript-registry-backend/credentials"
	"github.com/ruteri/transcript-registry-backend/institutions"
	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/verification"
)

const (
	// multipartMemory is the part of a multipart body kept in memory; the rest spills to disk.
	multipartMemory = 8 << 20

	// maxJSONBodySize bounds JSON request bodies (1MB).
	maxJSONBodySize = 1024 * 1024
)

var errIssuanceDisabled = errors.New("issuance is disabled: no institution signer configured")

// HandlerOpts configures who may call the write routes and how large uploads may be.
type HandlerOpts struct {
	// Operator is the server signer. Transactions are sent from it, and it may
	// sign its own issuance, revocation and registration requests.
	Operator common.Address

	// Issuers may also sign issuance, revocation and registration requests on
	// behalf of the operator's institution.
	Issuers []common.Address

	MaxUploadSize int64

	// MaxClockSkew bounds the signing timestamp of a request. Defaults to api.DefaultMaxClockSkew.
	MaxClockSkew time.Duration
}

// Handler serves the transcript API on top of the issuance, verification and
// institution lifecycle orchestrators.
type Handler struct {
	issuer    *credentials.Issuer
	verifier  *verification.Verifier
	lifecycle *institutions.Lifecycle

	operator      common.Address
	issuers       []common.Address
	maxUploadSize int64
	maxClockSkew  time.Duration
	now           func() time.Time

	log *slog.Logger
}

// NewHandler creates the API handler. issuer may be nil for a verification-only
// deployment, in which case the issuance and revocation routes answer 503.
func NewHandler(issuer *credentials.Issuer, verifier *verification.Verifier, lifecycle *institutions.Lifecycle, opts HandlerOpts, log *slog.Logger) *Handler {
	skew := opts.MaxClockSkew
	if skew <= 0 {
		skew = api.DefaultMaxClockSkew
	}
	return &Handler{
		issuer:        issuer,
		verifier:      verifier,
		lifecycle:     lifecycle,
		operator:      opts.Operator,
		issuers:       opts.Issuers,
		maxUploadSize: opts.MaxUploadSize,
		maxClockSkew:  skew,
		now:           time.Now,
		log:           log,
	}
}

// RegisterRoutes mounts every API route on mux. Write routes require a signed
// request; see api.SignRequest.
func (h *Handler) RegisterRoutes(mux chi.Router) {
	mux.Get("/api/credentials/{id}", h.HandleGetCredential)
	mux.Get("/api/students/{address}/credentials", h.HandleStudentCredentials)
	mux.Get("/api/institutions/{address}/credentials", h.HandleInstitutionCredentials)

	mux.Post("/api/verify/document", h.HandleVerifyDocument)
	mux.Get("/api/verify/cid/{cid}", h.HandleVerifyCID)
	mux.Post("/api/verify/batch/cids", h.HandleBatchVerifyCIDs)
	mux.Post("/api/verify/batch/documents", h.HandleBatchVerifyDocuments)
	mux.Get("/api/stats", h.HandleStats)

	mux.Get("/api/institutions", h.HandleListInstitutions)
	mux.Get("/api/institutions/{address}", h.HandleInstitutionStatus)

	mux.With(h.authenticate(h.isIssuer, h.maxUploadSize+multipartMemory)).Post("/api/credentials", h.HandleIssue)
	mux.Group(func(r chi.Router) {
		r.Use(h.authenticate(h.isIssuer, maxJSONBodySize))
		r.Post("/api/credentials/{id}/revoke", h.HandleRevoke)
		r.Post("/api/institutions", h.HandleRegisterInstitution)
	})
	// Admin rights are checked by the lifecycle against the signed caller.
	mux.With(h.authenticate(nil, maxJSONBodySize)).Post("/api/institutions/{address}/{action}", h.HandleInstitutionAction)
}

type callerKey struct{}

// authenticate resolves the signed caller of a request and stores it in the
// request context. When allowed is set the caller must also pass it.
func (h *Handler) authenticate(allowed func(common.Address) bool, bodyLimit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
			caller, err := api.RecoverCaller(r, h.now(), h.maxClockSkew)
			if err != nil {
				h.log.Warn("Authentication failed", "path", r.URL.Path, "err", err)
				h.failErr(w, err)
				return
			}
			if allowed != nil && !allowed(caller) {
				h.failErr(w, fmt.Errorf("%w: %s may not act for institution %s", interfaces.ErrNotAuthorized, caller.Hex(), h.operator.Hex()))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
		})
	}
}

func callerFrom(ctx context.Context) common.Address {
	caller, _ := ctx.Value(callerKey{}).(common.Address)
	return caller
}

func (h *Handler) isIssuer(addr common.Address) bool {
	if addr == (common.Address{}) {
		return false
	}
	return addr == h.operator || slices.Contains(h.issuers, addr)
}

// HandleIssue issues a transcript for the configured institution.
//
// Request: multipart form with the document under "file" and the fields
// studentAddress, degreeType, graduationYear and optionally studentId.
//
// Response: 201 on success, 202 when the transcript is on-chain but the metadata
// write failed, otherwise the status of the failed stage.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	if h.issuer == nil {
		h.fail(w, http.StatusServiceUnavailable, errIssuanceDisabled)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.failErr(w, invalid(fmt.Errorf("could not parse multipart form: %w", err)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(api.FileField)
	if err != nil {
		h.failErr(w, invalid(fmt.Errorf("missing %q file: %w", api.FileField, err)))
		return
	}
	defer file.Close()
	if header.Size > h.maxUploadSize {
		h.fail(w, http.StatusRequestEntityTooLarge, fmt.Errorf("document exceeds %d bytes", h.maxUploadSize))
		return
	}

	student, err := interfaces.ParseAddress(r.FormValue(api.StudentAddressField))
	if err != nil {
		h.failErr(w, err)
		return
	}
	degree, err := interfaces.ParseDegreeType(r.FormValue(api.DegreeTypeField))
	if err != nil {
		h.failErr(w, err)
		return
	}
	year, err := strconv.ParseUint(r.FormValue(api.GraduationYearField), 10, 16)
	if err != nil {
		h.failErr(w, invalid(fmt.Errorf("graduation year: %w", err)))
		return
	}

	res, err := h.issuer.Issue(r.Context(), credentials.IssueRequest{
		Document:       file,
		FileName:       header.Filename,
		StudentID:      r.FormValue(api.StudentIDField),
		StudentAddress: student,
		DegreeType:     degree,
		GraduationYear: year,
	})
	if res == nil {
		h.failErr(w, err)
		return
	}

	resp := api.IssueResponse{IssueResult: res, Error: res.Outcome.ErrorMessage()}
	if res.CredentialID != "" {
		resp.VerificationLink = h.verifier.VerificationLink(res.CredentialID)
	}
	if res.Outcome.Committed() {
		qr := h.verifier.VerificationQR(res.CID)
		resp.QRCode = &qr
	}
	writeJSON(w, outcomeStatus(res.Outcome, http.StatusCreated), resp)
}

// HandleGetCredential returns a stored credential with its verification link and QR payload.
func (h *Handler) HandleGetCredential(w http.ResponseWriter, r *http.Request) {
	cred, err := h.verifier.GetCredential(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.failErr(w, err)
		return
	}
	qr := h.verifier.VerificationQR(cred.CID)
	writeJSON(w, http.StatusOK, api.CredentialResponse{
		Credential:       cred,
		VerificationLink: h.verifier.VerificationLink(cred.ID),
		QRCode:           &qr,
	})
}

// HandleRevoke invalidates a credential on-chain and marks it revoked in the store.
// Request body: {"reason": "..."}
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	if h.issuer == nil {
		h.fail(w, http.StatusServiceUnavailable, errIssuanceDisabled)
		return
	}

	var req api.RevokeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.failErr(w, err)
		return
	}

	res, err := h.issuer.Revoke(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if res == nil {
		h.failErr(w, err)
		return
	}
	writeJSON(w, outcomeStatus(res.Outcome, http.StatusOK), api.RevokeResponse{RevokeResult: res, Error: res.Outcome.ErrorMessage()})
}

func (h *Handler) HandleStudentCredentials(w http.ResponseWriter, r *http.Request) {
	if h.issuer == nil {
		h.fail(w, http.StatusServiceUnavailable, errIssuanceDisabled)
		return
	}
	student, err := interfaces.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.failErr(w, err)
		return
	}
	creds, err := h.issuer.ListByStudent(r.Context(), student)
	if err != nil {
		h.failErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.CredentialsResponse{Credentials: nonNil(creds)})
}

func (h *Handler) HandleInstitutionCredentials(w http.ResponseWriter, r *http.Request) {
	if h.issuer == nil {
		h.fail(w, http.StatusServiceUnavailable, errIssuanceDisabled)
		return
	}
	institution, err := interfaces.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.failErr(w, err)
		return
	}
	creds, err := h.issuer.ListByInstitution(r.Context(), institution)
	if err != nil {
		h.failErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.CredentialsResponse{Credentials: nonNil(creds)})
}

// HandleVerifyDocument hashes the uploaded document and verifies it.
// An invalid document is still a 200: the verdict is in the body.
func (h *Handler) HandleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.failErr(w, invalid(fmt.Errorf("could not parse multipart form: %w", err)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(api.FileField)
	if err != nil {
		h.failErr(w, invalid(fmt.Errorf("missing %q file: %w", api.FileField, err)))
		return
	}
	defer file.Close()

	res, err := h.verifier.VerifyByDocument(r.Context(), file)
	if err != nil {
		h.failErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleVerifyCID(w http.ResponseWriter, r *http.Request) {
	res, err := h.verifier.VerifyByCID(r.Context(), chi.URLParam(r, "cid"))
	if err != nil {
		h.failErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleBatchVerifyCIDs verifies up to verification.MaxBatchSize CIDs.
// Request body: {"cids": ["..."]}
func (h *Handler) HandleBatchVerifyCIDs(w http.ResponseWriter, r *http.Request) {
	var req api.BatchCIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.failErr(w, err)
		return
	}
	results, err := h.verifier.BatchVerifyCIDs(r.Context(), req.CIDs)
	if err != nil {
		h.failErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.BatchResponse{Results: results})
}

// HandleBatchVerifyDocuments verifies every file uploaded under "files".
func (h *Handler) HandleBatchVerifyDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize*verification.MaxBatchSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.failErr(w, invalid(fmt.Errorf("could not parse multipart form: %w", err)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[api.FilesField]
	if err := verification.ValidateBatch(len(headers)); err != nil {
		h.failErr(w, err)
		return
	}

	docs := make([]verification.Document, 0, len(headers))
	for _, header := range headers {
		if header.Size > h.maxUploadSize {
			h.fail(w, http.StatusRequestEntityTooLarge, fmt.Errorf("%s exceeds %d bytes", header.Filename, h.maxUploadSize))
			return
		}
		data, err := readPart(header)
		if err != nil {
			h.failErr(w, invalid(fmt.Errorf("could not read %s: %w", header.Filename, err)))
			return
		}
		docs = append(docs, verification.Document{Name: header.Filename, Data: data})
	}

	results, err := h.verifier.BatchVerifyDocuments(r.Context(), docs)
	if err != nil {
		h.failErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.BatchResponse{Results: results})
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.verifier.Stats(r.Context())
	if err != nil {
		h.failErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleRegisterInstitution self-registers the server signer as an institution.
// The request must be signed by the operator or one of the issuers.
func (h *Handler) HandleRegisterInstitution(w http.ResponseWriter, r *http.Request) {
	var req institutions.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.failErr(w, err)
		return
	}
	res, err := h.lifecycle.Register(r.Context(), h.operator, req)
	h.writeLifecycle(w, res, err, http.StatusCreated)
}

func (h *Handler) HandleListInstitutions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.lifecycle.List(r.Context())
	if err != nil {
		h.failErr(w, err)
		return
	}
	if entries == nil {
		entries = []institutions.Entry{}
	}
	writeJSON(w, http.StatusOK, api.InstitutionsResponse{Institutions: entries})
}

func (h *Handler) HandleInstitutionStatus(w http.ResponseWriter, r *http.Request) {
	addr, err := interfaces.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.failErr(w, err)
		return
	}
	status, err := h.lifecycle.Status(r.Context(), addr)
	if err != nil {
		h.failErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleInstitutionAction runs an admin action (verify, suspend, reactivate or mirror)
// against the institution in the URL. The signed caller must be the registry
// admin; the transaction itself is sent by the server signer.
func (h *Handler) HandleInstitutionAction(w http.ResponseWriter, r *http.Request) {
	addr, err := interfaces.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.failErr(w, err)
		return
	}

	caller := callerFrom(r.Context())
	var res *institutions.Result
	switch institutions.Action(chi.URLParam(r, "action")) {
	case institutions.ActionVerify:
		res, err = h.lifecycle.Verify(r.Context(), caller, addr)
	case institutions.ActionSuspend:
		res, err = h.lifecycle.Suspend(r.Context(), caller, addr)
	case institutions.ActionReactivate:
		res, err = h.lifecycle.Reactivate(r.Context(), caller, addr)
	case institutions.ActionMirror:
		res, err = h.lifecycle.Mirror(r.Context(), caller, addr)
	default:
		h.fail(w, http.StatusNotFound, fmt.Errorf("unknown institution action %q", chi.URLParam(r, "action")))
		return
	}
	h.writeLifecycle(w, res, err, http.StatusOK)
}

func (h *Handler) writeLifecycle(w http.ResponseWriter, res *institutions.Result, err error, successStatus int) {
	if res == nil {
		h.failErr(w, err)
		return
	}
	writeJSON(w, outcomeStatus(res.Outcome, successStatus), api.LifecycleResponse{Result: res, Error: res.Outcome.ErrorMessage()})
}

// outcomeStatus maps an outcome to a response status. PartialSuccess is 202
// since the on-chain write is committed.
func outcomeStatus(o interfaces.Outcome, success int) int {
	switch o.Kind {
	case interfaces.OutcomeSuccess:
		return success
	case interfaces.OutcomePartialSuccess:
		return http.StatusAccepted
	default:
		return StatusFor(o.Err)
	}
}

// StatusFor maps an error returned by the orchestrators to an HTTP status.
func StatusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var pinErr *interfaces.PinningError
	var storeErr *interfaces.MetadataStoreError
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, api.ErrMissingSignature),
		errors.Is(err, api.ErrInvalidSignature),
		errors.Is(err, api.ErrStaleSignature):
		return http.StatusUnauthorized
	case errors.Is(err, interfaces.ErrInvalidInput),
		errors.Is(err, interfaces.ErrInvalidAddress),
		errors.Is(err, interfaces.ErrInvalidDegreeType):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrNotAuthorized),
		errors.Is(err, interfaces.ErrOnlyVerifiedInstitutions),
		errors.Is(err, interfaces.ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, interfaces.ErrDoesNotExist), interfaces.IsRecordNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrAlreadyRegistered),
		errors.Is(err, interfaces.ErrAlreadyVerified),
		errors.Is(err, interfaces.ErrDuplicateCID),
		errors.Is(err, credentials.ErrAlreadyRevoked):
		return http.StatusConflict
	case errors.As(err, &pinErr),
		errors.Is(err, interfaces.ErrChainTransport),
		errors.As(err, &storeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) failErr(w http.ResponseWriter, err error) {
	h.fail(w, StatusFor(err), err)
}

func (h *Handler) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "status", status, "err", err)
	} else {
		h.log.Debug("request rejected", "status", status, "err", err)
	}
	writeJSON(w, status, api.ErrorResponse{Error: err.Error()})
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", interfaces.ErrInvalidInput, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return invalid(fmt.Errorf("could not decode request body: %w", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(creds []interfaces.Credential) []interfaces.Credential {
	if creds == nil {
		return []interfaces.Credential{}
	}
	return creds
}
