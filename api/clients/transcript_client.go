package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/transcript-registry-backend/api"
	"github.com/ruteri/transcript-registry-backend/institutions"
	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/verification"
)

// StatusError is returned when the server answers with an error status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// TranscriptClient talks to the transcript registry HTTP API.
type TranscriptClient struct {
	// ServerAddr is the base URL of the API server, e.g. http://127.0.0.1:8080
	ServerAddr string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Key signs write requests. Issuance and revocation need an issuer key,
	// institution actions the admin key.
	Key *ecdsa.PrivateKey
}

// IssueForm describes a transcript upload.
type IssueForm struct {
	FileName       string
	Document       io.Reader
	StudentAddress common.Address
	StudentID      string
	DegreeType     interfaces.DegreeType
	GraduationYear uint64
}

func (c *TranscriptClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// VerifyCID verifies a transcript by its IPFS CID.
func (c *TranscriptClient) VerifyCID(ctx context.Context, cid string) (*verification.Result, error) {
	var res verification.Result
	err := c.do(ctx, http.MethodGet, "/api/verify/cid/"+url.PathEscape(cid), "", nil, &res)
	return &res, err
}

// VerifyDocument uploads a document and returns its verdict.
func (c *TranscriptClient) VerifyDocument(ctx context.Context, name string, doc io.Reader) (*verification.Result, error) {
	body, contentType, err := multipartBody(nil, api.FileField, map[string]io.Reader{name: doc})
	if err != nil {
		return nil, err
	}
	var res verification.Result
	err = c.do(ctx, http.MethodPost, "/api/verify/document", contentType, body, &res)
	return &res, err
}

// BatchVerifyCIDs verifies up to verification.MaxBatchSize CIDs in one request.
func (c *TranscriptClient) BatchVerifyCIDs(ctx context.Context, cids []string) ([]verification.BatchItem, error) {
	buf, err := json.Marshal(api.BatchCIDsRequest{CIDs: cids})
	if err != nil {
		return nil, err
	}
	var res api.BatchResponse
	if err := c.do(ctx, http.MethodPost, "/api/verify/batch/cids", "application/json", buf, &res); err != nil {
		return nil, err
	}
	return res.Results, nil
}

// Issue uploads a transcript for issuance. A partially successful issuance
// (HTTP 202) is returned without an error; inspect the outcome.
func (c *TranscriptClient) Issue(ctx context.Context, form IssueForm) (*api.IssueResponse, error) {
	fields := map[string]string{
		api.StudentAddressField: form.StudentAddress.Hex(),
		api.DegreeTypeField:     form.DegreeType.String(),
		api.GraduationYearField: strconv.FormatUint(form.GraduationYear, 10),
	}
	if form.StudentID != "" {
		fields[api.StudentIDField] = form.StudentID
	}
	body, contentType, err := multipartBody(fields, api.FileField, map[string]io.Reader{form.FileName: form.Document})
	if err != nil {
		return nil, err
	}
	var res api.IssueResponse
	err = c.do(ctx, http.MethodPost, "/api/credentials", contentType, body, &res)
	return &res, err
}

// Revoke revokes a stored credential.
func (c *TranscriptClient) Revoke(ctx context.Context, credentialID, reason string) (*api.RevokeResponse, error) {
	buf, err := json.Marshal(api.RevokeRequest{Reason: reason})
	if err != nil {
		return nil, err
	}
	var res api.RevokeResponse
	err = c.do(ctx, http.MethodPost, "/api/credentials/"+url.PathEscape(credentialID)+"/revoke", "application/json", buf, &res)
	return &res, err
}

// InstitutionAction runs an admin action (verify, suspend, reactivate or mirror)
// on an institution. Key must belong to the registry admin.
func (c *TranscriptClient) InstitutionAction(ctx context.Context, addr common.Address, action institutions.Action) (*api.LifecycleResponse, error) {
	var res api.LifecycleResponse
	err := c.do(ctx, http.MethodPost, "/api/institutions/"+addr.Hex()+"/"+string(action), "", nil, &res)
	return &res, err
}

func (c *TranscriptClient) Stats(ctx context.Context) (*verification.Stats, error) {
	var res verification.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", "", nil, &res)
	return &res, err
}

func (c *TranscriptClient) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.ServerAddr+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Key != nil && method != http.MethodGet {
		if err := api.SignRequest(req, body, c.Key, time.Now()); err != nil {
			return err
		}
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var apiErr api.ErrorResponse
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Error != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: string(bodyBytes)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse %s response: %w", path, err)
	}
	return nil
}

func multipartBody(fields map[string]string, fileField string, files map[string]io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	for name, r := range files {
		fw, err := mw.CreateFormFile(fileField, name)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(fw, r); err != nil {
			return nil, "", fmt.Errorf("could not read %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
