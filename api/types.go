package api

import (
	"github.com/ruteri/transcript-registry-backend/credentials"
	"github.com/ruteri/transcript-registry-backend/institutions"
	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/verification"
)

// Multipart field names accepted by the issuance and verification endpoints.
const (
	FileField           = "file"
	FilesField          = "files"
	StudentAddressField = "studentAddress"
	StudentIDField      = "studentId"
	DegreeTypeField     = "degreeType"
	GraduationYearField = "graduationYear"
)

// IssueResponse is the body returned by POST /api/credentials.
// Error carries the outcome error, which the outcome itself does not serialize.
type IssueResponse struct {
	*credentials.IssueResult
	Error            string                   `json:"error,omitempty"`
	VerificationLink string                   `json:"verificationLink,omitempty"`
	QRCode           *verification.QRPayload `json:"qrCode,omitempty"`
}

// RevokeRequest is the body of POST /api/credentials/{id}/revoke.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

type RevokeResponse struct {
	*credentials.RevokeResult
	Error string `json:"error,omitempty"`
}

// CredentialResponse is a stored credential with its sharing links.
type CredentialResponse struct {
	Credential       *interfaces.Credential   `json:"credential"`
	VerificationLink string                   `json:"verificationLink"`
	QRCode           *verification.QRPayload `json:"qrCode,omitempty"`
}

type CredentialsResponse struct {
	Credentials []interfaces.Credential `json:"credentials"`
}

// BatchCIDsRequest is the body of POST /api/verify/batch/cids.
type BatchCIDsRequest struct {
	CIDs []string `json:"cids"`
}

type BatchResponse struct {
	Results []verification.BatchItem `json:"results"`
}

type LifecycleResponse struct {
	*institutions.Result
	Error string `json:"error,omitempty"`
}

type InstitutionsResponse struct {
	Institutions []institutions.Entry `json:"institutions"`
}

// ErrorResponse is returned for every request that fails before producing an outcome.
type ErrorResponse struct {
	Error string `json:"error"`
}
