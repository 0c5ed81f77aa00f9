package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrBackendUnavailable is returned when a pinning backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("pinning backend unavailable")

	// ErrInvalidLocationURI is returned when a pinning backend URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid pinning location URI")

	// ErrDocumentTooLarge is returned before upload when a document exceeds the configured limit.
	ErrDocumentTooLarge = errors.New("document exceeds maximum upload size")
)

// PinMetadata is attached to an upload where the backend supports it.
type PinMetadata struct {
	Name      string
	KeyValues map[string]string
}

// PinResult describes pinned content.
type PinResult struct {
	CID       string    `json:"ipfsHash"`
	URL       string    `json:"url"`
	Size      int64     `json:"pinSize"`
	Timestamp time.Time `json:"timestamp"`
}

// Pinner uploads documents to a content-addressed store.
// Pin is not idempotent and is never retried by this system.
type Pinner interface {
	// Pin uploads data and returns its content identifier. Fails with *PinningError.
	Pin(ctx context.Context, data []byte, meta PinMetadata) (*PinResult, error)

	// GatewayURL returns the retrieval URL for a CID.
	GatewayURL(cid string) string

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string
}

// MetadataStore is the off-chain document store for institutions and credentials.
// Misses are reported as ErrRecordNotFound; every other failure is a *MetadataStoreError.
type MetadataStore interface {
	CreateInstitution(ctx context.Context, inst *Institution) (string, error)
	GetInstitutionByAddress(ctx context.Context, addr common.Address) (*Institution, error)
	UpdateInstitution(ctx context.Context, addr common.Address, patch InstitutionPatch) error
	ListInstitutions(ctx context.Context) ([]Institution, error)

	CreateCredential(ctx context.Context, cred *Credential) (string, error)
	GetCredential(ctx context.Context, id string) (*Credential, error)
	FindCredentialByHash(ctx context.Context, hash DocumentHash) (*Credential, error)
	FindCredentialByCID(ctx context.Context, cid string) (*Credential, error)
	ListCredentialsByStudent(ctx context.Context, student common.Address) ([]Credential, error)
	ListCredentialsByInstitution(ctx context.Context, institution common.Address) ([]Credential, error)
	UpdateCredential(ctx context.Context, id string, patch CredentialPatch) error
	CredentialStats(ctx context.Context) (CredentialStats, error)
}
