package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/transcript-registry-backend/interfaces"
)

// DefaultMaxUploadSize is the largest document accepted for pinning.
const DefaultMaxUploadSize int64 = 10 << 20

// PinnerOptions carries settings that do not belong in a location URI.
type PinnerOptions struct {
	// PinataJWT authenticates pinata:// backends.
	PinataJWT string
	// GatewayURL overrides the retrieval URL base of the selected backend.
	GatewayURL string
	// MaxUploadSize bounds document size; zero selects DefaultMaxUploadSize.
	MaxUploadSize int64
	Timeout       time.Duration
}

// PinnerFactory creates pinning backends from URI strings.
type PinnerFactory struct {
	log *slog.Logger
}

func NewPinnerFactory(logger *slog.Logger) *PinnerFactory {
	return &PinnerFactory{log: logger}
}

// PinnerFor creates a pinner from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - pinata://api.pinata.cloud - Pinata pinning API (JWT from options)
//   - ipfs://host:port - IPFS node HTTP API
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=&endpoint= - S3 compatible object storage
//   - file:///absolute/path - local directory
//
// The returned pinner rejects documents larger than the configured maximum before any upload.
func (pf *PinnerFactory) PinnerFor(locationURI string, opts PinnerOptions) (interfaces.Pinner, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	var pinner interfaces.Pinner
	switch strings.ToLower(u.Scheme) {
	case "pinata":
		pinner, err = pf.createPinataPinner(u, opts)
	case "ipfs":
		pinner, err = pf.createIPFSPinner(u, opts)
	case "s3":
		pinner, err = pf.createS3Pinner(u, opts)
	case "file":
		pinner, err = pf.createFilePinner(u, opts)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme %q", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
	if err != nil {
		return nil, err
	}

	maxSize := opts.MaxUploadSize
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &SizeLimitedPinner{Pinner: pinner, MaxSize: maxSize}, nil
}

// createPinataPinner handles pinata://host[:port][?scheme=http&gateway=https://...]
func (pf *PinnerFactory) createPinataPinner(u *url.URL, opts PinnerOptions) (interfaces.Pinner, error) {
	pf.log.Debug("Creating Pinata pinner", slog.String("host", u.Host))

	scheme := u.Query().Get("scheme")
	if scheme == "" {
		scheme = "https"
	}
	apiURL := ""
	if u.Host != "" {
		apiURL = fmt.Sprintf("%s://%s", scheme, u.Host)
	}

	gateway := opts.GatewayURL
	if gateway == "" {
		gateway = u.Query().Get("gateway")
	}
	return NewPinataPinner(apiURL, gateway, opts.PinataJWT, opts.Timeout, pf.log)
}

// createIPFSPinner handles ipfs://host:port/?gateway=http://...
func (pf *PinnerFactory) createIPFSPinner(u *url.URL, opts PinnerOptions) (interfaces.Pinner, error) {
	pf.log.Debug("Creating IPFS pinner", slog.String("uri", u.String()))

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing IPFS host", interfaces.ErrInvalidLocationURI)
	}
	port := u.Port()
	if port == "" {
		port = "5001" // Default IPFS API port
	}

	gateway := opts.GatewayURL
	if gateway == "" {
		gateway = u.Query().Get("gateway")
	}
	return NewIPFSPinner(host, port, gateway, opts.Timeout, pf.log), nil
}

// createS3Pinner handles s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
func (pf *PinnerFactory) createS3Pinner(u *url.URL, opts PinnerOptions) (interfaces.Pinner, error) {
	pf.log.Debug("Creating S3 pinner", slog.String("bucket", u.Host))

	bucketName := u.Host
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing S3 bucket", interfaces.ErrInvalidLocationURI)
	}
	prefix := strings.TrimPrefix(u.Path, "/")

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1" // Default region
	}

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	return NewS3Pinner(bucketName, prefix, region, query.Get("endpoint"), accessKey, secretKey, opts.GatewayURL, pf.log)
}

// createFilePinner handles file:///absolute/path/ or file://./relative/path/
func (pf *PinnerFactory) createFilePinner(u *url.URL, opts PinnerOptions) (interfaces.Pinner, error) {
	pf.log.Debug("Creating file pinner", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, u.String())
	}
	return NewFilePinner(path, opts.GatewayURL, pf.log)
}

// SizeLimitedPinner rejects documents larger than MaxSize without contacting the backend.
type SizeLimitedPinner struct {
	interfaces.Pinner
	MaxSize int64
}

func (p *SizeLimitedPinner) Pin(ctx context.Context, data []byte, meta interfaces.PinMetadata) (*interfaces.PinResult, error) {
	if int64(len(data)) > p.MaxSize {
		return nil, &interfaces.PinningError{
			Backend: p.Name(),
			Err:     fmt.Errorf("%w: %d bytes, limit %d", interfaces.ErrDocumentTooLarge, len(data), p.MaxSize),
		}
	}
	return p.Pinner.Pin(ctx, data, meta)
}
