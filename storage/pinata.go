package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ruteri/transcript-registry-backend/interfaces"
)

const (
	DefaultPinataAPI     = "https://api.pinata.cloud"
	DefaultPinataGateway = "https://gateway.pinata.cloud"
)

// PinataPinner pins documents through the Pinata pinning API.
type PinataPinner struct {
	apiURL     string
	gatewayURL string
	jwt        string
	client     *http.Client
	log        *slog.Logger
}

// NewPinataPinner creates a Pinata client. Empty apiURL and gatewayURL select the public Pinata endpoints.
func NewPinataPinner(apiURL, gatewayURL, jwt string, timeout time.Duration, log *slog.Logger) (*PinataPinner, error) {
	if jwt == "" {
		return nil, errors.New("pinata JWT is required")
	}
	if apiURL == "" {
		apiURL = DefaultPinataAPI
	}
	if gatewayURL == "" {
		gatewayURL = DefaultPinataGateway
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &PinataPinner{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		jwt:        jwt,
		client:     &http.Client{Timeout: timeout},
		log:        log,
	}, nil
}

type pinataMetadata struct {
	Name      string            `json:"name,omitempty"`
	KeyValues map[string]string `json:"keyvalues,omitempty"`
}

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Pin uploads data with pinFileToIPFS. The returned hash must decode as a CID.
func (p *PinataPinner) Pin(ctx context.Context, data []byte, meta interfaces.PinMetadata) (*interfaces.PinResult, error) {
	start := time.Now()

	body, contentType, err := p.multipartBody(data, meta)
	if err != nil {
		return nil, p.fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/pinning/pinFileToIPFS", body)
	if err != nil {
		return nil, p.fail(err)
	}
	req.Header.Set("Authorization", "Bearer "+p.jwt)
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.fail(fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, p.fail(fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, p.fail(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var parsed pinataResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, p.fail(fmt.Errorf("decoding response: %w", err))
	}
	if err := ValidateCID(parsed.IpfsHash); err != nil {
		return nil, p.fail(err)
	}

	ts, err := time.Parse(time.RFC3339, parsed.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	p.log.Debug("Pinned document to Pinata",
		slog.String("cid", parsed.IpfsHash),
		slog.Int64("size", parsed.PinSize),
		slog.Duration("duration", time.Since(start)))

	return &interfaces.PinResult{
		CID:       parsed.IpfsHash,
		URL:       p.GatewayURL(parsed.IpfsHash),
		Size:      parsed.PinSize,
		Timestamp: ts,
	}, nil
}

func (p *PinataPinner) multipartBody(data []byte, meta interfaces.PinMetadata) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := meta.Name
	if name == "" {
		name = "document"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	metaJSON, err := json.Marshal(pinataMetadata{Name: meta.Name, KeyValues: meta.KeyValues})
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("pinataMetadata", string(metaJSON)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (p *PinataPinner) fail(err error) error {
	p.log.Error("Failed to pin document to Pinata", "err", err)
	return &interfaces.PinningError{Backend: p.Name(), Err: err}
}

func (p *PinataPinner) GatewayURL(cid string) string {
	return fmt.Sprintf("%s/ipfs/%s", p.gatewayURL, cid)
}

// Available checks the JWT against the authentication test endpoint.
func (p *PinataPinner) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/data/testAuthentication", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.jwt)
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("Pinata unavailable", "err", err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *PinataPinner) Name() string {
	return "pinata"
}
