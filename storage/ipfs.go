package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/transcript-registry-backend/interfaces"
)

// IPFSPinner pins documents on an IPFS node through its HTTP API.
type IPFSPinner struct {
	shell      *shell.Shell
	host       string
	port       string
	gatewayURL string
	log        *slog.Logger
}

// NewIPFSPinner creates a pinner connected to the IPFS API at host:port.
// Retrieval URLs point at gatewayURL, defaulting to the node's own gateway on port 8080.
func NewIPFSPinner(host, port, gatewayURL string, timeout time.Duration, log *slog.Logger) *IPFSPinner {
	apiURL := fmt.Sprintf("%s:%s", host, port)
	sh := shell.NewShell(apiURL)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}
	if gatewayURL == "" {
		gatewayURL = fmt.Sprintf("http://%s:8080", host)
	}

	return &IPFSPinner{
		shell:      sh,
		host:       host,
		port:       port,
		gatewayURL: gatewayURL,
		log:        log,
	}
}

// Pin adds data to the node with pinning enabled. Metadata is not supported by the IPFS API and is ignored.
func (b *IPFSPinner) Pin(ctx context.Context, data []byte, meta interfaces.PinMetadata) (*interfaces.PinResult, error) {
	start := time.Now()

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, &interfaces.PinningError{Backend: b.Name(), Err: interfaces.ErrBackendUnavailable}
	}

	cid, err := b.shell.Add(bytes.NewReader(data), shell.Pin(true), shell.CidVersion(1))
	if err != nil {
		b.log.Error("Failed to add data to IPFS",
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, &interfaces.PinningError{Backend: b.Name(), Err: fmt.Errorf("failed to add data to IPFS: %w", err)}
	}

	b.log.Debug("Pinned document in IPFS",
		slog.String("cid", cid),
		slog.String("name", meta.Name),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return &interfaces.PinResult{
		CID:       cid,
		URL:       b.GatewayURL(cid),
		Size:      int64(len(data)),
		Timestamp: time.Now().UTC(),
	}, nil
}

func (b *IPFSPinner) GatewayURL(cid string) string {
	return fmt.Sprintf("%s/ipfs/%s", b.gatewayURL, cid)
}

// Available checks if the IPFS node is accessible.
func (b *IPFSPinner) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

func (b *IPFSPinner) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}
