package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ruteri/transcript-registry-backend/interfaces"
)

// FilePinner stores documents in a local directory under their CIDv1. Intended for development.
type FilePinner struct {
	baseDir    string
	gatewayURL string
	log        *slog.Logger
}

// NewFilePinner creates the base directory if it doesn't exist. An empty gatewayURL
// produces file:// retrieval URLs.
func NewFilePinner(baseDir, gatewayURL string, log *slog.Logger) (*FilePinner, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FilePinner{baseDir: baseDir, gatewayURL: gatewayURL, log: log}, nil
}

func (b *FilePinner) Pin(ctx context.Context, data []byte, meta interfaces.PinMetadata) (*interfaces.PinResult, error) {
	cid, err := ComputeCID(data)
	if err != nil {
		return nil, &interfaces.PinningError{Backend: b.Name(), Err: err}
	}

	filePath := filepath.Join(b.baseDir, cid)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return nil, &interfaces.PinningError{Backend: b.Name(), Err: fmt.Errorf("failed to write file: %w", err)}
	}

	b.log.Debug("Stored document in file",
		slog.String("path", filePath),
		slog.String("name", meta.Name))

	return &interfaces.PinResult{
		CID:       cid,
		URL:       b.GatewayURL(cid),
		Size:      int64(len(data)),
		Timestamp: time.Now().UTC(),
	}, nil
}

func (b *FilePinner) GatewayURL(cid string) string {
	if b.gatewayURL != "" {
		return fmt.Sprintf("%s/ipfs/%s", b.gatewayURL, cid)
	}
	return "file://" + filepath.Join(b.baseDir, cid)
}

// Available checks that the base directory exists.
func (b *FilePinner) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

func (b *FilePinner) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}
