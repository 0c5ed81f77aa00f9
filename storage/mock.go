package storage

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/transcript-registry-backend/interfaces"
)

// MockPinner mocks the interfaces.Pinner interface
type MockPinner struct {
	mock.Mock
}

// Pin mocks the Pin method
func (m *MockPinner) Pin(ctx context.Context, data []byte, meta interfaces.PinMetadata) (*interfaces.PinResult, error) {
	args := m.Called(ctx, data, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.PinResult), args.Error(1)
}

// GatewayURL returns a deterministic test gateway URL
func (m *MockPinner) GatewayURL(cid string) string {
	return fmt.Sprintf("https://gateway.test/ipfs/%s", cid)
}

// Available mocks the Available method
func (m *MockPinner) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockPinner) Name() string {
	return "mock"
}
