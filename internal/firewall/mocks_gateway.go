package firewall

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of Gateway for testing.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Grant(ctx context.Context, zone, source string) error {
	return m.Called(ctx, zone, source).Error(0)
}

func (m *MockGateway) Revoke(ctx context.Context, zone, source string) error {
	return m.Called(ctx, zone, source).Error(0)
}

func (m *MockGateway) ListZone(ctx context.Context, zone string) (*ZoneInfo, error) {
	args := m.Called(ctx, zone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ZoneInfo), args.Error(1)
}
