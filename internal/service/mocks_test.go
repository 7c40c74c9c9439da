package service

import (
	"context"

	"rutosms/internal/archive"
	"rutosms/pkg/mqttbus"
	"rutosms/pkg/rutos/types"

	"github.com/stretchr/testify/mock"
)

// Mock router API client
type mockRouterClient struct {
	mock.Mock
}

func (m *mockRouterClient) ListMessages(ctx context.Context) ([]types.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Message), args.Error(1)
}

func (m *mockRouterClient) SendMessage(ctx context.Context, number, text string) (*types.SendResult, error) {
	args := m.Called(ctx, number, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SendResult), args.Error(1)
}

func (m *mockRouterClient) SendGroupMessage(ctx context.Context, group, text string) (*types.SendResult, error) {
	args := m.Called(ctx, group, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SendResult), args.Error(1)
}

func (m *mockRouterClient) DeleteMessage(ctx context.Context, index string) (*types.DeleteResult, error) {
	args := m.Called(ctx, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DeleteResult), args.Error(1)
}

func (m *mockRouterClient) CountMessages(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// Mock bus client
type mockBusClient struct {
	mock.Mock
}

func (m *mockBusClient) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockBusClient) Subscribe(topic string, handler mqttbus.Handler) error {
	args := m.Called(topic, handler)
	return args.Error(0)
}

func (m *mockBusClient) Publish(topic string, payload []byte) error {
	args := m.Called(topic, payload)
	return args.Error(0)
}

func (m *mockBusClient) PublishRetained(topic string, payload []byte) error {
	args := m.Called(topic, payload)
	return args.Error(0)
}

func (m *mockBusClient) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *mockBusClient) Disconnect() {
	m.Called()
}

// Mock message archive
type mockArchive struct {
	mock.Mock
}

func (m *mockArchive) SaveReceived(ctx context.Context, msg types.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockArchive) SaveResult(ctx context.Context, direction archive.Direction, index, peer, body, detail string, success bool) error {
	args := m.Called(ctx, direction, index, peer, body, detail, success)
	return args.Error(0)
}
