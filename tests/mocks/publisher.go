package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	sharedEvents "github.com/davicafu/hexatodo/internal/shared/events"
	sharedBus "github.com/davicafu/hexatodo/internal/shared/infra/platform/bus"
)

// MockPublisher simula un EventBus con testify/mock.
type MockPublisher struct {
	mock.Mock
}

var _ sharedBus.EventBus = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, event sharedEvents.IntegrationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
