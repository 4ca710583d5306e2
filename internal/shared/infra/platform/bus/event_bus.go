package bus

import (
	"context"

	sharedEvents "github.com/davicafu/hexatodo/internal/shared/events"
)

// Keyer lo implementan los eventos que saben su clave de partición.
type Keyer interface {
	PartitionKey() string
}

// EventBus publica eventos de integración. Topic y transporte los decide cada adapter.
type EventBus interface {
	Publish(ctx context.Context, event sharedEvents.IntegrationEvent) error
}

// MessageHandler es el lado consumidor: recibe la clave y el payload crudo.
type MessageHandler interface {
	HandleMessage(ctx context.Context, key string, payload []byte)
}

var _ Keyer = sharedEvents.IntegrationEvent{}
