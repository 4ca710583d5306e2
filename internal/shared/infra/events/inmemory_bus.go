package events

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/hexatodo/internal/shared/events"
	sharedBus "github.com/davicafu/hexatodo/internal/shared/infra/platform/bus"
)

// Message es lo que recibe un suscriptor del bus en memoria: la misma forma que un mensaje de Kafka.
type Message struct {
	Key   string
	Value []byte
}

// InMemoryEventBus implementa un bus de eventos para UN solo topic dentro del proceso.
type InMemoryEventBus struct {
	subscribers []chan Message
	mu          sync.RWMutex
	closed      bool
	topic       string
	log         *zap.Logger
}

var _ sharedBus.EventBus = (*InMemoryEventBus)(nil)

// NewInMemoryEventBus crea un bus de eventos para un topic específico.
func NewInMemoryEventBus(topic string, log *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make([]chan Message, 0),
		topic:       topic,
		log:         log,
	}
}

// Publish envía un evento a todos los suscriptores de este bus.
func (b *InMemoryEventBus) Publish(ctx context.Context, event sharedEvents.IntegrationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}

	msg := Message{Key: event.PartitionKey(), Value: payload}
	for _, sub := range b.subscribers {
		select {
		case sub <- msg:
		default:
			b.log.Warn("Subscriber buffer full, dropping event",
				zap.String("topic", b.topic),
				zap.String("type", event.Type))
		}
	}
	return nil
}

// Subscribe suscribe un nuevo oyente a este bus.
func (b *InMemoryEventBus) Subscribe(bufferSize int) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(chan Message, bufferSize)
	if b.closed {
		close(sub)
		return sub
	}
	b.subscribers = append(b.subscribers, sub)
	return sub
}

// Close cierra todos los canales de suscripción. Publish posterior no hace nada.
func (b *InMemoryEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}

// BackgroundConsumerChan entrega los mensajes del canal al handler hasta que el contexto termine.
func BackgroundConsumerChan(ctx context.Context, ch <-chan Message, handler sharedBus.MessageHandler, log *zap.Logger) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Info("In-memory consumer stopped")
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler.HandleMessage(ctx, msg.Key, msg.Value)
			}
		}
	}()
}
