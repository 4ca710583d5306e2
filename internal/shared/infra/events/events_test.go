package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/hexatodo/internal/shared/events"
)

type recordingHandler struct {
	mu   sync.Mutex
	keys []string
	done chan struct{}
}

func (h *recordingHandler) HandleMessage(ctx context.Context, key string, payload []byte) {
	h.mu.Lock()
	h.keys = append(h.keys, key)
	h.mu.Unlock()
	h.done <- struct{}{}
}

func TestInMemoryEventBus_DeliversToEverySubscriber(t *testing.T) {
	bus := NewInMemoryEventBus("tasks", zap.NewNop())
	first := bus.Subscribe(1)
	second := bus.Subscribe(1)

	evt, err := sharedEvents.NewIntegrationEvent("task.created", "instance-a", "owner-1", map[string]string{"id": "1"})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), evt))

	for _, ch := range []<-chan Message{first, second} {
		msg := <-ch
		assert.Equal(t, "owner-1", msg.Key)
		decoded, err := sharedEvents.DecodeIntegrationEvent(msg.Value)
		require.NoError(t, err)
		assert.Equal(t, "task.created", decoded.Type)
		assert.Equal(t, "instance-a", decoded.Source)
	}
}

func TestInMemoryEventBus_CloseStopsDelivery(t *testing.T) {
	bus := NewInMemoryEventBus("tasks", zap.NewNop())
	ch := bus.Subscribe(1)

	bus.Close()

	_, open := <-ch
	assert.False(t, open, "el canal debe cerrarse")
	assert.NoError(t, bus.Publish(context.Background(), sharedEvents.IntegrationEvent{Type: "task.deleted"}))
}

func TestBackgroundConsumerChan_ForwardsMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewInMemoryEventBus("tasks", zap.NewNop())
	handler := &recordingHandler{done: make(chan struct{}, 1)}
	BackgroundConsumerChan(ctx, bus.Subscribe(4), handler, zap.NewNop())

	require.NoError(t, bus.Publish(ctx, sharedEvents.IntegrationEvent{Type: "task.updated", Key: "owner-9"}))

	select {
	case <-handler.done:
	case <-time.After(time.Second):
		t.Fatal("el handler no recibió el mensaje")
	}
	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, []string{"owner-9"}, handler.keys)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaPublisher_UsesPartitionKeyAndHeaders(t *testing.T) {
	writer := &fakeWriter{}
	publisher := NewKafkaPublisher(writer, zap.NewNop())
	evt := sharedEvents.IntegrationEvent{Type: "task.created", Source: "inst", Key: "owner-1"}

	err := publisher.Publish(context.Background(), evt)

	require.NoError(t, err)
	require.Len(t, writer.msgs, 1)
	msg := writer.msgs[0]
	assert.Equal(t, "owner-1", string(msg.Key))
	assert.Contains(t, msg.Headers, kafka.Header{Key: "type", Value: []byte("task.created")})

	var decoded sharedEvents.IntegrationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "inst", decoded.Source)
}

func TestKafkaPublisher_PropagatesWriterError(t *testing.T) {
	writer := &fakeWriter{err: assert.AnError}
	publisher := NewKafkaPublisher(writer, zap.NewNop())

	err := publisher.Publish(context.Background(), sharedEvents.IntegrationEvent{Type: "task.deleted"})

	assert.ErrorIs(t, err, assert.AnError)
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			msg := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			return msg, nil
		}
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Config() kafka.ReaderConfig {
	return kafka.ReaderConfig{Topic: "task-events", GroupID: "test"}
}

func (r *fakeReader) Close() error { return nil }

func TestConsumerAdapter_CommitsAfterHandling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{queue: []kafka.Message{
		{Key: []byte("owner-1"), Value: []byte("{}"), Offset: 7},
		{Key: []byte("owner-2"), Value: []byte("{}"), Offset: 8},
	}}
	handler := &recordingHandler{done: make(chan struct{}, 2)}
	consumer := NewConsumerAdapter(reader, handler, zap.NewNop())

	consumer.Start(ctx)
	for i := 0; i < 2; i++ {
		select {
		case <-handler.done:
		case <-time.After(time.Second):
			t.Fatal("el handler no recibió los mensajes")
		}
	}

	assert.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return len(reader.committed) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-consumer.Done():
	case <-time.After(time.Second):
		t.Fatal("el consumidor no se detuvo al cancelar el contexto")
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, []string{"owner-1", "owner-2"}, handler.keys)
	assert.Equal(t, []int64{7, 8}, reader.committed)
}
