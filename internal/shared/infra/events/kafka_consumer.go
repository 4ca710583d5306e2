package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/hexatodo/internal/shared/infra/platform/bus"
)

// kafkaReader es el subconjunto de *kafka.Reader que usa el consumidor.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
	Close() error
}

// Espera tras un error de lectura antes de reintentar.
const fetchBackoff = time.Second

// ConsumerAdapter escucha un topic de Kafka y entrega cada mensaje al handler.
// El offset se confirma después de procesar el mensaje (al menos una vez).
type ConsumerAdapter struct {
	reader  kafkaReader
	handler sharedBus.MessageHandler
	log     *zap.Logger
	done    chan struct{}
}

func NewConsumerAdapter(reader kafkaReader, handler sharedBus.MessageHandler, log *zap.Logger) *ConsumerAdapter {
	return &ConsumerAdapter{
		reader:  reader,
		handler: handler,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start lanza el bucle de consumo; termina cuando ctx se cancela.
func (c *ConsumerAdapter) Start(ctx context.Context) {
	cfg := c.reader.Config()
	c.log.Info("🎧 Iniciando consumidor de Kafka",
		zap.String("topic", cfg.Topic),
		zap.String("group", cfg.GroupID),
		zap.Strings("brokers", cfg.Brokers),
	)

	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.log.Info("Consumidor de Kafka detenido", zap.String("topic", cfg.Topic))
					return
				}
				c.log.Error("Error al leer mensaje de Kafka", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(fetchBackoff):
				}
				continue
			}

			c.handler.HandleMessage(ctx, string(msg.Key), msg.Value)

			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.log.Warn("No se pudo confirmar el offset",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
	}()
}

// Done se cierra cuando el bucle de consumo ha terminado.
func (c *ConsumerAdapter) Done() <-chan struct{} {
	return c.done
}

// Close libera el reader.
func (c *ConsumerAdapter) Close() error {
	return c.reader.Close()
}
