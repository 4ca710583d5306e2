package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/hexatodo/internal/shared/events"
	sharedBus "github.com/davicafu/hexatodo/internal/shared/infra/platform/bus"
	sharedUtils "github.com/davicafu/hexatodo/internal/shared/infra/utils"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

const handleTimeout = 2 * time.Second

// RemoteChangeHandler es la parte del repositorio que reacciona a cambios de otras instancias.
type RemoteChangeHandler interface {
	HandleRemoteChange(ctx context.Context, source string, change taskDomain.TaskChanged) bool
}

// TaskConsumer procesa los eventos de tareas: invalida la consulta local cuando otra instancia
// mutó las tareas del principal activo y, si hay almacén analítico, registra el evento.
type TaskConsumer struct {
	repo      RemoteChangeHandler
	analytics taskDomain.TaskAnalyticsRepository
	log       *zap.Logger
}

var _ sharedBus.MessageHandler = (*TaskConsumer)(nil)

// NewTaskConsumer es el constructor. analytics puede ser nil.
func NewTaskConsumer(repo RemoteChangeHandler, analytics taskDomain.TaskAnalyticsRepository, logger *zap.Logger) *TaskConsumer {
	return &TaskConsumer{
		repo:      repo,
		analytics: analytics,
		log:       logger,
	}
}

// HandleMessage es el punto de entrada para un nuevo mensaje/evento.
func (c *TaskConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	base, err := sharedEvents.DecodeIntegrationEvent(payload)
	if err != nil {
		c.log.Warn("Failed to unmarshal integration event for task", zap.String("key", key), zap.Error(err))
		return
	}
	if !taskDomain.IsTaskEvent(base.Type) {
		c.log.Warn("Unknown task event type", zap.String("type", base.Type), zap.String("key", key))
		return
	}

	sharedUtils.UnmarshalAndHandle(c.log, base.Type, base.Data, func(change taskDomain.TaskChanged) {
		ctxTask, cancel := context.WithTimeout(ctx, handleTimeout)
		defer cancel()

		if c.analytics != nil {
			if err := c.analytics.LogBatch(ctxTask, []taskDomain.TaskEventRecord{change.Record(base)}); err != nil {
				c.log.Warn("Failed to log task event", zap.String("task_id", change.TaskID.String()), zap.Error(err))
			}
		}

		if c.repo.HandleRemoteChange(ctxTask, base.Source, change) {
			c.log.Info("Tasks refreshed after remote change",
				zap.String("type", base.Type),
				zap.String("task_id", change.TaskID.String()),
				zap.String("source", base.Source))
		}
	})
}
