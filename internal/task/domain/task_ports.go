package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/hexatodo/internal/shared/domain"
)

// TaskTable es el nombre de la tabla/colección de tareas en el store.
const TaskTable = "tasks"

// RowStore es el store remoto de filas opaco. Los adapters no conocen la semántica de tarea.
// Update y Delete no fallan si ninguna fila coincide con los criterios.
type RowStore interface {
	Select(ctx context.Context, table string, criteria sharedDomain.Criteria) ([]sharedDomain.Row, error)
	Insert(ctx context.Context, table string, row sharedDomain.Row) (sharedDomain.Row, error)
	Update(ctx context.Context, table string, patch sharedDomain.Row, criteria sharedDomain.Criteria) error
	Delete(ctx context.Context, table string, criteria sharedDomain.Criteria) error
}

// TaskListCacheKey es la clave de la consulta de tareas de un principal.
func TaskListCacheKey(owner uuid.UUID) string {
	return fmt.Sprintf("tasks:owner:%s", owner)
}

// TaskEventRecord es una mutación registrada en el almacén analítico.
type TaskEventRecord struct {
	EventID    uuid.UUID
	EventType  string
	TaskID     uuid.UUID
	OwnerID    uuid.UUID
	Fields     []string
	Completed  *bool
	Source     string
	OccurredAt time.Time
}

// DailyTaskTrend agrega creadas y completadas por día.
type DailyTaskTrend struct {
	Day       time.Time `json:"day"`
	Created   uint64    `json:"created"`
	Completed uint64    `json:"completed"`
}

type TaskAnalyticsRepository interface {
	LogBatch(ctx context.Context, records []TaskEventRecord) error
	GetDailyTrend(ctx context.Context, owner uuid.UUID, start, end time.Time) ([]DailyTaskTrend, error)
}
