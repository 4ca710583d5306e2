package domain

import (
	"github.com/google/uuid"

	sharedEvents "github.com/davicafu/hexatodo/internal/shared/events"
)

// Tipos de evento de integración de tareas.
const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"

	TaskTopic = "task"
)

// TaskChanged es el payload común de los eventos de tareas.
type TaskChanged struct {
	TaskID    uuid.UUID `json:"taskId"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Fields    []string  `json:"fields,omitempty"`
	Completed *bool     `json:"isCompleted,omitempty"`
}

func (e TaskChanged) PartitionKey() string {
	return e.OwnerID.String()
}

// NewTaskEvent envuelve el cambio en un IntegrationEvent particionado por owner.
func NewTaskEvent(eventType, source string, change TaskChanged) (sharedEvents.IntegrationEvent, error) {
	return sharedEvents.NewIntegrationEvent(eventType, source, change.PartitionKey(), change)
}

// IsTaskEvent indica si el tipo pertenece a este contexto.
func IsTaskEvent(eventType string) bool {
	switch eventType {
	case TaskCreated, TaskUpdated, TaskDeleted:
		return true
	}
	return false
}

// Record convierte un evento decodificado en un registro analítico.
func (e TaskChanged) Record(evt sharedEvents.IntegrationEvent) TaskEventRecord {
	return TaskEventRecord{
		EventID:    evt.ID,
		EventType:  evt.Type,
		TaskID:     e.TaskID,
		OwnerID:    e.OwnerID,
		Fields:     e.Fields,
		Completed:  e.Completed,
		Source:     evt.Source,
		OccurredAt: evt.Timestamp,
	}
}
