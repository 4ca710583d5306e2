package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IntegrationEvent es el sobre común de todos los eventos que cruzan instancias.
type IntegrationEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"` // instancia que originó el evento
	Key       string          `json:"key"`    // clave de partición (owner)
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"` // contenido específico del evento
}

// NewIntegrationEvent serializa payload y lo envuelve en un IntegrationEvent.
func NewIntegrationEvent(eventType, source, key string, payload interface{}) (IntegrationEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return IntegrationEvent{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return IntegrationEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Source:    source,
		Key:       key,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// PartitionKey permite que los publishers enruten por owner.
func (e IntegrationEvent) PartitionKey() string {
	return e.Key
}

// DecodeIntegrationEvent lee el sobre desde el payload crudo de un mensaje.
func DecodeIntegrationEvent(payload []byte) (IntegrationEvent, error) {
	var evt IntegrationEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return IntegrationEvent{}, fmt.Errorf("decode integration event: %w", err)
	}
	if evt.Type == "" {
		return IntegrationEvent{}, fmt.Errorf("decode integration event: missing type")
	}
	return evt, nil
}
