package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/hexatodo/internal/shared/domain"
)

// Columnas wire (snake_case) de la tabla de tareas.
const (
	ColID          = "id"
	ColOwnerID     = "owner_id"
	ColTitle       = "title"
	ColDescription = "description"
	ColIsCompleted = "is_completed"
	ColPriority    = "priority"
	ColDueDate     = "due_date"
	ColCreatedAt   = "created_at"
	ColUpdatedAt   = "updated_at"
)

// Formatos de fecha en el wire.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = time.RFC3339Nano
)

// FieldMap traduce cada campo de aplicación (tag json de Task) a su columna wire.
var FieldMap = map[string]string{
	"id":          ColID,
	"ownerId":     ColOwnerID,
	"title":       ColTitle,
	"description": ColDescription,
	"isCompleted": ColIsCompleted,
	"priority":    ColPriority,
	"dueDate":     ColDueDate,
	"createdAt":   ColCreatedAt,
	"updatedAt":   ColUpdatedAt,
}

// Columns lista las columnas wire en orden estable.
var Columns = []string{
	ColID, ColOwnerID, ColTitle, ColDescription, ColIsCompleted,
	ColPriority, ColDueDate, ColCreatedAt, ColUpdatedAt,
}

// ToRow traduce una tarea completa a su forma wire.
func ToRow(t Task) sharedDomain.Row {
	return sharedDomain.Row{
		ColID:          t.ID.String(),
		ColOwnerID:     t.OwnerID.String(),
		ColTitle:       t.Title,
		ColDescription: optionalString(t.Description),
		ColIsCompleted: t.IsCompleted,
		ColPriority:    string(t.Priority),
		ColDueDate:     dateOrNil(t.DueDate),
		ColCreatedAt:   FormatTimestamp(t.CreatedAt),
		ColUpdatedAt:   FormatTimestamp(t.UpdatedAt),
	}
}

// FromRow traduce una fila del store a la forma de aplicación.
func FromRow(row sharedDomain.Row) (*Task, error) {
	if row == nil {
		return nil, fmt.Errorf("task row: empty row")
	}
	r := rowReader{row: row}

	t := &Task{
		ID:          r.uuid(ColID),
		OwnerID:     r.uuid(ColOwnerID),
		Title:       r.str(ColTitle),
		Description: r.optionalStr(ColDescription),
		IsCompleted: r.boolean(ColIsCompleted),
		DueDate:     r.optionalDate(ColDueDate),
		CreatedAt:   r.timestamp(ColCreatedAt),
		UpdatedAt:   r.timestamp(ColUpdatedAt),
	}
	if raw := r.str(ColPriority); raw == "" {
		t.Priority = DefaultPriority
	} else if p, err := ParsePriority(raw); err != nil {
		r.fail(ColPriority, err)
	} else {
		t.Priority = p
	}

	if r.err != nil {
		return nil, r.err
	}
	return t, nil
}

// NewTaskRow construye la fila de inserción: owner del principal, no completada y prioridad por defecto.
// id y timestamps los asigna el store.
func NewTaskRow(owner uuid.UUID, in CreateTaskInput) sharedDomain.Row {
	priority := in.Priority
	if priority == "" {
		priority = DefaultPriority
	}
	var description interface{}
	if in.Description != nil && *in.Description != "" {
		description = *in.Description
	}
	return sharedDomain.Row{
		ColOwnerID:     owner.String(),
		ColTitle:       strings.TrimSpace(in.Title),
		ColDescription: description,
		ColIsCompleted: false,
		ColPriority:    string(priority),
		ColDueDate:     dateOrNil(in.DueDate),
	}
}

// PatchRow traduce solo los campos presentes del input; el resto no viaja.
func PatchRow(in UpdateTaskInput) sharedDomain.Row {
	patch := sharedDomain.Row{}
	if in.Title != nil {
		patch[ColTitle] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		patch[ColDescription] = stringOrNil(in.Description)
	}
	if in.Priority != nil {
		patch[ColPriority] = string(*in.Priority)
	}
	if in.ClearDueDate {
		patch[ColDueDate] = nil
	} else if in.DueDate != nil {
		patch[ColDueDate] = dateOrNil(in.DueDate)
	}
	if in.IsCompleted != nil {
		patch[ColIsCompleted] = *in.IsCompleted
	}
	return patch
}

// ChangedFields devuelve los campos de aplicación que contiene una fila wire.
func ChangedFields(row sharedDomain.Row) []string {
	fields := make([]string, 0, len(row))
	for _, col := range Columns {
		if _, ok := row[col]; !ok {
			continue
		}
		for app, wire := range FieldMap {
			if wire == col {
				fields = append(fields, app)
				break
			}
		}
	}
	return fields
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func optionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// stringOrNil trata la cadena vacía como ausencia de valor.
func stringOrNil(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func dateOrNil(d *time.Time) interface{} {
	if d == nil {
		return nil
	}
	return d.Format(DateLayout)
}

// ---------------- lectura tolerante de filas ----------------

type rowReader struct {
	row sharedDomain.Row
	err error
}

func (r *rowReader) fail(col string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("task row: column %s: %w", col, err)
	}
}

func (r *rowReader) str(col string) string {
	switch v := r.row[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		r.fail(col, fmt.Errorf("unexpected type %T", v))
		return ""
	}
}

func (r *rowReader) optionalStr(col string) *string {
	if r.row[col] == nil {
		return nil
	}
	s := r.str(col)
	return &s
}

func (r *rowReader) uuid(col string) uuid.UUID {
	if v, ok := r.row[col].(uuid.UUID); ok {
		return v
	}
	raw := r.str(col)
	id, err := uuid.Parse(raw)
	if err != nil {
		r.fail(col, err)
	}
	return id
}

func (r *rowReader) boolean(col string) bool {
	switch v := r.row[col].(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	default:
		r.fail(col, fmt.Errorf("unexpected type %T", v))
		return false
	}
}

func (r *rowReader) optionalDate(col string) *time.Time {
	switch v := r.row[col].(type) {
	case nil:
		return nil
	case time.Time:
		d := NormalizeDate(v)
		return &d
	}
	raw := r.str(col)
	if raw == "" {
		return nil
	}
	if d, err := time.Parse(DateLayout, raw); err == nil {
		return &d
	}
	// filas antiguas guardaban el instante completo
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	d := NormalizeDate(ts)
	return &d
}

func (r *rowReader) timestamp(col string) time.Time {
	switch v := r.row[col].(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return v.UTC()
	}
	raw := r.str(col)
	ts, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		r.fail(col, err)
	}
	return ts.UTC()
}
