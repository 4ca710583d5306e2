package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Límites de los campos editables.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateTaskInput son los datos que aporta el usuario al crear una tarea.
type CreateTaskInput struct {
	Title       string     `json:"title" validate:"max=100"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=500"`
	Priority    Priority   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Validate comprueba el input antes de cualquier llamada remota.
func (in CreateTaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return Invalid("title: is required")
	}
	if err := validate.Struct(in); err != nil {
		return validationError(err)
	}
	return nil
}

// UpdateTaskInput es un patch: solo los campos no nil viajan al store.
// ClearDueDate elimina la fecha límite (tiene prioridad sobre DueDate).
type UpdateTaskInput struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Priority     *Priority  `json:"priority,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ClearDueDate bool       `json:"clearDueDate,omitempty"`
	IsCompleted  *bool      `json:"isCompleted,omitempty"`
}

// IsEmpty indica que el patch no cambia nada.
func (in UpdateTaskInput) IsEmpty() bool {
	return in.Title == nil && in.Description == nil && in.Priority == nil &&
		in.DueDate == nil && !in.ClearDueDate && in.IsCompleted == nil
}

// Validate valida cada campo presente. Un puntero a "" también se valida.
func (in UpdateTaskInput) Validate() error {
	if in.IsEmpty() {
		return Invalid("no fields to update")
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return Invalid("title: is required")
		}
		if err := validate.Var(*in.Title, fmt.Sprintf("max=%d", MaxTitleLength)); err != nil {
			return fieldError("title", err)
		}
	}
	if in.Description != nil {
		if err := validate.Var(*in.Description, fmt.Sprintf("max=%d", MaxDescriptionLength)); err != nil {
			return fieldError("description", err)
		}
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return Invalid("priority: must be one of low, medium, high")
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Invalid("%s", err.Error())
	}
	return fieldError(verrs[0].Field(), err)
}

func fieldError(field string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Invalid("%s: %s", field, err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "max":
		return Invalid("%s: must be at most %s characters", field, fe.Param())
	case "oneof":
		return Invalid("%s: must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return Invalid("%s: failed %s validation", field, fe.Tag())
	}
}
