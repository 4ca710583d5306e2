package domain

import (
	"errors"
	"fmt"
)

// ErrorKind clasifica los fallos del repositorio de tareas.
type ErrorKind string

const (
	KindUnknown         ErrorKind = "unknown"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindRemoteFailure   ErrorKind = "remote_failure"
	KindValidation      ErrorKind = "validation"
)

var (
	ErrUnauthenticated = errors.New("user not authenticated")
	ErrRemoteFailure   = errors.New("remote store failure")
	ErrValidation      = errors.New("validation failed")
	ErrUnknown         = errors.New("unknown task error")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnauthenticated:
		return ErrUnauthenticated
	case KindRemoteFailure:
		return ErrRemoteFailure
	case KindValidation:
		return ErrValidation
	}
	return ErrUnknown
}

// RepositoryError es el error que devuelven todas las operaciones del repositorio.
// errors.Is funciona contra el centinela de su Kind y contra la causa.
type RepositoryError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *RepositoryError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RepositoryError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// NewRepositoryError construye el error; si err ya es un RepositoryError conserva su Kind.
func NewRepositoryError(op string, kind ErrorKind, err error) *RepositoryError {
	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return &RepositoryError{Kind: repoErr.Kind, Op: op, Message: repoErr.Message, Err: repoErr.Err}
	}
	msg := kind.sentinel().Error()
	if err != nil {
		msg = err.Error()
	}
	return &RepositoryError{Kind: kind, Op: op, Message: msg, Err: err}
}

// Unauthenticated se genera localmente, sin llamar al store.
func Unauthenticated(op string) *RepositoryError {
	return &RepositoryError{Kind: KindUnauthenticated, Op: op, Message: ErrUnauthenticated.Error()}
}

// Invalid describe un input rechazado antes de cualquier llamada remota.
func Invalid(format string, args ...interface{}) *RepositoryError {
	return &RepositoryError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf devuelve la categoría de err; errores ajenos al repositorio son KindUnknown.
func KindOf(err error) ErrorKind {
	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.Kind
	}
	return KindUnknown
}
