package view

import (
	"fmt"
	"strings"

	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

// StatusFilter selecciona por estado de completado.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

// PriorityAll desactiva el filtro de prioridad.
const PriorityAll = "all"

// Filter es la política de filtrado de la vista. Los valores vacíos equivalen a "all".
type Filter struct {
	Query    string
	Status   StatusFilter
	Priority string
}

// Predicate decide si una tarea se muestra.
type Predicate func(taskDomain.Task) bool

// ParseFilter valida los valores que llegan de la interfaz.
func ParseFilter(query, status, priority string) (Filter, error) {
	f := Filter{Query: query, Status: StatusFilter(strings.ToLower(status)), Priority: strings.ToLower(priority)}
	switch f.Status {
	case "", StatusAll, StatusActive, StatusCompleted:
	default:
		return Filter{}, fmt.Errorf("invalid status filter %q", status)
	}
	if f.Priority != "" && f.Priority != PriorityAll && !taskDomain.Priority(f.Priority).Valid() {
		return Filter{}, fmt.Errorf("invalid priority filter %q", priority)
	}
	return f, nil
}

// Predicates descompone el filtro; el orden es irrelevante porque se combinan con AND.
func (f Filter) Predicates() []Predicate {
	return []Predicate{MatchText(f.Query), MatchStatus(f.Status), MatchPriority(f.Priority)}
}

// MatchText busca la subcadena, sin distinguir mayúsculas, en título o descripción.
// La consulta se usa tal cual, espacios incluidos; solo la cadena vacía lo acepta todo.
func MatchText(query string) Predicate {
	q := strings.ToLower(query)
	return func(t taskDomain.Task) bool {
		if q == "" {
			return true
		}
		if strings.Contains(strings.ToLower(t.Title), q) {
			return true
		}
		return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), q)
	}
}

func MatchStatus(status StatusFilter) Predicate {
	return func(t taskDomain.Task) bool {
		switch status {
		case StatusActive:
			return !t.IsCompleted
		case StatusCompleted:
			return t.IsCompleted
		}
		return true
	}
}

func MatchPriority(priority string) Predicate {
	return func(t taskDomain.Task) bool {
		if priority == "" || priority == PriorityAll {
			return true
		}
		return string(t.Priority) == priority
	}
}

// Apply devuelve un slice nuevo con las tareas que cumplen todos los predicados.
func Apply(tasks []taskDomain.Task, preds ...Predicate) []taskDomain.Task {
	out := make([]taskDomain.Task, 0, len(tasks))
	for _, t := range tasks {
		keep := true
		for _, p := range preds {
			if !p(t) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, t)
		}
	}
	return out
}

// FilterTasks aplica el filtro completo.
func FilterTasks(tasks []taskDomain.Task, f Filter) []taskDomain.Task {
	return Apply(tasks, f.Predicates()...)
}
