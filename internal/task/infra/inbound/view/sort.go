package view

import (
	"sort"
	"strings"

	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

// Compare define el orden de presentación:
// pendientes antes que completadas, prioridad high→low, fecha límite ascendente (sin fecha al final)
// y creación más reciente primero. El id desempata para que el orden sea total.
func Compare(a, b taskDomain.Task) int {
	if a.IsCompleted != b.IsCompleted {
		if !a.IsCompleted {
			return -1
		}
		return 1
	}
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch {
	case a.DueDate != nil && b.DueDate == nil:
		return -1
	case a.DueDate == nil && b.DueDate != nil:
		return 1
	case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
		if a.DueDate.Before(*b.DueDate) {
			return -1
		}
		return 1
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// SortTasks devuelve una copia ordenada; la entrada no se modifica.
func SortTasks(tasks []taskDomain.Task) []taskDomain.Task {
	out := make([]taskDomain.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(out[i], out[j]) < 0
	})
	return out
}

// Present filtra y ordena en un solo paso.
func Present(tasks []taskDomain.Task, f Filter) []taskDomain.Task {
	return SortTasks(FilterTasks(tasks, f))
}
