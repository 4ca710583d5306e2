package view

import (
	"sort"
	"strings"
	"time"

	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

// UpcomingLimit es cuántas tareas urgentes muestra el resumen.
const UpcomingLimit = 3

// Summary son los contadores del panel de inicio.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	// Overdue cuenta las pendientes con fecha límite anterior a now.
	Overdue int `json:"overdue"`
}

// Summarize calcula los contadores respecto al instante now.
func Summarize(tasks []taskDomain.Task, now time.Time) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		if t.IsCompleted {
			s.Completed++
			continue
		}
		if t.DueDate != nil && t.DueDate.Before(now) {
			s.Overdue++
		}
	}
	return s
}

// Upcoming devuelve como mucho n tareas pendientes de prioridad alta:
// fecha límite ascendente, sin fecha al final, y después las más recientes.
func Upcoming(tasks []taskDomain.Task, n int) []taskDomain.Task {
	out := Apply(tasks, MatchStatus(StatusActive), MatchPriority(string(taskDomain.PriorityHigh)))
	sort.SliceStable(out, func(i, j int) bool {
		return compareUrgency(out[i], out[j]) < 0
	})
	if n < 0 {
		n = 0
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func compareUrgency(a, b taskDomain.Task) int {
	switch {
	case a.DueDate != nil && b.DueDate == nil:
		return -1
	case a.DueDate == nil && b.DueDate != nil:
		return 1
	case a.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
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
