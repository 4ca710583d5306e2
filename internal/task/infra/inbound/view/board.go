package view

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

var (
	ErrTaskNotDisplayed = errors.New("task is not displayed")
	ErrMutationInFlight = errors.New("a toggle for this task is already in flight")
)

// MutationState es el ciclo de vida de un toggle optimista.
type MutationState string

const (
	MutationPending    MutationState = "pending"
	MutationConfirmed  MutationState = "confirmed"
	MutationRolledBack MutationState = "rolled-back"
)

// Mutation describe un toggle optimista y su resultado.
type Mutation struct {
	TaskID    uuid.UUID     `json:"taskId"`
	Previous  bool          `json:"previous"`
	Requested bool          `json:"requested"`
	State     MutationState `json:"state"`
	Err       error         `json:"-"`
}

// Toggler es la operación del repositorio que confirma el cambio.
type Toggler interface {
	ToggleTaskCompletion(ctx context.Context, id uuid.UUID, isCompleted bool) error
}

// Board mantiene la copia mostrada de las tareas. Solo el toggle optimista la hace
// divergir del repositorio, y nunca más allá de un fallo.
type Board struct {
	toggler Toggler
	log     *zap.Logger

	mu        sync.Mutex
	order     []uuid.UUID
	displayed map[uuid.UUID]taskDomain.Task
	pending   map[uuid.UUID]*Mutation
}

func NewBoard(toggler Toggler, log *zap.Logger) *Board {
	return &Board{
		toggler:   toggler,
		log:       log,
		displayed: make(map[uuid.UUID]taskDomain.Task),
		pending:   make(map[uuid.UUID]*Mutation),
	}
}

// Sync reemplaza la copia mostrada con la colección autoritativa.
// Las tareas con un toggle en vuelo conservan el valor optimista hasta que se resuelva.
func (b *Board) Sync(tasks []taskDomain.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	displayed := make(map[uuid.UUID]taskDomain.Task, len(tasks))
	order := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		if m, ok := b.pending[t.ID]; ok {
			t = t.WithCompletion(m.Requested)
		}
		displayed[t.ID] = t.Clone()
		order = append(order, t.ID)
	}
	b.displayed = displayed
	b.order = order
}

// Snapshot devuelve la copia mostrada en el orden de la última sincronización.
func (b *Board) Snapshot() []taskDomain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]taskDomain.Task, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.displayed[id].Clone())
	}
	return out
}

// Displayed devuelve la tarea mostrada con ese id.
func (b *Board) Displayed(id uuid.UUID) (taskDomain.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.displayed[id]
	return t.Clone(), ok
}

// View aplica filtro y orden a la copia mostrada.
func (b *Board) View(f Filter) []taskDomain.Task {
	return Present(b.Snapshot(), f)
}

// Toggle invierte el completado mostrado al instante y lo confirma contra el repositorio.
// Si el repositorio falla, el valor mostrado vuelve al anterior y se devuelve el error.
func (b *Board) Toggle(ctx context.Context, id uuid.UUID) (*Mutation, error) {
	b.mu.Lock()
	task, ok := b.displayed[id]
	if !ok {
		b.mu.Unlock()
		return nil, ErrTaskNotDisplayed
	}
	if _, busy := b.pending[id]; busy {
		b.mu.Unlock()
		return nil, ErrMutationInFlight
	}
	m := &Mutation{
		TaskID:    id,
		Previous:  task.IsCompleted,
		Requested: !task.IsCompleted,
		State:     MutationPending,
	}
	b.pending[id] = m
	b.displayed[id] = task.WithCompletion(m.Requested)
	b.mu.Unlock()

	err := b.toggler.ToggleTaskCompletion(ctx, id, m.Requested)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
	if err != nil {
		if current, ok := b.displayed[id]; ok {
			b.displayed[id] = current.WithCompletion(m.Previous)
		}
		m.State = MutationRolledBack
		m.Err = err
		b.log.Warn("Optimistic toggle rolled back", zap.String("task_id", id.String()), zap.Error(err))
		return m, err
	}
	m.State = MutationConfirmed
	return m, nil
}
