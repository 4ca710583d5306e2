package view

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

func day(d int) *time.Time {
	t := time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func sample() []taskDomain.Task {
	desc := "Leche y HUEVOS"
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []taskDomain.Task{
		{ID: uuid.New(), Title: "Comprar", Description: &desc, Priority: taskDomain.PriorityLow, CreatedAt: base},
		{ID: uuid.New(), Title: "Informe", Priority: taskDomain.PriorityHigh, DueDate: day(10), CreatedAt: base.Add(time.Hour)},
		{ID: uuid.New(), Title: "Llamar", Priority: taskDomain.PriorityHigh, DueDate: day(3), CreatedAt: base.Add(2 * time.Hour)},
		{ID: uuid.New(), Title: "Gimnasio", Priority: taskDomain.PriorityHigh, CreatedAt: base.Add(3 * time.Hour)},
		{ID: uuid.New(), Title: "Hecho", Priority: taskDomain.PriorityHigh, IsCompleted: true, CreatedAt: base.Add(4 * time.Hour)},
		{ID: uuid.New(), Title: "Medio", Priority: taskDomain.PriorityMedium, CreatedAt: base.Add(5 * time.Hour)},
		{ID: uuid.New(), Title: "Medio reciente", Priority: taskDomain.PriorityMedium, CreatedAt: base.Add(6 * time.Hour)},
	}
}

func titles(tasks []taskDomain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestFilter_TextMatchesTitleOrDescriptionCaseInsensitive(t *testing.T) {
	tasks := sample()

	assert.Equal(t, []string{"Comprar"}, titles(FilterTasks(tasks, Filter{Query: "huevos"})))
	assert.Equal(t, []string{"Informe"}, titles(FilterTasks(tasks, Filter{Query: "INFOR"})))
	assert.Len(t, FilterTasks(tasks, Filter{Query: ""}), len(tasks))
	assert.Empty(t, FilterTasks(tasks, Filter{Query: "  "}), "los espacios cuentan como texto")
	assert.Equal(t, []string{"Medio reciente"}, titles(FilterTasks(tasks, Filter{Query: " reciente"})))
}

func TestFilter_StatusAndPriority(t *testing.T) {
	tasks := sample()

	assert.Equal(t, []string{"Hecho"}, titles(FilterTasks(tasks, Filter{Status: StatusCompleted})))
	assert.Len(t, FilterTasks(tasks, Filter{Status: StatusActive}), 6)
	assert.Equal(t, []string{"Medio", "Medio reciente"}, titles(FilterTasks(tasks, Filter{Priority: "medium"})))
	assert.Empty(t, FilterTasks(tasks, Filter{Status: StatusCompleted, Priority: "low"}))
}

func TestFilter_PredicatesCommute(t *testing.T) {
	tasks := sample()
	f := Filter{Query: "e", Status: StatusActive, Priority: "high"}
	preds := f.Predicates()

	forward := Apply(tasks, preds[0], preds[1], preds[2])
	reversed := Apply(tasks, preds[2], preds[1], preds[0])
	nested := Apply(Apply(tasks, preds[1]), preds[2], preds[0])

	assert.Equal(t, forward, reversed)
	assert.Equal(t, forward, nested)
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	tasks := sample()
	before := titles(tasks)

	_ = FilterTasks(tasks, Filter{Status: StatusCompleted})

	assert.Equal(t, before, titles(tasks))
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("x", "Active", "HIGH")
	require.NoError(t, err)
	assert.Equal(t, Filter{Query: "x", Status: StatusActive, Priority: "high"}, f)

	all, err := ParseFilter("", "all", "all")
	require.NoError(t, err)
	assert.Len(t, FilterTasks(sample(), all), len(sample()))

	_, err = ParseFilter("", "pending", "")
	assert.Error(t, err)
	_, err = ParseFilter("", "", "urgent")
	assert.Error(t, err)
}

func TestSortTasks_PresentationOrder(t *testing.T) {
	sorted := SortTasks(sample())

	assert.Equal(t, []string{
		"Llamar",         // high, vence antes
		"Informe",        // high, vence después
		"Gimnasio",       // high, sin fecha
		"Medio reciente", // medium, creada más tarde
		"Medio",
		"Comprar", // low
		"Hecho",   // completadas al final
	}, titles(sorted))
}

func TestSortTasks_TotalOrderIndependentOfInput(t *testing.T) {
	tasks := sample()
	// dos tareas indistinguibles salvo por el id
	twin := tasks[5]
	twin.ID = uuid.New()
	tasks = append(tasks, twin)
	want := titles(SortTasks(tasks))
	wantIDs := SortTasks(tasks)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]taskDomain.Task(nil), tasks...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := SortTasks(shuffled)
		assert.Equal(t, want, titles(got))
		assert.Equal(t, wantIDs, got)
	}
}

func TestSortTasks_CompletedNeverBeforeIncomplete(t *testing.T) {
	sorted := SortTasks(sample())
	seenCompleted := false
	for _, task := range sorted {
		if task.IsCompleted {
			seenCompleted = true
			continue
		}
		assert.False(t, seenCompleted, "una pendiente aparece tras una completada")
	}
}

func TestSortTasks_DoesNotMutateInput(t *testing.T) {
	tasks := sample()
	before := titles(tasks)

	_ = SortTasks(tasks)

	assert.Equal(t, before, titles(tasks))
}

type stubToggler struct {
	err     error
	calls   []bool
	started chan struct{}
	release chan struct{}
}

func (s *stubToggler) ToggleTaskCompletion(ctx context.Context, id uuid.UUID, isCompleted bool) error {
	s.calls = append(s.calls, isCompleted)
	if s.started != nil {
		s.started <- struct{}{}
		<-s.release
	}
	return s.err
}

func TestBoard_ToggleConfirmed(t *testing.T) {
	// Arrange
	toggler := &stubToggler{}
	board := NewBoard(toggler, zap.NewNop())
	task := taskDomain.Task{ID: uuid.New(), Title: "x"}
	board.Sync([]taskDomain.Task{task})

	// Act
	m, err := board.Toggle(context.Background(), task.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, MutationConfirmed, m.State)
	assert.Equal(t, []bool{true}, toggler.calls)
	shown, _ := board.Displayed(task.ID)
	assert.True(t, shown.IsCompleted)
}

func TestBoard_ToggleRollsBackOnFailure(t *testing.T) {
	// Arrange
	toggler := &stubToggler{err: errors.New("remote failure"), started: make(chan struct{}), release: make(chan struct{})}
	board := NewBoard(toggler, zap.NewNop())
	task := taskDomain.Task{ID: uuid.New(), Title: "x", IsCompleted: false}
	board.Sync([]taskDomain.Task{task})

	// Act
	type result struct {
		m   *Mutation
		err error
	}
	done := make(chan result, 1)
	go func() {
		m, err := board.Toggle(context.Background(), task.ID)
		done <- result{m, err}
	}()
	<-toggler.started

	// mientras está en vuelo se muestra el valor optimista, incluso tras un Sync
	shown, _ := board.Displayed(task.ID)
	assert.True(t, shown.IsCompleted)
	board.Sync([]taskDomain.Task{task})
	shown, _ = board.Displayed(task.ID)
	assert.True(t, shown.IsCompleted)
	_, err := board.Toggle(context.Background(), task.ID)
	assert.ErrorIs(t, err, ErrMutationInFlight)

	close(toggler.release)
	res := <-done

	// Assert
	require.Error(t, res.err)
	assert.Equal(t, MutationRolledBack, res.m.State)
	shown, _ = board.Displayed(task.ID)
	assert.False(t, shown.IsCompleted, "el valor mostrado vuelve al anterior")

	// ya no hay toggle en vuelo: uno nuevo llega al store
	toggler.started = nil
	_, err = board.Toggle(context.Background(), task.ID)
	assert.NotErrorIs(t, err, ErrMutationInFlight)
	assert.Len(t, toggler.calls, 2)
}

func TestBoard_UnknownTask(t *testing.T) {
	board := NewBoard(&stubToggler{}, zap.NewNop())

	_, err := board.Toggle(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrTaskNotDisplayed)
}

func TestBoard_ViewFiltersAndSorts(t *testing.T) {
	board := NewBoard(&stubToggler{}, zap.NewNop())
	board.Sync(sample())

	out := board.View(Filter{Priority: "high", Status: StatusActive})

	assert.Equal(t, []string{"Llamar", "Informe", "Gimnasio"}, titles(out))
}
