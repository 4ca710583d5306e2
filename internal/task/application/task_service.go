package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	identityDomain "github.com/davicafu/hexatodo/internal/identity/domain"
	sharedCache "github.com/davicafu/hexatodo/internal/shared/infra/platform/cache"
	sharedBus "github.com/davicafu/hexatodo/internal/shared/infra/platform/bus"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

// Nombres de operación que aparecen en los RepositoryError.
const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpToggle = "toggle"
)

// PrincipalSource es el proveedor de identidad tal y como lo consume el repositorio.
type PrincipalSource interface {
	Current() (identityDomain.Principal, bool)
	Subscribe(bufferSize int) (<-chan identityDomain.PrincipalChange, func())
}

// TaskService es el repositorio de tareas: mantiene la colección autoritativa del principal
// activo y media todas las lecturas y escrituras contra el store remoto.
type TaskService struct {
	store    taskDomain.RowStore
	identity PrincipalSource
	cache    sharedCache.Cache
	events   sharedBus.EventBus
	source   string
	cacheTTL time.Duration
	log      *zap.Logger

	mu      sync.RWMutex
	tasks   []taskDomain.Task
	lastErr error
	loading int
	// generación por owner; cada invalidación la incrementa
	gens map[uuid.UUID]uint64
}

type Option func(*TaskService)

// WithEventBus publica un evento por mutación; source identifica a esta instancia.
func WithEventBus(bus sharedBus.EventBus, source string) Option {
	return func(s *TaskService) {
		s.events = bus
		s.source = source
	}
}

// WithCacheTTL fija la vida de la consulta cacheada.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *TaskService) { s.cacheTTL = ttl }
}

// NewTaskService es el constructor del repositorio. cache puede ser nil.
func NewTaskService(store taskDomain.RowStore, identity PrincipalSource, cache sharedCache.Cache, log *zap.Logger, opts ...Option) *TaskService {
	s := &TaskService{
		store:    store,
		identity: identity,
		cache:    cache,
		cacheTTL: 5 * time.Minute,
		log:      log,
		tasks:    []taskDomain.Task{},
		gens:     make(map[uuid.UUID]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Source devuelve el identificador de instancia con el que se firman los eventos.
func (s *TaskService) Source() string {
	return s.source
}

// ---------------- Lecturas ----------------

// ListTasks devuelve las tareas del principal activo. Sin principal devuelve vacío sin llamar al store.
func (s *TaskService) ListTasks(ctx context.Context) ([]taskDomain.Task, error) {
	principal, ok := s.identity.Current()
	if !ok {
		s.commit(uuid.Nil, []taskDomain.Task{})
		return []taskDomain.Task{}, nil
	}
	return s.load(ctx, principal.ID, false)
}

// Refresh descarta la caché del principal activo y vuelve a leer del store.
func (s *TaskService) Refresh(ctx context.Context) error {
	principal, ok := s.identity.Current()
	if !ok {
		s.commit(uuid.Nil, []taskDomain.Task{})
		return nil
	}
	s.invalidate(ctx, principal.ID)
	_, err := s.load(ctx, principal.ID, true)
	return err
}

// Tasks devuelve una copia del snapshot actual.
func (s *TaskService) Tasks() []taskDomain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return taskDomain.CloneTasks(s.tasks)
}

// LastError es el error de la operación más reciente, o nil si tuvo éxito.
func (s *TaskService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// IsLoading indica si hay una lectura contra el store en curso.
func (s *TaskService) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// ---------------- Mutaciones ----------------

// CreateTask valida, inserta la fila del principal y refresca la colección.
func (s *TaskService) CreateTask(ctx context.Context, in taskDomain.CreateTaskInput) (*taskDomain.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, s.fail(OpCreate, taskDomain.KindValidation, err)
	}
	principal, ok := s.identity.Current()
	if !ok {
		return nil, s.fail(OpCreate, taskDomain.KindUnauthenticated, taskDomain.Unauthenticated(OpCreate))
	}

	row := taskDomain.NewTaskRow(principal.ID, in)
	inserted, err := s.store.Insert(ctx, taskDomain.TaskTable, row)
	if err != nil {
		s.log.Error("Failed to create task", zap.String("owner_id", principal.ID.String()), zap.Error(err))
		return nil, s.fail(OpCreate, taskDomain.KindRemoteFailure, err)
	}

	task, err := taskDomain.FromRow(inserted)
	if err != nil {
		s.afterMutation(ctx, principal.ID)
		return nil, s.fail(OpCreate, taskDomain.KindUnknown, err)
	}

	s.succeed()
	s.publish(ctx, taskDomain.TaskCreated, taskDomain.TaskChanged{
		TaskID:  task.ID,
		OwnerID: task.OwnerID,
		Fields:  taskDomain.ChangedFields(row),
	})
	s.afterMutation(ctx, principal.ID)
	return task, nil
}

// UpdateTask aplica un patch sobre la tarea id del principal activo.
func (s *TaskService) UpdateTask(ctx context.Context, id uuid.UUID, in taskDomain.UpdateTaskInput) error {
	return s.update(ctx, OpUpdate, id, in)
}

// ToggleTaskCompletion es un update con solo el campo de completado.
func (s *TaskService) ToggleTaskCompletion(ctx context.Context, id uuid.UUID, isCompleted bool) error {
	return s.update(ctx, OpToggle, id, taskDomain.UpdateTaskInput{IsCompleted: &isCompleted})
}

// DeleteTask borra la tarea id del principal activo. No hay borrado lógico.
func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	principal, ok := s.identity.Current()
	if !ok {
		return s.fail(OpDelete, taskDomain.KindUnauthenticated, taskDomain.Unauthenticated(OpDelete))
	}

	if err := s.store.Delete(ctx, taskDomain.TaskTable, taskDomain.OwnedTaskCriteria(id, principal.ID)); err != nil {
		s.log.Error("Failed to delete task", zap.String("task_id", id.String()), zap.Error(err))
		return s.fail(OpDelete, taskDomain.KindRemoteFailure, err)
	}

	s.succeed()
	s.publish(ctx, taskDomain.TaskDeleted, taskDomain.TaskChanged{TaskID: id, OwnerID: principal.ID})
	s.afterMutation(ctx, principal.ID)
	return nil
}

func (s *TaskService) update(ctx context.Context, op string, id uuid.UUID, in taskDomain.UpdateTaskInput) error {
	if err := in.Validate(); err != nil {
		return s.fail(op, taskDomain.KindValidation, err)
	}
	principal, ok := s.identity.Current()
	if !ok {
		return s.fail(op, taskDomain.KindUnauthenticated, taskDomain.Unauthenticated(op))
	}

	patch := taskDomain.PatchRow(in)
	if err := s.store.Update(ctx, taskDomain.TaskTable, patch, taskDomain.OwnedTaskCriteria(id, principal.ID)); err != nil {
		s.log.Error("Failed to update task",
			zap.String("op", op),
			zap.String("task_id", id.String()),
			zap.Error(err))
		return s.fail(op, taskDomain.KindRemoteFailure, err)
	}

	s.succeed()
	s.publish(ctx, taskDomain.TaskUpdated, taskDomain.TaskChanged{
		TaskID:    id,
		OwnerID:   principal.ID,
		Fields:    taskDomain.ChangedFields(patch),
		Completed: in.IsCompleted,
	})
	s.afterMutation(ctx, principal.ID)
	return nil
}

// ---------------- Sincronización ----------------

// Watch recarga la colección en cada cambio de principal hasta que ctx termine.
func (s *TaskService) Watch(ctx context.Context) {
	changes, unsubscribe := s.identity.Subscribe(8)
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Task watcher stopped")
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				s.handlePrincipalChange(ctx, change)
			}
		}
	}()
}

func (s *TaskService) handlePrincipalChange(ctx context.Context, change identityDomain.PrincipalChange) {
	if change.Previous != nil {
		sharedCache.AsyncCacheDelete(s.cache, taskDomain.TaskListCacheKey(change.Previous.ID), s.log)
	}
	if change.Current == nil {
		s.commit(uuid.Nil, []taskDomain.Task{})
		return
	}
	s.log.Info("Principal changed, reloading tasks", zap.String("owner_id", change.Current.ID.String()))
	if _, err := s.load(ctx, change.Current.ID, true); err != nil {
		s.log.Warn("Reload after principal change failed", zap.Error(err))
	}
}

// HandleRemoteChange invalida y recarga si el cambio lo hizo otra instancia sobre el principal activo.
func (s *TaskService) HandleRemoteChange(ctx context.Context, source string, change taskDomain.TaskChanged) bool {
	if source != "" && source == s.source {
		return false
	}
	principal, ok := s.identity.Current()
	if !ok || principal.ID != change.OwnerID {
		return false
	}
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("Refresh after remote change failed", zap.String("task_id", change.TaskID.String()), zap.Error(err))
	}
	return true
}

// ---------------- internos ----------------

// load lee la colección del owner. Si durante la lectura hubo una invalidación, el resultado
// se devuelve al llamador pero no se guarda en caché ni en el snapshot.
func (s *TaskService) load(ctx context.Context, owner uuid.UUID, force bool) ([]taskDomain.Task, error) {
	key := taskDomain.TaskListCacheKey(owner)
	gen := s.generation(owner)
	if !force && s.cache != nil {
		var cached []taskDomain.Task
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		if hit && err == nil {
			if cached == nil {
				cached = []taskDomain.Task{}
			}
			s.commitGen(owner, gen, cached)
			s.succeed()
			return taskDomain.CloneTasks(cached), nil
		}
	}

	s.setLoading(1)
	defer s.setLoading(-1)

	rows, err := s.store.Select(ctx, taskDomain.TaskTable, taskDomain.OwnerCriteria{OwnerID: owner})
	if err != nil {
		s.log.Error("Failed to list tasks", zap.String("owner_id", owner.String()), zap.Error(err))
		return nil, s.fail(OpList, taskDomain.KindRemoteFailure, err)
	}

	tasks := make([]taskDomain.Task, 0, len(rows))
	for _, row := range rows {
		task, err := taskDomain.FromRow(row)
		if err != nil {
			return nil, s.fail(OpList, taskDomain.KindUnknown, err)
		}
		// solo filas del principal, aunque el store devuelva más
		if task.OwnerID != owner {
			s.log.Warn("Dropping row owned by another principal", zap.String("task_id", task.ID.String()))
			continue
		}
		tasks = append(tasks, *task)
	}

	if s.generation(owner) != gen {
		s.log.Debug("Discarding stale task list", zap.String("owner_id", owner.String()))
		return tasks, nil
	}
	if s.cache != nil {
		sharedCache.SetWithTimeout(ctx, s.cache, key, tasks, s.cacheTTL, s.log)
		// una invalidación entre la comprobación y el Set no debe quedar tapada
		if s.generation(owner) != gen {
			s.invalidate(ctx, owner)
			return tasks, nil
		}
	}
	s.commitGen(owner, gen, tasks)
	s.succeed()
	return taskDomain.CloneTasks(tasks), nil
}

// afterMutation invalida la consulta del owner y la vuelve a pedir si sigue siendo el principal activo.
// Un fallo del refetch queda en LastError pero no anula la mutación.
func (s *TaskService) afterMutation(ctx context.Context, owner uuid.UUID) {
	s.invalidate(ctx, owner)

	principal, ok := s.identity.Current()
	if !ok || principal.ID != owner {
		return
	}
	if _, err := s.load(ctx, owner, true); err != nil {
		s.log.Warn("Refetch after mutation failed", zap.String("owner_id", owner.String()), zap.Error(err))
	}
}

func (s *TaskService) invalidate(ctx context.Context, owner uuid.UUID) {
	s.mu.Lock()
	s.gens[owner]++
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	key := taskDomain.TaskListCacheKey(owner)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn("Cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

// commit reemplaza el snapshot entero. Se descarta si el principal ya cambió.
func (s *TaskService) commit(owner uuid.UUID, tasks []taskDomain.Task) {
	if owner != uuid.Nil {
		if principal, ok := s.identity.Current(); !ok || principal.ID != owner {
			return
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = taskDomain.CloneTasks(tasks)
}

// commitGen es commit condicionado a que no haya habido invalidaciones desde gen.
func (s *TaskService) commitGen(owner uuid.UUID, gen uint64, tasks []taskDomain.Task) {
	if principal, ok := s.identity.Current(); !ok || principal.ID != owner {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[owner] != gen {
		return
	}
	s.tasks = taskDomain.CloneTasks(tasks)
}

func (s *TaskService) generation(owner uuid.UUID) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[owner]
}

func (s *TaskService) publish(ctx context.Context, eventType string, change taskDomain.TaskChanged) {
	if s.events == nil {
		return
	}
	evt, err := taskDomain.NewTaskEvent(eventType, s.source, change)
	if err == nil {
		err = s.events.Publish(ctx, evt)
	}
	if err != nil {
		s.log.Warn("Failed to publish task event",
			zap.String("type", eventType),
			zap.String("task_id", change.TaskID.String()),
			zap.Error(err))
	}
}

func (s *TaskService) fail(op string, kind taskDomain.ErrorKind, err error) error {
	repoErr := taskDomain.NewRepositoryError(op, kind, err)
	s.mu.Lock()
	s.lastErr = repoErr
	s.mu.Unlock()
	return repoErr
}

func (s *TaskService) succeed() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *TaskService) setLoading(delta int) {
	s.mu.Lock()
	s.loading += delta
	s.mu.Unlock()
}
