package sqlstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/hexatodo/internal/shared/domain"
	"github.com/davicafu/hexatodo/internal/shared/infra/utils"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

func setupSQLite(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitTaskSchema(context.Background(), db, SQLite))
	return NewStore(db, SQLite, zap.NewNop(), TasksTable)
}

func setupPostgres(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL no definido, se omite el test de PostgreSQL")
	}
	db, err := OpenPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitTaskSchema(context.Background(), db, Postgres))
	return NewStore(db, Postgres, zap.NewNop(), TasksTable)
}

func newTaskRow(owner uuid.UUID, title string) sharedDomain.Row {
	return taskDomain.NewTaskRow(owner, taskDomain.CreateTaskInput{
		Title:       title,
		Description: utils.Ptr("detalle"),
		Priority:    taskDomain.PriorityHigh,
	})
}

func runStoreContract(t *testing.T, store *Store) {
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	// --- Insert ---
	inserted, err := store.Insert(ctx, taskDomain.TaskTable, newTaskRow(owner, "Comprar pan"))
	require.NoError(t, err)
	_, err = store.Insert(ctx, taskDomain.TaskTable, newTaskRow(other, "Ajena"))
	require.NoError(t, err)

	task, err := taskDomain.FromRow(inserted)
	require.NoError(t, err, "la fila devuelta debe ser decodificable")
	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, owner, task.OwnerID)
	assert.Equal(t, "Comprar pan", task.Title)
	assert.False(t, task.IsCompleted)
	assert.Equal(t, taskDomain.PriorityHigh, task.Priority)
	assert.False(t, task.CreatedAt.IsZero())

	// --- Select por propietario ---
	rows, err := store.Select(ctx, taskDomain.TaskTable, taskDomain.OwnerCriteria{OwnerID: owner})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, task.ID.String(), rows[0][taskDomain.ColID])

	// --- Update con parche parcial ---
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	patch := taskDomain.PatchRow(taskDomain.UpdateTaskInput{IsCompleted: utils.Ptr(true), DueDate: &due})
	require.NoError(t, store.Update(ctx, taskDomain.TaskTable, patch, taskDomain.OwnedTaskCriteria(task.ID, owner)))

	rows, err = store.Select(ctx, taskDomain.TaskTable, taskDomain.IDCriteria{ID: task.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	updated, err := taskDomain.FromRow(rows[0])
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)
	require.NotNil(t, updated.DueDate)
	assert.True(t, due.Equal(*updated.DueDate))
	assert.Equal(t, "Comprar pan", updated.Title, "los campos ausentes no cambian")

	// --- Update de otro propietario: no afecta y no falla ---
	require.NoError(t, store.Update(ctx, taskDomain.TaskTable, sharedDomain.Row{taskDomain.ColTitle: "X"}, taskDomain.OwnedTaskCriteria(task.ID, other)))

	// --- Delete ---
	require.NoError(t, store.Delete(ctx, taskDomain.TaskTable, taskDomain.OwnedTaskCriteria(task.ID, owner)))
	rows, err = store.Select(ctx, taskDomain.TaskTable, taskDomain.OwnerCriteria{OwnerID: owner})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = store.Select(ctx, taskDomain.TaskTable, taskDomain.OwnerCriteria{OwnerID: other})
	require.NoError(t, err)
	assert.Len(t, rows, 1, "las tareas de otros propietarios siguen intactas")
}

func TestStore_SQLite(t *testing.T) {
	runStoreContract(t, setupSQLite(t))
}

func TestStore_Postgres(t *testing.T) {
	store := setupPostgres(t)
	runStoreContract(t, store)
}

func TestStore_RejectsUnsafeOperations(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()

	_, err := store.Select(ctx, "users", nil)
	assert.Error(t, err, "tabla no registrada")

	err = store.Update(ctx, taskDomain.TaskTable, sharedDomain.Row{taskDomain.ColTitle: "x"}, nil)
	assert.Error(t, err, "update sin filtro")

	err = store.Delete(ctx, taskDomain.TaskTable, nil)
	assert.Error(t, err, "delete sin filtro")

	err = store.Update(ctx, taskDomain.TaskTable, sharedDomain.Row{taskDomain.ColID: uuid.NewString()}, taskDomain.IDCriteria{ID: uuid.New()})
	assert.Error(t, err, "la clave primaria es inmutable")

	_, err = store.Insert(ctx, taskDomain.TaskTable, sharedDomain.Row{"color": "rojo"})
	assert.Error(t, err, "columna desconocida")

	_, err = store.Select(ctx, taskDomain.TaskTable, sharedDomain.And(taskDomain.OwnerCriteria{OwnerID: uuid.New()}, fieldEq("color", "rojo")))
	assert.Error(t, err, "filtro sobre columna desconocida")
}

func TestStore_RejectsUnknownOperator(t *testing.T) {
	store := setupSQLite(t)

	_, err := store.Select(context.Background(), taskDomain.TaskTable,
		condCriteria{{Field: taskDomain.ColTitle, Op: sharedDomain.Operator("ILIKE"), Value: "%pan%"}})

	assert.ErrorContains(t, err, "unsupported operator")
}

func TestNormalize(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, true, normalize(KindBool, int64(1)))
	assert.Equal(t, "2025-01-02", normalize(KindDate, ts))
	assert.Equal(t, "2025-01-02T03:04:05Z", normalize(KindTimestamp, ts))
	assert.Equal(t, "texto", normalize(KindText, []byte("texto")))
	assert.Nil(t, normalize(KindText, nil))
}

type condCriteria []sharedDomain.Criterion

func (c condCriteria) ToConditions() []sharedDomain.Criterion { return c }

func fieldEq(field string, value interface{}) sharedDomain.Criteria {
	return condCriteria{{Field: field, Op: sharedDomain.OpEq, Value: value}}
}
