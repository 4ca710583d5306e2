package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL
	_ "modernc.org/sqlite"             // Driver de SQLite sin cgo

	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

// ColumnKind indica cómo normalizar el valor que devuelve el driver.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindUUID
	KindBool
	KindDate
	KindTimestamp
)

type Column struct {
	Name string
	Kind ColumnKind
}

// Table describe una tabla gestionada por el store: su clave y las columnas que mantiene él mismo.
type Table struct {
	Name      string
	Key       string
	CreatedAt string
	UpdatedAt string
	Columns   []Column
}

func (t Table) column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t Table) names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// TasksTable es la tabla de tareas en forma wire.
var TasksTable = Table{
	Name:      taskDomain.TaskTable,
	Key:       taskDomain.ColID,
	CreatedAt: taskDomain.ColCreatedAt,
	UpdatedAt: taskDomain.ColUpdatedAt,
	Columns: []Column{
		{taskDomain.ColID, KindUUID},
		{taskDomain.ColOwnerID, KindUUID},
		{taskDomain.ColTitle, KindText},
		{taskDomain.ColDescription, KindText},
		{taskDomain.ColIsCompleted, KindBool},
		{taskDomain.ColPriority, KindText},
		{taskDomain.ColDueDate, KindDate},
		{taskDomain.ColCreatedAt, KindTimestamp},
		{taskDomain.ColUpdatedAt, KindTimestamp},
	},
}

const postgresTasksDDL = `
CREATE TABLE IF NOT EXISTS tasks (
    id UUID PRIMARY KEY,
    owner_id UUID NOT NULL,
    title VARCHAR(100) NOT NULL,
    description VARCHAR(500),
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
    due_date DATE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_owner_id ON tasks (owner_id);`

// En SQLite fechas y uuids se guardan como TEXT en su forma wire.
const sqliteTasksDDL = `
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    is_completed INTEGER NOT NULL DEFAULT 0,
    priority TEXT NOT NULL DEFAULT 'medium',
    due_date TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_owner_id ON tasks (owner_id);`

// InitTaskSchema crea la tabla de tareas si no existe.
func InitTaskSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	ddl := postgresTasksDDL
	if dialect.Name() == SQLite.Name() {
		ddl = sqliteTasksDDL
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create tasks table (%s): %w", dialect.Name(), err)
	}
	return nil
}

// OpenPostgres abre la conexión con el driver pgx.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// OpenSQLite abre (o crea) la base de datos en path. ":memory:" sirve para tests.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// una sola conexión: SQLite serializa escrituras y ":memory:" es por conexión
	db.SetMaxOpenConns(1)
	return db, nil
}
