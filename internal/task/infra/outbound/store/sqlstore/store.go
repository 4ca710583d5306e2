package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/hexatodo/internal/shared/domain"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

// Store implementa RowStore sobre database/sql. La misma implementación sirve a PostgreSQL y SQLite.
type Store struct {
	db      *sql.DB
	dialect Dialect
	tables  map[string]Table
	now     func() time.Time
	log     *zap.Logger
}

var _ taskDomain.RowStore = (*Store)(nil)

// NewStore crea el store. Solo se aceptan operaciones sobre las tablas registradas.
func NewStore(db *sql.DB, dialect Dialect, log *zap.Logger, tables ...Table) *Store {
	registered := make(map[string]Table, len(tables))
	for _, t := range tables {
		registered[t.Name] = t
	}
	return &Store{
		db:      db,
		dialect: dialect,
		tables:  registered,
		now:     time.Now,
		log:     log,
	}
}

func (s *Store) Select(ctx context.Context, table string, criteria sharedDomain.Criteria) ([]sharedDomain.Row, error) {
	t, err := s.table(table)
	if err != nil {
		return nil, err
	}

	where, args, err := s.where(t, criteria, 1)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s DESC", strings.Join(t.names(), ", "), t.Name, where, t.CreatedAt)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	defer rows.Close()

	out := []sharedDomain.Row{}
	for rows.Next() {
		row, err := s.scan(t, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	return out, nil
}

// Insert completa id y marcas de tiempo si faltan y devuelve la fila tal y como quedó guardada.
func (s *Store) Insert(ctx context.Context, table string, row sharedDomain.Row) (sharedDomain.Row, error) {
	t, err := s.table(table)
	if err != nil {
		return nil, err
	}

	values := row.Clone()
	if values == nil {
		values = sharedDomain.Row{}
	}
	if v, ok := values[t.Key]; !ok || v == nil {
		values[t.Key] = uuid.NewString()
	}
	now := s.timestamp()
	for _, col := range []string{t.CreatedAt, t.UpdatedAt} {
		if _, ok := values[col]; !ok {
			values[col] = now
		}
	}

	cols := values.Keys()
	sort.Strings(cols)
	placeholders := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		if _, ok := t.column(col); !ok {
			return nil, fmt.Errorf("insert into %s: unknown column %q", t.Name, col)
		}
		placeholders[i] = s.dialect.Placeholder(i + 1)
		args[i] = values[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(t.names(), ", "))

	stored, err := s.scan(t, s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", t.Name, err)
	}
	return stored, nil
}

// Update aplica el parche a las filas que cumplen los criterios y renueva updated_at.
func (s *Store) Update(ctx context.Context, table string, patch sharedDomain.Row, criteria sharedDomain.Criteria) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}

	values := patch.Clone()
	if values == nil {
		values = sharedDomain.Row{}
	}
	if _, ok := values[t.Key]; ok {
		return fmt.Errorf("update %s: column %q is immutable", t.Name, t.Key)
	}
	values[t.UpdatedAt] = s.timestamp()

	cols := values.Keys()
	sort.Strings(cols)
	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols))
	for i, col := range cols {
		if _, ok := t.column(col); !ok {
			return fmt.Errorf("update %s: unknown column %q", t.Name, col)
		}
		sets[i] = fmt.Sprintf("%s = %s", col, s.dialect.Placeholder(i+1))
		args = append(args, values[col])
	}

	where, whereArgs, err := s.where(t, criteria, len(args)+1)
	if err != nil {
		return err
	}
	if where == "" {
		return fmt.Errorf("update %s: refusing unfiltered update", t.Name)
	}

	query := fmt.Sprintf("UPDATE %s SET %s%s", t.Name, strings.Join(sets, ", "), where)
	res, err := s.db.ExecContext(ctx, query, append(args, whereArgs...)...)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.log.Debug("Update sin filas afectadas", zap.String("table", t.Name))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, table string, criteria sharedDomain.Criteria) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}

	where, args, err := s.where(t, criteria, 1)
	if err != nil {
		return err
	}
	if where == "" {
		return fmt.Errorf("delete %s: refusing unfiltered delete", t.Name)
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", t.Name, where), args...); err != nil {
		return fmt.Errorf("delete %s: %w", t.Name, err)
	}
	return nil
}

func (s *Store) table(name string) (Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return Table{}, fmt.Errorf("unknown table %q", name)
	}
	return t, nil
}

// Marca de tiempo con precisión de microsegundos, la que guarda PostgreSQL.
func (s *Store) timestamp() string {
	return taskDomain.FormatTimestamp(s.now().Truncate(time.Microsecond))
}

// where traduce los criterios a una cláusula WHERE; first es el índice del primer placeholder.
func (s *Store) where(t Table, criteria sharedDomain.Criteria, first int) (string, []interface{}, error) {
	conds := sharedDomain.Conditions(criteria)
	if len(conds) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(conds))
	args := make([]interface{}, 0, len(conds))
	argPos := first
	for _, cond := range conds {
		if _, ok := t.column(cond.Field); !ok {
			return "", nil, fmt.Errorf("%s: unknown filter column %q", t.Name, cond.Field)
		}
		switch cond.Op {
		case sharedDomain.OpEq:
			if cond.Value == nil {
				clauses = append(clauses, cond.Field+" IS NULL")
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s = %s", cond.Field, s.dialect.Placeholder(argPos)))
			args = append(args, cond.Value)
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", cond.Op)
		}
		argPos++
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scan(t Table, src scanner) (sharedDomain.Row, error) {
	raw := make([]interface{}, len(t.Columns))
	ptrs := make([]interface{}, len(t.Columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := src.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(sharedDomain.Row, len(t.Columns))
	for i, col := range t.Columns {
		row[col.Name] = normalize(col.Kind, raw[i])
	}
	return row, nil
}

// normalize lleva el valor del driver a la forma wire: texto, bool o nil.
func normalize(kind ColumnKind, v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		if kind == KindDate {
			return val.Format(taskDomain.DateLayout)
		}
		return taskDomain.FormatTimestamp(val)
	case int64:
		if kind == KindBool {
			return val != 0
		}
		return val
	case [16]byte:
		return uuid.UUID(val).String()
	}
	return v
}
