package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/hexatodo/internal/shared/domain"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

// StoreCall registra una llamada al store con su payload tal y como llegó.
type StoreCall struct {
	Method     string
	Table      string
	Row        sharedDomain.Row
	Conditions []sharedDomain.Criterion
}

// FakeRowStore simula el store remoto de filas: asigna id y timestamps al insertar,
// aplica los criterios en memoria y permite inyectar errores por método.
type FakeRowStore struct {
	mu     sync.Mutex
	tables map[string][]sharedDomain.Row
	calls  []StoreCall
	now    func() time.Time

	SelectErr error
	InsertErr error
	UpdateErr error
	DeleteErr error

	// IgnoreCriteria hace que Select devuelva todas las filas de la tabla.
	IgnoreCriteria bool

	// AfterSelect, si no es nil, se ejecuta con la foto ya tomada y sin el lock,
	// antes de devolverla. Sirve para simular lecturas lentas.
	AfterSelect func()
}

var _ taskDomain.RowStore = (*FakeRowStore)(nil)

func NewFakeRowStore() *FakeRowStore {
	return &FakeRowStore{
		tables: make(map[string][]sharedDomain.Row),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Seed añade filas directamente, sin registrar llamadas.
func (s *FakeRowStore) Seed(table string, rows ...sharedDomain.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], r.Clone())
	}
}

// Rows devuelve una copia de las filas de la tabla.
func (s *FakeRowStore) Rows(table string) []sharedDomain.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sharedDomain.Row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, r.Clone())
	}
	return out
}

// Calls devuelve las llamadas registradas.
func (s *FakeRowStore) Calls() []StoreCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StoreCall(nil), s.calls...)
}

// CallsTo filtra las llamadas por método.
func (s *FakeRowStore) CallsTo(method string) []StoreCall {
	var out []StoreCall
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (s *FakeRowStore) record(method, table string, row sharedDomain.Row, criteria sharedDomain.Criteria) {
	s.calls = append(s.calls, StoreCall{
		Method:     method,
		Table:      table,
		Row:        row.Clone(),
		Conditions: sharedDomain.Conditions(criteria),
	})
}

func (s *FakeRowStore) Select(ctx context.Context, table string, criteria sharedDomain.Criteria) ([]sharedDomain.Row, error) {
	out, hook, err := s.snapshot(table, criteria)
	if hook != nil {
		hook()
	}
	return out, err
}

func (s *FakeRowStore) snapshot(table string, criteria sharedDomain.Criteria) ([]sharedDomain.Row, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("select", table, nil, criteria)
	if s.SelectErr != nil {
		return nil, s.AfterSelect, s.SelectErr
	}

	var out []sharedDomain.Row
	for _, r := range s.tables[table] {
		if s.IgnoreCriteria || sharedDomain.MatchRow(r, criteria) {
			out = append(out, r.Clone())
		}
	}
	return out, s.AfterSelect, nil
}

// SetAfterSelect instala el hook de Select de forma segura entre goroutines.
func (s *FakeRowStore) SetAfterSelect(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AfterSelect = hook
}

func (s *FakeRowStore) Insert(ctx context.Context, table string, row sharedDomain.Row) (sharedDomain.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("insert", table, row, nil)
	if s.InsertErr != nil {
		return nil, s.InsertErr
	}

	stored := row.Clone()
	now := taskDomain.FormatTimestamp(s.now())
	if _, ok := stored["id"]; !ok {
		stored["id"] = uuid.NewString()
	}
	stored["created_at"] = now
	stored["updated_at"] = now
	s.tables[table] = append(s.tables[table], stored)
	return stored.Clone(), nil
}

func (s *FakeRowStore) Update(ctx context.Context, table string, patch sharedDomain.Row, criteria sharedDomain.Criteria) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("update", table, patch, criteria)
	if s.UpdateErr != nil {
		return s.UpdateErr
	}

	now := taskDomain.FormatTimestamp(s.now())
	for _, r := range s.tables[table] {
		if !sharedDomain.MatchRow(r, criteria) {
			continue
		}
		for k, v := range patch {
			r[k] = v
		}
		r["updated_at"] = now
	}
	return nil
}

func (s *FakeRowStore) Delete(ctx context.Context, table string, criteria sharedDomain.Criteria) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("delete", table, nil, criteria)
	if s.DeleteErr != nil {
		return s.DeleteErr
	}

	kept := s.tables[table][:0]
	for _, r := range s.tables[table] {
		if !sharedDomain.MatchRow(r, criteria) {
			kept = append(kept, r)
		}
	}
	s.tables[table] = kept
	return nil
}

// SetErrors permite cambiar los errores inyectados de forma segura entre goroutines.
func (s *FakeRowStore) SetErrors(selectErr, insertErr, updateErr, deleteErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SelectErr, s.InsertErr, s.UpdateErr, s.DeleteErr = selectErr, insertErr, updateErr, deleteErr
}
