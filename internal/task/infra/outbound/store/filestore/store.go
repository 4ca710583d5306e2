package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/hexatodo/internal/shared/domain"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

// Store es un RowStore que guarda todas las tablas en un único fichero JSON: {"tasks": [fila, ...]}.
// Pensado para desarrollo local y demos sin base de datos.
type Store struct {
	filePath string
	mu       sync.Mutex // serializa lectura-modificación-escritura del fichero
	now      func() time.Time
	log      *zap.Logger
}

var _ taskDomain.RowStore = (*Store)(nil)

type tables map[string][]sharedDomain.Row

func NewStore(filePath string, log *zap.Logger) *Store {
	return &Store{filePath: filePath, now: time.Now, log: log}
}

func (s *Store) Select(ctx context.Context, table string, criteria sharedDomain.Criteria) ([]sharedDomain.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}

	out := []sharedDomain.Row{}
	for _, row := range data[table] {
		if sharedDomain.MatchRow(row, criteria) {
			out = append(out, row.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sharedDomain.ValueString(out[i][taskDomain.ColCreatedAt]) > sharedDomain.ValueString(out[j][taskDomain.ColCreatedAt])
	})
	return out, nil
}

func (s *Store) Insert(ctx context.Context, table string, row sharedDomain.Row) (sharedDomain.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}

	stored := row.Clone()
	if stored == nil {
		stored = sharedDomain.Row{}
	}
	if v, ok := stored[taskDomain.ColID]; !ok || v == nil {
		stored[taskDomain.ColID] = uuid.NewString()
	}
	now := taskDomain.FormatTimestamp(s.now())
	for _, col := range []string{taskDomain.ColCreatedAt, taskDomain.ColUpdatedAt} {
		if _, ok := stored[col]; !ok {
			stored[col] = now
		}
	}

	data[table] = append(data[table], stored)
	if err := s.save(data); err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

func (s *Store) Update(ctx context.Context, table string, patch sharedDomain.Row, criteria sharedDomain.Criteria) error {
	if len(sharedDomain.Conditions(criteria)) == 0 {
		return fmt.Errorf("update %s: refusing unfiltered update", table)
	}
	if _, ok := patch[taskDomain.ColID]; ok {
		return fmt.Errorf("update %s: column %q is immutable", table, taskDomain.ColID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}

	now := taskDomain.FormatTimestamp(s.now())
	matched := 0
	for _, row := range data[table] {
		if !sharedDomain.MatchRow(row, criteria) {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
		row[taskDomain.ColUpdatedAt] = now
		matched++
	}
	if matched == 0 {
		return nil
	}
	return s.save(data)
}

func (s *Store) Delete(ctx context.Context, table string, criteria sharedDomain.Criteria) error {
	if len(sharedDomain.Conditions(criteria)) == 0 {
		return fmt.Errorf("delete %s: refusing unfiltered delete", table)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}

	kept := data[table][:0]
	for _, row := range data[table] {
		if !sharedDomain.MatchRow(row, criteria) {
			kept = append(kept, row)
		}
	}
	if len(kept) == len(data[table]) {
		return nil
	}
	data[table] = kept
	return s.save(data)
}

// load lee el fichero. Si no existe o está vacío se empieza sin tablas.
func (s *Store) load() (tables, error) {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return tables{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.filePath, err)
	}
	if len(raw) == 0 {
		return tables{}, nil
	}

	var data tables
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.filePath, err)
	}
	if data == nil {
		data = tables{}
	}
	return data, nil
}

// save escribe en un fichero temporal y lo renombra para no dejar el JSON a medias.
func (s *Store) save(data tables) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("write %s: %w", s.filePath, err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", s.filePath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", s.filePath, err)
	}
	s.log.Debug("Fichero de tareas guardado", zap.String("path", s.filePath))
	return nil
}
