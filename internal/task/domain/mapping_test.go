package domain

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedDomain "github.com/davicafu/hexatodo/internal/shared/domain"
)

func canonicalRow() sharedDomain.Row {
	return sharedDomain.Row{
		ColID:          uuid.NewString(),
		ColOwnerID:     uuid.NewString(),
		ColTitle:       "Comprar pan",
		ColDescription: "integral",
		ColIsCompleted: true,
		ColPriority:    "high",
		ColDueDate:     "2024-05-01",
		ColCreatedAt:   "2024-04-01T10:00:00.123456Z",
		ColUpdatedAt:   "2024-04-02T11:30:00Z",
	}
}

func TestFieldMap_CoversEveryTaskField(t *testing.T) {
	typ := reflect.TypeOf(Task{})
	seen := map[string]bool{}

	for i := 0; i < typ.NumField(); i++ {
		name := strings.Split(typ.Field(i).Tag.Get("json"), ",")[0]
		wire, ok := FieldMap[name]
		assert.Truef(t, ok, "el campo %s no tiene columna wire", name)
		assert.Falsef(t, seen[wire], "columna %s duplicada", wire)
		seen[wire] = true
	}
	assert.Len(t, FieldMap, typ.NumField())
	assert.ElementsMatch(t, Columns, keys(seen))
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestMapping_WireToAppToWireIsIdentity(t *testing.T) {
	rows := []sharedDomain.Row{canonicalRow()}

	sparse := canonicalRow()
	sparse[ColDescription] = nil
	sparse[ColDueDate] = nil
	sparse[ColIsCompleted] = false
	rows = append(rows, sparse)

	empty := canonicalRow()
	empty[ColDescription] = ""
	rows = append(rows, empty)

	for _, row := range rows {
		task, err := FromRow(row)
		require.NoError(t, err)
		assert.Equal(t, row, ToRow(*task))
	}
}

func TestMapping_AppToWireToAppIsIdentity(t *testing.T) {
	desc := "notas"
	due := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	task := Task{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Title:       "Revisar PR",
		Description: &desc,
		Priority:    PriorityLow,
		DueDate:     &due,
		CreatedAt:   time.Date(2024, 1, 1, 8, 0, 0, 42, time.UTC),
		UpdatedAt:   time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
	}

	back, err := FromRow(ToRow(task))

	require.NoError(t, err)
	assert.Equal(t, task, *back)
}

func TestFromRow_AcceptsDriverTypes(t *testing.T) {
	created := time.Date(2024, 4, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	row := canonicalRow()
	row[ColIsCompleted] = int64(1)
	row[ColDueDate] = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	row[ColCreatedAt] = created
	row[ColTitle] = []byte("bytes")

	task, err := FromRow(row)

	require.NoError(t, err)
	assert.True(t, task.IsCompleted)
	assert.Equal(t, "2024-05-01", task.DueDate.Format(DateLayout))
	assert.Equal(t, created.UTC(), task.CreatedAt)
	assert.Equal(t, "bytes", task.Title)
}

func TestFromRow_LegacyTimestampDueDate(t *testing.T) {
	row := canonicalRow()
	row[ColDueDate] = "2024-05-01T22:00:00.000Z"

	task, err := FromRow(row)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *task.DueDate)
}

func TestFromRow_Errors(t *testing.T) {
	_, err := FromRow(nil)
	assert.Error(t, err)

	bad := canonicalRow()
	bad[ColID] = "no-es-uuid"
	_, err = FromRow(bad)
	assert.ErrorContains(t, err, ColID)

	badPriority := canonicalRow()
	badPriority[ColPriority] = "urgent"
	_, err = FromRow(badPriority)
	assert.ErrorContains(t, err, ColPriority)
}

func TestNewTaskRow_SetsOwnerAndDefaults(t *testing.T) {
	owner := uuid.New()
	empty := ""

	row := NewTaskRow(owner, CreateTaskInput{Title: "  Tarea  ", Description: &empty})

	assert.Equal(t, sharedDomain.Row{
		ColOwnerID:     owner.String(),
		ColTitle:       "Tarea",
		ColDescription: nil,
		ColIsCompleted: false,
		ColPriority:    "medium",
		ColDueDate:     nil,
	}, row)
}

func TestPatchRow_OnlyPresentFields(t *testing.T) {
	high := PriorityHigh

	patch := PatchRow(UpdateTaskInput{Priority: &high})

	assert.Equal(t, sharedDomain.Row{ColPriority: "high"}, patch, "el payload debe ser exactamente {priority}")
}

func TestPatchRow_ClearsAndSets(t *testing.T) {
	done := true
	empty := ""
	due := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	cleared := PatchRow(UpdateTaskInput{Description: &empty, ClearDueDate: true, DueDate: &due})
	assert.Equal(t, sharedDomain.Row{ColDescription: nil, ColDueDate: nil}, cleared)

	set := PatchRow(UpdateTaskInput{DueDate: &due, IsCompleted: &done})
	assert.Equal(t, sharedDomain.Row{ColDueDate: "2024-07-01", ColIsCompleted: true}, set)
}

func TestChangedFields(t *testing.T) {
	fields := ChangedFields(sharedDomain.Row{ColIsCompleted: true, ColTitle: "x"})

	assert.Equal(t, []string{"title", "isCompleted"}, fields)
}
