package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/hexatodo/internal/shared/events"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

type recordedChange struct {
	source string
	change taskDomain.TaskChanged
}

type fakeRepo struct {
	changes []recordedChange
}

func (f *fakeRepo) HandleRemoteChange(ctx context.Context, source string, change taskDomain.TaskChanged) bool {
	f.changes = append(f.changes, recordedChange{source, change})
	return true
}

type fakeAnalytics struct {
	records []taskDomain.TaskEventRecord
	err     error
}

func (f *fakeAnalytics) LogBatch(ctx context.Context, records []taskDomain.TaskEventRecord) error {
	f.records = append(f.records, records...)
	return f.err
}

func (f *fakeAnalytics) GetDailyTrend(ctx context.Context, owner uuid.UUID, start, end time.Time) ([]taskDomain.DailyTaskTrend, error) {
	return nil, nil
}

func payload(t *testing.T, eventType string, change taskDomain.TaskChanged) []byte {
	t.Helper()
	evt, err := taskDomain.NewTaskEvent(eventType, "instancia-b", change)
	require.NoError(t, err)
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return data
}

func TestTaskConsumer_ForwardsChangeAndLogsAnalytics(t *testing.T) {
	// Arrange
	repo := &fakeRepo{}
	analytics := &fakeAnalytics{}
	consumer := NewTaskConsumer(repo, analytics, zap.NewNop())
	done := true
	change := taskDomain.TaskChanged{TaskID: uuid.New(), OwnerID: uuid.New(), Fields: []string{"isCompleted"}, Completed: &done}

	// Act
	consumer.HandleMessage(context.Background(), change.OwnerID.String(), payload(t, taskDomain.TaskUpdated, change))

	// Assert
	require.Len(t, repo.changes, 1)
	assert.Equal(t, "instancia-b", repo.changes[0].source)
	assert.Equal(t, change, repo.changes[0].change)

	require.Len(t, analytics.records, 1)
	rec := analytics.records[0]
	assert.Equal(t, taskDomain.TaskUpdated, rec.EventType)
	assert.Equal(t, change.TaskID, rec.TaskID)
	assert.True(t, *rec.Completed)
}

func TestTaskConsumer_AnalyticsFailureDoesNotBlockRefresh(t *testing.T) {
	repo := &fakeRepo{}
	consumer := NewTaskConsumer(repo, &fakeAnalytics{err: errors.New("down")}, zap.NewNop())

	consumer.HandleMessage(context.Background(), "", payload(t, taskDomain.TaskDeleted, taskDomain.TaskChanged{TaskID: uuid.New()}))

	assert.Len(t, repo.changes, 1)
}

func TestTaskConsumer_IgnoresGarbageAndForeignTypes(t *testing.T) {
	repo := &fakeRepo{}
	consumer := NewTaskConsumer(repo, nil, zap.NewNop())

	consumer.HandleMessage(context.Background(), "", []byte("{"))

	foreign, err := sharedEvents.NewIntegrationEvent("user.created", "x", "k", map[string]string{})
	require.NoError(t, err)
	data, _ := json.Marshal(foreign)
	consumer.HandleMessage(context.Background(), "", data)

	bad := sharedEvents.IntegrationEvent{Type: taskDomain.TaskCreated, Data: json.RawMessage(`"no es un objeto"`)}
	data, _ = json.Marshal(bad)
	consumer.HandleMessage(context.Background(), "", data)

	assert.Empty(t, repo.changes)
}
