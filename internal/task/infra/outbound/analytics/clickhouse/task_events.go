package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

// TaskAnalyticsRepo implementa TaskAnalyticsRepository sobre el log de eventos de ClickHouse.
type TaskAnalyticsRepo struct {
	db *sql.DB
}

// Open conecta con ClickHouse y comprueba la conexión.
func Open(ctx context.Context, addr, dbName string) (*sql.DB, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}
	return conn, nil
}

func NewTaskAnalyticsRepo(db *sql.DB) *TaskAnalyticsRepo {
	return &TaskAnalyticsRepo{db: db}
}

// InitSchema crea la tabla del log si no existe. Se particiona por mes y se ordena por propietario.
func (r *TaskAnalyticsRepo) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS task_events_log (
			event_id    UUID,
			event_type  LowCardinality(String),
			task_id     UUID,
			owner_id    UUID,
			fields      Array(String),
			completed   Nullable(Bool),
			source      String,
			occurred_at DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(occurred_at)
		ORDER BY (owner_id, occurred_at);
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// LogBatch inserta los eventos en un único lote; si uno falla se descarta el lote entero.
func (r *TaskAnalyticsRepo) LogBatch(ctx context.Context, records []taskDomain.TaskEventRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO task_events_log (event_id, event_type, task_id, owner_id, fields, completed, source, occurred_at)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		fields := rec.Fields
		if fields == nil {
			fields = []string{}
		}
		occurred := rec.OccurredAt
		if occurred.IsZero() {
			occurred = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			rec.EventID,
			rec.EventType,
			rec.TaskID,
			rec.OwnerID,
			fields,
			rec.Completed,
			rec.Source,
			occurred,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for event %s: %w", rec.EventID, err)
		}
	}

	return tx.Commit()
}

// GetDailyTrend cuenta por día las tareas creadas y las marcadas como completadas por un propietario.
func (r *TaskAnalyticsRepo) GetDailyTrend(ctx context.Context, owner uuid.UUID, start, end time.Time) ([]taskDomain.DailyTaskTrend, error) {
	query := `
		SELECT
			toStartOfDay(occurred_at) AS day,
			countIf(event_type = ?) AS created,
			countIf(event_type = ? AND completed = true) AS completed
		FROM task_events_log
		WHERE owner_id = ? AND occurred_at BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.db.QueryContext(ctx, query, taskDomain.TaskCreated, taskDomain.TaskUpdated, owner, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trends := []taskDomain.DailyTaskTrend{}
	for rows.Next() {
		var trend taskDomain.DailyTaskTrend
		if err := rows.Scan(&trend.Day, &trend.Created, &trend.Completed); err != nil {
			return nil, err
		}
		trends = append(trends, trend)
	}
	return trends, rows.Err()
}

var _ taskDomain.TaskAnalyticsRepository = (*TaskAnalyticsRepo)(nil)
