package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/hexatodo/internal/shared/domain"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

// Los documentos guardan la fila wire tal cual; la clave primaria vive en _id.
const docID = "_id"

// Store implementa RowStore sobre una base de datos de MongoDB. Cada tabla es una colección.
type Store struct {
	db  *mongo.Database
	now func() time.Time
	log *zap.Logger
}

var _ taskDomain.RowStore = (*Store)(nil)

// NewStore comprueba la conexión y devuelve el store.
func NewStore(ctx context.Context, client *mongo.Client, dbName string, log *zap.Logger) (*Store, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}
	return &Store{db: client.Database(dbName), now: time.Now, log: log}, nil
}

// InitTaskIndexes crea el índice por propietario de la colección de tareas.
func (s *Store) InitTaskIndexes(ctx context.Context) error {
	_, err := s.db.Collection(taskDomain.TaskTable).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: taskDomain.ColOwnerID, Value: 1}},
	})
	return err
}

func (s *Store) Select(ctx context.Context, table string, criteria sharedDomain.Criteria) ([]sharedDomain.Row, error) {
	filter, err := criteriaToFilter(criteria)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: taskDomain.ColCreatedAt, Value: -1}})

	cursor, err := s.db.Collection(table).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	rows := []sharedDomain.Row{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", table, err)
		}
		rows = append(rows, fromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	return rows, nil
}

func (s *Store) Insert(ctx context.Context, table string, row sharedDomain.Row) (sharedDomain.Row, error) {
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

	if _, err := s.db.Collection(table).InsertOne(ctx, toDocument(stored)); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	return stored, nil
}

func (s *Store) Update(ctx context.Context, table string, patch sharedDomain.Row, criteria sharedDomain.Criteria) error {
	if _, ok := patch[taskDomain.ColID]; ok {
		return fmt.Errorf("update %s: column %q is immutable", table, taskDomain.ColID)
	}
	filter, err := criteriaToFilter(criteria)
	if err != nil {
		return err
	}
	if len(filter) == 0 {
		return fmt.Errorf("update %s: refusing unfiltered update", table)
	}

	set := bson.M{taskDomain.ColUpdatedAt: taskDomain.FormatTimestamp(s.now())}
	for k, v := range patch {
		set[k] = v
	}

	res, err := s.db.Collection(table).UpdateMany(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if res.MatchedCount == 0 {
		s.log.Debug("Update sin documentos afectados", zap.String("collection", table))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, table string, criteria sharedDomain.Criteria) error {
	filter, err := criteriaToFilter(criteria)
	if err != nil {
		return err
	}
	if len(filter) == 0 {
		return fmt.Errorf("delete %s: refusing unfiltered delete", table)
	}
	if _, err := s.db.Collection(table).DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

// --- Helpers de mapeo ---

func toDocument(row sharedDomain.Row) bson.M {
	doc := make(bson.M, len(row))
	for k, v := range row {
		if k == taskDomain.ColID {
			k = docID
		}
		doc[k] = v
	}
	return doc
}

func fromDocument(doc bson.M) sharedDomain.Row {
	row := make(sharedDomain.Row, len(doc))
	for k, v := range doc {
		if k == docID {
			k = taskDomain.ColID
		}
		row[k] = v
	}
	return row
}

// criteriaToFilter traduce las condiciones neutrales a un filtro de MongoDB.
func criteriaToFilter(criteria sharedDomain.Criteria) (bson.D, error) {
	filter := bson.D{}
	for _, c := range sharedDomain.Conditions(criteria) {
		field := c.Field
		if field == taskDomain.ColID {
			field = docID
		}
		switch c.Op {
		case sharedDomain.OpEq:
			filter = append(filter, bson.E{Key: field, Value: bson.M{"$eq": c.Value}})
		default:
			return nil, fmt.Errorf("unsupported operator %q", c.Op)
		}
	}
	return filter, nil
}
