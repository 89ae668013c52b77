package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// MongoStore keeps one MongoDB document per record, keyed by
// (source, record_id), and one metadata document per source in a
// sibling "<collection>_meta" collection.
type MongoStore struct {
	client     *mongo.Client
	records    *mongo.Collection
	meta       *mongo.Collection
	historyCap int
	mu         sync.Mutex
	logger     *slog.Logger
}

// mongoRecord is the stored envelope of a record.
type mongoRecord struct {
	Source      types.Source `bson:"source"`
	RecordID    string       `bson:"record_id"`
	Keyword     string       `bson:"search_keyword"`
	CollectedAt time.Time    `bson:"collection_timestamp"`
	UpdatedAt   time.Time    `bson:"updated_at"`
	Data        bson.Raw     `bson:"data"`
}

// NewMongoStore connects to MongoDB and ensures the indexes exist.
func NewMongoStore(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (*MongoStore, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	db := client.Database(cfg.MongoDB)
	s := &MongoStore{
		client:     client,
		records:    db.Collection(cfg.Collection),
		meta:       db.Collection(cfg.Collection + "_meta"),
		historyCap: cfg.HistoryCap,
		logger:     logger.With("component", "mongo_storage"),
	}
	if err := s.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("create indexes: %w", err)}
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "source", Value: 1}, {Key: "record_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("source_record"),
		},
		{
			Keys:    bson.D{{Key: "source", Value: 1}, {Key: "collection_timestamp", Value: -1}},
			Options: options.Index().SetName("source_collected"),
		},
		{
			Keys:    bson.D{{Key: "search_keyword", Value: 1}},
			Options: options.Index().SetName("keyword"),
		},
	})
	return err
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) Save(ctx context.Context, batch *types.Batch) (*MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx, batch.Source)
	if err != nil {
		return nil, err
	}
	res := doc.Merge(batch, s.historyCap)

	if len(res.Changed) > 0 {
		now := time.Now().UTC()
		models := make([]mongo.WriteModel, 0, len(res.Changed))
		for _, rec := range res.Changed {
			mr, err := toMongoRecord(rec, now)
			if err != nil {
				return nil, &types.StorageError{Backend: "mongodb", Err: err}
			}
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.D{{Key: "source", Value: mr.Source}, {Key: "record_id", Value: mr.RecordID}}).
				SetReplacement(mr).
				SetUpsert(true))
		}
		bw, err := s.records.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
		if err != nil {
			return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("bulk write: %w", err)}
		}
		s.logger.Debug("records upserted", "source", batch.Source, "upserted", bw.UpsertedCount, "modified", bw.ModifiedCount)
	}

	if err := s.saveMeta(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info("mongodb save complete", "source", batch.Source, "added", res.Added, "updated", res.Updated, "total", res.Total)
	return res, nil
}

func (s *MongoStore) saveMeta(ctx context.Context, doc *Document) error {
	_, err := s.meta.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: doc.Source}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("save metadata: %w", err)}
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, src types.Source) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, src)
}

func (s *MongoStore) load(ctx context.Context, src types.Source) (*Document, error) {
	doc := NewDocument(src)
	err := s.meta.FindOne(ctx, bson.D{{Key: "_id", Value: src}}).Decode(doc)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("load metadata: %w", err)}
	}
	doc.Source = src

	cur, err := s.records.Find(ctx,
		bson.D{{Key: "source", Value: src}},
		options.Find().SetSort(bson.D{{Key: "collection_timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("find records: %w", err)}
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var mr mongoRecord
		if err := cur.Decode(&mr); err != nil {
			s.logger.Warn("skipping undecodable record", "source", src, "error", err)
			continue
		}
		rec, err := fromMongoRecord(mr)
		if err != nil {
			s.logger.Warn("skipping undecodable record", "source", src, "id", mr.RecordID, "error", err)
			continue
		}
		doc.Append(rec)
	}
	if err := cur.Err(); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: err}
	}
	if doc.KeywordStats == nil {
		doc.KeywordStats = make(map[string]KeywordStats)
	}
	return doc, nil
}

// Summary counts records per source. SizeBytes is not reported for MongoDB.
func (s *MongoStore) Summary(ctx context.Context) (*Summary, error) {
	sum := newSummary(s.Name())
	for _, src := range types.AllSources() {
		n, err := s.records.CountDocuments(ctx, bson.D{{Key: "source", Value: src}})
		if err != nil {
			return nil, &types.StorageError{Backend: "mongodb", Err: err}
		}
		var doc Document
		err = s.meta.FindOne(ctx, bson.D{{Key: "_id", Value: src}}).Decode(&doc)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &types.StorageError{Backend: "mongodb", Err: err}
		}
		sum.add(src, SourceSummary{
			Exists:           n > 0 || err == nil,
			LastUpdated:      doc.Info.LastUpdated,
			TotalItems:       int(n),
			TotalCollections: len(doc.History),
		})
	}
	return sum, nil
}

// PurgeOlderThan deletes records collected more than days ago and refreshes
// the per-source metadata. It returns the number of deleted records.
func (s *MongoStore) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, fmt.Errorf("purge window must be at least one day, got %d", days)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	res, err := s.records.DeleteMany(ctx, bson.D{
		{Key: "collection_timestamp", Value: bson.D{{Key: "$lt", Value: cutoff}}},
	})
	if err != nil {
		return 0, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("purge: %w", err)}
	}

	if res.DeletedCount > 0 {
		for _, src := range types.AllSources() {
			doc, err := s.load(ctx, src)
			if err != nil {
				return res.DeletedCount, err
			}
			if doc.Info.LastUpdated.IsZero() {
				continue
			}
			doc.Info.TotalItems = doc.Len()
			doc.RecomputeStats()
			if err := s.saveMeta(ctx, doc); err != nil {
				return res.DeletedCount, err
			}
		}
	}

	s.logger.Info("old records purged", "days", days, "deleted", res.DeletedCount)
	return res.DeletedCount, nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb storage closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func toMongoRecord(rec types.Record, now time.Time) (mongoRecord, error) {
	data, err := bson.Marshal(rec)
	if err != nil {
		return mongoRecord{}, fmt.Errorf("encode %s record %s: %w", rec.Source(), rec.RecordID(), err)
	}
	return mongoRecord{
		Source:      rec.Source(),
		RecordID:    rec.RecordID(),
		Keyword:     rec.SearchKeyword(),
		CollectedAt: rec.Collected(),
		UpdatedAt:   now,
		Data:        data,
	}, nil
}

func fromMongoRecord(mr mongoRecord) (types.Record, error) {
	rec := newRecord(mr.Source)
	if rec == nil {
		return nil, fmt.Errorf("unknown source %q", mr.Source)
	}
	if err := bson.Unmarshal(mr.Data, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// --- Multi-Storage Fan-Out ---

// MultiStore writes to several backends. Reads and merge results come from
// the first (primary) backend.
type MultiStore struct {
	backends []Store
	logger   *slog.Logger
}

// NewMultiStore creates a store that fans out to multiple backends.
func NewMultiStore(backends []Store, logger *slog.Logger) *MultiStore {
	return &MultiStore{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStore) Name() string { return "multi" }

func (s *MultiStore) Save(ctx context.Context, batch *types.Batch) (*MergeResult, error) {
	var (
		primary  *MergeResult
		firstErr error
	)
	for i, backend := range s.backends {
		res, err := backend.Save(ctx, batch)
		if err != nil {
			s.logger.Error("backend save failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if i == 0 {
			primary = res
		}
	}
	if primary == nil {
		return nil, firstErr
	}
	return primary, firstErr
}

func (s *MultiStore) Load(ctx context.Context, src types.Source) (*Document, error) {
	return s.backends[0].Load(ctx, src)
}

func (s *MultiStore) Summary(ctx context.Context) (*Summary, error) {
	sum, err := s.backends[0].Summary(ctx)
	if err != nil {
		return nil, err
	}
	sum.Backend = s.Name()
	return sum, nil
}

// Mongo returns the MongoDB backend, if any.
func (s *MultiStore) Mongo() (*MongoStore, bool) {
	for _, b := range s.backends {
		if ms, ok := b.(*MongoStore); ok {
			return ms, true
		}
	}
	return nil, false
}

func (s *MultiStore) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
