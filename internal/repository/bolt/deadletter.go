package bolt

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/domain/deadletter"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"go.uber.org/fx"
)

// DeadLetterStore keeps failed units of work in a single BoltDB bucket.
// Keys are entry ids, which are ULID based, so key order is creation order.
type DeadLetterStore struct {
	db     *bolt.DB
	bucket []byte
	logger *logger.Logger
}

// NewDeadLetterStore opens the store and closes it on fx stop
func NewDeadLetterStore(lc fx.Lifecycle, cfg *config.Configuration, logger *logger.Logger) (deadletter.Repository, error) {
	store, err := Open(cfg.DeadLetter.Path, cfg.DeadLetter.Bucket, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

// Open opens (or creates) the database file and ensures the bucket exists
func Open(path, bucket string, logger *logger.Logger) (*DeadLetterStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ierr.WithError(err).
				WithHintf("Failed to create dead-letter directory %s", dir).
				Mark(ierr.ErrSystem)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to open dead-letter store at %s", path).
			Mark(ierr.ErrSystem)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, ierr.WithError(err).WithHint("Failed to create dead-letter bucket").Mark(ierr.ErrSystem)
	}

	return &DeadLetterStore{db: db, bucket: []byte(bucket), logger: logger}, nil
}

func (s *DeadLetterStore) Close() error {
	return s.db.Close()
}

// Save writes the entry, replacing any entry with the same id
func (s *DeadLetterStore) Save(ctx context.Context, entry *deadletter.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return ierr.WithError(err).WithHint("Failed to encode dead-letter entry").Mark(ierr.ErrValidation)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(entry.ID), data)
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to save dead-letter entry").
			WithReportableDetails(map[string]any{"id": entry.ID}).
			Mark(ierr.ErrDatabase)
	}

	s.logger.Debugw("saved dead-letter entry", "id", entry.ID, "kind", entry.Kind, "event_id", entry.EventID)
	return nil
}

func (s *DeadLetterStore) Get(ctx context.Context, id string) (*deadletter.Entry, error) {
	var entry deadletter.Entry
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to read dead-letter entry").Mark(ierr.ErrDatabase)
	}
	if !found {
		return nil, ierr.NewError("dead-letter entry not found").
			WithHint("Dead-letter entry not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return &entry, nil
}

// List walks the bucket backwards so the newest entries come first.
// A limit <= 0 returns everything.
func (s *DeadLetterStore) List(ctx context.Context, limit int) ([]*deadletter.Entry, error) {
	entries := make([]*deadletter.Entry, 0)

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e deadletter.Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, &e)
		}
		return nil
	})
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to list dead-letter entries").Mark(ierr.ErrDatabase)
	}
	return entries, nil
}

// Delete is a no-op for unknown ids
func (s *DeadLetterStore) Delete(ctx context.Context, id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(id))
	})
	if err != nil {
		return ierr.WithError(err).WithHint("Failed to delete dead-letter entry").Mark(ierr.ErrDatabase)
	}
	return nil
}
