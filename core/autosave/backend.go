package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var ErrNotFound = errors.New("autosave: no saved draft")

// Record is what gets persisted for one document.
type Record struct {
	Version int            `json:"version"`
	Draft   map[string]any `json:"draft"`
	SavedAt time.Time      `json:"savedAt"`
}

type Backend interface {
	Save(ctx context.Context, docID string, record Record) error
	Load(ctx context.Context, docID string) (Record, error)
}

type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger
}

// BadgerBackend keeps one record per document under "draft/<docID>".
type BadgerBackend struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func OpenBadger(cfg BadgerConfig) (*BadgerBackend, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for a persistent autosave database")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create autosave directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open autosave database: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func draftKey(docID string) []byte {
	return []byte("draft/" + docID)
}

func (b *BadgerBackend) Save(ctx context.Context, docID string, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("error marshalling autosave record: %w", err)
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(draftKey(docID), value)
	}); err != nil {
		return fmt.Errorf("error saving draft %s: %w", docID, err)
	}
	return nil
}

func (b *BadgerBackend) Load(ctx context.Context, docID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	var record Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(draftKey(docID))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("error loading draft %s: %w", docID, err)
	}
	return record, nil
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
