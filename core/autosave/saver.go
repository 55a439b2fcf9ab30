// Package autosave persists the draft shortly after it stops changing and
// restores it when a session starts.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
)

const scopeName = "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/autosave"

var logger = otelslog.NewLogger(scopeName)

const DefaultDelay = 750 * time.Millisecond

type Source interface {
	Subscribe(listener func(events.Event)) (unsubscribe func())
	Snapshot() syncstore.Snapshot
	Restore(draft map[string]any, version int)
}

type SaverOption func(*Saver)

func WithDelay(delay time.Duration) SaverOption {
	return func(s *Saver) {
		if delay > 0 {
			s.delay = delay
		}
	}
}

func WithClock(now func() time.Time) SaverOption {
	return func(s *Saver) {
		if now != nil {
			s.now = now
		}
	}
}

func WithErrorHandler(onError func(error)) SaverOption {
	return func(s *Saver) {
		s.onError = onError
	}
}

// Saver writes the draft to a backend once no patch has arrived for the
// configured delay.
type Saver struct {
	source  Source
	backend Backend
	docID   string

	delay   time.Duration
	now     func() time.Time
	onError func(error)

	mu          sync.Mutex
	timer       *time.Timer
	dirty       bool
	savedAt     int
	unsubscribe func()
	closed      bool
}

func New(source Source, backend Backend, docID string, opts ...SaverOption) *Saver {
	s := &Saver{
		source:  source,
		backend: backend,
		docID:   docID,
		delay:   DefaultDelay,
		now:     time.Now,
		savedAt: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsubscribe = source.Subscribe(s.onEvent)
	return s
}

func (s *Saver) onEvent(event events.Event) {
	if event.Kind() != events.KindDocumentPatched {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		if err := s.Flush(context.Background()); err != nil {
			logger.Error("autosave failed", "doc_id", s.docID, "error", err)
			if s.onError != nil {
				s.onError(err)
			}
		}
	})
}

// Flush writes the current draft now if it changed since the last save.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	s.dirty = false
	s.mu.Unlock()

	snapshot := s.source.Snapshot()
	record := Record{Version: snapshot.Version, Draft: snapshot.Draft, SavedAt: s.now()}
	if err := s.backend.Save(ctx, s.docID, record); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.savedAt = snapshot.Version
	s.mu.Unlock()
	logger.DebugContext(ctx, "draft saved", "doc_id", s.docID, "version", snapshot.Version)
	return nil
}

// SavedVersion returns the version written last, or -1.
func (s *Saver) SavedVersion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedAt
}

// Restore loads the saved draft into the source. It reports false when
// nothing was saved for the document.
func (s *Saver) Restore(ctx context.Context) (bool, error) {
	record, err := s.backend.Load(ctx, s.docID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.source.Restore(record.Draft, record.Version)
	s.mu.Lock()
	s.savedAt = record.Version
	s.mu.Unlock()
	return true, nil
}

// Close stops listening and flushes pending changes.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.unsubscribe()
	return s.Flush(ctx)
}
