// Package devbackend is a small agent backend for local development. It
// speaks the streaming wire contract and fills fields straight from the
// user's words.
package devbackend

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/validation"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/wire"
)

const scopeName = "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/internal/devbackend"

var logger = otelslog.NewLogger(scopeName)

type Server struct {
	schema     validation.Schema
	newID      func() string
	chunkDelay time.Duration
}

type Option func(*Server)

// WithSchema restricts extraction to the schema's fields and lets users
// name fields by label.
func WithSchema(schema validation.Schema) Option {
	return func(s *Server) {
		s.schema = schema
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Server) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithChunkDelay pauses between streamed chunks.
func WithChunkDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.chunkDelay = delay
	}
}

func New(opts ...Option) *Server {
	s := &Server{newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/schema", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"request": wire.RequestSchema(),
			"chunk":   wire.ChunkSchema(),
		})
	})
	r.Post("/sync", s.handleSync)

	return otelhttp.NewHandler(r, "devbackend",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var request wire.Request
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := Extract(request.Turns, s.schema)
	turnID := "srv-" + s.newID()
	logger.DebugContext(r.Context(), "sync request",
		"doc_version", request.DocVersion,
		"turns", len(request.Turns),
		"fields", len(fields),
		"turn_id", turnID)

	w.Header().Set("Content-Type", wire.ContentType)
	w.WriteHeader(http.StatusOK)
	encoder := wire.NewEncoder(w)

	for seq, field := range fields {
		chunk := wire.Chunk{
			TurnID: turnID,
			Seq:    &seq,
			Patch:  &syncstore.DocumentPatch{Fields: map[string]any{field.ID: field.Value}},
		}
		if err := encoder.Encode(chunk); err != nil {
			logger.WarnContext(r.Context(), "failed to stream chunk", "error", err)
			return
		}
		if !s.pause(r) {
			return
		}
	}
	if err := encoder.Done(); err != nil && r.Context().Err() == nil {
		logger.WarnContext(r.Context(), "failed to finish stream", "error", err)
	}
}

func (s *Server) pause(r *http.Request) bool {
	if s.chunkDelay <= 0 {
		return true
	}
	timer := time.NewTimer(s.chunkDelay)
	defer timer.Stop()
	select {
	case <-r.Context().Done():
		return false
	case <-timer.C:
		return true
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": strings.TrimSpace(message)})
}
