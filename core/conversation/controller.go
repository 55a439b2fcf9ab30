// Package conversation runs streaming exchanges with the agent backend and
// applies the patches they carry to the document store.
//
// At most one exchange is in flight per Controller: Sync cancels the previous
// one before it starts. Patches are applied in the order they are read, and
// only while the exchange is streaming, so nothing from a cancelled exchange
// lands after Cancel returns.
package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/telemetry"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/wire"
)

// Store is the part of the document store the controller drives.
type Store interface {
	Snapshot() syncstore.Snapshot
	ApplyPatch(patch syncstore.DocumentPatch, opts syncstore.ApplyOptions) bool
	BeginAgentTurn(optimisticID string, at time.Time) string
	ReconcileAgentTurnID(oldID, newID string, at time.Time) string
	MarkAgentTurnCancelled(turnID string, at time.Time)
	CompleteAgentTurn(turnID string, at time.Time) (syncstore.PendingTurn, bool)
	ResolveTurnID(turnID string) string
	IsRetired(turnID string) bool
}

// Outcome summarizes one exchange.
type Outcome struct {
	// TurnID is the id the exchange's turn ended up under, after
	// reconciliation. Empty when no turn was opened.
	TurnID string
	// Completed is set when the stream signalled completion.
	Completed bool
	// Patches counts the patches the store accepted.
	Patches int
}

type Controller struct {
	store    Store
	endpoint string

	client      *http.Client
	metrics     telemetry.Metrics
	onError     func(error)
	idleTimeout time.Duration
	maxLineSize int
	optimistic  bool

	now   func() time.Time
	newID func() string

	mu     sync.Mutex
	active *exchange
}

func New(store Store, endpoint string, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:    store,
		endpoint: endpoint,
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
		metrics:     telemetry.NoopMetrics{},
		idleTimeout: DefaultIdleTimeout,
		maxLineSize: wire.DefaultMaxLineSize,
		optimistic:  true,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InFlight reports whether an exchange is currently running.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Cancel aborts the in-flight exchange, if any, and completes its pending
// turn as cancelled before returning. Calling it with nothing in flight is a
// no-op.
func (c *Controller) Cancel(cause error) {
	c.mu.Lock()
	ex := c.active
	c.mu.Unlock()

	if ex == nil {
		return
	}
	if cause == nil {
		cause = ErrCancelled
	}
	if ex.abort(cause) {
		c.finish(ex)
	}
}

// Sync runs one exchange with the backend. A nil turns sends the store's
// turns.
//
// Transport failures are returned and reported to the error handler.
// Malformed lines are reported to the error handler and skipped. A cancelled
// exchange returns an error matching ErrCancelled without reaching the
// error handler.
func (c *Controller) Sync(ctx context.Context, turns []syncstore.AgentTurn) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "sync conversation")
	defer span.End()

	exCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	ex := newExchange(cancel)
	c.mu.Lock()
	previous := c.active
	c.active = ex
	c.mu.Unlock()
	if previous != nil {
		span.AddEvent("cancelling previous exchange")
		if previous.abort(errSuperseded) {
			c.finish(previous)
		}
	}

	request := wire.NewRequest(c.store.Snapshot(), turns)
	span.SetAttributes(
		attribute.Int("request.doc_version", request.DocVersion),
		attribute.String("request.policy", string(request.Policy)),
		attribute.Int("request.turns", len(request.Turns)),
	)

	if c.optimistic {
		c.beginTurn(ex, c.optimisticTurnID(request))
	}

	err := c.run(exCtx, ex, request, span)

	summary := ex.summary()
	if err != nil && !summary.cancelled && ctx.Err() != nil {
		// The caller's context went away; treat it like Cancel.
		ex.mu.Lock()
		ex.cancelled = true
		ex.mu.Unlock()
		summary.cancelled = true
	}
	ex.advance(stateCompleting)
	c.finish(ex)
	ex.advance(stateClosed)
	c.release(ex)

	outcome := Outcome{
		Completed: summary.completed,
		Patches:   summary.patches,
	}
	if summary.turnID != "" {
		outcome.TurnID = c.store.ResolveTurnID(summary.turnID)
	}
	span.SetAttributes(
		attribute.String("response.turn_id", outcome.TurnID),
		attribute.Int("response.patches", outcome.Patches),
		attribute.Bool("response.completed", outcome.Completed),
	)

	if summary.cancelled {
		span.AddEvent("exchange cancelled")
		cause := context.Cause(exCtx)
		if cause == nil || errors.Is(cause, context.Canceled) {
			cause = ctx.Err()
		}
		return outcome, &cancelledError{cause: cause}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.reportError(err)
		return outcome, err
	}
	return outcome, nil
}

func (c *Controller) run(ctx context.Context, ex *exchange, request wire.Request, span trace.Span) error {
	if !ex.advance(stateOpening) {
		return context.Cause(ctx)
	}

	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("error marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", wire.ContentType)

	idle := newIdleReader(c.idleTimeout, func() { ex.cancel(ErrStreamIdle) })
	defer idle.stop()

	span.AddEvent("request started")
	resp, err := c.client.Do(req)
	if err != nil {
		return c.transportError(ctx, "error sending request", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(bytes.TrimSpace(errorBody))}
	}

	if !ex.advance(stateStreaming) {
		return context.Cause(ctx)
	}
	idle.touch()

	decoder := wire.NewDecoder(idle.wrap(resp.Body), c.maxLineSize)
	for {
		chunk, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var malformed *wire.MalformedChunkError
		if errors.As(err, &malformed) {
			span.RecordError(err)
			logger.DebugContext(ctx, "skipping malformed chunk", "error", err)
			c.reportError(err)
			continue
		}
		if err != nil {
			return c.transportError(ctx, "error reading stream", err)
		}

		done, live := c.applyChunk(ex, chunk)
		if !live {
			return nil
		}
		if done {
			span.AddEvent("stream completed")
			return nil
		}
	}
}

// applyChunk handles one chunk while the exchange is streaming. It reports
// whether the chunk completed the stream and whether the exchange was still
// live.
func (c *Controller) applyChunk(ex *exchange, chunk wire.Chunk) (done bool, live bool) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if ex.state != stateStreaming {
		logger.Debug("dropping chunk for inactive exchange", "state", ex.state.String(), "turn_id", chunk.TurnID)
		return false, false
	}

	if chunk.TurnID != "" {
		c.reconcileLocked(ex, chunk.TurnID)
	}

	if chunk.Patch != nil && len(chunk.Patch.Fields) > 0 {
		turnID := chunk.TurnID
		if turnID == "" {
			turnID = ex.turnID
		}
		if c.store.ApplyPatch(chunk.Patch.Clone(), syncstore.ApplyOptions{TurnID: turnID, Seq: chunk.Seq}) {
			ex.patches++
		}
	}

	if chunk.IsCompletion() {
		ex.completed = true
		return true, true
	}
	return false, true
}

// reconcileLocked lines up the tracked turn with a server turn id.
func (c *Controller) reconcileLocked(ex *exchange, serverID string) {
	switch {
	case ex.turnID == "":
		if c.store.IsRetired(serverID) {
			logger.Debug("ignoring stale server turn", "turn_id", serverID)
			return
		}
		now := c.now()
		if ex.startedAt.IsZero() {
			ex.startedAt = now
		}
		ex.turnID = c.store.BeginAgentTurn(serverID, ex.startedAt)
		c.metrics.IncCounter(MetricTurnStarted, 1, telemetry.Tags("turnId", ex.turnID, "reconciled", true)...)
	case ex.turnID != serverID:
		ex.turnID = c.store.ReconcileAgentTurnID(ex.turnID, serverID, c.now())
	}
}

// beginTurn opens the optimistic turn unless the exchange was already
// aborted, in which case its completion has run and nothing may be left open.
func (c *Controller) beginTurn(ex *exchange, optimisticID string) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if ex.state >= stateCompleting {
		return
	}
	ex.startedAt = c.now()
	ex.turnID = c.store.BeginAgentTurn(optimisticID, ex.startedAt)
	c.metrics.IncCounter(MetricTurnStarted, 1, telemetry.Tags("turnId", ex.turnID, "reconciled", false)...)
}

// optimisticTurnID reuses the id of the most recent turn in the request when
// it has not been used for an exchange yet.
func (c *Controller) optimisticTurnID(request wire.Request) string {
	if n := len(request.Turns); n > 0 {
		if candidate := request.Turns[n-1].ID; candidate != "" && !c.store.IsRetired(candidate) {
			return candidate
		}
	}
	return "agent-" + c.newID()
}

// finish completes the exchange's pending turn and emits the completion
// metric. It runs once per exchange.
func (c *Controller) finish(ex *exchange) {
	ex.finishOnce.Do(func() {
		summary := ex.summary()
		now := c.now()

		turnID := summary.turnID
		hasAppliedPatch := summary.patches > 0
		if turnID != "" {
			if summary.cancelled {
				c.store.MarkAgentTurnCancelled(turnID, now)
			}
			if pending, ok := c.store.CompleteAgentTurn(turnID, now); ok {
				turnID = pending.ID
				hasAppliedPatch = pending.HasAppliedPatch
			} else {
				turnID = c.store.ResolveTurnID(turnID)
			}
		}

		var duration time.Duration
		if !summary.startedAt.IsZero() && now.After(summary.startedAt) {
			duration = now.Sub(summary.startedAt)
		}
		c.metrics.RecordTimer(MetricTurnCompleted, duration, telemetry.Tags(
			"turnId", turnID,
			"hasAppliedPatch", hasAppliedPatch,
			"cancelled", summary.cancelled,
		)...)
	})
}

func (c *Controller) release(ex *exchange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == ex {
		c.active = nil
	}
}

func (c *Controller) transportError(ctx context.Context, message string, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrStreamIdle) {
		return fmt.Errorf("%s: %w after %s", message, ErrStreamIdle, c.idleTimeout)
	}
	return fmt.Errorf("%s: %w", message, err)
}

func (c *Controller) reportError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}
