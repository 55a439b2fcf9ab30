// Package syncstore holds the single authoritative draft: its fields, the
// version counter, the active input policy, the channel turns recorded so far
// and the in-flight agent turns.
//
// All mutation goes through patch application and the turn lifecycle
// primitives. Readers get deep copies.
package syncstore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/validation"
)

type Store struct {
	mu sync.RWMutex

	draft   map[string]any
	version int
	policy  InputPolicy

	schema    validation.Schema
	issues    map[string][]validation.Issue
	committed map[string]bool

	turns     []AgentTurn
	turnIndex map[string]int

	pending        map[string]*PendingTurn
	currentPending string
	retired        map[string]struct{}
	// aliases maps a re-keyed turn id to the id that replaced it.
	aliases map[string]string
	applied map[string]map[int]struct{}
	patches map[string][]DocumentPatch

	now   func() time.Time
	newID func() string

	listenersMu    sync.RWMutex
	listeners      map[int]func(events.Event)
	nextListenerID int
}

type Option func(*Store)

func WithPolicy(policy InputPolicy) Option {
	return func(s *Store) {
		if policy.Valid() {
			s.policy = policy
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithSchema validates and normalizes fields on patch application.
func WithSchema(schema validation.Schema) Option {
	return func(s *Store) { s.schema = slices.Clone(schema) }
}

// WithEventEmitter registers a listener at construction time.
func WithEventEmitter(emit func(events.Event)) Option {
	return func(s *Store) {
		if emit != nil {
			s.listeners[s.nextListenerID] = emit
			s.nextListenerID++
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		draft:     map[string]any{},
		policy:    PolicyExclusive,
		issues:    map[string][]validation.Issue{},
		committed: map[string]bool{},
		turnIndex: map[string]int{},
		pending:   map[string]*PendingTurn{},
		retired:   map[string]struct{}{},
		aliases:   map[string]string{},
		applied:   map[string]map[int]struct{}{},
		patches:   map[string][]DocumentPatch{},
		now:       time.Now,
		newID:     uuid.NewString,
		listeners: map[int]func(events.Event){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener for store events. Listeners run
// synchronously on the goroutine that mutated the store, after the store lock
// is released.
func (s *Store) Subscribe(listener func(events.Event)) (unsubscribe func()) {
	if listener == nil {
		return func() {}
	}

	s.listenersMu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = listener
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) emit(emitted ...events.Event) {
	if len(emitted) == 0 {
		return
	}

	s.listenersMu.RLock()
	ids := slices.Sorted(maps.Keys(s.listeners))
	listeners := make([]func(events.Event), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenersMu.RUnlock()

	for _, event := range emitted {
		for _, listener := range listeners {
			listener(event)
		}
	}
}

func (s *Store) timestamp(at time.Time) time.Time {
	if at.IsZero() {
		return s.now()
	}
	return at
}

// resolve follows reconciliation aliases to the id currently in effect.
// Callers must hold s.mu.
func (s *Store) resolve(turnID string) string {
	seen := map[string]struct{}{}
	for {
		next, ok := s.aliases[turnID]
		if !ok {
			return turnID
		}
		if _, loop := seen[turnID]; loop {
			return turnID
		}
		seen[turnID] = struct{}{}
		turnID = next
	}
}

func (s *Store) isRetired(turnID string) bool {
	_, ok := s.retired[turnID]
	return ok
}

// Policy returns the active input policy.
func (s *Store) Policy() InputPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// SetPolicy changes the input policy. Already-open turns are left alone.
func (s *Store) SetPolicy(policy InputPolicy) {
	if !policy.Valid() {
		return
	}

	s.mu.Lock()
	if s.policy == policy {
		s.mu.Unlock()
		return
	}
	s.policy = policy
	at := s.now()
	s.mu.Unlock()

	s.emit(events.NewPolicyChanged(string(policy), at))
}

// ApplyPatch merges the patch fields into the draft and advances the version.
// It reports whether the patch changed anything.
//
// Patches are dropped when (turn, seq) was already applied or when the turn
// was retired. An unknown turn id never rejects the patch; it is applied
// without pending-turn attribution. Without a turn id there is no key to
// deduplicate on, so seq is ignored.
func (s *Store) ApplyPatch(patch DocumentPatch, opts ApplyOptions) bool {
	if len(patch.Fields) == 0 {
		return false
	}
	patch = patch.Clone()

	s.mu.Lock()
	turnID := s.resolve(opts.TurnID)
	if turnID != "" && s.isRetired(turnID) {
		s.mu.Unlock()
		logger.DebugContext(context.Background(), "dropping patch for retired turn", "turn_id", opts.TurnID, "resolved_turn_id", turnID)
		return false
	}

	if opts.Seq != nil && turnID != "" {
		seqs, ok := s.applied[turnID]
		if !ok {
			seqs = map[int]struct{}{}
			s.applied[turnID] = seqs
		}
		if _, duplicate := seqs[*opts.Seq]; duplicate {
			s.mu.Unlock()
			logger.DebugContext(context.Background(), "dropping duplicate patch", "turn_id", turnID, "seq", *opts.Seq)
			return false
		}
		seqs[*opts.Seq] = struct{}{}
	}

	for fieldID, raw := range patch.Fields {
		s.setFieldLocked(fieldID, raw)
	}
	s.version++
	version := s.version

	if pending, ok := s.pending[turnID]; ok {
		pending.HasAppliedPatch = true
	}
	if turnID != "" {
		s.patches[turnID] = append(s.patches[turnID], patch)
	}
	at := s.now()
	s.mu.Unlock()

	s.emit(events.NewDocumentPatched(turnID, patch.FieldIDs(), version, at))
	return true
}

func (s *Store) setFieldLocked(fieldID string, raw any) {
	if raw == nil {
		delete(s.draft, fieldID)
		delete(s.issues, fieldID)
		delete(s.committed, fieldID)
		return
	}

	field, known := s.schema.Field(fieldID)
	if !known {
		s.draft[fieldID] = raw
		delete(s.issues, fieldID)
		s.committed[fieldID] = true
		return
	}

	result := validation.Validate(field, raw)
	s.draft[fieldID] = result.Value
	if len(result.Issues) > 0 {
		s.issues[fieldID] = result.Issues
	} else {
		delete(s.issues, fieldID)
	}
	s.committed[fieldID] = result.Valid() || field.Hidden
}

// BeginAgentTurn opens a pending agent turn and returns the id in effect. The
// optimistic id is echoed back unless it is empty or already retired, in
// which case a fresh id is minted.
func (s *Store) BeginAgentTurn(optimisticID string, at time.Time) string {
	s.mu.Lock()
	at = s.timestamp(at)

	turnID := s.resolve(optimisticID)
	if turnID == "" || s.isRetired(turnID) {
		turnID = "agent-" + s.newID()
	}

	if _, ok := s.pending[turnID]; ok {
		s.currentPending = turnID
		s.mu.Unlock()
		return turnID
	}

	s.pending[turnID] = &PendingTurn{ID: turnID, Open: true, StartedAt: at}
	s.currentPending = turnID
	s.mu.Unlock()

	s.emit(events.NewTurnStarted(turnID, at))
	return turnID
}

// ReconcileAgentTurnID re-keys the pending turn oldID under newID and returns
// the id to use going forward. The old id keeps resolving to the new one so
// late chunks using either id land on the same logical turn.
func (s *Store) ReconcileAgentTurnID(oldID, newID string, at time.Time) string {
	s.mu.Lock()
	at = s.timestamp(at)

	oldID = s.resolve(oldID)
	if newID == "" {
		s.mu.Unlock()
		return oldID
	}
	newID = s.resolve(newID)
	if oldID == "" || oldID == newID {
		s.mu.Unlock()
		return newID
	}
	if s.isRetired(newID) {
		s.mu.Unlock()
		logger.DebugContext(context.Background(), "refusing to reconcile onto retired turn", "turn_id", oldID, "server_turn_id", newID)
		return oldID
	}

	s.renameLocked(oldID, newID)
	s.mu.Unlock()

	s.emit(events.NewTurnReconciled(oldID, newID, at))
	return newID
}

// renameLocked moves every turn-keyed entry from oldID to newID in one step.
// When newID already has entries they are merged.
func (s *Store) renameLocked(oldID, newID string) {
	if pending, ok := s.pending[oldID]; ok {
		delete(s.pending, oldID)
		pending.ID = newID
		if existing, ok := s.pending[newID]; ok {
			existing.HasAppliedPatch = existing.HasAppliedPatch || pending.HasAppliedPatch
			existing.Cancelled = existing.Cancelled || pending.Cancelled
			if !pending.StartedAt.IsZero() && (existing.StartedAt.IsZero() || pending.StartedAt.Before(existing.StartedAt)) {
				existing.StartedAt = pending.StartedAt
			}
		} else {
			s.pending[newID] = pending
		}
	}
	if s.currentPending == oldID {
		s.currentPending = newID
	}

	if seqs, ok := s.applied[oldID]; ok {
		delete(s.applied, oldID)
		if existing, ok := s.applied[newID]; ok {
			maps.Copy(existing, seqs)
		} else {
			s.applied[newID] = seqs
		}
	}

	if patches, ok := s.patches[oldID]; ok {
		delete(s.patches, oldID)
		s.patches[newID] = append(patches, s.patches[newID]...)
	}

	if idx, ok := s.turnIndex[oldID]; ok {
		delete(s.turnIndex, oldID)
		if _, taken := s.turnIndex[newID]; !taken {
			s.turns[idx].ID = newID
			s.turnIndex[newID] = idx
		}
	}

	s.aliases[oldID] = newID
}

// MarkAgentTurnCancelled flags a pending turn as cancelled without
// completing it.
func (s *Store) MarkAgentTurnCancelled(turnID string, at time.Time) {
	s.mu.Lock()
	at = s.timestamp(at)
	turnID = s.resolve(turnID)
	pending, ok := s.pending[turnID]
	if !ok || pending.Cancelled {
		s.mu.Unlock()
		return
	}
	pending.Cancelled = true
	s.mu.Unlock()

	s.emit(events.NewTurnCancelled(turnID, at))
}

// CompleteAgentTurn retires a pending turn and returns its final state.
// Completing an unknown or already completed turn is a no-op.
func (s *Store) CompleteAgentTurn(turnID string, at time.Time) (PendingTurn, bool) {
	s.mu.Lock()
	at = s.timestamp(at)
	turnID = s.resolve(turnID)
	pending, ok := s.pending[turnID]
	if !ok {
		s.mu.Unlock()
		return PendingTurn{}, false
	}

	delete(s.pending, turnID)
	s.retired[turnID] = struct{}{}
	pending.Open = false
	pending.CompletedAt = at
	if s.currentPending == turnID {
		s.currentPending = s.latestOpenPendingLocked()
	}
	completed := *pending
	s.mu.Unlock()

	s.emit(events.NewTurnCompleted(turnID, at, completed.HasAppliedPatch, completed.Cancelled, completed.Duration(at)))
	return completed, true
}

func (s *Store) latestOpenPendingLocked() string {
	var latest *PendingTurn
	for _, pending := range s.pending {
		if latest == nil || pending.StartedAt.After(latest.StartedAt) {
			latest = pending
		}
	}
	if latest == nil {
		return ""
	}
	return latest.ID
}

// PendingTurn returns the pending turn known under turnID or any of its
// former ids.
func (s *Store) PendingTurn(turnID string) (PendingTurn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending, ok := s.pending[s.resolve(turnID)]
	if !ok {
		return PendingTurn{}, false
	}
	return *pending, true
}

// ResolveTurnID returns the id currently in effect for turnID.
func (s *Store) ResolveTurnID(turnID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(turnID)
}

// IsRetired reports whether turnID (or the id it was reconciled to) has been
// completed.
func (s *Store) IsRetired(turnID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRetired(s.resolve(turnID))
}

// AppliedPatches returns the patches applied under a turn, in application
// order.
func (s *Store) AppliedPatches(turnID string) []DocumentPatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	applied := s.patches[s.resolve(turnID)]
	cloned := make([]DocumentPatch, len(applied))
	for i, patch := range applied {
		cloned[i] = patch.Clone()
	}
	return cloned
}

// IngestInput records a normalized input event under its channel turn,
// creating the turn on its first event.
func (s *Store) IngestInput(event events.NormalizedInputEvent) {
	if event.TurnID == "" {
		return
	}

	s.mu.Lock()
	turnID := s.resolve(event.TurnID)
	event = event.Clone()
	event.TurnID = turnID

	idx, ok := s.turnIndex[turnID]
	if !ok {
		s.turns = append(s.turns, AgentTurn{
			ID:        turnID,
			Channel:   event.Channel(),
			Status:    TurnOpen,
			CreatedAt: s.timestamp(event.CreatedAt),
		})
		idx = len(s.turns) - 1
		s.turnIndex[turnID] = idx
	}

	if s.turns[idx].Status != TurnOpen {
		s.mu.Unlock()
		logger.DebugContext(context.Background(), "ignoring input for finalized turn", "turn_id", turnID, "stage", string(event.Stage))
		return
	}
	s.turns[idx].Events = append(s.turns[idx].Events, event)
	s.mu.Unlock()

	s.emit(event)
}

// FinalizeInputTurn closes a channel turn. Finalizing an unknown or already
// finalized turn is a no-op.
func (s *Store) FinalizeInputTurn(channel events.Channel, turnID string, at time.Time) {
	s.mu.Lock()
	at = s.timestamp(at)
	turnID = s.resolve(turnID)

	idx, ok := s.turnIndex[turnID]
	if !ok || s.turns[idx].Status != TurnOpen {
		s.mu.Unlock()
		return
	}

	turn := &s.turns[idx]
	turn.Status = TurnFinalized
	turn.FinalizedAt = &at
	_, hasFinalInput := turn.LastFinalContent()
	if channel == "" {
		channel = turn.Channel
	}
	s.mu.Unlock()

	s.emit(events.NewInputFinalized(channel, turnID, hasFinalInput, at))
}

// Turn returns a copy of a recorded channel turn.
func (s *Store) Turn(turnID string) (AgentTurn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.turnIndex[s.resolve(turnID)]
	if !ok {
		return AgentTurn{}, false
	}
	return s.turns[idx].Clone(), true
}

// Turns returns copies of every recorded channel turn, oldest first.
func (s *Store) Turns() []AgentTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneTurnsLocked()
}

func (s *Store) cloneTurnsLocked() []AgentTurn {
	return CloneTurns(s.turns)
}

// Draft returns a deep copy of the current draft fields.
func (s *Store) Draft() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFields(s.draft)
}

func (s *Store) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Issues returns the validation issues of the current draft keyed by field.
func (s *Store) Issues() map[string][]validation.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneIssues(s.issues)
}

// Committed reports whether a field holds a value without error-severity
// issues (or is hidden).
func (s *Store) Committed(fieldID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed[fieldID]
}

// Snapshot returns a deep copy of the store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := Snapshot{
		Draft:   cloneFields(s.draft),
		Version: s.version,
		Policy:  s.policy,
		Turns:   s.cloneTurnsLocked(),
		Issues:  cloneIssues(s.issues),
	}
	if pending, ok := s.pending[s.currentPending]; ok {
		copied := *pending
		snapshot.PendingTurn = &copied
	}
	return snapshot
}

// Restore replaces the draft wholesale, e.g. from an autosave snapshot. The
// version never moves backwards.
func (s *Store) Restore(draft map[string]any, version int) {
	s.mu.Lock()
	s.draft = map[string]any{}
	s.issues = map[string][]validation.Issue{}
	s.committed = map[string]bool{}
	for fieldID, raw := range cloneFields(draft) {
		s.setFieldLocked(fieldID, raw)
	}
	if version > s.version {
		s.version = version
	}
	version = s.version
	at := s.now()
	s.mu.Unlock()

	s.emit(events.NewDocumentRestored(version, at))
}

func cloneFields(fields map[string]any) map[string]any {
	cloned := make(map[string]any, len(fields))
	for fieldID, value := range fields {
		cloned[fieldID] = events.CloneValue(value)
	}
	return cloned
}

func cloneIssues(issues map[string][]validation.Issue) map[string][]validation.Issue {
	cloned := make(map[string][]validation.Issue, len(issues))
	for fieldID, fieldIssues := range issues {
		cloned[fieldID] = slices.Clone(fieldIssues)
	}
	return cloned
}
