// Package guided walks the user through the draft one field at a time.
package guided

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/conversation"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/input"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/validation"
)

// MetadataFieldID tags submitted answers with the field being asked.
const MetadataFieldID = "fieldId"

var (
	ErrIncomplete    = errors.New("guided: required fields are missing")
	ErrNotReviewing  = errors.New("guided: confirm is only available during review")
	ErrUnknownField  = errors.New("guided: unknown field")
	ErrNothingToUndo = errors.New("guided: no previous field")
	ErrConfirmed     = errors.New("guided: draft already confirmed")
)

type Gateway interface {
	OnTypingSubmit(content string, opts ...input.CallOption)
	OnVoiceFinal(content string, opts ...input.CallOption)
}

type Store interface {
	Turns() []syncstore.AgentTurn
	AppliedPatches(turnID string) []syncstore.DocumentPatch
	ApplyPatch(patch syncstore.DocumentPatch, opts syncstore.ApplyOptions) bool
	Draft() map[string]any
	Issues() map[string][]validation.Issue
	Committed(fieldID string) bool
}

type Syncer interface {
	Sync(ctx context.Context, turns []syncstore.AgentTurn) (conversation.Outcome, error)
}

type State string

const (
	StateAsking    State = "asking"
	StateReviewing State = "reviewing"
	StateConfirmed State = "confirmed"
)

type Action string

const (
	ActionAnswer  Action = "answer"
	ActionSkip    Action = "skip"
	ActionBack    Action = "back"
	ActionEdit    Action = "edit"
	ActionReview  Action = "review"
	ActionConfirm Action = "confirm"
)

// Result describes what a submission did.
type Result struct {
	Action Action
	// Field is the field that was asked when the submission arrived.
	Field string
	// Changed lists the fields touched by the agent's patches.
	Changed []string
	// Extracted is false when the exchange finished without a patch.
	Extracted bool
	// Fallback is set when the raw answer was stored locally because the
	// exchange failed.
	Fallback bool
	Issues   []validation.Issue
	State    State
	Next     string
}

type Orchestrator struct {
	mu sync.Mutex

	fields  []validation.Field
	gateway Gateway
	store   Store
	syncer  Syncer

	state   State
	current int
	history []int
	skipped map[string]bool
}

func New(schema validation.Schema, gateway Gateway, store Store, syncer Syncer) *Orchestrator {
	o := &Orchestrator{
		gateway: gateway,
		store:   store,
		syncer:  syncer,
		state:   StateAsking,
		skipped: map[string]bool{},
	}
	for _, field := range schema {
		if !field.Hidden {
			o.fields = append(o.fields, field)
		}
	}
	o.current = o.nextOpenLocked(-1)
	if o.current < 0 {
		o.state = StateReviewing
	}
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Current returns the field being asked.
func (o *Orchestrator) Current() (validation.Field, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateAsking || o.current < 0 {
		return validation.Field{}, false
	}
	return o.fields[o.current], true
}

func (o *Orchestrator) Fields() []validation.Field {
	return slices.Clone(o.fields)
}

// Missing returns the required fields that are not committed yet.
func (o *Orchestrator) Missing() []validation.Field {
	var missing []validation.Field
	for _, field := range o.fields {
		if field.Required && !o.store.Committed(field.ID) {
			missing = append(missing, field)
		}
	}
	return missing
}

// Submit handles one utterance: a command (skip, back, edit <field>, review,
// confirm) or an answer to the current field.
func (o *Orchestrator) Submit(ctx context.Context, channel events.Channel, text string) (Result, error) {
	text = strings.TrimSpace(text)
	command, argument := parseCommand(text)

	o.mu.Lock()
	if o.state == StateConfirmed {
		o.mu.Unlock()
		return Result{State: StateConfirmed}, ErrConfirmed
	}

	switch command {
	case ActionSkip:
		defer o.mu.Unlock()
		return o.skipLocked(), nil
	case ActionBack:
		defer o.mu.Unlock()
		return o.backLocked()
	case ActionEdit:
		defer o.mu.Unlock()
		return o.editLocked(argument)
	case ActionReview:
		defer o.mu.Unlock()
		o.state = StateReviewing
		return o.resultLocked(ActionReview, ""), nil
	case ActionConfirm:
		defer o.mu.Unlock()
		return o.confirmLocked()
	}

	if o.state != StateAsking || o.current < 0 || text == "" {
		defer o.mu.Unlock()
		return o.resultLocked(ActionAnswer, ""), nil
	}
	field := o.fields[o.current]
	o.mu.Unlock()

	return o.answer(ctx, channel, field, text)
}

func (o *Orchestrator) answer(ctx context.Context, channel events.Channel, field validation.Field, text string) (Result, error) {
	metadata := input.WithMetadata(MetadataFieldID, field.ID)
	if channel == events.ChannelVoice {
		o.gateway.OnVoiceFinal(text, metadata)
	} else {
		channel = events.ChannelTyping
		o.gateway.OnTypingSubmit(text, metadata)
	}

	var turns []syncstore.AgentTurn
	if turn, ok := o.submittedTurn(channel, field.ID); ok {
		turns = []syncstore.AgentTurn{turn}
	}

	result := Result{Action: ActionAnswer, Field: field.ID}
	outcome, err := o.syncer.Sync(ctx, turns)
	switch {
	case errors.Is(err, conversation.ErrCancelled):
		return o.finishAnswer(result), err
	case err != nil:
		logger.WarnContext(ctx, "storing answer locally after failed exchange", "field_id", field.ID, "error", err)
		o.store.ApplyPatch(syncstore.DocumentPatch{Fields: map[string]any{field.ID: text}}, syncstore.ApplyOptions{})
		result.Fallback = true
		result.Changed = []string{field.ID}
	default:
		for _, patch := range o.store.AppliedPatches(outcome.TurnID) {
			for _, fieldID := range patch.FieldIDs() {
				if !slices.Contains(result.Changed, fieldID) {
					result.Changed = append(result.Changed, fieldID)
				}
			}
		}
		result.Extracted = len(result.Changed) > 0
	}

	return o.finishAnswer(result), nil
}

func (o *Orchestrator) finishAnswer(result Result) Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	result.Issues = o.store.Issues()[result.Field]
	asked := o.current >= 0 && o.state == StateAsking && o.fields[o.current].ID == result.Field
	if asked && o.store.Committed(result.Field) {
		o.moveLocked(o.nextOpenLocked(o.current))
	}
	result.State = o.state
	result.Next = o.currentIDLocked()
	return result
}

// submittedTurn finds the turn the gateway just closed for the answer.
func (o *Orchestrator) submittedTurn(channel events.Channel, fieldID string) (syncstore.AgentTurn, bool) {
	turns := o.store.Turns()
	for _, turn := range slices.Backward(turns) {
		if turn.Channel != channel || turn.Status != syncstore.TurnFinalized {
			continue
		}
		for _, event := range slices.Backward(turn.Events) {
			if event.Stage == events.StageFinal && event.Metadata[MetadataFieldID] == fieldID {
				return turn, true
			}
		}
	}
	return syncstore.AgentTurn{}, false
}

func (o *Orchestrator) skipLocked() Result {
	fieldID := o.currentIDLocked()
	if o.state == StateAsking && o.current >= 0 {
		o.skipped[fieldID] = true
		o.moveLocked(o.nextOpenLocked(o.current))
	}
	return o.resultLocked(ActionSkip, fieldID)
}

func (o *Orchestrator) backLocked() (Result, error) {
	fieldID := o.currentIDLocked()
	if len(o.history) == 0 {
		return o.resultLocked(ActionBack, fieldID), ErrNothingToUndo
	}
	previous := o.history[len(o.history)-1]
	o.history = o.history[:len(o.history)-1]
	o.current = previous
	o.state = StateAsking
	delete(o.skipped, o.fields[previous].ID)
	return o.resultLocked(ActionBack, fieldID), nil
}

func (o *Orchestrator) editLocked(target string) (Result, error) {
	fieldID := o.currentIDLocked()
	idx := slices.IndexFunc(o.fields, func(field validation.Field) bool {
		return strings.EqualFold(field.ID, target) || strings.EqualFold(field.Label, target)
	})
	if idx < 0 {
		return o.resultLocked(ActionEdit, fieldID), fmt.Errorf("%w: %q", ErrUnknownField, target)
	}
	o.moveLocked(idx)
	delete(o.skipped, o.fields[idx].ID)
	return o.resultLocked(ActionEdit, fieldID), nil
}

func (o *Orchestrator) confirmLocked() (Result, error) {
	if o.state != StateReviewing {
		return o.resultLocked(ActionConfirm, o.currentIDLocked()), ErrNotReviewing
	}

	var missing []string
	for _, field := range o.fields {
		if field.Required && !o.store.Committed(field.ID) {
			missing = append(missing, field.DisplayName())
		}
	}
	if len(missing) > 0 {
		return o.resultLocked(ActionConfirm, ""), fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	o.state = StateConfirmed
	return o.resultLocked(ActionConfirm, ""), nil
}

// moveLocked jumps to idx, remembering where we came from. A negative idx
// means every field has been visited and review starts.
func (o *Orchestrator) moveLocked(idx int) {
	if o.current >= 0 && o.state == StateAsking {
		o.history = append(o.history, o.current)
	}
	if idx < 0 {
		o.state = StateReviewing
		return
	}
	o.current = idx
	o.state = StateAsking
}

// nextOpenLocked returns the first field after idx that is neither committed
// nor skipped, or -1.
func (o *Orchestrator) nextOpenLocked(idx int) int {
	for i := idx + 1; i < len(o.fields); i++ {
		field := o.fields[i]
		if !o.skipped[field.ID] && !o.store.Committed(field.ID) {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) currentIDLocked() string {
	if o.state != StateAsking || o.current < 0 {
		return ""
	}
	return o.fields[o.current].ID
}

func (o *Orchestrator) resultLocked(action Action, fieldID string) Result {
	return Result{Action: action, Field: fieldID, State: o.state, Next: o.currentIDLocked()}
}

func parseCommand(text string) (Action, string) {
	verb, argument, _ := strings.Cut(text, " ")
	switch action := Action(strings.ToLower(verb)); action {
	case ActionSkip, ActionBack, ActionReview, ActionConfirm:
		if strings.TrimSpace(argument) == "" {
			return action, ""
		}
	case ActionEdit:
		if argument = strings.TrimSpace(argument); argument != "" {
			return action, argument
		}
	}
	return ActionAnswer, text
}
