package syncstore

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jinzhu/copier"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/validation"
)

// InputPolicy governs whether several channels may hold open turns at once.
type InputPolicy string

const (
	// PolicyExclusive allows one open channel turn system-wide; opening a
	// turn on one channel force-finalizes the other.
	PolicyExclusive InputPolicy = "exclusive"
	// PolicyMixed lets channels keep independent open turns.
	PolicyMixed InputPolicy = "mixed"
)

func (p InputPolicy) Valid() bool {
	return p == PolicyExclusive || p == PolicyMixed
}

// DocumentPatch is a partial, field-keyed update to the draft.
type DocumentPatch struct {
	Fields map[string]any `json:"fields"`
}

// Clone returns a patch whose field map is not shared with p.
func (p DocumentPatch) Clone() DocumentPatch {
	return DocumentPatch{Fields: maps.Clone(p.Fields)}
}

// FieldIDs returns the touched field ids in sorted order.
func (p DocumentPatch) FieldIDs() []string {
	return slices.Sorted(maps.Keys(p.Fields))
}

type TurnStatus string

const (
	TurnOpen      TurnStatus = "open"
	TurnFinalized TurnStatus = "finalized"
)

// AgentTurn is a logical unit of conversation exchanged with the backend. It
// is owned by the channel that created it and accumulates that channel's
// input events in order.
type AgentTurn struct {
	ID          string                        `json:"id"`
	Channel     events.Channel                `json:"channel"`
	Status      TurnStatus                    `json:"status"`
	Events      []events.NormalizedInputEvent `json:"events"`
	CreatedAt   time.Time                     `json:"createdAt"`
	FinalizedAt *time.Time                    `json:"finalizedAt,omitempty"`
}

// LastFinalContent returns the content of the most recent final event.
func (t AgentTurn) LastFinalContent() (string, bool) {
	for _, event := range slices.Backward(t.Events) {
		if event.Stage == events.StageFinal {
			return event.Content, true
		}
	}
	return "", false
}

// turnCopyOption deep-copies turns. Metadata values are untyped, so they go
// through Metadata.Clone instead of reflection.
var turnCopyOption = copier.Option{
	DeepCopy: true,
	Converters: []copier.TypeConverter{{
		SrcType: events.Metadata{},
		DstType: events.Metadata{},
		Fn: func(src any) (any, error) {
			return src.(events.Metadata).Clone(), nil
		},
	}},
}

// Clone returns a copy that shares no slices, maps or pointers with t.
func (t AgentTurn) Clone() AgentTurn {
	var cloned AgentTurn
	if err := copier.CopyWithOption(&cloned, t, turnCopyOption); err != nil {
		panic(fmt.Sprintf("syncstore: copying turn %q: %v", t.ID, err))
	}
	return cloned
}

// CloneTurns deep-copies a turn list. A nil or empty list yields nil.
func CloneTurns(turns []AgentTurn) []AgentTurn {
	if len(turns) == 0 {
		return nil
	}
	cloned := make([]AgentTurn, 0, len(turns))
	if err := copier.CopyWithOption(&cloned, turns, turnCopyOption); err != nil {
		panic(fmt.Sprintf("syncstore: copying turns: %v", err))
	}
	return cloned
}

// PendingTurn tracks an in-flight agent turn.
type PendingTurn struct {
	ID              string    `json:"id"`
	Open            bool      `json:"open"`
	HasAppliedPatch bool      `json:"hasAppliedPatch"`
	Cancelled       bool      `json:"cancelled"`
	StartedAt       time.Time `json:"startedAt"`
	CompletedAt     time.Time `json:"completedAt,omitzero"`
}

// Duration is the time between the turn start and its completion, or until
// now while still open.
func (p PendingTurn) Duration(now time.Time) time.Duration {
	end := p.CompletedAt
	if end.IsZero() {
		end = now
	}
	if p.StartedAt.IsZero() || end.Before(p.StartedAt) {
		return 0
	}
	return end.Sub(p.StartedAt)
}

// ApplyOptions attributes a patch to a turn. Seq is optional; when set, the
// (TurnID, Seq) pair is applied at most once.
type ApplyOptions struct {
	TurnID string
	Seq    *int
}

// Snapshot is a point-in-time copy of the store state. Nothing in it aliases
// store internals.
type Snapshot struct {
	Draft       map[string]any
	Version     int
	Policy      InputPolicy
	Turns       []AgentTurn
	PendingTurn *PendingTurn
	Issues      map[string][]validation.Issue
}
