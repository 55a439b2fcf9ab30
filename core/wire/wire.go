// Package wire defines the streaming exchange between the conversation
// controller and the agent backend.
//
// The client POSTs a Request as JSON. The backend answers with a body of
// newline-delimited lines, each either the DoneSentinel or a JSON Chunk.
package wire

import (
	"slices"
	"strings"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
)

// DoneSentinel marks the end of a response stream.
const DoneSentinel = "[DONE]"

const ContentType = "application/x-ndjson"

type Request struct {
	DocVersion int                   `json:"docVersion" jsonschema:"title=Document version,minimum=0"`
	Policy     syncstore.InputPolicy `json:"policy" jsonschema:"title=Input policy,enum=exclusive,enum=mixed"`
	Turns      []syncstore.AgentTurn `json:"turns" jsonschema:"title=Turns"`
}

// NewRequest builds the request body from a store snapshot. When turns is
// nil the snapshot turns are sent. Turns are copied so nothing the caller
// holds ends up aliased into the request.
func NewRequest(snapshot syncstore.Snapshot, turns []syncstore.AgentTurn) Request {
	if turns == nil {
		turns = snapshot.Turns
	}
	return Request{
		DocVersion: snapshot.Version,
		Policy:     snapshot.Policy,
		Turns:      CloneTurns(turns),
	}
}

// CloneTurns deep-copies a turn list. It never returns nil, so an empty list
// is sent as [].
func CloneTurns(turns []syncstore.AgentTurn) []syncstore.AgentTurn {
	if cloned := syncstore.CloneTurns(turns); cloned != nil {
		return cloned
	}
	return []syncstore.AgentTurn{}
}

// Chunk is one streamed response line.
type Chunk struct {
	TurnID string                   `json:"turnId,omitempty" jsonschema:"title=Server turn id"`
	Seq    *int                     `json:"seq,omitempty" jsonschema:"title=Sequence number within the turn"`
	Patch  *syncstore.DocumentPatch `json:"patch,omitempty" jsonschema:"title=Document patch"`
	Status string                   `json:"status,omitempty" jsonschema:"title=Status"`
	Done   bool                     `json:"done,omitempty" jsonschema:"title=Done"`

	// Sentinel is set when the line was the DoneSentinel rather than JSON.
	Sentinel bool `json:"-"`
}

// IsCompletion reports whether the chunk ends the exchange.
func (c Chunk) IsCompletion() bool {
	return c.Sentinel || c.Done || IsCompletionStatus(c.Status)
}

var completionStatuses = []string{"done", "completed", "complete"}

// IsCompletionStatus matches done, completed and complete case-insensitively.
func IsCompletionStatus(status string) bool {
	status = strings.TrimSpace(status)
	return slices.ContainsFunc(completionStatuses, func(candidate string) bool {
		return strings.EqualFold(candidate, status)
	})
}
