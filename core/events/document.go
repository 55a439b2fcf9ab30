package events

import "time"

const (
	// KindDocumentPatched identifies a patch merged into the draft.
	KindDocumentPatched Kind = "document.patched"
	// KindDocumentRestored identifies the draft being replaced wholesale,
	// e.g. from an autosave snapshot.
	KindDocumentRestored Kind = "document.restored"
	// KindPolicyChanged identifies an input policy change.
	KindPolicyChanged Kind = "document.policy_changed"
)

// DocumentPatched carries the fields a patch touched and the version it
// produced.
type DocumentPatched struct {
	Base
	TurnID  string
	Fields  []string
	Version int
}

func NewDocumentPatched(turnID string, fields []string, version int, at time.Time) DocumentPatched {
	return DocumentPatched{Base: NewBaseAt(KindDocumentPatched, at), TurnID: turnID, Fields: fields, Version: version}
}

type DocumentRestored struct {
	Base
	Version int
}

func NewDocumentRestored(version int, at time.Time) DocumentRestored {
	return DocumentRestored{Base: NewBaseAt(KindDocumentRestored, at), Version: version}
}

type PolicyChanged struct {
	Base
	Policy string
}

func NewPolicyChanged(policy string, at time.Time) PolicyChanged {
	return PolicyChanged{Base: NewBaseAt(KindPolicyChanged, at), Policy: policy}
}
