package events

import "time"

const (
	// KindTurnStarted identifies an agent turn being opened.
	KindTurnStarted Kind = "turn_state.started"
	// KindTurnReconciled identifies an optimistic turn id being re-keyed to a
	// server-issued one.
	KindTurnReconciled Kind = "turn_state.reconciled"
	// KindTurnCompleted identifies an agent turn being retired.
	KindTurnCompleted Kind = "turn_state.completed"
	// KindTurnCancelled identifies an agent turn marked as cancelled.
	KindTurnCancelled Kind = "turn_state.cancelled"
	// KindInputFinalized identifies a channel turn closed by the input gateway.
	KindInputFinalized Kind = "turn_state.input_finalized"
)

// TurnStarted marks an agent turn opening.
type TurnStarted struct {
	Base
	TurnID string
}

func NewTurnStarted(turnID string, at time.Time) TurnStarted {
	return TurnStarted{Base: NewBaseAt(KindTurnStarted, at), TurnID: turnID}
}

// TurnReconciled marks an optimistic turn id being replaced.
type TurnReconciled struct {
	Base
	PreviousID string
	TurnID     string
}

func NewTurnReconciled(previousID, turnID string, at time.Time) TurnReconciled {
	return TurnReconciled{Base: NewBaseAt(KindTurnReconciled, at), PreviousID: previousID, TurnID: turnID}
}

// TurnCompleted marks an agent turn being retired.
type TurnCompleted struct {
	Base
	TurnID          string
	HasAppliedPatch bool
	Cancelled       bool
	Duration        time.Duration
}

func NewTurnCompleted(turnID string, at time.Time, hasAppliedPatch, cancelled bool, duration time.Duration) TurnCompleted {
	return TurnCompleted{
		Base:            NewBaseAt(KindTurnCompleted, at),
		TurnID:          turnID,
		HasAppliedPatch: hasAppliedPatch,
		Cancelled:       cancelled,
		Duration:        duration,
	}
}

// TurnCancelled marks cancellation of an agent turn.
type TurnCancelled struct {
	Base
	TurnID string
}

func NewTurnCancelled(turnID string, at time.Time) TurnCancelled {
	return TurnCancelled{Base: NewBaseAt(KindTurnCancelled, at), TurnID: turnID}
}

// InputFinalized marks a channel turn closed by the input gateway.
// HasFinalInput is false when the turn was closed without a final event,
// e.g. silence on the voice channel or a forced cleanup.
type InputFinalized struct {
	Base
	Channel       Channel
	TurnID        string
	HasFinalInput bool
}

func NewInputFinalized(channel Channel, turnID string, hasFinalInput bool, at time.Time) InputFinalized {
	return InputFinalized{
		Base:          NewBaseAt(KindInputFinalized, at),
		Channel:       channel,
		TurnID:        turnID,
		HasFinalInput: hasFinalInput,
	}
}
