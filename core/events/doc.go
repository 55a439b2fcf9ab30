// Package events defines the typed event contract shared by the input
// gateway, the document store and the conversation controller.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - turn_state.*
//   - document.*
//
// Semantics used across the package:
//
//   - Draft: interim, mutable input that may be superseded.
//   - Final: committed input that closes the channel turn.
//   - Reconciled: an optimistic identifier replaced by an authoritative one.
//
// user_input events
//
//   - NormalizedInputEvent with stage draft (user_input.draft): interim input;
//     consecutive identical drafts on a channel are never emitted.
//   - NormalizedInputEvent with stage final (user_input.final): committed
//     input for the channel turn.
//
// turn_state events
//
//   - TurnStarted (turn_state.started): agent turn opened.
//   - TurnReconciled (turn_state.reconciled): optimistic turn id re-keyed to
//     the server-issued id.
//   - TurnCancelled (turn_state.cancelled): agent turn marked cancelled.
//   - TurnCompleted (turn_state.completed): agent turn retired; carries
//     duration and whether any patch was applied under it.
//   - InputFinalized (turn_state.input_finalized): a channel turn was closed
//     by the input gateway.
//
// document events
//
//   - DocumentPatched (document.patched): a patch was merged into the draft.
//   - DocumentRestored (document.restored): the draft was replaced wholesale.
//   - PolicyChanged (document.policy_changed): the input policy changed.
package events
