package events

import (
	"testing"
	"time"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	at := time.Unix(1700000000, 0)
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "draft input", event: NormalizedInputEvent{Stage: StageDraft}, expected: KindUserInputDraft},
		{name: "final input", event: NormalizedInputEvent{Stage: StageFinal}, expected: KindUserInputFinal},
		{name: "turn started", event: NewTurnStarted("t", at), expected: KindTurnStarted},
		{name: "turn reconciled", event: NewTurnReconciled("a", "b", at), expected: KindTurnReconciled},
		{name: "turn completed", event: NewTurnCompleted("t", at, true, false, time.Second), expected: KindTurnCompleted},
		{name: "turn cancelled", event: NewTurnCancelled("t", at), expected: KindTurnCancelled},
		{name: "input finalized", event: NewInputFinalized(ChannelVoice, "t", false, at), expected: KindInputFinalized},
		{name: "document patched", event: NewDocumentPatched("t", []string{"title"}, 1, at), expected: KindDocumentPatched},
		{name: "document restored", event: NewDocumentRestored(3, at), expected: KindDocumentRestored},
		{name: "policy changed", event: NewPolicyChanged("mixed", at), expected: KindPolicyChanged},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestNewBaseAtKeepsProvidedTimestamp(t *testing.T) {
	at := time.Unix(1700000000, 0)
	if got := NewTurnStarted("t", at).Timestamp(); !got.Equal(at) {
		t.Fatalf("expected timestamp %v, got %v", at, got)
	}

	if got := NewTurnStarted("t", time.Time{}).Timestamp(); got.IsZero() {
		t.Fatalf("expected zero timestamp to fall back to wall clock")
	}
}

func TestInputEventChannelReadsMetadata(t *testing.T) {
	testCases := []struct {
		name     string
		metadata Metadata
		expected Channel
	}{
		{name: "typed channel", metadata: Metadata{MetadataChannel: ChannelVoice}, expected: ChannelVoice},
		{name: "string channel", metadata: Metadata{MetadataChannel: "typing"}, expected: ChannelTyping},
		{name: "missing channel", metadata: nil, expected: ""},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			event := NormalizedInputEvent{Metadata: testCase.metadata}
			if got := event.Channel(); got != testCase.expected {
				t.Fatalf("expected channel %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestInputEventCloneDetachesMetadata(t *testing.T) {
	original := NormalizedInputEvent{Metadata: Metadata{MetadataChannel: ChannelTyping}}
	clone := original.Clone()
	clone.Metadata["extra"] = true

	if _, ok := original.Metadata["extra"]; ok {
		t.Fatalf("expected clone metadata to be detached from the original")
	}
}

func TestInputEventCloneCopiesNestedMetadata(t *testing.T) {
	original := NormalizedInputEvent{Metadata: Metadata{
		MetadataChannel: ChannelVoice,
		"context":       map[string]any{"fieldId": "title", "hints": []any{"a", "b"}},
		"tags":          []string{"draft"},
	}}
	clone := original.Clone()

	clone.Metadata["context"].(map[string]any)["fieldId"] = "sponsor"
	clone.Metadata["context"].(map[string]any)["hints"].([]any)[0] = "z"
	clone.Metadata["tags"].([]string)[0] = "final"

	context := original.Metadata["context"].(map[string]any)
	if context["fieldId"] != "title" || context["hints"].([]any)[0] != "a" {
		t.Fatalf("expected nested metadata to be detached, got %v", context)
	}
	if original.Metadata["tags"].([]string)[0] != "draft" {
		t.Fatalf("expected metadata slices to be detached")
	}
	if clone.Channel() != ChannelVoice {
		t.Fatalf("expected channel to survive the copy, got %q", clone.Channel())
	}
}
