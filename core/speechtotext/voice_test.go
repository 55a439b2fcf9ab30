package speechtotext

import (
	"testing"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/input"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
)

func TestVoiceChannelFeedsGateway(t *testing.T) {
	store := syncstore.New()
	gateway := input.New(store)

	options := TranscriptionOptions{}
	for _, opt := range VoiceChannel(gateway, "mic-1") {
		opt(&options)
	}

	options.InterimTranscriptionCallback("north")
	options.InterimTranscriptionCallback("north")
	options.InterimTranscriptionCallback("north star")
	turnID, ok := gateway.ActiveTurnID(events.ChannelVoice)
	if !ok {
		t.Fatalf("expected an open voice turn")
	}
	options.TranscriptionCallback("north star initiative")

	turn, ok := store.Turn(turnID)
	if !ok {
		t.Fatalf("expected the voice turn to be recorded")
	}
	if len(turn.Events) != 3 {
		t.Fatalf("expected two drafts and one final, got %d events", len(turn.Events))
	}
	if content, _ := turn.LastFinalContent(); content != "north star initiative" {
		t.Fatalf("expected final transcript, got %q", content)
	}
	if turn.Events[0].Metadata[events.MetadataStreamID] != "mic-1" {
		t.Fatalf("expected stream id to be attached")
	}
	if turn.Status != syncstore.TurnFinalized {
		t.Fatalf("expected the voice turn to be finalized")
	}
}

func TestVoiceChannelKeepsExtraCallbacks(t *testing.T) {
	started := false
	options := TranscriptionOptions{}
	for _, opt := range VoiceChannel(input.New(syncstore.New()), "", WithSpeechStartedCallback(func() { started = true })) {
		opt(&options)
	}

	options.SpeechStartedCallback()
	if !started {
		t.Fatalf("expected extra callback to be kept")
	}
}
