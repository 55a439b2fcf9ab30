package draftsync

import (
	"context"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/audio"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/autosave"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/conversation"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/guided"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/input"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/speechtotext"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/validation"
)

type SessionOption func(*SessionOptions)

type SessionOptions struct {
	schema validation.Schema
	policy syncstore.InputPolicy

	storeOptions      []syncstore.Option
	gatewayOptions    []input.GatewayOption
	controllerOptions []conversation.ControllerOption

	autosaveBackend autosave.Backend
	docID           string
	autosaveOptions []autosave.SaverOption

	speechToText SpeechToText
	audioInput   AudioInput
	streamID     string

	guided   bool
	autoSync bool

	onDraftChanged   func(version int, fields []string)
	onInputFinalized func(channel events.Channel, turnID string)
	onTurnCompleted  func(events.TurnCompleted)
	onPolicyChanged  func(policy syncstore.InputPolicy)
	onSync           func(conversation.Outcome, error)
	onGuidedResult   func(guided.Result, error)
}

// WithSchema validates patches against schema and drives the guided flow.
func WithSchema(schema validation.Schema) SessionOption {
	return func(o *SessionOptions) {
		o.schema = schema
	}
}

func WithPolicy(policy syncstore.InputPolicy) SessionOption {
	return func(o *SessionOptions) {
		if policy.Valid() {
			o.policy = policy
		}
	}
}

func WithStoreOptions(opts ...syncstore.Option) SessionOption {
	return func(o *SessionOptions) {
		o.storeOptions = append(o.storeOptions, opts...)
	}
}

func WithGatewayOptions(opts ...input.GatewayOption) SessionOption {
	return func(o *SessionOptions) {
		o.gatewayOptions = append(o.gatewayOptions, opts...)
	}
}

func WithControllerOptions(opts ...conversation.ControllerOption) SessionOption {
	return func(o *SessionOptions) {
		o.controllerOptions = append(o.controllerOptions, opts...)
	}
}

// WithAutosave persists the draft under docID and restores it on Start.
func WithAutosave(backend autosave.Backend, docID string, opts ...autosave.SaverOption) SessionOption {
	return func(o *SessionOptions) {
		o.autosaveBackend = backend
		o.docID = docID
		o.autosaveOptions = opts
	}
}

type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
}

// WithSpeechToTextClient feeds live transcripts into the voice channel.
// streamID tags the voice events; empty lets the gateway pick one per turn.
func WithSpeechToTextClient(client SpeechToText, streamID string) SessionOption {
	return func(o *SessionOptions) {
		o.speechToText = client
		o.streamID = streamID
	}
}

type AudioInput interface {
	EncodingInfo() audio.EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}

// WithAudioInput streams captured audio to the speech-to-text client.
func WithAudioInput(client AudioInput) SessionOption {
	return func(o *SessionOptions) {
		o.audioInput = client
	}
}

// WithGuidedFlow routes submissions through a field-by-field orchestrator.
// Guided answers are synced by the orchestrator itself.
func WithGuidedFlow() SessionOption {
	return func(o *SessionOptions) {
		o.guided = true
	}
}

// WithoutAutoSync stops finalized input from starting an exchange.
func WithoutAutoSync() SessionOption {
	return func(o *SessionOptions) {
		o.autoSync = false
	}
}

func WithOnDraftChanged(callback func(version int, fields []string)) SessionOption {
	return func(o *SessionOptions) {
		o.onDraftChanged = callback
	}
}

func WithOnInputFinalized(callback func(channel events.Channel, turnID string)) SessionOption {
	return func(o *SessionOptions) {
		o.onInputFinalized = callback
	}
}

func WithOnTurnCompleted(callback func(events.TurnCompleted)) SessionOption {
	return func(o *SessionOptions) {
		o.onTurnCompleted = callback
	}
}

func WithOnPolicyChanged(callback func(policy syncstore.InputPolicy)) SessionOption {
	return func(o *SessionOptions) {
		o.onPolicyChanged = callback
	}
}

// WithOnSync reports the result of every exchange the session starts on its
// own.
func WithOnSync(callback func(conversation.Outcome, error)) SessionOption {
	return func(o *SessionOptions) {
		o.onSync = callback
	}
}

// WithOnGuidedResult reports guided submissions the session makes on its
// own, such as spoken answers.
func WithOnGuidedResult(callback func(guided.Result, error)) SessionOption {
	return func(o *SessionOptions) {
		o.onGuidedResult = callback
	}
}
