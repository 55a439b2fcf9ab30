// Package input turns raw typing and voice signals into normalized input
// events and enforces the channel policy before anything reaches the store.
package input

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
)

// Sink consumes the events produced by the gateway. The document store
// implements it.
//
// The gateway calls the sink while holding its own lock, so a sink must not
// call back into the gateway synchronously.
type Sink interface {
	IngestInput(event events.NormalizedInputEvent)
	FinalizeInputTurn(channel events.Channel, turnID string, at time.Time)
	Policy() syncstore.InputPolicy
}

type channelState struct {
	turnID   string
	streamID string

	lastDraft string
	hasDraft  bool
}

// Gateway owns per-channel turn bookkeeping. It never mutates the document
// directly.
type Gateway struct {
	mu       sync.Mutex
	sink     Sink
	channels map[events.Channel]*channelState

	now   func() time.Time
	newID func() string
}

func New(sink Sink, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		sink:     sink,
		channels: map[events.Channel]*channelState{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, channel := range events.Channels() {
		g.channels[channel] = &channelState{}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OnTypingChange emits a draft event for the typing channel unless the
// content matches the previous draft.
func (g *Gateway) OnTypingChange(content string, opts ...CallOption) {
	g.emit(events.ChannelTyping, events.StageDraft, content, opts)
}

// OnTypingSubmit emits a final typing event and closes the typing turn. An
// empty content falls back to the last draft; when there is nothing to
// submit the turn is closed without an event.
func (g *Gateway) OnTypingSubmit(content string, opts ...CallOption) {
	if content == "" {
		g.mu.Lock()
		state := g.channels[events.ChannelTyping]
		if state.hasDraft {
			content = state.lastDraft
		}
		g.mu.Unlock()
	}
	if strings.TrimSpace(content) == "" {
		g.SubmitFinalInput(events.ChannelTyping, callOptions(opts).Timestamp)
		return
	}
	g.emit(events.ChannelTyping, events.StageFinal, content, opts)
}

// OnVoicePartial emits an interim voice transcript. Empty transcripts are
// ignored.
func (g *Gateway) OnVoicePartial(content string, opts ...CallOption) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	g.emit(events.ChannelVoice, events.StageDraft, content, opts)
}

// OnVoiceFinal emits the final voice transcript and closes the voice turn.
// Silence closes the turn without an event.
func (g *Gateway) OnVoiceFinal(content string, opts ...CallOption) {
	content = strings.TrimSpace(content)
	if content == "" {
		g.SubmitFinalInput(events.ChannelVoice, callOptions(opts).Timestamp)
		return
	}
	g.emit(events.ChannelVoice, events.StageFinal, content, opts)
}

// SubmitFinalInput closes the channel turn without emitting new content. A
// zero timestamp means now.
func (g *Gateway) SubmitFinalInput(channel events.Channel, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if at.IsZero() {
		at = g.now()
	}
	g.finalizeLocked(channel, at)
}

// Reset drops the channel bookkeeping without telling the sink, e.g. when
// the surface driving the channel goes away.
func (g *Gateway) Reset(channel events.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if state, ok := g.channels[channel]; ok {
		*state = channelState{}
	}
}

// ActiveTurnID returns the open turn of a channel, if any.
func (g *Gateway) ActiveTurnID(channel events.Channel) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.channels[channel]
	if !ok || state.turnID == "" {
		return "", false
	}
	return state.turnID, true
}

func (g *Gateway) emit(channel events.Channel, stage events.Stage, content string, opts []CallOption) {
	options := callOptions(opts)

	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.channels[channel]
	if !ok {
		return
	}

	at := options.Timestamp
	if at.IsZero() {
		at = g.now()
	}

	if stage == events.StageDraft && state.hasDraft && state.lastDraft == content {
		logger.DebugContext(context.Background(), "suppressing repeated draft", "channel", string(channel), "turn_id", state.turnID)
		return
	}

	if g.sink.Policy() == syncstore.PolicyExclusive {
		for _, other := range events.Channels() {
			if other != channel {
				g.finalizeLocked(other, at)
			}
		}
	}

	if state.turnID == "" {
		state.turnID = string(channel) + "-" + g.newID()
	}

	metadata := events.Metadata{}
	for key, value := range options.Metadata {
		metadata[key] = value
	}
	metadata[events.MetadataChannel] = channel
	if channel == events.ChannelVoice {
		if options.StreamID != "" {
			state.streamID = options.StreamID
		}
		if state.streamID == "" {
			state.streamID = "stream-" + g.newID()
		}
		metadata[events.MetadataStreamID] = state.streamID
		metadata[events.MetadataInterim] = stage == events.StageDraft
	}

	g.sink.IngestInput(events.NormalizedInputEvent{
		ID:        g.newID(),
		TurnID:    state.turnID,
		Source:    events.SourceUser,
		Stage:     stage,
		Content:   content,
		CreatedAt: at,
		Metadata:  metadata,
	})

	switch stage {
	case events.StageDraft:
		state.lastDraft = content
		state.hasDraft = true
	case events.StageFinal:
		g.finalizeLocked(channel, at)
	}
}

func (g *Gateway) finalizeLocked(channel events.Channel, at time.Time) {
	state, ok := g.channels[channel]
	if !ok || state.turnID == "" {
		return
	}

	turnID := state.turnID
	*state = channelState{}
	g.sink.FinalizeInputTurn(channel, turnID, at)
}

func callOptions(opts []CallOption) CallOptions {
	var options CallOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
