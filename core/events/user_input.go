package events

import "time"

const (
	// KindUserInputDraft identifies interim, mutable input on a channel.
	KindUserInputDraft Kind = "user_input.draft"
	// KindUserInputFinal identifies committed input that closes the channel turn.
	KindUserInputFinal Kind = "user_input.final"
)

// Channel is an input modality that can originate turns on its own.
type Channel string

const (
	ChannelTyping Channel = "typing"
	ChannelVoice  Channel = "voice"
)

// Channels lists every known channel in a stable order.
func Channels() []Channel {
	return []Channel{ChannelTyping, ChannelVoice}
}

func (c Channel) Valid() bool {
	return c == ChannelTyping || c == ChannelVoice
}

type Stage string

const (
	StageDraft Stage = "draft"
	StageFinal Stage = "final"
)

// Source identifies who produced an input event. Only user input flows
// through the gateway today.
type Source string

const SourceUser Source = "user"

// Metadata keys set by the input gateway.
const (
	MetadataChannel  = "channel"
	MetadataStreamID = "streamId"
	MetadataInterim  = "interim"
)

type Metadata map[string]any

// NormalizedInputEvent is one contribution from a channel, tagged with the
// logical turn it belongs to.
type NormalizedInputEvent struct {
	ID        string    `json:"id"`
	TurnID    string    `json:"turnId"`
	Source    Source    `json:"source"`
	Stage     Stage     `json:"stage"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Metadata  Metadata  `json:"metadata"`
}

func (e NormalizedInputEvent) Kind() Kind {
	if e.Stage == StageFinal {
		return KindUserInputFinal
	}
	return KindUserInputDraft
}

func (e NormalizedInputEvent) Timestamp() time.Time {
	return e.CreatedAt
}

// Channel reads the originating channel from the event metadata.
func (e NormalizedInputEvent) Channel() Channel {
	switch channel := e.Metadata[MetadataChannel].(type) {
	case Channel:
		return channel
	case string:
		return Channel(channel)
	}
	return ""
}

// Clone returns a copy whose metadata, nested values included, is not
// shared with e.
func (e NormalizedInputEvent) Clone() NormalizedInputEvent {
	e.Metadata = e.Metadata.Clone()
	return e
}
