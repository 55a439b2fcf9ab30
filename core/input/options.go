package input

import (
	"time"
)

type GatewayOption func(*Gateway)

func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

func WithIDGenerator(newID func() string) GatewayOption {
	return func(g *Gateway) {
		if newID != nil {
			g.newID = newID
		}
	}
}

type CallOptions struct {
	Timestamp time.Time
	StreamID  string
	Metadata  map[string]any
}

type CallOption func(*CallOptions)

// WithTimestamp sets the event time instead of reading the gateway clock.
func WithTimestamp(at time.Time) CallOption {
	return func(o *CallOptions) {
		o.Timestamp = at
	}
}

// WithStreamID tags voice events with the id of the audio stream they were
// transcribed from. It sticks for the rest of the voice turn.
func WithStreamID(streamID string) CallOption {
	return func(o *CallOptions) {
		o.StreamID = streamID
	}
}

// WithMetadata adds a metadata entry to the emitted event. The channel,
// streamId and interim keys are owned by the gateway and cannot be
// overridden.
func WithMetadata(key string, value any) CallOption {
	return func(o *CallOptions) {
		if o.Metadata == nil {
			o.Metadata = map[string]any{}
		}
		o.Metadata[key] = value
	}
}
