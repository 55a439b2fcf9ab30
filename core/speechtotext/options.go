// Package speechtotext defines how live transcription sources report
// transcripts, and bridges them onto the voice input channel.
package speechtotext

import "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/audio"

// TranscriptionOptions configures one transcription stream. Sources only ask
// the provider for the features a set callback needs.
type TranscriptionOptions struct {
	// InterimTranscriptionCallback receives the utterance so far: the
	// finalized segments plus the current interim one.
	InterimTranscriptionCallback func(transcript string)
	// TranscriptionCallback receives the full utterance once speech ends.
	TranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

// ResolveOptions applies opts over the default encoding. A zero encoding set
// by an option falls back to the default too.
func ResolveOptions(opts ...TranscriptionOption) TranscriptionOptions {
	options := TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.EncodingInfo.IsZero() {
		options.EncodingInfo = audio.GetDefaultEncodingInfo()
	}
	return options
}

// WantsInterim reports whether interim results have a consumer.
func (o TranscriptionOptions) WantsInterim() bool {
	return o.InterimTranscriptionCallback != nil
}

// WantsUtterance reports whether finalized segments must be kept until the
// utterance ends.
func (o TranscriptionOptions) WantsUtterance() bool {
	return o.TranscriptionCallback != nil || o.InterimTranscriptionCallback != nil
}

// DetectsSpeechEnd reports whether the source must signal the end of an
// utterance.
func (o TranscriptionOptions) DetectsSpeechEnd() bool {
	return o.TranscriptionCallback != nil || o.SpeechEndedCallback != nil
}

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
