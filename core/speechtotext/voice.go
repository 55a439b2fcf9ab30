package speechtotext

import (
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/input"
)

// VoiceInput is the voice side of the input gateway.
type VoiceInput interface {
	OnVoicePartial(content string, opts ...input.CallOption)
	OnVoiceFinal(content string, opts ...input.CallOption)
}

// VoiceChannel routes transcripts to the voice channel: the growing
// utterance becomes draft input and the full utterance closes the voice turn.
// Extra options are applied after the routing callbacks, so they can still
// hook speech start and end.
func VoiceChannel(voice VoiceInput, streamID string, extra ...TranscriptionOption) []TranscriptionOption {
	callOpts := []input.CallOption{}
	if streamID != "" {
		callOpts = append(callOpts, input.WithStreamID(streamID))
	}

	opts := []TranscriptionOption{
		WithInterimTranscriptionCallback(func(transcript string) {
			voice.OnVoicePartial(transcript, callOpts...)
		}),
		WithTranscriptionCallback(func(transcript string) {
			voice.OnVoiceFinal(transcript, callOpts...)
		}),
	}
	return append(opts, extra...)
}
