package deepgram

import (
	"testing"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/audio"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/input"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/speechtotext"
)

type silentVoice struct{}

func (silentVoice) OnVoicePartial(string, ...input.CallOption) {}

func (silentVoice) OnVoiceFinal(string, ...input.CallOption) {}

func TestCallbackConfigRequestsOnlyNeededFeatures(t *testing.T) {
	transcript := func(string) {}
	signal := func() {}

	testCases := []struct {
		name               string
		opts               []speechtotext.TranscriptionOption
		expectedConfig     websocketConfig
		expectedAccumulate bool
		expectedInterim    bool
	}{
		{
			name: "nothing configured",
		},
		{
			name:               "interim only",
			opts:               []speechtotext.TranscriptionOption{speechtotext.WithInterimTranscriptionCallback(transcript)},
			expectedConfig:     websocketConfig{interimResults: true},
			expectedAccumulate: true,
			expectedInterim:    true,
		},
		{
			name:               "utterance only",
			opts:               []speechtotext.TranscriptionOption{speechtotext.WithTranscriptionCallback(transcript)},
			expectedConfig:     websocketConfig{interimResults: true, vadEvents: true, utteranceEnd: true},
			expectedAccumulate: true,
		},
		{
			name:           "speech start only",
			opts:           []speechtotext.TranscriptionOption{speechtotext.WithSpeechStartedCallback(signal)},
			expectedConfig: websocketConfig{vadEvents: true},
		},
		{
			name:           "speech end only",
			opts:           []speechtotext.TranscriptionOption{speechtotext.WithSpeechEndedCallback(signal)},
			expectedConfig: websocketConfig{interimResults: true, vadEvents: true, utteranceEnd: true},
		},
		{
			name:               "voice channel",
			opts:               speechtotext.VoiceChannel(silentVoice{}, "stream-1"),
			expectedConfig:     websocketConfig{interimResults: true, vadEvents: true, utteranceEnd: true},
			expectedAccumulate: true,
			expectedInterim:    true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			cb, config := newCallbackConfig(speechtotext.ResolveOptions(testCase.opts...))
			if config != testCase.expectedConfig {
				t.Fatalf("expected config %+v, got %+v", testCase.expectedConfig, config)
			}
			if cb.accumulate != testCase.expectedAccumulate || cb.interimOn != testCase.expectedInterim {
				t.Fatalf("expected accumulate=%v interim=%v, got accumulate=%v interim=%v",
					testCase.expectedAccumulate, testCase.expectedInterim, cb.accumulate, cb.interimOn)
			}

			// Unset callbacks are safe to call.
			cb.interim("x")
			cb.utterance("x")
			cb.started()
			cb.ended()
		})
	}
}

func TestResolveOptionsDefaultsEncoding(t *testing.T) {
	if got := speechtotext.ResolveOptions().EncodingInfo; got != audio.GetDefaultEncodingInfo() {
		t.Fatalf("expected default encoding, got %+v", got)
	}
	if got := speechtotext.ResolveOptions(speechtotext.WithEncodingInfo(audio.EncodingInfo{})).EncodingInfo; got != audio.GetDefaultEncodingInfo() {
		t.Fatalf("expected zero encoding to fall back to default, got %+v", got)
	}

	mulaw := audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw}
	if got := speechtotext.ResolveOptions(speechtotext.WithEncodingInfo(mulaw)).EncodingInfo; got != mulaw {
		t.Fatalf("expected %+v, got %+v", mulaw, got)
	}
}
