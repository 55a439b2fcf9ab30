package deepgram

import "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/speechtotext"

type callbacks struct {
	interim    func(string)
	utterance  func(string)
	started    func()
	ended      func()
	accumulate bool
	interimOn  bool
}

// websocketConfig holds the Deepgram query features a stream asks for.
type websocketConfig struct {
	interimResults bool
	vadEvents      bool
	utteranceEnd   bool
}

func newCallbackConfig(options speechtotext.TranscriptionOptions) (callbacks, websocketConfig) {
	cb := callbacks{
		interim:    func(string) {},
		utterance:  func(string) {},
		started:    func() {},
		ended:      func() {},
		accumulate: options.WantsUtterance(),
		interimOn:  options.WantsInterim(),
	}
	if options.InterimTranscriptionCallback != nil {
		cb.interim = options.InterimTranscriptionCallback
	}
	if options.TranscriptionCallback != nil {
		cb.utterance = options.TranscriptionCallback
	}
	if options.SpeechStartedCallback != nil {
		cb.started = options.SpeechStartedCallback
	}
	if options.SpeechEndedCallback != nil {
		cb.ended = options.SpeechEndedCallback
	}

	// UtteranceEnd messages need interim results and VAD events.
	utteranceEnd := options.DetectsSpeechEnd()
	return cb, websocketConfig{
		interimResults: options.WantsInterim() || utteranceEnd,
		vadEvents:      options.SpeechStartedCallback != nil || utteranceEnd,
		utteranceEnd:   utteranceEnd,
	}
}
