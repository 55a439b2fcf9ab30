package draftsync

import (
	"context"
	"errors"
	"testing"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/audio"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/input"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/speechtotext"
)

type speechToTextClientStub struct {
	transcribe func(opts speechtotext.TranscriptionOptions)
	err        error
}

func (s *speechToTextClientStub) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := speechtotext.TranscriptionOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if s.transcribe != nil {
		s.transcribe(options)
	}
	return s.err
}

func (s *speechToTextClientStub) SendAudio([]byte) error { return nil }

type closingSpeechToTextStub struct {
	speechToTextClientStub
	closeErr error
	closed   bool
}

func (s *closingSpeechToTextStub) Close() error {
	s.closed = true
	return s.closeErr
}

type voiceRecorder struct {
	log []string
}

func (v *voiceRecorder) OnVoicePartial(content string, _ ...input.CallOption) {
	v.log = append(v.log, "partial:"+content)
}

func (v *voiceRecorder) OnVoiceFinal(content string, _ ...input.CallOption) {
	v.log = append(v.log, "final:"+content)
}

func TestSpeechToTextStartRoutesTranscripts(t *testing.T) {
	encodingInfo := audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingALaw}
	voice := &voiceRecorder{}
	client := &speechToTextClientStub{
		transcribe: func(opts speechtotext.TranscriptionOptions) {
			if opts.EncodingInfo != encodingInfo {
				t.Fatalf("expected encoding %+v, got %+v", encodingInfo, opts.EncodingInfo)
			}
			opts.InterimTranscriptionCallback("hel")
			opts.TranscriptionCallback("hello")
		},
	}

	if err := newSpeechToText(client, voice, "mic").Start(context.Background(), encodingInfo); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	if len(voice.log) != 2 || voice.log[0] != "partial:hel" || voice.log[1] != "final:hello" {
		t.Fatalf("expected partial then final, got %v", voice.log)
	}
}

func TestSpeechToTextStartWrapsErrors(t *testing.T) {
	client := &speechToTextClientStub{err: errors.New("socket refused")}

	err := newSpeechToText(client, &voiceRecorder{}, "").Start(context.Background(), audio.GetDefaultEncodingInfo())
	if err == nil || !errors.Is(err, client.err) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSpeechToTextUnconfiguredIsNoop(t *testing.T) {
	runtime := newSpeechToText(nil, &voiceRecorder{}, "")

	if err := runtime.Start(context.Background(), audio.GetDefaultEncodingInfo()); err != nil {
		t.Fatalf("expected noop start, got %v", err)
	}
	if err := runtime.SendAudio([]byte{1}); err != nil {
		t.Fatalf("expected noop send, got %v", err)
	}
	if err := runtime.Close(context.Background()); err != nil {
		t.Fatalf("expected noop close, got %v", err)
	}
}

func TestSpeechToTextCloseUsesClientClose(t *testing.T) {
	client := &closingSpeechToTextStub{closeErr: errors.New("already closed")}

	err := newSpeechToText(client, &voiceRecorder{}, "").Close(context.Background())
	if !client.closed {
		t.Fatalf("expected client close to be called")
	}
	if !errors.Is(err, client.closeErr) {
		t.Fatalf("expected close error to be wrapped, got %v", err)
	}
}
