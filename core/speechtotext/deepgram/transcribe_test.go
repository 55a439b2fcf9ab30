package deepgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/audio"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/input"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/speechtotext"
)

func results(transcript string, isFinal, speechFinal bool) map[string]any {
	return map[string]any{
		"type":         "Results",
		"is_final":     isFinal,
		"speech_final": speechFinal,
		"channel": map[string]any{
			"alternatives": []map[string]any{{"transcript": transcript}},
		},
	}
}

type fakeListenServer struct {
	*httptest.Server

	mu      sync.Mutex
	query   map[string]string
	auth    string
	control []string
}

// newFakeListenServer sends messages once connected and closes the stream
// when the client asks it to.
func newFakeListenServer(t *testing.T, messages ...map[string]any) *fakeListenServer {
	t.Helper()
	server := &fakeListenServer{query: map[string]string{}}
	upgrader := websocket.Upgrader{}

	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.mu.Lock()
		for key := range r.URL.Query() {
			server.query[key] = r.URL.Query().Get(key)
		}
		server.auth = r.Header.Get("Authorization")
		server.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, message := range messages {
			if err := conn.WriteJSON(message); err != nil {
				return
			}
		}

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.BinaryMessage {
				continue
			}
			server.mu.Lock()
			server.control = append(server.control, string(msg))
			server.mu.Unlock()
			if strings.Contains(string(msg), "CloseStream") {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func (s *fakeListenServer) listenURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

type recordingVoice struct {
	mu       sync.Mutex
	partials []string
	finals   []string
}

func (v *recordingVoice) OnVoicePartial(content string, _ ...input.CallOption) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.partials = append(v.partials, content)
}

func (v *recordingVoice) OnVoiceFinal(content string, _ ...input.CallOption) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.finals = append(v.finals, content)
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected stream to finish")
	}
}

func TestTranscribeDeliversResultsInOrder(t *testing.T) {
	server := newFakeListenServer(t,
		results("hel", false, false),
		results("hello", true, false),
		results("wor", false, false),
		results("world", true, false),
		map[string]any{"type": "UtteranceEnd"},
	)
	client := NewTranscriptionClient("secret", WithListenURL(server.listenURL()))

	voice := &recordingVoice{}
	var mu sync.Mutex
	var ended int
	err := client.Transcribe(context.Background(),
		speechtotext.VoiceChannel(voice, "mic-1",
			speechtotext.WithSpeechEndedCallback(func() {
				mu.Lock()
				ended++
				mu.Unlock()
			}))...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		voice.mu.Lock()
		n := len(voice.finals)
		voice.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := client.StopStream(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitDone(t, client.Done())

	voice.mu.Lock()
	defer voice.mu.Unlock()
	expectedPartials := []string{"hel", "hello wor"}
	if strings.Join(voice.partials, "|") != strings.Join(expectedPartials, "|") {
		t.Fatalf("expected partials %v, got %v", expectedPartials, voice.partials)
	}
	if len(voice.finals) != 1 || voice.finals[0] != "hello world" {
		t.Fatalf("expected one final utterance, got %v", voice.finals)
	}
	mu.Lock()
	defer mu.Unlock()
	if ended != 1 {
		t.Fatalf("expected speech end once, got %d", ended)
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	if server.auth != "Token secret" {
		t.Fatalf("expected token auth header, got %q", server.auth)
	}
	if server.query["encoding"] != "linear16" || server.query["utterance_end_ms"] != "1000" || server.query["interim_results"] != "true" {
		t.Fatalf("unexpected query %v", server.query)
	}
}

func TestSpeechFinalEndsUtterance(t *testing.T) {
	server := newFakeListenServer(t,
		map[string]any{"type": "SpeechStarted"},
		results("North Star", true, true),
		map[string]any{"type": "UtteranceEnd"},
	)
	client := NewTranscriptionClient("secret", WithListenURL(server.listenURL()))

	var mu sync.Mutex
	var log []string
	record := func(entry string) {
		mu.Lock()
		log = append(log, entry)
		mu.Unlock()
	}
	err := client.Transcribe(context.Background(),
		speechtotext.WithSpeechStartedCallback(func() { record("start") }),
		speechtotext.WithTranscriptionCallback(func(transcript string) { record("final:" + transcript) }),
		speechtotext.WithSpeechEndedCallback(func() { record("end") }),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(log)
		mu.Unlock()
		if n >= 3 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	client.StopStream()
	waitDone(t, client.Done())

	mu.Lock()
	defer mu.Unlock()
	expected := "start,final:North Star,end"
	if got := strings.Join(log, ","); got != expected {
		t.Fatalf("expected %q, got %q", expected, got)
	}
}

func TestTranscribeRejectsInvalidSetup(t *testing.T) {
	if err := NewTranscriptionClient("").Transcribe(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}

	client := NewTranscriptionClient("secret")
	err := client.Transcribe(context.Background(),
		speechtotext.WithEncodingInfo(audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingMulaw}))
	if err == nil {
		t.Fatalf("expected mulaw at 16kHz to be rejected")
	}
}

func TestSendAudioWithoutStream(t *testing.T) {
	client := NewTranscriptionClient("secret")
	if err := client.SendAudio([]byte{0, 0}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := client.StopStream(); err != nil {
		t.Fatalf("expected stopping a closed stream to be a no-op, got %v", err)
	}
}

func TestCancelClosesStream(t *testing.T) {
	server := newFakeListenServer(t)
	client := NewTranscriptionClient("secret", WithListenURL(server.listenURL()))

	ctx, cancel := context.WithCancel(context.Background())
	if err := client.Transcribe(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.Transcribe(ctx); !errors.Is(err, ErrStreamOpen) {
		t.Fatalf("expected second stream to be refused, got %v", err)
	}

	cancel()
	waitDone(t, client.Done())
	if err := client.SendAudio([]byte{0}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected stream to be released, got %v", err)
	}
}

func TestCheckEncoding(t *testing.T) {
	testCases := []struct {
		name        string
		encoding    audio.EncodingInfo
		expectedErr bool
	}{
		{name: "linear16 48k", encoding: audio.EncodingInfo{SampleRate: 48000, Format: audio.EncodingLinear16}},
		{name: "mulaw 8k", encoding: audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw}},
		{name: "alaw 16k", encoding: audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingALaw}, expectedErr: true},
		{name: "odd rate", encoding: audio.EncodingInfo{SampleRate: 44100, Format: audio.EncodingLinear16}, expectedErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := checkEncoding(testCase.encoding)
			if (err != nil) != testCase.expectedErr {
				t.Fatalf("expected error %v, got %v", testCase.expectedErr, err)
			}
		})
	}
}
