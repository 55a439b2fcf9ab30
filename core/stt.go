package draftsync

import (
	"context"
	"fmt"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/audio"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/speechtotext"
)

type speechToText struct {
	// client stores the configured speech-to-text implementation.
	client SpeechToText
	// voice receives the transcripts.
	voice    speechtotext.VoiceInput
	streamID string
}

func newSpeechToText(client SpeechToText, voice speechtotext.VoiceInput, streamID string) *speechToText {
	return &speechToText{client: client, voice: voice, streamID: streamID}
}

func (s *speechToText) Start(ctx context.Context, encodingInfo audio.EncodingInfo) error {
	if !s.isConfigured() {
		return nil
	}

	opts := speechtotext.VoiceChannel(s.voice, s.streamID, speechtotext.WithEncodingInfo(encodingInfo))
	if err := s.client.Transcribe(ctx, opts...); err != nil {
		return fmt.Errorf("failed to start transcribing: %w", err)
	}
	return nil
}

func (s *speechToText) SendAudio(audio []byte) error {
	if !s.isConfigured() {
		return nil
	}
	return s.client.SendAudio(audio)
}

func (s *speechToText) Close(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	switch c := s.client.(type) {
	case interface{ StopStream() error }:
		if err := c.StopStream(); err != nil {
			return fmt.Errorf("failed to stop speech-to-text stream: %w", err)
		}
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	}
	return nil
}

func (s *speechToText) isConfigured() bool {
	return s != nil && s.client != nil
}
