package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/audio"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/speechtotext"
)

type controlMessage struct {
	Type string `json:"type"`
}

// Transcribe opens a live stream and returns once it is connected. Results
// are delivered through the configured callbacks, in the order Deepgram
// sends them, until the stream is stopped or ctx is cancelled.
func (c *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	options := speechtotext.ResolveOptions(opts...)
	if err := checkEncoding(options.EncodingInfo); err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	callbacks, wsConfig := newCallbackConfig(options)

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return ErrStreamOpen
	}

	conn, err := c.connect(ctx, options.EncodingInfo, wsConfig)
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}

	done := make(chan struct{})
	c.conn = conn
	c.done = done
	c.lastMsgTs = time.Now()

	stream := &stream{client: c, conn: conn, callbacks: callbacks}
	go stream.readAndProcessMessages(ctx, options.EncodingInfo, done)
	return nil
}

func (c *TranscriptionClient) connect(ctx context.Context, encoding audio.EncodingInfo, config websocketConfig) (*websocket.Conn, error) {
	listenURL, err := url.Parse(c.listenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", c.model)
	queryParams.Set("language", c.language)
	queryParams.Set("smart_format", "true")
	if config.interimResults {
		queryParams.Set("interim_results", "true")
	}
	if config.utteranceEnd {
		queryParams.Set("utterance_end_ms", "1000")
	}
	queryParams.Set("endpointing", "300")
	if config.vadEvents {
		queryParams.Set("vad_events", "true")
	}
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := c.dialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

func (c *TranscriptionClient) SendAudio(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}

	c.lastMsgTs = time.Now()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// StopStream asks Deepgram to flush what it has and close the stream. The
// remaining results still arrive before Done is closed.
func (c *TranscriptionClient) StopStream() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil
	}

	if err := c.conn.WriteJSON(controlMessage{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

// Close drops the connection without waiting for pending results.
func (c *TranscriptionClient) Close() error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *TranscriptionClient) sendSilence(chunk []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

func (c *TranscriptionClient) sendKeepAlive() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(controlMessage{Type: "KeepAlive"})
}

func (c *TranscriptionClient) sinceLastAudio() time.Duration {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return time.Since(c.lastMsgTs)
}

func (c *TranscriptionClient) release(conn *websocket.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
}

// stream holds the state of one open transcription.
type stream struct {
	client    *TranscriptionClient
	conn      *websocket.Conn
	callbacks callbacks

	accumulatedTranscript string
	unendedSegment        bool
}

func (s *stream) readAndProcessMessages(ctx context.Context, encoding audio.EncodingInfo, done chan struct{}) {
	defer close(done)

	silenceCtx, silenceCancel := context.WithCancel(ctx)
	defer silenceCancel()
	go s.generateSilence(silenceCtx, encoding)

	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("failed to read deepgram websocket message", "error", err)
			}
			s.client.release(s.conn)
			s.conn.Close()
			return
		}
		if msgType != websocket.BinaryMessage {
			s.processMessage(msg)
		}
	}
}

func (s *stream) processMessage(msg []byte) {
	var parsedMsg controlMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram results", "error", err)
			return
		}
		s.onResults(msgResp)

	case api.TypeUtteranceEndResponse:
		if s.unendedSegment {
			s.onSpeechEnded()
		}

	case api.TypeSpeechStartedResponse:
		s.unendedSegment = true
		s.callbacks.started()
	}
}

func (s *stream) onResults(msgResp api.MessageResponse) {
	transcript := ""
	if len(msgResp.Channel.Alternatives) > 0 {
		transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
	}

	if !msgResp.IsFinal {
		if transcript != "" && s.callbacks.interimOn {
			s.callbacks.interim(strings.TrimSpace(s.accumulatedTranscript + " " + transcript))
		}
		return
	}

	if transcript != "" {
		s.unendedSegment = true
		if s.callbacks.accumulate {
			s.accumulatedTranscript += " " + transcript
		}
	}
	if msgResp.SpeechFinal {
		s.onSpeechEnded()
	}
}

func (s *stream) onSpeechEnded() {
	s.unendedSegment = false
	fullTranscript := strings.TrimSpace(s.accumulatedTranscript)
	s.accumulatedTranscript = ""
	if fullTranscript != "" {
		s.callbacks.utterance(fullTranscript)
	}
	s.callbacks.ended()
}

// generateSilence keeps the stream alive between audio chunks: a second of
// silence first, so endpointing can fire, then periodic KeepAlive messages.
func (s *stream) generateSilence(ctx context.Context, encoding audio.EncodingInfo) {
	type silenceGeneratorState string
	const (
		silenceGeneratorStateWaiting   silenceGeneratorState = "waiting"
		silenceGeneratorStateSilence   silenceGeneratorState = "silence"
		silenceGeneratorStateKeepAlive silenceGeneratorState = "keepAlive"
	)

	const tick = 50 * time.Millisecond
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	chunk := make([]byte, encoding.ChunkSize(int(tick/time.Millisecond)))
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	state := silenceGeneratorStateWaiting
	var firstSilenceTime, lastKeepAliveTime time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		idle := s.client.sinceLastAudio() > tick
		switch state {
		case silenceGeneratorStateWaiting:
			if idle {
				state = silenceGeneratorStateSilence
				firstSilenceTime = time.Now()
			}

		case silenceGeneratorStateSilence:
			if !idle {
				state = silenceGeneratorStateWaiting
				continue
			}
			if time.Since(firstSilenceTime) >= time.Second {
				state = silenceGeneratorStateKeepAlive
				lastKeepAliveTime = time.Now()
				continue
			}
			if err := s.client.sendSilence(chunk); err != nil {
				logger.Debug("failed to send silence", "error", err)
			}

		case silenceGeneratorStateKeepAlive:
			if !idle {
				state = silenceGeneratorStateWaiting
				continue
			}
			if time.Since(lastKeepAliveTime) >= 5*time.Second {
				lastKeepAliveTime = time.Now()
				if err := s.client.sendKeepAlive(); err != nil {
					logger.Debug("failed to send keep alive", "error", err)
				}
			}
		}
	}
}
