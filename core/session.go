// Package draftsync assembles the document store, the input gateway and the
// conversation controller into a drafting session.
package draftsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/autosave"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/conversation"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/guided"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/input"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/speechtotext"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
)

var ErrSessionClosed = errors.New("draftsync: session closed")

type Session struct {
	store      *syncstore.Store
	gateway    *input.Gateway
	controller *conversation.Controller
	guided     *guided.Orchestrator
	saver      *autosave.Saver

	speechToText *speechToText
	audioInput   *audioInput

	autoSync       bool
	onSync         func(conversation.Outcome, error)
	onGuidedResult func(guided.Result, error)
	unsubscribe    func()

	// ctx bounds the work the session starts on its own.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
}

// New builds a session talking to the agent backend at endpoint.
func New(endpoint string, opts ...SessionOption) *Session {
	options := SessionOptions{policy: syncstore.PolicyExclusive, autoSync: true}
	for _, opt := range opts {
		opt(&options)
	}

	storeOptions := []syncstore.Option{syncstore.WithPolicy(options.policy)}
	if options.schema != nil {
		storeOptions = append(storeOptions, syncstore.WithSchema(options.schema))
	}
	storeOptions = append(storeOptions, options.storeOptions...)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		store:          syncstore.New(storeOptions...),
		autoSync:       options.autoSync && !options.guided,
		onSync:         options.onSync,
		onGuidedResult: options.onGuidedResult,
		ctx:            ctx,
		cancel:         cancel,
	}
	s.gateway = input.New(s.store, options.gatewayOptions...)
	s.controller = conversation.New(s.store, endpoint, options.controllerOptions...)
	if options.guided {
		s.guided = guided.New(options.schema, s.gateway, s.store, s.controller)
	}
	if options.autosaveBackend != nil {
		s.saver = autosave.New(s.store, options.autosaveBackend, options.docID, options.autosaveOptions...)
	}

	var voice speechtotext.VoiceInput = s.gateway
	if s.guided != nil {
		voice = &guidedVoice{session: s}
	}
	s.speechToText = newSpeechToText(options.speechToText, voice, options.streamID)
	s.audioInput = newAudioInput(options.audioInput, s.sendAudio, nil)

	emitEvent := newCallbackEventEmitter(options)
	s.unsubscribe = s.store.Subscribe(func(event events.Event) {
		emitEvent(event)
		s.onStoreEvent(event)
	})
	return s
}

func (s *Session) Store() *syncstore.Store                { return s.store }
func (s *Session) Gateway() *input.Gateway                { return s.gateway }
func (s *Session) Controller() *conversation.Controller   { return s.controller }
func (s *Session) Guided() (*guided.Orchestrator, bool)   { return s.guided, s.guided != nil }
func (s *Session) Snapshot() syncstore.Snapshot           { return s.store.Snapshot() }
func (s *Session) SetPolicy(policy syncstore.InputPolicy) { s.store.SetPolicy(policy) }

// Start restores the autosaved draft and opens the voice channel when a
// speech-to-text client is configured.
func (s *Session) Start(ctx context.Context) error {
	if s.isClosed() {
		return ErrSessionClosed
	}

	if s.saver != nil {
		restored, err := s.saver.Restore(ctx)
		if err != nil {
			return fmt.Errorf("failed to restore draft: %w", err)
		}
		if restored {
			logger.InfoContext(ctx, "draft restored", "version", s.store.Version())
		}
	}

	if s.speechToText.isConfigured() {
		if err := s.speechToText.Start(s.ctx, s.audioInput.EncodingInfo()); err != nil {
			return err
		}
		s.audioInput.Capture(s.ctx)
	}
	return nil
}

// Sync runs an exchange over every turn in the store.
func (s *Session) Sync(ctx context.Context) (conversation.Outcome, error) {
	if s.isClosed() {
		return conversation.Outcome{}, ErrSessionClosed
	}
	return s.controller.Sync(ctx, nil)
}

// Submit hands a final utterance to the session. In guided mode it is
// answered or interpreted as a command by the orchestrator; otherwise it
// closes the channel turn and the result only carries the action.
func (s *Session) Submit(ctx context.Context, channel events.Channel, text string) (guided.Result, error) {
	if s.isClosed() {
		return guided.Result{}, ErrSessionClosed
	}
	if s.guided != nil {
		return s.guided.Submit(ctx, channel, text)
	}

	if channel == events.ChannelVoice {
		s.gateway.OnVoiceFinal(text)
	} else {
		s.gateway.OnTypingSubmit(text)
	}
	return guided.Result{Action: guided.ActionAnswer}, nil
}

// Cancel stops the exchange in flight, if any.
func (s *Session) Cancel(cause error) {
	s.controller.Cancel(cause)
}

// Wait blocks until the exchanges the session started on its own return.
func (s *Session) Wait() {
	s.inFlight.Wait()
}

// Close cancels in-flight work, stops the voice channel and flushes the
// autosave.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs error
	s.controller.Cancel(ErrSessionClosed)
	if err := s.speechToText.Close(ctx); err != nil {
		errs = errors.Join(errs, err)
	}
	s.cancel()
	s.audioInput.Close()
	s.inFlight.Wait()

	s.unsubscribe()
	if s.saver != nil {
		if err := s.saver.Close(ctx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to flush draft: %w", err))
		}
	}
	return errs
}

func (s *Session) onStoreEvent(event events.Event) {
	finalized, ok := event.(events.InputFinalized)
	if !ok || !finalized.HasFinalInput || !s.autoSync {
		return
	}

	// Store listeners run inside the gateway call that closed the turn.
	s.goTracked(func(ctx context.Context) {
		outcome, err := s.controller.Sync(ctx, nil)
		if s.onSync != nil {
			s.onSync(outcome, err)
		}
	})
}

func (s *Session) goTracked(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.inFlight.Add(1)
	go func() {
		defer s.inFlight.Done()
		fn(s.ctx)
	}()
}

func (s *Session) sendAudio(audio []byte) {
	if err := s.speechToText.SendAudio(audio); err != nil {
		logger.Warn("failed to send audio", "error", err)
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// guidedVoice sends spoken answers through the guided orchestrator while
// interim transcripts still reach the gateway directly.
type guidedVoice struct {
	session *Session
}

func (v *guidedVoice) OnVoicePartial(content string, opts ...input.CallOption) {
	v.session.gateway.OnVoicePartial(content, opts...)
}

func (v *guidedVoice) OnVoiceFinal(content string, _ ...input.CallOption) {
	v.session.goTracked(func(ctx context.Context) {
		result, err := v.session.guided.Submit(ctx, events.ChannelVoice, content)
		if v.session.onGuidedResult != nil {
			v.session.onGuidedResult(result, err)
		}
	})
}
