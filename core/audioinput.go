package draftsync

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/audio"
)

type audioInput struct {
	// base stores the configured input client used for streaming audio.
	base AudioInput
	// isCapturing reports whether the input client is currently streaming.
	isCapturing atomic.Bool

	// onInputAudio is called when input audio is received.
	onInputAudio func(audio []byte)
	// onStopped is called with the error the stream ended with.
	onStopped func(error)

	wg sync.WaitGroup
}

func newAudioInput(client AudioInput, onInputAudio func(audio []byte), onStopped func(error)) *audioInput {
	if onInputAudio == nil {
		onInputAudio = func([]byte) {}
	}
	if onStopped == nil {
		onStopped = func(error) {}
	}
	return &audioInput{base: client, onInputAudio: onInputAudio, onStopped: onStopped}
}

func (a *audioInput) IsConfigured() bool { return a != nil && a.base != nil }
func (a *audioInput) IsCapturing() bool  { return a != nil && a.isCapturing.Load() }

func (a *audioInput) Capture(ctx context.Context) {
	if !a.IsConfigured() || !a.isCapturing.CompareAndSwap(false, true) {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := a.base.Stream(ctx, a.onInputAudio)
		a.isCapturing.Store(false)
		if err != nil && ctx.Err() == nil {
			logger.Error("audio input stopped", "error", err)
		}
		a.onStopped(err)
	}()
}

// Close stops the input and waits for the stream to return.
func (a *audioInput) Close() {
	if !a.IsConfigured() {
		return
	}
	a.base.Close()
	a.wg.Wait()
}

func (a *audioInput) EncodingInfo() audio.EncodingInfo {
	if !a.IsConfigured() {
		return audio.GetDefaultEncodingInfo()
	}
	return a.base.EncodingInfo()
}
