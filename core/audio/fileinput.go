package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

const defaultFrameDuration = 30 * time.Millisecond

// FileInput replays raw audio from a reader as if it were captured live,
// one frame per frame duration.
type FileInput struct {
	reader   io.Reader
	encoding EncodingInfo
	frame    time.Duration
	realtime bool

	mu     sync.Mutex
	closed bool
}

type FileInputOption func(*FileInput)

func WithFrameDuration(d time.Duration) FileInputOption {
	return func(f *FileInput) {
		if d > 0 {
			f.frame = d
		}
	}
}

// WithoutPacing delivers frames as fast as they can be read.
func WithoutPacing() FileInputOption {
	return func(f *FileInput) {
		f.realtime = false
	}
}

func NewFileInput(reader io.Reader, encoding EncodingInfo, opts ...FileInputOption) *FileInput {
	if encoding.IsZero() {
		encoding = GetDefaultEncodingInfo()
	}
	f := &FileInput{reader: reader, encoding: encoding, frame: defaultFrameDuration, realtime: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FileInput) EncodingInfo() EncodingInfo {
	return f.encoding
}

// Stream blocks until the reader is drained, ctx is done or the input is
// closed.
func (f *FileInput) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	size := f.encoding.ChunkSize(int(f.frame / time.Millisecond))
	if size <= 0 {
		return fmt.Errorf("unsupported encoding %q", f.encoding.Format)
	}

	var ticker *time.Ticker
	if f.realtime {
		ticker = time.NewTicker(f.frame)
		defer ticker.Stop()
	}

	for {
		if f.isClosed() {
			return nil
		}

		frame := make([]byte, size)
		n, err := io.ReadFull(f.reader, frame)
		if n > 0 {
			onAudio(frame[:n])
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read audio: %w", err)
		}

		if ticker == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *FileInput) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *FileInput) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
