package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// DefaultMaxLineSize bounds a single response line.
const DefaultMaxLineSize = 1 << 20

// MalformedChunkError reports a line that is neither the sentinel nor a JSON
// chunk. It is never fatal to the stream.
type MalformedChunkError struct {
	Line string
	Err  error
}

func (e *MalformedChunkError) Error() string {
	return fmt.Sprintf("malformed chunk %q: %v", e.Line, e.Err)
}

func (e *MalformedChunkError) Unwrap() error {
	return e.Err
}

// Decoder reads chunks from a newline-delimited response body. A trailing
// line without a newline is still decoded.
type Decoder struct {
	scanner *bufio.Scanner
}

func NewDecoder(r io.Reader, maxLineSize int) *Decoder {
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLineSize)), maxLineSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next non-empty chunk. It returns io.EOF once the body is
// exhausted and a *MalformedChunkError for lines that fail to parse; the
// caller may keep calling Next after the latter. Any other error ends the
// stream.
func (d *Decoder) Next() (Chunk, error) {
	for d.scanner.Scan() {
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return ParseLine(line)
	}
	if err := d.scanner.Err(); err != nil {
		return Chunk{}, err
	}
	return Chunk{}, io.EOF
}

// ParseLine decodes one non-empty response line.
func ParseLine(line []byte) (Chunk, error) {
	line = bytes.TrimSpace(line)
	if string(line) == DoneSentinel {
		return Chunk{Sentinel: true}, nil
	}

	var chunk Chunk
	if err := json.Unmarshal(line, &chunk); err != nil {
		return Chunk{}, &MalformedChunkError{Line: string(line), Err: err}
	}
	return chunk, nil
}
