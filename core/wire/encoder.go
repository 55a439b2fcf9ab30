package wire

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Encoder writes response lines for a backend, flushing after each line
// when the writer supports it.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

func NewEncoder(w io.Writer) *Encoder {
	flusher, _ := w.(http.Flusher)
	return &Encoder{w: w, flusher: flusher}
}

func (e *Encoder) Encode(chunk Chunk) error {
	line, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("error marshalling chunk: %w", err)
	}
	return e.writeLine(line)
}

// Done writes the DoneSentinel.
func (e *Encoder) Done() error {
	return e.writeLine([]byte(DoneSentinel))
}

func (e *Encoder) writeLine(line []byte) error {
	if _, err := e.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("error writing line: %w", err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
