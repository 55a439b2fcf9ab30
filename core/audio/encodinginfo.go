// Package audio describes the raw audio fed to speech-to-text sources.
package audio

import (
	"fmt"
	"strings"
)

const (
	DefaultSampleRate = 16000
	DefaultFormat     = EncodingLinear16
)

type Format string

const (
	EncodingMulaw    Format = "mulaw"
	EncodingALaw     Format = "alaw"
	EncodingLinear16 Format = "linear16"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch format := Format(strings.ToLower(strings.TrimSpace(name))); format {
	case EncodingMulaw, EncodingALaw, EncodingLinear16:
		return format, nil
	}
	return "", fmt.Errorf("unsupported audio format %q", name)
}

func (f Format) Name() string {
	return string(f)
}

// ByteSize is the size of one sample, or -1 for unknown formats.
func (f Format) ByteSize() int {
	switch f {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

type EncodingInfo struct {
	SampleRate int
	Format     Format
}

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: DefaultFormat}
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// SilenceValue is the byte that encodes silence in this format.
func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	}
	return 0
}

// BytesPerSecond is the byte rate of a mono stream.
func (e EncodingInfo) BytesPerSecond() int {
	if size := e.Format.ByteSize(); size > 0 {
		return e.SampleRate * size
	}
	return 0
}

// ChunkSize returns the number of bytes covering the given milliseconds.
func (e EncodingInfo) ChunkSize(milliseconds int) int {
	return e.BytesPerSecond() * milliseconds / 1000
}
