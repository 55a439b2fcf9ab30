package deepgram

import (
	"fmt"
	"slices"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/audio"
)

var supportedSampleRates = []int{8000, 16000, 24000, 32000, 48000}

// checkEncoding rejects encodings the live API does not accept. The
// companded formats are only accepted at 8kHz.
func checkEncoding(encoding audio.EncodingInfo) error {
	if !slices.Contains(supportedSampleRates, encoding.SampleRate) {
		return fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
	case audio.EncodingALaw, audio.EncodingMulaw:
		if encoding.SampleRate != 8000 {
			return fmt.Errorf("unsupported sample rate %d for %s encoding", encoding.SampleRate, encoding.Format)
		}
	default:
		return fmt.Errorf("unsupported encoding %q", encoding.Format)
	}
	return nil
}
