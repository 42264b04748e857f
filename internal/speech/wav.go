package speech

import (
	"encoding/binary"
	"fmt"
	"io"
)

// wavHeaderSize covers the RIFF preamble and a PCM fmt chunk.
const wavHeaderSize = 36

// WAVInfo is the format description found in a WAV fmt chunk.
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// ReadWAVInfo reads the RIFF preamble and fmt chunk from r.
// Data chunk sizes are not checked: streamed WAV output often leaves them unset.
func ReadWAVInfo(r io.Reader) (WAVInfo, error) {
	var h [wavHeaderSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return WAVInfo{}, fmt.Errorf("read header: %v: %w", err, ErrInvalidWAV)
	}
	if string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" {
		return WAVInfo{}, fmt.Errorf("missing RIFF/WAVE preamble: %w", ErrInvalidWAV)
	}
	if string(h[12:16]) != "fmt " {
		return WAVInfo{}, fmt.Errorf("missing fmt chunk: %w", ErrInvalidWAV)
	}

	info := WAVInfo{
		Channels:      int(binary.LittleEndian.Uint16(h[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(h[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(h[34:36])),
	}
	if info.SampleRate == 0 {
		return WAVInfo{}, fmt.Errorf("zero sample rate: %w", ErrInvalidWAV)
	}
	return info, nil
}
