// Package precision maps stream codecs to the timing granularity a lossless
// correction can achieve. The table is deliberately closed: an unknown codec
// is an error, never a guess, because assuming the wrong granularity
// silently corrupts timing.
package precision

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedCodec indicates a codec that is not in the precision table.
var ErrUnsupportedCodec = errors.New("unsupported codec")

// Mode is the correction granularity for a codec family.
type Mode int

const (
	// SampleAccurate allows corrections at single-sample boundaries.
	SampleAccurate Mode = iota
	// FrameAccurate restricts corrections to whole codec frames.
	FrameAccurate
)

// String returns the mode name as used in reports.
func (m Mode) String() string {
	if m == SampleAccurate {
		return "sample-accurate"
	}
	return "frame-accurate"
}

// Precision describes the achievable correction granularity. For fixed
// frame-accurate codecs FrameSize holds the samples per frame; Variable
// marks codecs whose frame sizes must be read from the stream itself.
type Precision struct {
	Mode      Mode
	FrameSize int64
	Variable  bool
}

// String returns a short description, e.g. "frame-accurate (1536 samples/frame)".
func (p Precision) String() string {
	switch {
	case p.Mode == SampleAccurate:
		return "sample-accurate"
	case p.Variable:
		return "frame-accurate (variable frame size)"
	default:
		return fmt.Sprintf("frame-accurate (%d samples/frame)", p.FrameSize)
	}
}

// codecTable maps ffprobe codec names to their precision. Frame sizes are
// the codec-mandated samples per access unit.
var codecTable = map[string]Precision{
	"flac":   {Mode: SampleAccurate},
	"wav":    {Mode: SampleAccurate},
	"w64":    {Mode: SampleAccurate},
	"aac":    {Mode: FrameAccurate, FrameSize: 1024},
	"ac3":    {Mode: FrameAccurate, FrameSize: 1536},
	"eac3":   {Mode: FrameAccurate, FrameSize: 1536},
	"mp2":    {Mode: FrameAccurate, FrameSize: 1152},
	"mp3":    {Mode: FrameAccurate, FrameSize: 1152},
	"dts":    {Mode: FrameAccurate, FrameSize: 512},
	"opus":   {Mode: FrameAccurate, FrameSize: 960},
	"truehd": {Mode: FrameAccurate, Variable: true},
	"mlp":    {Mode: FrameAccurate, Variable: true},
}

// Classify returns the precision for a codec as reported by stream
// inspection. Every pcm_* variant is sample-accurate.
func Classify(codec string) (Precision, error) {
	c := strings.ToLower(strings.TrimSpace(codec))
	if strings.HasPrefix(c, "pcm_") {
		return Precision{Mode: SampleAccurate}, nil
	}
	if p, ok := codecTable[c]; ok {
		return p, nil
	}
	return Precision{}, fmt.Errorf("%w: %q", ErrUnsupportedCodec, codec)
}
