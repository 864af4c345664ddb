// Package inspect resolves the stream properties the offset calculator
// needs: codec, sample rate, exact duration in samples, and frame-size
// metadata. Everything comes from ffprobe; a stream that cannot be read or
// identified is an explicit error, never a default.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	ffmpeglib "github.com/u2takey/ffmpeg-go"

	"github.com/remuxtools/delayfix/internal/constants"
	"github.com/remuxtools/delayfix/internal/logger"
	"github.com/remuxtools/delayfix/internal/timevalue"
)

// ErrInspection indicates that stream inspection failed or the stream could
// not be identified.
var ErrInspection = errors.New("stream inspection failed")

// Properties contains the audio stream information from ffprobe analysis.
type Properties struct {
	Path            string
	Container       string
	Codec           string
	Channels        int64
	ChannelLayout   string
	SampleRate      int64
	BitRate         int64
	Duration        timevalue.TimeValue
	DurationSamples int64
	FrameSizes      []int64

	// TagFrames is the container's NUMBER_OF_FRAMES tag when present,
	// zero otherwise. Matroska muxers write it per stream.
	TagFrames int64
}

// Resolver supplies stream properties for the calculator.
type Resolver interface {
	Inspect(ctx context.Context, path string) (*Properties, error)
	// ScanFrameSizes fills Properties.FrameSizes with the per-frame sample
	// counts of the first audio stream. Needed only for variable-frame
	// codecs; it decodes frame headers across the whole file.
	ScanFrameSizes(ctx context.Context, props *Properties) error
}

// FFprobeResolver implements Resolver on top of ffprobe JSON output.
type FFprobeResolver struct {
	log *logger.Logger
}

// NewResolver returns a Resolver backed by ffprobe.
func NewResolver(log *logger.Logger) *FFprobeResolver {
	return &FFprobeResolver{log: log}
}

// Inspect probes path and returns the first audio stream's properties.
func (r *FFprobeResolver) Inspect(ctx context.Context, path string) (*Properties, error) {
	out, err := probe(ctx, path, constants.ProbeTimeout, ffmpeglib.KwArgs{
		"show_format":  "",
		"show_streams": "",
		"of":           "json",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe on %q: %v", ErrInspection, path, err)
	}

	props, err := ParseProperties(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInspection, path, err)
	}
	props.Path = path

	r.log.Debug("stream inspected",
		"path", path,
		"codec", props.Codec,
		"sample_rate", props.SampleRate,
		"duration_samples", props.DurationSamples,
	)
	return props, nil
}

// ScanFrameSizes probes every audio frame of the stream for its sample
// count. When the scan yields nothing, the container's NUMBER_OF_FRAMES
// tag recovers a uniform frame size if it divides the duration evenly;
// for TrueHD/MLP at 48 kHz the last resort is the codec's fixed 40-sample
// access unit.
func (r *FFprobeResolver) ScanFrameSizes(ctx context.Context, props *Properties) error {
	out, err := probe(ctx, props.Path, constants.FrameScanTimeout, ffmpeglib.KwArgs{
		"select_streams": "a:0",
		"show_entries":   "frame=nb_samples",
		"of":             "json",
	})
	if err == nil {
		sizes := parseFrameSizes(out)
		if len(sizes) > 0 {
			props.FrameSizes = sizes
			r.log.Debug("frame sizes scanned", "path", props.Path, "frames", len(sizes))
			return nil
		}
	}

	if props.TagFrames > 0 && props.DurationSamples%props.TagFrames == 0 {
		spf := props.DurationSamples / props.TagFrames
		r.log.Debug("frame size recovered from container tags",
			"path", props.Path, "frames", props.TagFrames, "samples_per_frame", spf)
		props.FrameSizes = uniformFrames(props.DurationSamples, spf)
		return nil
	}

	if props.SampleRate == 48000 {
		r.log.Warn("frame scan unavailable, assuming TrueHD 40-sample frames",
			"path", props.Path)
		props.FrameSizes = uniformFrames(props.DurationSamples, constants.TrueHDFrameSize48k)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: frame scan of %q: %v", ErrInspection, props.Path, err)
	}
	return fmt.Errorf("%w: no frame statistics in %q", ErrInspection, props.Path)
}

// probe runs an ffprobe invocation honoring both the library's timeout and
// the caller's context. The library drives the process itself, so
// cancellation abandons the probe rather than killing it; the internal
// timeout still bounds the orphaned run.
func probe(ctx context.Context, path string, timeout time.Duration, args ffmpeglib.KwArgs) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		out string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := ffmpeglib.ProbeWithTimeoutExec(path, timeout, args)
		ch <- result{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.out, r.err
	}
}

// ParseProperties extracts the first audio stream from ffprobe JSON output.
func ParseProperties(doc string) (*Properties, error) {
	var audio gjson.Result
	found := false
	for _, s := range gjson.Get(doc, "streams").Array() {
		if s.Get("codec_type").String() == "audio" {
			audio = s
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("no audio stream found")
	}

	codec := audio.Get("codec_name").String()
	if codec == "" {
		return nil, fmt.Errorf("audio stream has no codec name")
	}
	sampleRate := audio.Get("sample_rate").Int()
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio stream has no sample rate")
	}

	props := &Properties{
		Container:     gjson.Get(doc, "format.format_name").String(),
		Codec:         codec,
		Channels:      audio.Get("channels").Int(),
		ChannelLayout: audio.Get("channel_layout").String(),
		SampleRate:    sampleRate,
		BitRate:       audio.Get("bit_rate").Int(),
	}
	if props.BitRate == 0 {
		props.BitRate = gjson.Get(doc, "format.bit_rate").Int()
	}
	props.TagFrames = audio.Get("tags.NUMBER_OF_FRAMES").Int()
	if props.TagFrames == 0 {
		props.TagFrames = audio.Get("tags.NUMBER_OF_FRAMES-eng").Int()
	}

	samples, seconds, err := exactDuration(doc, audio, sampleRate)
	if err != nil {
		return nil, err
	}
	props.DurationSamples = samples
	props.Duration = seconds
	return props, nil
}

// exactDuration derives the stream length in samples. duration_ts in the
// stream time base is exact and preferred; the decimal duration string is
// the fallback, converted rationally and rounded once.
func exactDuration(doc string, audio gjson.Result, sampleRate int64) (int64, timevalue.TimeValue, error) {
	ts := audio.Get("duration_ts").Int()
	if ts > 0 {
		if num, den, ok := parseTimeBase(audio.Get("time_base").String()); ok {
			// samples = ts * (num/den) * rate, exact when it divides evenly.
			exact := new(big.Rat).SetInt64(ts)
			exact.Mul(exact, big.NewRat(num, den))
			exact.Mul(exact, new(big.Rat).SetInt64(sampleRate))
			if exact.IsInt() {
				samples := exact.Num().Int64()
				return samples, timevalue.FromUnits(samples, sampleRate), nil
			}
		}
	}

	durStr := audio.Get("duration").String()
	if durStr == "" {
		durStr = gjson.Get(doc, "format.duration").String()
	}
	if durStr == "" {
		return 0, timevalue.Zero(), fmt.Errorf("stream reports no duration")
	}
	seconds, err := timevalue.ParseDuration(durStr)
	if err != nil {
		return 0, timevalue.Zero(), fmt.Errorf("unparseable duration %q", durStr)
	}
	samples := seconds.Units(sampleRate)
	return samples, timevalue.FromUnits(samples, sampleRate), nil
}

// parseTimeBase parses ffprobe's "num/den" time base notation.
func parseTimeBase(tb string) (num, den int64, ok bool) {
	parts := strings.SplitN(tb, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	n, ok1 := parseInt(parts[0])
	d, ok2 := parseInt(parts[1])
	if !ok1 || !ok2 || d == 0 {
		return 0, 0, false
	}
	return n, d, true
}

func parseInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	var v int64
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		v = v*10 + int64(s[i]-'0')
	}
	return v, true
}

// parseFrameSizes extracts nb_samples per frame from -show_frames output.
func parseFrameSizes(doc string) []int64 {
	frames := gjson.Get(doc, "frames.#.nb_samples").Array()
	if len(frames) == 0 {
		return nil
	}
	sizes := make([]int64, 0, len(frames))
	for _, f := range frames {
		n := f.Int()
		if n <= 0 {
			return nil
		}
		sizes = append(sizes, n)
	}
	return sizes
}

// uniformFrames synthesizes a frame-size sequence of fixed-size frames
// covering total samples, the last frame absorbing any remainder.
func uniformFrames(total, size int64) []int64 {
	if total <= 0 || size <= 0 {
		return nil
	}
	n := total / size
	rem := total % size
	count := n
	if rem > 0 {
		count++
	}
	sizes := make([]int64, count)
	for i := range sizes {
		sizes[i] = size
	}
	if rem > 0 {
		sizes[count-1] = rem
	}
	return sizes
}
