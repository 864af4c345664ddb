// Package executor applies a correction plan to an audio file with FFmpeg.
// Every operation is stream copy at computed unit boundaries: silence is
// generated sample-exactly for PCM and carved whole-frame from the stream's
// own silent passages for compressed codecs. Nothing is ever re-encoded.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/remuxtools/delayfix/internal/config"
	"github.com/remuxtools/delayfix/internal/constants"
	"github.com/remuxtools/delayfix/internal/inspect"
	"github.com/remuxtools/delayfix/internal/logger"
	"github.com/remuxtools/delayfix/internal/plan"
	"github.com/remuxtools/delayfix/internal/precision"
	"github.com/remuxtools/delayfix/internal/silence"
	"github.com/remuxtools/delayfix/internal/timevalue"
)

// ErrBackendOperation indicates an FFmpeg invocation that failed or
// produced no usable output.
var ErrBackendOperation = errors.New("backend operation failed")

// Executor applies correction plans.
type Executor interface {
	Apply(ctx context.Context, p *plan.CorrectionPlan, props *inspect.Properties, prec precision.Precision, outputPath string) (string, error)
}

// FFmpegExecutor implements Executor on the ffmpeg/ffprobe binaries.
type FFmpegExecutor struct {
	cfg    *config.Config
	log    *logger.Logger
	finder *silence.Finder
}

// New returns an FFmpegExecutor using the configured binaries.
func New(cfg *config.Config, log *logger.Logger) *FFmpegExecutor {
	return &FFmpegExecutor{
		cfg:    cfg,
		log:    log,
		finder: silence.NewFinder(cfg.FFmpegPath, cfg.Silence, log),
	}
}

// DefaultOutputPath places the corrected file next to the input, suffixed
// and repackaged into the working container.
func DefaultOutputPath(input, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), base+suffix+constants.WorkContainerExt)
}

// silenceSource is a carved, frame-aligned silent segment reused for every
// pad of a frame-accurate correction.
type silenceSource struct {
	path   string
	frames int64
	sizes  []int64
	total  int64
}

// Apply executes the plan and returns the path of the produced file.
func (e *FFmpegExecutor) Apply(ctx context.Context, p *plan.CorrectionPlan, props *inspect.Properties, prec precision.Precision, outputPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExecuteTimeout)
	defer cancel()

	workDir, err := os.MkdirTemp(e.cfg.TempDir, "delayfix-")
	if err != nil {
		return "", fmt.Errorf("%w: create temp dir: %v", ErrBackendOperation, err)
	}
	defer func() {
		if e.cfg.KeepTemp {
			e.log.Info("temp files kept", "dir", workDir)
			return
		}
		_ = os.RemoveAll(workDir)
	}()

	work := filepath.Join(workDir, "source"+constants.WorkContainerExt)
	if err := e.run(RemuxCommand(ctx, e.cfg.FFmpegPath, props.Path, work), "remux input"); err != nil {
		return "", err
	}

	// A no-op plan still yields a remuxed output so callers always get a
	// fresh container.
	if p.IsNoop() {
		if err := e.finalize(work, outputPath); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	rate := props.SampleRate

	var src *silenceSource
	needPad := p.Start.Kind == plan.OpPadSilence || p.End.Kind == plan.OpPadSilence
	if needPad && prec.Mode == precision.FrameAccurate {
		g := newGrid(prec, props.DurationSamples, props.FrameSizes)
		if src, err = e.carveSilence(ctx, work, workDir, g, rate); err != nil {
			return "", err
		}
	}

	var lead, tail []string
	if p.Start.Kind == plan.OpPadSilence {
		if lead, err = e.silenceSegments(ctx, workDir, "lead", p.Start, props, prec, src); err != nil {
			return "", err
		}
	}
	if p.End.Kind == plan.OpPadSilence {
		if tail, err = e.silenceSegments(ctx, workDir, "tail", p.End, props, prec, src); err != nil {
			return "", err
		}
	}

	core := work
	coreSamples := props.DurationSamples
	if p.Start.Kind == plan.OpTrim {
		coreSamples -= p.Start.Samples
	}
	if p.End.Kind == plan.OpTrim {
		coreSamples -= p.End.Samples
	}
	if coreSamples <= 0 {
		return "", fmt.Errorf("%w: trims leave no content", ErrBackendOperation)
	}

	if p.Start.Kind == plan.OpTrim || p.End.Kind == plan.OpTrim {
		var startSecs, durSecs string
		if p.Start.Kind == plan.OpTrim {
			startSecs = secs(p.Start.Samples, rate)
		}
		if p.End.Kind == plan.OpTrim {
			durSecs = secs(coreSamples, rate)
		}
		trimmed := filepath.Join(workDir, "core"+constants.WorkContainerExt)
		if err := e.run(TrimCommand(ctx, e.cfg.FFmpegPath, work, startSecs, durSecs, trimmed), "trim content"); err != nil {
			return "", err
		}
		core = trimmed
	}

	if len(lead)+len(tail) > 0 {
		entries := make([]string, 0, len(lead)+1+len(tail))
		entries = append(entries, lead...)
		entries = append(entries, core)
		entries = append(entries, tail...)

		listFile := filepath.Join(workDir, "concat_list.txt")
		if err := writeConcatList(listFile, entries); err != nil {
			return "", err
		}
		combined := filepath.Join(workDir, "combined"+constants.WorkContainerExt)
		if err := e.run(ConcatCommand(ctx, e.cfg.FFmpegPath, listFile, combined), "concatenate segments"); err != nil {
			return "", err
		}
		core = combined
	}

	if err := e.finalize(core, outputPath); err != nil {
		return "", err
	}
	e.verify(ctx, outputPath, p)
	return outputPath, nil
}

// carveSilence finds a silent passage, snaps it inward to frame boundaries,
// and cuts it out by stream copy.
func (e *FFmpegExecutor) carveSilence(ctx context.Context, work, workDir string, g *grid, rate int64) (*silenceSource, error) {
	wav := filepath.Join(workDir, "analysis.wav")
	if err := e.run(WavConvertCommand(ctx, e.cfg.FFmpegPath, work, wav), "convert to wav for analysis"); err != nil {
		return nil, err
	}

	w, err := e.finder.Find(ctx, wav)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot source lossless padding: %v", ErrBackendOperation, err)
	}

	i0 := g.ceilIndex(w.Start.Units(rate))
	i1 := g.floorIndex(w.End.Units(rate))
	if i1 <= i0 {
		return nil, fmt.Errorf("%w: silent passage at %s is shorter than one frame", ErrBackendOperation, w.Start.Clock())
	}

	start, end := g.samplesAt(i0), g.samplesAt(i1)
	path := filepath.Join(workDir, "silence"+constants.WorkContainerExt)
	if err := e.run(TrimCommand(ctx, e.cfg.FFmpegPath, work, secs(start, rate), secs(end-start, rate), path), "carve silence"); err != nil {
		return nil, err
	}

	e.log.Debug("silence carved",
		"start", timevalue.FromUnits(start, rate).Clock(),
		"frames", i1-i0,
		"samples", end-start,
	)
	return &silenceSource{path: path, frames: i1 - i0, sizes: g.sizesIn(i0, i1), total: end - start}, nil
}

// silenceSegments produces the concat entries realizing one pad operation.
// PCM generates the exact sample count; compressed codecs repeat and slice
// the carved source at whole-frame boundaries.
func (e *FFmpegExecutor) silenceSegments(ctx context.Context, workDir, label string, op plan.Operation, props *inspect.Properties, prec precision.Precision, src *silenceSource) ([]string, error) {
	if prec.Mode == precision.SampleAccurate {
		layout := props.ChannelLayout
		if layout == "" {
			layout = "stereo"
		}
		seg := filepath.Join(workDir, label+"_silence"+constants.WorkContainerExt)
		cmd := SilenceGenCommand(ctx, e.cfg.FFmpegPath, props.SampleRate, layout, op.Samples, props.Codec, seg)
		if err := e.run(cmd, "generate silence"); err != nil {
			return nil, err
		}
		return []string{seg}, nil
	}

	reps := op.Units / src.frames
	rem := op.Units % src.frames

	segments := make([]string, 0, reps+1)
	for i := int64(0); i < reps; i++ {
		segments = append(segments, src.path)
	}

	realized := reps * src.total
	if rem > 0 {
		remSamples := int64(0)
		for _, s := range src.sizes[:rem] {
			remSamples += s
		}
		part := filepath.Join(workDir, label+"_silence_part"+constants.WorkContainerExt)
		if err := e.run(TrimCommand(ctx, e.cfg.FFmpegPath, src.path, "", secs(remSamples, props.SampleRate), part), "slice silence remainder"); err != nil {
			return nil, err
		}
		segments = append(segments, part)
		realized += remSamples
	}

	if realized != op.Samples {
		// Variable frame sizes in the carved passage can differ from the
		// planned sequence; the frame count is honored, the sample count
		// can shift within frame granularity.
		e.log.Debug("pad realized at frame granularity",
			"planned_samples", op.Samples,
			"realized_samples", realized,
		)
	}
	return segments, nil
}

// finalize moves the result into place through a temp file in the target
// directory so a failed run never leaves a half-written output.
func (e *FFmpegExecutor) finalize(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: produced file %q is missing or empty", ErrBackendOperation, src)
	}

	tmp := dst + ".tmp"
	if err := copyFile(src, tmp); err != nil {
		return fmt.Errorf("%w: write output: %v", ErrBackendOperation, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: move output into place: %v", ErrBackendOperation, err)
	}
	return nil
}

// verify probes the produced file and logs the achieved duration against
// the plan. Verification failures are logged, not fatal: the output exists
// and the caller already has the plan's expectations.
func (e *FFmpegExecutor) verify(ctx context.Context, path string, p *plan.CorrectionPlan) {
	out, err := ProbeFormatCommand(ctx, e.cfg.FFprobePath, path).Output()
	if err != nil {
		e.log.Warn("output verification probe failed", "path", path, "error", err)
		return
	}
	durStr := gjson.GetBytes(out, "format.duration").String()
	got, err := timevalue.ParseDuration(durStr)
	if err != nil {
		e.log.Warn("output reports no parseable duration", "path", path, "duration", durStr)
		return
	}
	e.log.Info("output verified",
		"path", path,
		"duration", got.Clock(),
		"expected", p.FinalDuration.Clock(),
		"delta_s", got.Sub(p.FinalDuration).String(),
	)
}

// run executes one backend command, surfacing stderr context on failure.
func (e *FFmpegExecutor) run(cmd *exec.Cmd, action string) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.log.Debug("running backend command", "action", action, "args", strings.Join(cmd.Args, " "))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return fmt.Errorf("%w: %s: %v: %s", ErrBackendOperation, action, err, msg)
	}
	return nil
}

// secs renders a sample count as decimal seconds for ffmpeg arguments.
func secs(samples, rate int64) string {
	return timevalue.FromUnits(samples, rate).String()
}

// writeConcatList writes a concat demuxer list file.
func writeConcatList(path string, entries []string) error {
	var b strings.Builder
	for _, entry := range entries {
		abs, err := filepath.Abs(entry)
		if err != nil {
			abs = entry
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	if err := os.WriteFile(path, []byte(b.String()), constants.FilePermissions); err != nil {
		return fmt.Errorf("%w: write concat list: %v", ErrBackendOperation, err)
	}
	return nil
}

// copyFile copies src to dst, truncating dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: paths are internal
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.FilePermissions) //nolint:gosec // G304: paths are internal
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
