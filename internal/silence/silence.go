// Package silence locates silent passages in audio using FFmpeg's
// silencedetect filter. Frame-accurate padding needs real encoded silence
// carved from the stream itself, so the search walks a ladder of window
// lengths and detection thresholds until a usable passage turns up.
package silence

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/remuxtools/delayfix/internal/config"
	"github.com/remuxtools/delayfix/internal/constants"
	"github.com/remuxtools/delayfix/internal/logger"
	"github.com/remuxtools/delayfix/internal/timevalue"
)

// ErrNoSilence indicates that no silent passage long enough for padding was
// found at any threshold.
var ErrNoSilence = errors.New("no usable silent passage found")

// Window is one detected silent passage.
type Window struct {
	Start       timevalue.TimeValue
	End         timevalue.TimeValue
	ThresholdDB int
}

// Duration returns the window length.
func (w Window) Duration() timevalue.TimeValue {
	return w.End.Sub(w.Start)
}

// Finder runs the laddered silence search.
type Finder struct {
	ffmpegPath string
	cfg        config.SilenceConfig
	log        *logger.Logger
}

// NewFinder returns a Finder using the given ffmpeg binary and ladder
// configuration.
func NewFinder(ffmpegPath string, cfg config.SilenceConfig, log *logger.Logger) *Finder {
	return &Finder{ffmpegPath: ffmpegPath, cfg: cfg, log: log}
}

// Find searches file for the first silent passage. Sensitive thresholds are
// tried across every window length before falling back to the louder
// phase-two thresholds, so a long near-digital silence always wins over a
// short merely-quiet one.
func (f *Finder) Find(ctx context.Context, file string) (*Window, error) {
	phaseOne := f.cfg.ThresholdsDB
	var phaseTwo []int
	if len(phaseOne) > constants.SilencePhaseOneCount {
		phaseOne = f.cfg.ThresholdsDB[:constants.SilencePhaseOneCount]
		phaseTwo = f.cfg.ThresholdsDB[constants.SilencePhaseOneCount:]
	}

	for _, thresholds := range [][]int{phaseOne, phaseTwo} {
		for _, windowMS := range f.cfg.WindowsMS {
			for _, th := range thresholds {
				windows, err := f.detect(ctx, file, th, windowMS)
				if err != nil {
					return nil, err
				}
				if len(windows) > 0 {
					w := windows[0]
					f.log.Debug("silence found",
						"threshold_db", th,
						"window_ms", windowMS,
						"start", w.Start.Clock(),
						"duration", w.Duration().String(),
					)
					return &w, nil
				}
			}
		}
	}
	return nil, ErrNoSilence
}

// detect runs one silencedetect pass and returns the detected windows.
func (f *Finder) detect(ctx context.Context, file string, thresholdDB, minDurationMS int) ([]Window, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExecuteTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.ffmpegPath, //nolint:gosec // G204: args are from internal file paths
		"-i", file,
		"-af", fmt.Sprintf("silencedetect=noise=%ddB:d=%d.%03d", thresholdDB, minDurationMS/1000, minDurationMS%1000),
		"-f", "null",
		"-",
	)

	// silencedetect outputs to stderr.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	_ = cmd.Run() // Ignore error; ffmpeg returns non-zero for -f null.
	if ctx.Err() != nil {
		return nil, fmt.Errorf("silence detection timed out: %w", ctx.Err())
	}

	return ParseWindows(stderr.String(), thresholdDB), nil
}

var (
	silenceStartRegex = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRegex   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// ParseWindows pairs silence_start/silence_end lines from silencedetect
// stderr output into windows.
func ParseWindows(output string, thresholdDB int) []Window {
	var windows []Window
	var pending *timevalue.TimeValue

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if m := silenceStartRegex.FindStringSubmatch(line); m != nil {
			if v, err := parsePosition(m[1]); err == nil {
				pending = &v
			}
			continue
		}
		if m := silenceEndRegex.FindStringSubmatch(line); m != nil && pending != nil {
			if v, err := parsePosition(m[1]); err == nil {
				windows = append(windows, Window{
					Start:       *pending,
					End:         v,
					ThresholdDB: thresholdDB,
				})
			}
			pending = nil
		}
	}
	return windows
}

// parsePosition parses a silencedetect position, clamping the occasional
// small negative start to zero.
func parsePosition(s string) (timevalue.TimeValue, error) {
	neg := strings.HasPrefix(s, "-")
	v, err := timevalue.ParseDuration(strings.TrimPrefix(s, "-"))
	if err != nil {
		return timevalue.Zero(), err
	}
	if neg {
		return timevalue.Zero(), nil
	}
	return v, nil
}
