// Package report renders analysis and correction results for the terminal.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/remuxtools/delayfix/internal/inspect"
	"github.com/remuxtools/delayfix/internal/plan"
	"github.com/remuxtools/delayfix/internal/precision"
	"github.com/remuxtools/delayfix/internal/timevalue"
)

const rule = "============================================================"

// Analysis renders the analysis-only report: detected codec, stream
// properties, and the achievable correction precision.
func Analysis(props *inspect.Properties, prec precision.Precision, fileSize int64) string {
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "STREAM ANALYSIS: %s\n", filepath.Base(props.Path))
	fmt.Fprintln(&b, rule)
	writeRow(&b, "Container", props.Container)
	writeRow(&b, "Codec", props.Codec)
	writeRow(&b, "Channels", channelString(props))
	writeRow(&b, "Sample rate", fmt.Sprintf("%d Hz", props.SampleRate))
	if props.BitRate > 0 {
		writeRow(&b, "Bitrate", fmt.Sprintf("%d kbps", props.BitRate/1000))
	}
	writeRow(&b, "Precision", prec.String())
	writeRow(&b, "Duration", clockAndSeconds(props.Duration))
	writeRow(&b, "Samples", humanize.Comma(props.DurationSamples))
	if fileSize > 0 {
		writeRow(&b, "Size", humanize.Bytes(uint64(fileSize))) //nolint:gosec // File sizes are always non-negative
	}
	fmt.Fprintln(&b, rule)
	return b.String()
}

// Correction renders the resolved plan, including the delay actually
// achieved when granularity forced rounding.
func Correction(p *plan.CorrectionPlan, props *inspect.Properties, outputPath string, outputSize int64) string {
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "CORRECTION PLAN: %s\n", filepath.Base(props.Path))
	fmt.Fprintln(&b, rule)
	writeRow(&b, "Granularity", p.Unit.String())
	writeRow(&b, "Requested delay", signedSeconds(p.RequestedDelay))
	writeRow(&b, "Achieved delay", signedSeconds(p.AchievedDelay))
	if !p.AchievedDelay.Sub(p.RequestedDelay).IsZero() {
		writeRow(&b, "Quantization", fmt.Sprintf("%s s (delay snapped to %s boundary)",
			signedSeconds(p.AchievedDelay.Sub(p.RequestedDelay)), p.Unit))
	}
	writeRow(&b, "Start operation", opString(p.Start, p.Unit))
	writeRow(&b, "End operation", opString(p.End, p.Unit))
	writeRow(&b, "Final duration", clockAndSeconds(p.FinalDuration))
	writeRow(&b, "Final samples", humanize.Comma(p.FinalSamples))
	if outputPath != "" {
		writeRow(&b, "Output", outputPath)
		if outputSize > 0 {
			writeRow(&b, "Output size", humanize.Bytes(uint64(outputSize))) //nolint:gosec // File sizes are always non-negative
		}
	}
	fmt.Fprintln(&b, rule)
	return b.String()
}

func writeRow(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "%-16s: %s\n", key, value)
}

// clockAndSeconds formats a duration as "H:MM:SS.mmm (N.NNN s)".
func clockAndSeconds(v timevalue.TimeValue) string {
	return fmt.Sprintf("%s (%s s)", v.Clock(), v.String())
}

func signedSeconds(v timevalue.TimeValue) string {
	if v.Sign() > 0 {
		return "+" + v.String() + " s"
	}
	return v.String() + " s"
}

func channelString(props *inspect.Properties) string {
	if props.ChannelLayout != "" {
		return fmt.Sprintf("%d (%s)", props.Channels, props.ChannelLayout)
	}
	return fmt.Sprintf("%d", props.Channels)
}

func opString(op plan.Operation, unit plan.Unit) string {
	switch op.Kind {
	case plan.OpPadSilence:
		return fmt.Sprintf("pad %s %s of silence", humanize.Comma(op.Units), unit)
	case plan.OpTrim:
		return fmt.Sprintf("trim %s %s", humanize.Comma(op.Units), unit)
	default:
		return "none"
	}
}
