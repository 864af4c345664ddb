package executor

import (
	"context"
	"fmt"
	"os/exec"
)

// RemuxCommand creates an FFmpeg command that repackages the first audio
// stream into a fresh container using stream copy for fast, lossless
// operation.
func RemuxCommand(ctx context.Context, bin, inputFile, outputFile string) *exec.Cmd {
	return exec.CommandContext(ctx, bin, //nolint:gosec // G204: args are from internal file paths
		"-i", inputFile,
		"-map", "0:a:0",
		"-c", "copy",
		"-y",
		"-loglevel", "error",
		outputFile,
	)
}

// TrimCommand creates an FFmpeg command that cuts a segment by stream copy.
// Empty start or duration leaves the corresponding boundary untouched.
func TrimCommand(ctx context.Context, bin, inputFile, startSecs, durationSecs, outputFile string) *exec.Cmd {
	args := []string{"-i", inputFile}
	if startSecs != "" {
		args = append(args, "-ss", startSecs)
	}
	if durationSecs != "" {
		args = append(args, "-t", durationSecs)
	}
	args = append(args,
		"-c", "copy",
		"-map", "0",
		"-y",
		"-loglevel", "error",
		outputFile,
	)
	return exec.CommandContext(ctx, bin, args...) //nolint:gosec // G204: args are from internal file paths
}

// WavConvertCommand creates an FFmpeg command that decodes the input to
// 16-bit mono PCM with dynamic range compression disabled, the form the
// silence analysis runs on.
func WavConvertCommand(ctx context.Context, bin, inputFile, outputFile string) *exec.Cmd {
	return exec.CommandContext(ctx, bin, //nolint:gosec // G204: args are from internal file paths
		"-drc_scale", "0",
		"-i", inputFile,
		"-c:a", "pcm_s16le",
		"-f", "wav",
		"-rf64", "always",
		"-ac", "1",
		"-y",
		"-loglevel", "error",
		outputFile,
	)
}

// SilenceGenCommand creates an FFmpeg command that synthesizes an exact
// number of silent samples in the given PCM codec. Only valid for
// sample-accurate streams; compressed codecs get silence carved from the
// stream instead.
func SilenceGenCommand(ctx context.Context, bin string, sampleRate int64, channelLayout string, samples int64, codec, outputFile string) *exec.Cmd {
	return exec.CommandContext(ctx, bin, //nolint:gosec // G204: args are from internal file paths
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=%s", sampleRate, channelLayout),
		"-af", fmt.Sprintf("atrim=end_sample=%d", samples),
		"-c:a", codec,
		"-y",
		"-loglevel", "error",
		outputFile,
	)
}

// ConcatCommand creates an FFmpeg command that joins the files listed in
// listFile with the concat demuxer, stream copy only.
func ConcatCommand(ctx context.Context, bin, listFile, outputFile string) *exec.Cmd {
	return exec.CommandContext(ctx, bin, //nolint:gosec // G204: args are from internal file paths
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-y",
		"-loglevel", "error",
		outputFile,
	)
}

// ProbeFormatCommand creates an ffprobe command to get container metadata
// as JSON, used to verify the produced output.
func ProbeFormatCommand(ctx context.Context, bin, file string) *exec.Cmd {
	return exec.CommandContext(ctx, bin, //nolint:gosec // G204: args are from internal file paths
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		file,
	)
}
