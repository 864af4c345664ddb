// Package constants defines application-wide constants for backend
// timeouts, default configuration values, and file permissions.
package constants

import "time"

const (
	// ProbeTimeout is the maximum allowed time for a single ffprobe run.
	ProbeTimeout = 2 * time.Minute
	// FrameScanTimeout is the maximum allowed time for per-frame inspection
	// of variable-frame streams, which reads the whole file.
	FrameScanTimeout = 15 * time.Minute
	// ExecuteTimeout is the maximum allowed time for one ffmpeg operation.
	ExecuteTimeout = 30 * time.Minute

	// DefaultFFmpegBinary is the ffmpeg executable looked up on PATH.
	DefaultFFmpegBinary = "ffmpeg"
	// DefaultFFprobeBinary is the ffprobe executable looked up on PATH.
	DefaultFFprobeBinary = "ffprobe"

	// DefaultOutputSuffix is appended to the input base name for outputs.
	DefaultOutputSuffix = ".delayfix"
	// WorkContainerExt is the container used for intermediate and output
	// files; Matroska carries reliable duration and frame metadata.
	WorkContainerExt = ".mka"

	// DirPermissions defines the file mode for created directories.
	DirPermissions = 0o755
	// FilePermissions defines the file mode for created files.
	FilePermissions = 0o644

	// TrueHDFrameSize48k is the samples-per-frame fallback for TrueHD/MLP
	// streams at 48 kHz when the container carries no frame statistics.
	TrueHDFrameSize48k = 40
)

// Silence search defaults. Candidate window lengths are tried longest
// first; sensitive thresholds are exhausted before the louder ones.
var (
	// DefaultSilenceWindowsMS are the candidate silence lengths in ms.
	DefaultSilenceWindowsMS = []int{500, 400, 300}
	// DefaultSilenceThresholdsDB are tried in order across all windows.
	DefaultSilenceThresholdsDB = []int{-90, -80, -70, -60, -50}
	// SilencePhaseOneCount is how many leading thresholds belong to the
	// sensitive first phase.
	SilencePhaseOneCount = 3
)
