package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remuxtools/delayfix/internal/inspect"
	"github.com/remuxtools/delayfix/internal/plan"
	"github.com/remuxtools/delayfix/internal/precision"
	"github.com/remuxtools/delayfix/internal/timevalue"
)

func sampleProps() *inspect.Properties {
	return &inspect.Properties{
		Path:            "/media/episode.mkv",
		Container:       "matroska,webm",
		Codec:           "ac3",
		Channels:        6,
		ChannelLayout:   "5.1",
		SampleRate:      48000,
		BitRate:         640000,
		Duration:        timevalue.FromUnits(480000, 48000),
		DurationSamples: 480000,
	}
}

func TestAnalysis(t *testing.T) {
	prec, err := precision.Classify("ac3")
	require.NoError(t, err)

	out := Analysis(sampleProps(), prec, 2400000)

	assert.Contains(t, out, "STREAM ANALYSIS: episode.mkv")
	assert.Contains(t, out, "ac3")
	assert.Contains(t, out, "6 (5.1)")
	assert.Contains(t, out, "48000 Hz")
	assert.Contains(t, out, "640 kbps")
	assert.Contains(t, out, "frame-accurate (1536 samples/frame)")
	assert.Contains(t, out, "0:00:10.000 (10 s)")
	assert.Contains(t, out, "480,000")
	assert.Contains(t, out, "2.4 MB")
}

func TestCorrection(t *testing.T) {
	delay, err := timevalue.ParseDelay("23ms")
	require.NoError(t, err)

	p := &plan.CorrectionPlan{
		Unit:           plan.UnitFrames,
		Start:          plan.Operation{Kind: plan.OpPadSilence, Units: 1, Samples: 1536},
		End:            plan.Operation{Kind: plan.OpTrim, Units: 2, Samples: 3072},
		RequestedDelay: delay,
		AchievedDelay:  timevalue.FromUnits(1536, 48000),
		FinalSamples:   478464,
		FinalDuration:  timevalue.FromUnits(478464, 48000),
	}

	out := Correction(p, sampleProps(), "/media/episode.delayfix.mka", 2300000)

	assert.Contains(t, out, "CORRECTION PLAN: episode.mkv")
	assert.Contains(t, out, "frames")
	assert.Contains(t, out, "+0.023 s")
	assert.Contains(t, out, "+0.032 s")
	assert.Contains(t, out, "delay snapped to frames boundary")
	assert.Contains(t, out, "pad 1 frames of silence")
	assert.Contains(t, out, "trim 2 frames")
	assert.Contains(t, out, "/media/episode.delayfix.mka")
}

func TestCorrectionExactDelayOmitsQuantization(t *testing.T) {
	delay, err := timevalue.ParseDelay("500ms")
	require.NoError(t, err)

	p := &plan.CorrectionPlan{
		Unit:           plan.UnitSamples,
		Start:          plan.Operation{Kind: plan.OpPadSilence, Units: 24000, Samples: 24000},
		RequestedDelay: delay,
		AchievedDelay:  timevalue.FromUnits(24000, 48000),
		FinalSamples:   504000,
		FinalDuration:  timevalue.FromUnits(504000, 48000),
	}

	out := Correction(p, sampleProps(), "", 0)

	assert.NotContains(t, out, "Quantization")
	assert.Contains(t, out, "End operation   : none")
}
