package silence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detectOutput = `[silencedetect @ 0x55e8c5a1f2c0] silence_start: 1.234
[silencedetect @ 0x55e8c5a1f2c0] silence_end: 2.468 | silence_duration: 1.234
[silencedetect @ 0x55e8c5a1f2c0] size=N/A time=00:01:00.00 bitrate=N/A speed= 512x
[silencedetect @ 0x55e8c5a1f2c0] silence_start: 45.5
[silencedetect @ 0x55e8c5a1f2c0] silence_end: 46.125 | silence_duration: 0.625
`

func TestParseWindows(t *testing.T) {
	windows := ParseWindows(detectOutput, -80)
	require.Len(t, windows, 2)

	assert.Equal(t, "1.234", windows[0].Start.String())
	assert.Equal(t, "2.468", windows[0].End.String())
	assert.Equal(t, "1.234", windows[0].Duration().String())
	assert.Equal(t, -80, windows[0].ThresholdDB)

	assert.Equal(t, "45.5", windows[1].Start.String())
	assert.Equal(t, "0.625", windows[1].Duration().String())
}

func TestParseWindowsNegativeStartClamped(t *testing.T) {
	out := "[silencedetect @ 0x0] silence_start: -0.003\n[silencedetect @ 0x0] silence_end: 1.5 | silence_duration: 1.503\n"
	windows := ParseWindows(out, -90)
	require.Len(t, windows, 1)
	assert.True(t, windows[0].Start.IsZero())
	assert.Equal(t, "1.5", windows[0].End.String())
}

func TestParseWindowsUnpaired(t *testing.T) {
	t.Run("EndWithoutStart", func(t *testing.T) {
		assert.Empty(t, ParseWindows("silence_end: 3.0 | silence_duration: 1.0\n", -70))
	})

	t.Run("StartWithoutEnd", func(t *testing.T) {
		assert.Empty(t, ParseWindows("silence_start: 3.0\n", -70))
	})

	t.Run("NoOutput", func(t *testing.T) {
		assert.Empty(t, ParseWindows("", -70))
	})
}
