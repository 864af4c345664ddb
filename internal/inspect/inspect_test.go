package inspect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ffmpeglib "github.com/u2takey/ffmpeg-go"
)

const probeAAC = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video"
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "sample_rate": "44100",
      "channels": 2,
      "channel_layout": "stereo",
      "time_base": "1/44100",
      "duration_ts": 441000,
      "duration": "10.000000",
      "bit_rate": "128000"
    }
  ],
  "format": {
    "format_name": "matroska,webm",
    "duration": "10.023000",
    "bit_rate": "4500000"
  }
}`

const probePCMNoTS = `{
  "streams": [
    {
      "codec_name": "pcm_s24le",
      "codec_type": "audio",
      "sample_rate": "48000",
      "channels": 6,
      "channel_layout": "5.1",
      "duration": "10.500000"
    }
  ],
  "format": {
    "format_name": "wav",
    "bit_rate": "6912000"
  }
}`

func TestParseProperties(t *testing.T) {
	t.Run("FirstAudioStream", func(t *testing.T) {
		p, err := ParseProperties(probeAAC)
		require.NoError(t, err)

		assert.Equal(t, "aac", p.Codec)
		assert.Equal(t, "matroska,webm", p.Container)
		assert.Equal(t, int64(2), p.Channels)
		assert.Equal(t, "stereo", p.ChannelLayout)
		assert.Equal(t, int64(44100), p.SampleRate)
		assert.Equal(t, int64(128000), p.BitRate)
		assert.Equal(t, int64(441000), p.DurationSamples)
		assert.Equal(t, "10", p.Duration.String())
	})

	t.Run("DurationStringFallback", func(t *testing.T) {
		p, err := ParseProperties(probePCMNoTS)
		require.NoError(t, err)

		assert.Equal(t, "pcm_s24le", p.Codec)
		assert.Equal(t, int64(504000), p.DurationSamples)
		// No stream bit rate, falls back to the container's.
		assert.Equal(t, int64(6912000), p.BitRate)
	})

	t.Run("FrameCountTag", func(t *testing.T) {
		doc := `{"streams":[{"codec_type":"audio","codec_name":"truehd","sample_rate":"48000","time_base":"1/1000","duration_ts":10000,"tags":{"NUMBER_OF_FRAMES":"12000"}}],"format":{}}`
		p, err := ParseProperties(doc)
		require.NoError(t, err)
		assert.Equal(t, int64(480000), p.DurationSamples)
		assert.Equal(t, int64(12000), p.TagFrames)
	})

	t.Run("NoAudioStream", func(t *testing.T) {
		_, err := ParseProperties(`{"streams":[{"codec_type":"video","codec_name":"h264"}],"format":{}}`)
		assert.Error(t, err)
	})

	t.Run("MissingSampleRate", func(t *testing.T) {
		_, err := ParseProperties(`{"streams":[{"codec_type":"audio","codec_name":"aac","duration":"10"}]}`)
		assert.Error(t, err)
	})

	t.Run("MissingDuration", func(t *testing.T) {
		_, err := ParseProperties(`{"streams":[{"codec_type":"audio","codec_name":"aac","sample_rate":"48000"}],"format":{}}`)
		assert.Error(t, err)
	})
}

func TestProbeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := probe(ctx, "does-not-exist.mka", time.Second, ffmpeglib.KwArgs{"of": "json"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFrameSizes(t *testing.T) {
	doc := `{"frames":[{"nb_samples":40},{"nb_samples":40},{"nb_samples":24}]}`
	assert.Equal(t, []int64{40, 40, 24}, parseFrameSizes(doc))

	assert.Nil(t, parseFrameSizes(`{"frames":[]}`))
	assert.Nil(t, parseFrameSizes(`{}`))
	assert.Nil(t, parseFrameSizes(`{"frames":[{"nb_samples":0}]}`), "zero-sample frame invalidates the scan")
}

func TestParseTimeBase(t *testing.T) {
	num, den, ok := parseTimeBase("1/48000")
	require.True(t, ok)
	assert.Equal(t, int64(1), num)
	assert.Equal(t, int64(48000), den)

	_, _, ok = parseTimeBase("48000")
	assert.False(t, ok)
	_, _, ok = parseTimeBase("1/0")
	assert.False(t, ok)
	_, _, ok = parseTimeBase("a/b")
	assert.False(t, ok)
}

func TestUniformFrames(t *testing.T) {
	t.Run("Even", func(t *testing.T) {
		sizes := uniformFrames(120, 40)
		assert.Equal(t, []int64{40, 40, 40}, sizes)
	})

	t.Run("Remainder", func(t *testing.T) {
		sizes := uniformFrames(130, 40)
		assert.Equal(t, []int64{40, 40, 40, 10}, sizes)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Nil(t, uniformFrames(0, 40))
	})
}
