package timevalue

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDelay(t *testing.T) {
	t.Run("Milliseconds", func(t *testing.T) {
		v, err := ParseDelay("500ms")
		require.NoError(t, err)
		assert.Equal(t, 0, v.Rat().Cmp(big.NewRat(1, 2)))
	})

	t.Run("NegativeMilliseconds", func(t *testing.T) {
		v, err := ParseDelay("-200ms")
		require.NoError(t, err)
		assert.Equal(t, 0, v.Rat().Cmp(big.NewRat(-1, 5)))
	})

	t.Run("FractionalSeconds", func(t *testing.T) {
		v, err := ParseDelay("1.5s")
		require.NoError(t, err)
		assert.Equal(t, 0, v.Rat().Cmp(big.NewRat(3, 2)))
	})

	t.Run("ExplicitPlus", func(t *testing.T) {
		v, err := ParseDelay("+3s")
		require.NoError(t, err)
		assert.Equal(t, 0, v.Rat().Cmp(big.NewRat(3, 1)))
	})

	t.Run("CaseAndWhitespace", func(t *testing.T) {
		v, err := ParseDelay("  250MS ")
		require.NoError(t, err)
		assert.Equal(t, 0, v.Rat().Cmp(big.NewRat(1, 4)))
	})

	t.Run("MissingUnitRejected", func(t *testing.T) {
		_, err := ParseDelay("500")
		assert.ErrorIs(t, err, ErrInvalidTimeFormat)
	})

	t.Run("EmptyFractionRejected", func(t *testing.T) {
		_, err := ParseDelay("1.s")
		assert.ErrorIs(t, err, ErrInvalidTimeFormat)
	})

	t.Run("NonNumericRejected", func(t *testing.T) {
		_, err := ParseDelay("fastms")
		assert.ErrorIs(t, err, ErrInvalidTimeFormat)
	})

	t.Run("EmptyRejected", func(t *testing.T) {
		_, err := ParseDelay("")
		assert.ErrorIs(t, err, ErrInvalidTimeFormat)
	})
}

func TestParseDuration(t *testing.T) {
	t.Run("ClockForm", func(t *testing.T) {
		v, err := ParseDuration("1:23:45.678")
		require.NoError(t, err)
		assert.Equal(t, 0, v.Rat().Cmp(big.NewRat(5025678, 1000)))
	})

	t.Run("BareSeconds", func(t *testing.T) {
		v, err := ParseDuration("3600.5")
		require.NoError(t, err)
		assert.Equal(t, 0, v.Rat().Cmp(big.NewRat(7201, 2)))
	})

	t.Run("TwoPartFormRejected", func(t *testing.T) {
		_, err := ParseDuration("12:34")
		assert.ErrorIs(t, err, ErrInvalidTimeFormat)
	})

	t.Run("LargeHours", func(t *testing.T) {
		v, err := ParseDuration("100:00:00")
		require.NoError(t, err)
		assert.Equal(t, 0, v.Rat().Cmp(big.NewRat(360000, 1)))
	})

	t.Run("ArbitraryFractionPrecision", func(t *testing.T) {
		v, err := ParseDuration("0:00:01.000000001")
		require.NoError(t, err)
		assert.Equal(t, 0, v.Rat().Cmp(big.NewRat(1000000001, 1000000000)))
	})

	t.Run("SixtySecondsRejected", func(t *testing.T) {
		_, err := ParseDuration("0:00:60")
		assert.ErrorIs(t, err, ErrInvalidTimeFormat)
	})

	t.Run("SixtyMinutesRejected", func(t *testing.T) {
		_, err := ParseDuration("0:60:00")
		assert.ErrorIs(t, err, ErrInvalidTimeFormat)
	})

	t.Run("UnpaddedMinutesRejected", func(t *testing.T) {
		_, err := ParseDuration("1:2:03")
		assert.ErrorIs(t, err, ErrInvalidTimeFormat)
	})

	t.Run("EmptyFractionRejected", func(t *testing.T) {
		_, err := ParseDuration("1:23:45.")
		assert.ErrorIs(t, err, ErrInvalidTimeFormat)
	})

	t.Run("NonNumericRejected", func(t *testing.T) {
		_, err := ParseDuration("ten")
		assert.ErrorIs(t, err, ErrInvalidTimeFormat)
	})
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"500ms", "-200ms", "1.5s", "23ms", "+0.125s"} {
		v, err := ParseDelay(s)
		require.NoError(t, err)

		formatted := v.Abs().String()
		back, err := ParseDuration(formatted)
		require.NoError(t, err, "re-parsing %q from %q", formatted, s)
		assert.Equal(t, 0, back.Rat().Cmp(v.Abs().Rat()), "round trip of %q via %q", s, formatted)
	}
}

func TestClock(t *testing.T) {
	v, err := ParseDuration("1:23:45.678")
	require.NoError(t, err)
	assert.Equal(t, "1:23:45.678", v.Clock())

	z := Zero()
	assert.Equal(t, "0:00:00.000", z.Clock())

	d, err := ParseDelay("-200ms")
	require.NoError(t, err)
	assert.Equal(t, "-0:00:00.200", d.Clock())
}

func TestUnits(t *testing.T) {
	t.Run("ExactConversion", func(t *testing.T) {
		v, err := ParseDelay("500ms")
		require.NoError(t, err)
		assert.Equal(t, int64(24000), v.Units(48000))
	})

	t.Run("RoundsToNearest", func(t *testing.T) {
		v, err := ParseDelay("23ms")
		require.NoError(t, err)
		// 0.023 * 44100 = 1014.3
		assert.Equal(t, int64(1014), v.Units(44100))
	})

	t.Run("HalfAwayFromZero", func(t *testing.T) {
		half := FromRat(big.NewRat(1, 96000))
		assert.Equal(t, int64(1), half.Units(48000))
		assert.Equal(t, int64(-1), half.Neg().Units(48000))
	})
}

func TestString(t *testing.T) {
	v, err := ParseDuration("10.500")
	require.NoError(t, err)
	assert.Equal(t, "10.5", v.String())

	w, err := ParseDuration("600")
	require.NoError(t, err)
	assert.Equal(t, "600", w.String())

	// 1/44100 has no finite decimal form; nine digits are carried.
	s := FromUnits(1, 44100)
	assert.Equal(t, "0.000022676", s.String())
}
