// Package plan computes the start/end pad-or-trim operations that realize a
// requested delay and target duration at the granularity the codec allows.
// All seconds-to-units conversions happen on exact rationals with a single
// round-half-away-from-zero per boundary; no floating point is involved.
package plan

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/remuxtools/delayfix/internal/precision"
	"github.com/remuxtools/delayfix/internal/timevalue"
)

var (
	// ErrDelayExceedsStreamLength indicates a negative delay that would trim
	// more leading content than the stream holds.
	ErrDelayExceedsStreamLength = errors.New("delay exceeds stream length")
	// ErrTargetShorterThanContent indicates a target duration that would trim
	// more from the end than remains after the start operation.
	ErrTargetShorterThanContent = errors.New("target shorter than content")
)

// OpKind identifies a boundary operation.
type OpKind int

const (
	// OpNone leaves the boundary untouched.
	OpNone OpKind = iota
	// OpPadSilence inserts silence at the boundary.
	OpPadSilence
	// OpTrim removes material at the boundary.
	OpTrim
)

// String returns the operation name as used in reports.
func (k OpKind) String() string {
	switch k {
	case OpPadSilence:
		return "pad-silence"
	case OpTrim:
		return "trim"
	default:
		return "none"
	}
}

// Unit is the granularity the plan's unit counts are expressed in.
type Unit int

const (
	// UnitSamples means operation counts are audio samples.
	UnitSamples Unit = iota
	// UnitFrames means operation counts are whole codec frames.
	UnitFrames
)

// String returns "samples" or "frames".
func (u Unit) String() string {
	if u == UnitSamples {
		return "samples"
	}
	return "frames"
}

// Operation is a single boundary correction. Units is the count in the
// plan's unit; Samples is the equivalent sample count, which differs from
// Units only under frame-accurate modes.
type Operation struct {
	Kind    OpKind
	Units   int64
	Samples int64
}

// StreamProperties is the read-only view of the input stream the calculator
// needs. FrameSizes carries the per-frame sample counts and is consulted
// only for variable-frame codecs.
type StreamProperties struct {
	SampleRate      int64
	DurationSamples int64
	FrameSizes      []int64
}

// CorrectionPlan is the computed pair of boundary operations plus the
// timing actually achieved after quantization. AchievedDelay can differ
// from the request when frame granularity forces rounding.
type CorrectionPlan struct {
	Unit  Unit
	Start Operation
	End   Operation

	RequestedDelay timevalue.TimeValue
	AchievedDelay  timevalue.TimeValue
	FinalUnits     int64
	FinalSamples   int64
	FinalDuration  timevalue.TimeValue
}

// IsNoop reports whether the plan changes nothing.
func (p *CorrectionPlan) IsNoop() bool {
	return p.Start.Kind == OpNone && p.End.Kind == OpNone
}

// Compute resolves delay and optional target duration into a correction
// plan. It is pure and deterministic: identical inputs always produce an
// identical plan. A nil target requests analysis-only behavior, leaving the
// end untouched and reporting the resulting duration.
func Compute(delay timevalue.TimeValue, target *timevalue.TimeValue, props StreamProperties, prec precision.Precision) (*CorrectionPlan, error) {
	if props.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", props.SampleRate)
	}
	if prec.Mode == precision.FrameAccurate && prec.Variable {
		return computeVariable(delay, target, props)
	}

	// Sample-accurate and fixed-frame modes share the discrete-unit flow;
	// only the samples-per-unit factor differs.
	samplesPerUnit := int64(1)
	unit := UnitSamples
	if prec.Mode == precision.FrameAccurate {
		if prec.FrameSize <= 0 {
			return nil, fmt.Errorf("invalid frame size %d", prec.FrameSize)
		}
		samplesPerUnit = prec.FrameSize
		unit = UnitFrames
	}

	rate := new(big.Rat).SetInt64(props.SampleRate)
	perUnit := big.NewRat(samplesPerUnit, props.SampleRate)

	currentUnits := roundHalfAway(big.NewRat(props.DurationSamples, samplesPerUnit))

	// One rounding, applied to the exact rational delay-in-units.
	delayUnitsExact := new(big.Rat).Mul(delay.Rat(), rate)
	delayUnitsExact.Quo(delayUnitsExact, new(big.Rat).SetInt64(samplesPerUnit))
	ds := roundHalfAway(delayUnitsExact)

	if ds < 0 && -ds > currentUnits {
		return nil, fmt.Errorf("%w: start trim of %d %s exceeds the %d available",
			ErrDelayExceedsStreamLength, -ds, unit, currentUnits)
	}

	p := &CorrectionPlan{
		Unit:           unit,
		Start:          operationFor(ds, samplesPerUnit),
		RequestedDelay: delay,
		AchievedDelay:  timevalue.FromRat(new(big.Rat).Mul(new(big.Rat).SetInt64(ds), perUnit)),
	}

	totalUnits := currentUnits + ds

	if target != nil {
		targetUnitsExact := new(big.Rat).Mul(target.Rat(), rate)
		targetUnitsExact.Quo(targetUnitsExact, new(big.Rat).SetInt64(samplesPerUnit))
		targetUnits := roundHalfAway(targetUnitsExact)

		endDelta := targetUnits - totalUnits
		if endDelta < 0 && -endDelta > totalUnits {
			return nil, fmt.Errorf("%w: end trim of %d %s exceeds the %d present after the start operation",
				ErrTargetShorterThanContent, -endDelta, unit, totalUnits)
		}
		p.End = operationFor(endDelta, samplesPerUnit)
		totalUnits += endDelta
	}

	p.FinalUnits = totalUnits
	p.FinalSamples = totalUnits * samplesPerUnit
	p.FinalDuration = timevalue.FromUnits(p.FinalSamples, props.SampleRate)
	return p, nil
}

// operationFor maps a signed unit delta to a boundary operation.
func operationFor(delta, samplesPerUnit int64) Operation {
	switch {
	case delta > 0:
		return Operation{Kind: OpPadSilence, Units: delta, Samples: delta * samplesPerUnit}
	case delta < 0:
		return Operation{Kind: OpTrim, Units: -delta, Samples: -delta * samplesPerUnit}
	default:
		return Operation{Kind: OpNone}
	}
}

// computeVariable handles codecs whose frame sizes are not constant
// (TrueHD, MLP). Quantization walks the stream's own frame-size sequence by
// prefix sum: the chosen count is the prefix with minimal absolute sample
// error against the exact rational target, ties broken toward fewer frames.
func computeVariable(delay timevalue.TimeValue, target *timevalue.TimeValue, props StreamProperties) (*CorrectionPlan, error) {
	sizes := props.FrameSizes
	if len(sizes) == 0 {
		return nil, fmt.Errorf("variable-frame codec requires per-frame sizes from stream inspection")
	}

	rate := new(big.Rat).SetInt64(props.SampleRate)
	totalSamples := int64(0)
	for _, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("invalid frame size %d in sequence", s)
		}
		totalSamples += s
	}

	delaySamplesExact := new(big.Rat).Mul(delay.Rat(), rate)
	absDelay := new(big.Rat).Abs(delaySamplesExact)

	p := &CorrectionPlan{
		Unit:           UnitFrames,
		RequestedDelay: delay,
	}

	var startFrames, startSamples int64 // signed deltas
	switch {
	case delay.Sign() > 0:
		f, s := padQuantize(sizes, totalSamples, absDelay)
		startFrames, startSamples = f, s
		if f > 0 {
			p.Start = Operation{Kind: OpPadSilence, Units: f, Samples: s}
		}
	case delay.Sign() < 0:
		f, s, ok := trimQuantize(sizes, absDelay)
		if !ok {
			return nil, fmt.Errorf("%w: start trim of %s samples exceeds the %d available",
				ErrDelayExceedsStreamLength, absDelay.FloatString(0), totalSamples)
		}
		startFrames, startSamples = -f, -s
		if f > 0 {
			p.Start = Operation{Kind: OpTrim, Units: f, Samples: s}
		}
	}
	p.AchievedDelay = timevalue.FromUnits(startSamples, props.SampleRate)

	afterFrames := int64(len(sizes)) + startFrames
	afterSamples := totalSamples + startSamples

	// The frame sequence present after the start operation, needed to land
	// end trims on real frame boundaries.
	remaining := sizes
	if startFrames < 0 {
		remaining = sizes[-startFrames:]
	}

	endFrames, endSamples := int64(0), int64(0)
	if target != nil {
		targetSamplesExact := new(big.Rat).Mul(target.Rat(), rate)
		deltaExact := new(big.Rat).Sub(targetSamplesExact, new(big.Rat).SetInt64(afterSamples))

		switch deltaExact.Sign() {
		case 1:
			f, s := padQuantize(sizes, totalSamples, deltaExact)
			endFrames, endSamples = f, s
			if f > 0 {
				p.End = Operation{Kind: OpPadSilence, Units: f, Samples: s}
			}
		case -1:
			absDelta := new(big.Rat).Abs(deltaExact)
			f, s, ok := trimQuantize(reversed(remaining), absDelta)
			if !ok {
				return nil, fmt.Errorf("%w: end trim of %s samples exceeds the %d present after the start operation",
					ErrTargetShorterThanContent, absDelta.FloatString(0), afterSamples)
			}
			endFrames, endSamples = -f, -s
			if f > 0 {
				p.End = Operation{Kind: OpTrim, Units: f, Samples: s}
			}
		}
	}

	p.FinalUnits = afterFrames + endFrames
	p.FinalSamples = afterSamples + endSamples
	p.FinalDuration = timevalue.FromUnits(p.FinalSamples, props.SampleRate)
	return p, nil
}

// prefixQuantize picks the prefix of sizes whose cumulative sample count is
// closest to the exact target; an exact tie selects the shorter prefix.
// target must be non-negative.
func prefixQuantize(sizes []int64, target *big.Rat) (frames, samples int64) {
	bestFrames, bestSamples := int64(0), int64(0)
	bestDist := new(big.Rat).Abs(target)

	sum := int64(0)
	for i, s := range sizes {
		sum += s
		dist := new(big.Rat).SetInt64(sum)
		dist.Sub(dist, target)
		dist.Abs(dist)
		if dist.Cmp(bestDist) < 0 {
			bestFrames, bestSamples = int64(i)+1, sum
			bestDist = dist
		}
		// Prefix sums are strictly increasing, so once past the target the
		// distance only grows.
		if new(big.Rat).SetInt64(sum).Cmp(target) >= 0 {
			break
		}
	}
	return bestFrames, bestSamples
}

// trimQuantize quantizes a trim against the frame sequence. A target past
// the whole sequence still snaps to the full prefix while the excess stays
// within half of the final frame, the same tolerance any in-range target
// gets from nearest-boundary rounding; a larger excess has no representable
// boundary and reports ok false.
func trimQuantize(sizes []int64, target *big.Rat) (frames, samples int64, ok bool) {
	if len(sizes) == 0 {
		return 0, 0, target.Sign() <= 0
	}

	total := int64(0)
	for _, s := range sizes {
		total += s
	}
	excess := new(big.Rat).Set(target)
	excess.Sub(excess, new(big.Rat).SetInt64(total))
	if excess.Sign() > 0 {
		if excess.Cmp(big.NewRat(sizes[len(sizes)-1], 2)) > 0 {
			return 0, 0, false
		}
		return int64(len(sizes)), total, true
	}

	frames, samples = prefixQuantize(sizes, target)
	return frames, samples, true
}

// padQuantize is prefixQuantize extended past the end of the sequence: pads
// longer than the whole silence source repeat it, so whole repetitions are
// peeled off before quantizing the remainder.
func padQuantize(sizes []int64, totalSamples int64, target *big.Rat) (frames, samples int64) {
	total := new(big.Rat).SetInt64(totalSamples)
	q := new(big.Rat).Quo(new(big.Rat).Set(target), total)
	r := new(big.Int).Quo(q.Num(), q.Denom()).Int64()
	if r < 0 {
		r = 0
	}

	rem := new(big.Rat).Set(target)
	rem.Sub(rem, new(big.Rat).Mul(new(big.Rat).SetInt64(r), total))

	f, s := prefixQuantize(sizes, rem)
	return r*int64(len(sizes)) + f, r*totalSamples + s
}

// reversed returns a reversed copy of sizes.
func reversed(sizes []int64) []int64 {
	out := make([]int64, len(sizes))
	for i, s := range sizes {
		out[len(sizes)-1-i] = s
	}
	return out
}

// roundHalfAway rounds an exact rational to the nearest integer, halves
// away from zero.
func roundHalfAway(r *big.Rat) int64 {
	num := new(big.Int).Abs(r.Num())
	den := r.Denom()

	t := new(big.Int).Lsh(num, 1)
	t.Add(t, den)
	t.Quo(t, new(big.Int).Lsh(den, 1))
	if r.Sign() < 0 {
		t.Neg(t)
	}
	return t.Int64()
}
