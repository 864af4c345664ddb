package executor

import (
	"github.com/remuxtools/delayfix/internal/precision"
)

// grid maps between sample positions and codec frame boundaries so cuts
// never split a frame. Fixed-size codecs use arithmetic; variable-size
// codecs use the stream's prefix sums.
type grid struct {
	fixed  int64   // samples per frame, 0 for variable
	prefix []int64 // prefix[i] = samples before frame i, len = frames+1
	frames int64
}

func newGrid(prec precision.Precision, durationSamples int64, frameSizes []int64) *grid {
	if prec.Variable {
		prefix := make([]int64, len(frameSizes)+1)
		for i, s := range frameSizes {
			prefix[i+1] = prefix[i] + s
		}
		return &grid{prefix: prefix, frames: int64(len(frameSizes))}
	}
	return &grid{fixed: prec.FrameSize, frames: durationSamples / prec.FrameSize}
}

// samplesAt returns the sample position of frame boundary idx.
func (g *grid) samplesAt(idx int64) int64 {
	if g.fixed > 0 {
		return idx * g.fixed
	}
	return g.prefix[idx]
}

// floorIndex returns the last boundary at or below the sample position.
func (g *grid) floorIndex(samples int64) int64 {
	if g.fixed > 0 {
		idx := samples / g.fixed
		if idx > g.frames {
			idx = g.frames
		}
		return idx
	}
	lo, hi := int64(0), g.frames
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if g.prefix[mid] <= samples {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// ceilIndex returns the first boundary at or above the sample position.
func (g *grid) ceilIndex(samples int64) int64 {
	idx := g.floorIndex(samples)
	if g.samplesAt(idx) < samples && idx < g.frames {
		idx++
	}
	return idx
}

// sizesIn returns the per-frame sample counts between boundaries i and j.
func (g *grid) sizesIn(i, j int64) []int64 {
	sizes := make([]int64, 0, j-i)
	for k := i; k < j; k++ {
		sizes = append(sizes, g.samplesAt(k+1)-g.samplesAt(k))
	}
	return sizes
}
