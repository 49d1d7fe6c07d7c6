package render

import (
	"fmt"

	"github.com/abworrall/hdr-tonemap/pkg/emath"
	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

// Diff summarizes how far apart two renditions of the same image are, in
// quantization steps.
type Diff struct {
	MaxDiff   [3]int // per channel
	Differing int    // samples that differ at all
	Samples   int
	Grid      *emath.Grid[float64] // per-pixel largest channel difference
}

// Compare diffs two rasters of the same size and depth.
func Compare(a, b *tonemap.Raster) (Diff, error) {
	if a.W != b.W || a.H != b.H || a.BitDepth != b.BitDepth {
		return Diff{}, fmt.Errorf("compare: %dx%d@%d vs %dx%d@%d", a.W, a.H, a.BitDepth, b.W, b.H, b.BitDepth)
	}

	d := Diff{Samples: len(a.Pix), Grid: emath.NewGrid[float64](a.W, a.H)}
	for i := range a.Pix {
		delta := int(a.Pix[i]) - int(b.Pix[i])
		if delta < 0 {
			delta = -delta
		}
		if delta == 0 {
			continue
		}
		d.Differing++
		c, px := i%3, i/3
		d.MaxDiff[c] = max(d.MaxDiff[c], delta)
		if x, y := px%a.W, px/a.W; float64(delta) > d.Grid.Get(x, y) {
			d.Grid.Set(x, y, float64(delta))
		}
	}
	return d, nil
}

func (d Diff) Max() int {
	return max(d.MaxDiff[0], d.MaxDiff[1], d.MaxDiff[2])
}

func (d Diff) WithinOneStep() bool { return d.Max() <= 1 }

func (d Diff) String() string {
	pct := 0.0
	if d.Samples > 0 {
		pct = 100.0 * float64(d.Differing) / float64(d.Samples)
	}
	return fmt.Sprintf("maxdiff=%v, %d/%d samples differ (%.3f%%)", d.MaxDiff, d.Differing, d.Samples, pct)
}
