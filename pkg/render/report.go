package render

import (
	"fmt"
	"math"

	"github.com/codahale/hdrhistogram"
	"github.com/skypies/util/histogram"

	"github.com/abworrall/hdr-tonemap/pkg/emath"
	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

// Luminances are recorded in the percentile histogram as integer
// micro-units.
const reportUnit = 1e6

var ReportQuantiles = []float64{1, 5, 25, 50, 75, 95, 99, 99.9}

// Report is a diagnostic look at a frame's luminance, ahead of tone
// mapping.
type Report struct {
	Min, Max    float64
	LogAverage  float64 // over positive samples only
	NonPositive int

	Quantiles []float64 // luminance at each of ReportQuantiles
	Stops     histogram.Histogram
	Grid      *emath.Grid[float64] // log2 luminance
}

func NewReport(f *tonemap.Frame) *Report {
	r := &Report{
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
		Stops: histogram.Histogram{NumBuckets: 64, ValMin: 0, ValMax: 64},
		Grid:  emath.NewGrid[float64](f.W, f.H),
	}
	h := hdrhistogram.New(1, 1e15, 3)

	logSum, n := 0.0, 0
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			red, g, b, _ := f.RGBA(x, y)
			l := tonemap.Luminance(float64(red), float64(g), float64(b))
			r.Min, r.Max = math.Min(r.Min, l), math.Max(r.Max, l)

			if !(l > 0) {
				r.NonPositive++
				r.Grid.Set(x, y, math.Log2(tonemap.DefaultEpsilon))
				continue
			}
			stops := math.Log2(l)
			r.Grid.Set(x, y, stops)
			logSum += math.Log(l)
			n++

			// Stops histogram covers 2^-32 .. 2^32
			r.Stops.Add(histogram.ScalarVal(int(math.Max(0, math.Min(63, stops+32)))))
			h.RecordValue(int64(math.Max(1, math.Min(1e15, l*reportUnit))))
		}
	}
	if n > 0 {
		r.LogAverage = math.Exp(logSum / float64(n))
	}
	for _, q := range ReportQuantiles {
		r.Quantiles = append(r.Quantiles, float64(h.ValueAtQuantile(q))/reportUnit)
	}
	return r
}

// Median is read from the grid exactly, as a cross check on the
// histogram's 50th percentile.
func (r *Report) Median() float64 {
	return math.Exp2(r.Grid.Percentile(50))
}

func (r *Report) String() string {
	str := fmt.Sprintf("luminance: min=%g max=%g logavg=%g median=%g nonpositive=%d\n",
		r.Min, r.Max, r.LogAverage, r.Median(), r.NonPositive)
	for i, q := range ReportQuantiles {
		str += fmt.Sprintf("  p%-5g %12.6f\n", q, r.Quantiles[i])
	}
	str += fmt.Sprintf("stops (log2 L + 32): %v\n", &r.Stops)
	return str
}

// DumpGrid writes the log2 luminance as a grayscale PNG.
func (r *Report) DumpGrid(title, filename string) error {
	return r.Grid.ToImg(title, filename)
}
