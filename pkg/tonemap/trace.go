package tonemap

import (
	"fmt"
	"image"

	"github.com/abworrall/hdr-tonemap/pkg/emath"
)

// A Trace follows a few pixels through the pipeline stages, for
// debugging. A nil *Trace records nothing.
type Trace struct {
	Records []TraceRecord
}

type TraceRecord struct {
	Pos       image.Point
	Input     [4]float64
	Luminance float64
	Scaled    float64
	Ratio     float64
	Output    [4]float64
	Samples   [3]uint16
	BitDepth  int
}

func NewTrace(pts ...image.Point) *Trace {
	t := &Trace{}
	for _, pt := range pts {
		t.Records = append(t.Records, TraceRecord{Pos: pt})
	}
	return t
}

// Reset clears everything recorded so far, keeping the pixel positions.
func (t *Trace) Reset() {
	if t == nil {
		return
	}
	for i := range t.Records {
		t.Records[i] = TraceRecord{Pos: t.Records[i].Pos}
	}
}

func (t *Trace) each(w, h int, fn func(r *TraceRecord)) {
	if t == nil {
		return
	}
	for i := range t.Records {
		pt := t.Records[i].Pos
		if pt.In(image.Rect(0, 0, w, h)) {
			fn(&t.Records[i])
		}
	}
}

func (t *Trace) input(f *Frame) {
	t.each(f.W, f.H, func(r *TraceRecord) {
		red, g, b, a := f.RGBA(r.Pos.X, r.Pos.Y)
		r.Input = [4]float64{float64(red), float64(g), float64(b), float64(a)}
	})
}

func (t *Trace) output(f *Frame) {
	t.each(f.W, f.H, func(r *TraceRecord) {
		red, g, b, a := f.RGBA(r.Pos.X, r.Pos.Y)
		r.Output = [4]float64{float64(red), float64(g), float64(b), float64(a)}
	})
}

func (t *Trace) encoded(ras *Raster) {
	t.each(ras.W, ras.H, func(r *TraceRecord) {
		red, g, b := ras.At(r.Pos.X, r.Pos.Y)
		r.Samples = [3]uint16{red, g, b}
		r.BitDepth = ras.BitDepth
	})
}

func traceGrid[F Float](t *Trace, g *emath.Grid[F], field func(*TraceRecord) *float64) {
	t.each(g.Dx(), g.Dy(), func(r *TraceRecord) {
		*field(r) = float64(g.Get(r.Pos.X, r.Pos.Y))
	})
}

func (r TraceRecord) String() string {
	str := fmt.Sprintf("----- Pixel @(%d,%d)-----\n", r.Pos.X, r.Pos.Y)
	str += fmt.Sprintf("Input(RGBA)        : [%12.10f, %12.10f, %12.10f, %12.10f]\n", r.Input[0], r.Input[1], r.Input[2], r.Input[3])
	str += fmt.Sprintf("Luminance          : %12.10f\n", r.Luminance)
	str += fmt.Sprintf("Scaled luminance   : %12.10f\n", r.Scaled)
	str += fmt.Sprintf("Compression ratio  : %12.10f\n", r.Ratio)
	str += fmt.Sprintf("Output(RGBA)       : [%12.10f, %12.10f, %12.10f, %12.10f]\n", r.Output[0], r.Output[1], r.Output[2], r.Output[3])
	if r.BitDepth > 0 {
		str += fmt.Sprintf("Encoded(%2dbit)     : [%12d, %12d, %12d]\n", r.BitDepth, r.Samples[0], r.Samples[1], r.Samples[2])
	}
	return str
}

func (t *Trace) String() string {
	if t == nil {
		return ""
	}
	str := ""
	for _, r := range t.Records {
		str += r.String() + "\n"
	}
	return str
}
